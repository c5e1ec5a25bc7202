package scoring

// DefaultHistoryLimit is the undo depth of an engine built without WithHistoryLimit.
const DefaultHistoryLimit = 50

type snapshot struct {
	state  MatchState
	points int // len(points-history) when the snapshot was taken
}

// history is a bounded LIFO of snapshots backed by a ring buffer. When full, a push
// overwrites the oldest entry.
type history struct {
	buf   []snapshot
	start int
	size  int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &history{buf: make([]snapshot, limit)}
}

func (h *history) push(s snapshot) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = s
		h.size++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

func (h *history) pop() (snapshot, bool) {
	if h.size == 0 {
		return snapshot{}, false
	}
	i := (h.start + h.size - 1) % len(h.buf)
	s := h.buf[i]
	h.buf[i] = snapshot{}
	h.size--
	return s, true
}

func (h *history) len() int { return h.size }

func (h *history) reset() {
	clear(h.buf)
	h.start, h.size = 0, 0
}
