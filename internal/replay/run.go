package replay

import (
	"fmt"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// Result is the outcome of a replay.
type Result struct {
	Script Script
	Engine *scoring.Engine
	State  scoring.MatchState

	Recorded int // points awarded, including deciding points
	Undone   int // successful undos
	// Ignored counts steps the engine had no effect for: points after the match ended,
	// deciding points outside 40-40 of a no-ad game, undos with empty history.
	Ignored int
}

// Run replays sc on a fresh engine built with opts.
func Run(sc Script, opts ...scoring.Option) (*Result, error) {
	e, err := scoring.New(sc.Server, sc.Format, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	res := &Result{Script: sc, Engine: e}

	for i, st := range sc.Points {
		for k, n := 0, max(st.Repeat, 1); k < n; k++ {
			if err := res.apply(st); err != nil {
				return nil, fmt.Errorf("replay: step %d: %w", i+1, err)
			}
		}
	}
	res.State = e.State()
	return res, nil
}

func (r *Result) apply(st Step) error {
	e := r.Engine
	state := e.State()

	switch {
	case st.Undo:
		if _, ok := e.UndoLastPoint(); ok {
			r.Undone++
		} else {
			r.Ignored++
		}
		return nil

	case st.Forfeit != "":
		if _, err := e.Forfeit(st.Forfeit); err != nil {
			return err
		}
		if state.IsFinished {
			r.Ignored++
		}
		return nil

	case st.Deciding:
		if !state.Game.IsNoAdDecidingPoint {
			if !st.Winner.Valid() {
				return fmt.Errorf("%w: %q", scoring.ErrInvalidPlayer, string(st.Winner))
			}
			r.Ignored++
			return nil
		}
		if _, err := e.PlayDecidingPoint(st.Winner); err != nil {
			return err
		}
		r.Recorded++
		return nil
	}

	if _, err := e.RecordPoint(st.Winner, st.detail()); err != nil {
		return err
	}
	if state.IsFinished {
		r.Ignored++
	} else {
		r.Recorded++
	}
	return nil
}
