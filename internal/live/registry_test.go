package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/database"
	"github.com/trentd187/tennis-tracker/internal/models"
	"github.com/trentd187/tennis-tracker/internal/scoring"
)

type recordingHub struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (h *recordingHub) BroadcastToMatch(matchID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages == nil {
		h.messages = make(map[string][][]byte)
	}
	h.messages[matchID] = append(h.messages[matchID], data)
}

func (h *recordingHub) count(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages[matchID])
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "live.db")
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := database.RunMigrations(db, dsn); err != nil {
		t.Fatalf("RunMigrations() failed: %v", err)
	}
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestRegistry(t *testing.T) (*Registry, *recordingHub, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	hub := &recordingHub{}
	return NewRegistry(db, hub, quietLogger(), scoring.DefaultHistoryLimit), hub, db
}

func createMatch(t *testing.T, r *Registry, format scoring.Format) uuid.UUID {
	t.Helper()
	snap, err := r.Create(context.Background(), NewMatch{
		Format:      format,
		Player1:     "Ada",
		Player2:     "Grace",
		FirstServer: scoring.Player1,
	})
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", format, err)
	}
	return uuid.MustParse(snap.MatchID)
}

func point(t *testing.T, r *Registry, id uuid.UUID, p scoring.Player) Snapshot {
	t.Helper()
	snap, err := r.RecordPoint(context.Background(), id, p, nil, false)
	if err != nil {
		t.Fatalf("RecordPoint(%s) failed: %v", p, err)
	}
	return snap
}

func pointRows(t *testing.T, db *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.MatchPoint{}).Where("match_id = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count points: %v", err)
	}
	return n
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, NewMatch{Format: "FIVE_SETS_OF_DOUBLES", FirstServer: scoring.Player1})
	if !errors.Is(err, scoring.ErrUnsupportedFormat) {
		t.Errorf("unknown format: err = %v, want ErrUnsupportedFormat", err)
	}
	_, err = r.Create(ctx, NewMatch{Format: scoring.BestOf3, FirstServer: "PLAYER_3"})
	if !errors.Is(err, scoring.ErrInvalidPlayer) {
		t.Errorf("bad server: err = %v, want ErrInvalidPlayer", err)
	}
}

func TestRecordPointPersistsAndBroadcasts(t *testing.T) {
	r, hub, db := newTestRegistry(t)
	id := createMatch(t, r, scoring.BestOf3)

	var snap Snapshot
	for i := 0; i < 4; i++ {
		snap = point(t, r, id, scoring.Player1)
	}
	if got := snap.State.Set.Games; got != (scoring.Pair[int]{Player1: 1}) {
		t.Errorf("games = %+v, want 1-0", got)
	}
	if !snap.CanUndo {
		t.Error("CanUndo = false after recording points")
	}
	if snap.Players.Player2 != "Grace" || snap.DisplayName != "Best of 3 Sets" {
		t.Errorf("unexpected snapshot header: %+v", snap)
	}

	if n := pointRows(t, db, id); n != 4 {
		t.Errorf("stored %d point rows, want 4", n)
	}
	if n := hub.count(id.String()); n != 4 {
		t.Errorf("broadcast %d messages, want 4", n)
	}

	var match models.Match
	if err := db.First(&match, "id = ?", id).Error; err != nil {
		t.Fatalf("load match: %v", err)
	}
	var stored scoring.MatchState
	if err := json.Unmarshal([]byte(match.State), &stored); err != nil {
		t.Fatalf("decode stored state: %v", err)
	}
	if stored.Set.Games != snap.State.Set.Games || stored.Server != scoring.Player2 {
		t.Errorf("stored state %+v does not match the engine", stored)
	}
	if match.StartedAt == nil {
		t.Error("StartedAt not stored")
	}
}

func TestUnknownMatch(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	id := uuid.New()

	if _, err := r.Get(ctx, id); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Get: err = %v, want ErrMatchNotFound", err)
	}
	if _, err := r.RecordPoint(ctx, id, scoring.Player1, nil, false); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("RecordPoint: err = %v, want ErrMatchNotFound", err)
	}
	if _, err := r.Stats(ctx, id); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Stats: err = %v, want ErrMatchNotFound", err)
	}
}

func TestUndoRemovesLastPoint(t *testing.T) {
	r, _, db := newTestRegistry(t)
	ctx := context.Background()
	id := createMatch(t, r, scoring.BestOf3)

	point(t, r, id, scoring.Player1)
	point(t, r, id, scoring.Player2)

	snap, err := r.Undo(ctx, id)
	if err != nil {
		t.Fatalf("Undo() failed: %v", err)
	}
	score := snap.State.Game.Score.Ladder
	if score.Player1 != scoring.Fifteen || score.Player2 != scoring.Love {
		t.Errorf("score after undo = %+v, want 15-0", score)
	}
	if n := pointRows(t, db, id); n != 1 {
		t.Errorf("stored %d point rows after undo, want 1", n)
	}

	// The next point reuses the freed sequence number.
	point(t, r, id, scoring.Player1)
	var last models.MatchPoint
	if err := db.Where("match_id = ?", id).Order("sequence DESC").First(&last).Error; err != nil {
		t.Fatalf("load last point: %v", err)
	}
	if last.Sequence != 2 || last.Winner != string(scoring.Player1) {
		t.Errorf("last point = seq %d winner %s, want seq 2 winner PLAYER_1", last.Sequence, last.Winner)
	}

	r.Undo(ctx, id)
	if _, err := r.Undo(ctx, id); err != nil {
		t.Fatalf("second Undo() failed: %v", err)
	}
	if _, err := r.Undo(ctx, id); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo with nothing left: err = %v, want ErrNothingToUndo", err)
	}
}

func TestForfeitAndUndo(t *testing.T) {
	r, _, db := newTestRegistry(t)
	ctx := context.Background()
	id := createMatch(t, r, scoring.BestOf3)
	point(t, r, id, scoring.Player1)

	snap, err := r.Forfeit(ctx, id, scoring.Player2)
	if err != nil {
		t.Fatalf("Forfeit() failed: %v", err)
	}
	if snap.Status != models.MatchStatusForfeited || snap.State.Winner != scoring.Player2 {
		t.Errorf("after forfeit: status %s winner %s", snap.Status, snap.State.Winner)
	}
	if _, err := r.RecordPoint(ctx, id, scoring.Player1, nil, false); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("point after forfeit: err = %v, want ErrMatchFinished", err)
	}
	if _, err := r.Forfeit(ctx, id, scoring.Player1); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("second forfeit: err = %v, want ErrMatchFinished", err)
	}

	var match models.Match
	db.First(&match, "id = ?", id)
	if match.Status != models.MatchStatusForfeited || match.Winner == nil || *match.Winner != "PLAYER_2" {
		t.Errorf("stored match = status %s winner %v", match.Status, match.Winner)
	}

	snap, err = r.Undo(ctx, id)
	if err != nil {
		t.Fatalf("Undo() failed: %v", err)
	}
	if snap.Status != models.MatchStatusInProgress {
		t.Errorf("status after undoing forfeit = %s, want in_progress", snap.Status)
	}
	// Undoing the forfeit must not touch the point log.
	if n := pointRows(t, db, id); n != 1 {
		t.Errorf("stored %d point rows, want 1", n)
	}
}

func TestDecidingPoint(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	id := createMatch(t, r, scoring.NoAd)

	if _, err := r.RecordPoint(ctx, id, scoring.Player1, nil, true); !errors.Is(err, ErrNotDecidingPoint) {
		t.Fatalf("deciding point at 0-0: err = %v, want ErrNotDecidingPoint", err)
	}

	for i := 0; i < 3; i++ {
		point(t, r, id, scoring.Player1)
		point(t, r, id, scoring.Player2)
	}
	snap, err := r.RecordPoint(ctx, id, scoring.Player2, nil, true)
	if err != nil {
		t.Fatalf("RecordPoint(deciding) failed: %v", err)
	}
	if got := snap.State.Set.Games; got != (scoring.Pair[int]{Player2: 1}) {
		t.Errorf("games = %+v, want 0-1", got)
	}
}

func TestSessionReloadsFromDatabase(t *testing.T) {
	r, _, db := newTestRegistry(t)
	ctx := context.Background()
	id := createMatch(t, r, scoring.BestOf3)
	for i := 0; i < 5; i++ {
		point(t, r, id, scoring.Player1)
	}
	want, _ := r.Get(ctx, id)

	// A second registry over the same database behaves like a restarted server.
	restarted := NewRegistry(db, nil, quietLogger(), scoring.DefaultHistoryLimit)
	got, err := restarted.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() after restart failed: %v", err)
	}
	if got.State.Set.Games != want.State.Set.Games || got.State.Game.Score != want.State.Game.Score {
		t.Errorf("reloaded state %+v, want %+v", got.State, want.State)
	}
	if got.CanUndo {
		t.Error("CanUndo = true after reload, want an empty undo trail")
	}
	if _, err := restarted.Undo(ctx, id); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo after reload: err = %v, want ErrNothingToUndo", err)
	}

	// Scoring continues from the stored snapshot.
	snap, err := restarted.RecordPoint(ctx, id, scoring.Player1, nil, false)
	if err != nil {
		t.Fatalf("RecordPoint after reload failed: %v", err)
	}
	if snap.State.Game.Score.Ladder.Player1 != scoring.Thirty {
		t.Errorf("score = %+v, want 30-0", snap.State.Game.Score.Ladder)
	}
}

func TestStatsFromStoredPoints(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	id := createMatch(t, r, scoring.BestOf3)

	details := []struct {
		winner scoring.Player
		detail scoring.PointDetail
	}{
		{scoring.Player1, scoring.PointDetail{Serve: scoring.ServeDetail{Ace: true, Serve: 1}}},
		{scoring.Player2, scoring.PointDetail{Serve: scoring.ServeDetail{DoubleFault: true, Serve: 2}}},
		{scoring.Player2, scoring.PointDetail{Outcome: scoring.OutcomeWinner, RallyLength: 9}},
		{scoring.Player1, scoring.PointDetail{Outcome: scoring.OutcomeUnforcedError}},
	}
	for _, d := range details {
		if _, err := r.RecordPoint(ctx, id, d.winner, &d.detail, false); err != nil {
			t.Fatalf("RecordPoint failed: %v", err)
		}
	}

	stats, err := r.Stats(ctx, id)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	p1, p2 := stats.Player1, stats.Player2
	if p1.Aces != 1 || p1.DoubleFaults != 1 || p1.PointsWon != 2 {
		t.Errorf("player 1 stats = %+v", p1)
	}
	if p2.Winners != 1 || p2.UnforcedErrors != 1 || p2.PointsWon != 2 {
		t.Errorf("player 2 stats = %+v", p2)
	}
}
