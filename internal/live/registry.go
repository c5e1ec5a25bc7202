// Package live keeps one scoring engine in memory per match that is being scored.
//
// Every mutation follows the same steps: lock the match, apply the change to the engine,
// persist the resulting snapshot (and point row) in one transaction, then broadcast the
// snapshot to spectators. If persisting fails the engine change is rolled back, so memory
// and database never disagree about the score.
//
// Undo history lives only in memory. A match loaded from the database after a restart
// starts with an empty undo trail.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/models"
	"github.com/trentd187/tennis-tracker/internal/scoring"
)

var (
	ErrMatchNotFound    = errors.New("live: match not found")
	ErrMatchFinished    = errors.New("live: match is finished")
	ErrNothingToUndo    = errors.New("live: nothing to undo")
	ErrNotDecidingPoint = errors.New("live: game is not at a deciding point")
)

// Broadcaster delivers snapshots to spectators. *websocket.Hub satisfies it.
type Broadcaster interface {
	BroadcastToMatch(matchID string, data []byte)
}

// Registry owns the in-memory sessions. It is safe for concurrent use.
type Registry struct {
	db        *gorm.DB
	hub       Broadcaster // may be nil
	logger    *log.Logger
	undoDepth int

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	mu     sync.Mutex
	match  models.Match // ID, format and players; State is not kept current here
	engine *scoring.Engine
}

// NewRegistry returns an empty registry. hub may be nil when nobody is listening.
func NewRegistry(db *gorm.DB, hub Broadcaster, logger *log.Logger, undoDepth int) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		db:        db,
		hub:       hub,
		logger:    logger,
		undoDepth: undoDepth,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// NewMatch describes a match to create.
type NewMatch struct {
	Format      scoring.Format
	Player1     string
	Player2     string
	FirstServer scoring.Player
	CreatedBy   *uuid.UUID
}

// Snapshot is the view of a match returned by the API and pushed to spectators.
type Snapshot struct {
	MatchID      string               `json:"matchId"`
	Format       scoring.Format       `json:"format"`
	DisplayName  string               `json:"displayName"`
	DetailedName string               `json:"detailedName"`
	Players      scoring.Pair[string] `json:"players"`
	Status       models.MatchStatus   `json:"status"`
	State        scoring.MatchState   `json:"state"`
	CanUndo      bool                 `json:"canUndo"`
	ServingSide  scoring.Side         `json:"servingSide"`
	ChangeSides  bool                 `json:"changeSides"`
}

// Create validates the format and first server, stores a new match and opens its session.
// Validation failures wrap scoring.ErrUnsupportedFormat or scoring.ErrInvalidPlayer.
func (r *Registry) Create(ctx context.Context, nm NewMatch) (Snapshot, error) {
	id := uuid.New()
	engine, err := r.newEngine(id, nm.FirstServer, nm.Format)
	if err != nil {
		return Snapshot{}, err
	}

	raw, err := json.Marshal(engine.State())
	if err != nil {
		return Snapshot{}, err
	}
	match := models.Match{
		ID:          id,
		Format:      string(nm.Format),
		Player1Name: nm.Player1,
		Player2Name: nm.Player2,
		FirstServer: string(nm.FirstServer),
		Status:      models.MatchStatusInProgress,
		State:       string(raw),
		CreatedBy:   nm.CreatedBy,
	}
	if err := r.db.WithContext(ctx).Create(&match).Error; err != nil {
		return Snapshot{}, fmt.Errorf("live: create match: %w", err)
	}

	s := &session{match: match, engine: engine}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("match created", "match", id, "format", nm.Format,
		"player1", nm.Player1, "player2", nm.Player2)
	return s.snapshot(), nil
}

// Get returns the current snapshot of a match, loading it from the database if needed.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	s, err := r.session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// RecordPoint awards a point to winner. detail may be nil. With deciding set, the point is
// only accepted when the current no-ad game is at its deciding point.
func (r *Registry) RecordPoint(ctx context.Context, id uuid.UUID, winner scoring.Player, detail *scoring.PointDetail, deciding bool) (Snapshot, error) {
	s, err := r.session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.engine.State()
	if before.IsFinished {
		return Snapshot{}, ErrMatchFinished
	}
	if deciding && !before.Game.IsNoAdDecidingPoint {
		return Snapshot{}, ErrNotDecidingPoint
	}

	// Always record a detail so the engine's points line up with the stored rows.
	d := scoring.PointDetail{}
	if detail != nil {
		d = *detail
	}
	state, err := s.engine.RecordPoint(winner, &d)
	if err != nil {
		return Snapshot{}, err
	}
	points := s.engine.Points()
	recorded := points[len(points)-1]

	err = r.persist(ctx, s, state, func(tx *gorm.DB) error {
		var seq int
		if err := tx.Model(&models.MatchPoint{}).
			Where("match_id = ?", id).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&seq).Error; err != nil {
			return err
		}
		row := models.NewMatchPoint(id, seq+1, recorded)
		return tx.Create(&row).Error
	})
	if err != nil {
		s.engine.UndoLastPoint()
		return Snapshot{}, err
	}

	snap := s.snapshot()
	r.broadcast(snap)
	return snap, nil
}

// Undo reverts the most recent point or forfeit.
func (r *Registry) Undo(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	s, err := r.session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.CanUndo() {
		return Snapshot{}, ErrNothingToUndo
	}
	before := s.engine.State()
	state, _ := s.engine.UndoLastPoint()
	undidForfeit := before.Forfeited && !state.Forfeited

	err = r.persist(ctx, s, state, func(tx *gorm.DB) error {
		if undidForfeit {
			return nil
		}
		var last models.MatchPoint
		err := tx.Where("match_id = ?", id).Order("sequence DESC").First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Delete(&last).Error
	})
	if err != nil {
		// The popped snapshot can't be pushed back; reload from the database next time.
		r.evict(id)
		return Snapshot{}, err
	}

	r.logger.Debug("undo", "match", id, "forfeit", undidForfeit)
	snap := s.snapshot()
	r.broadcast(snap)
	return snap, nil
}

// Forfeit ends the match in favour of winner.
func (r *Registry) Forfeit(ctx context.Context, id uuid.UUID, winner scoring.Player) (Snapshot, error) {
	s, err := r.session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.State().IsFinished {
		return Snapshot{}, ErrMatchFinished
	}
	state, err := s.engine.Forfeit(winner)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.persist(ctx, s, state, nil); err != nil {
		s.engine.UndoLastPoint()
		return Snapshot{}, err
	}

	r.logger.Info("match forfeited", "match", id, "winner", winner)
	snap := s.snapshot()
	r.broadcast(snap)
	return snap, nil
}

// Stats folds the stored point rows of a match into per-player statistics.
func (r *Registry) Stats(ctx context.Context, id uuid.UUID) (scoring.MatchStats, error) {
	db := r.db.WithContext(ctx)
	var match models.Match
	if err := db.Select("id").First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scoring.MatchStats{}, ErrMatchNotFound
		}
		return scoring.MatchStats{}, err
	}

	var rows []models.MatchPoint
	if err := db.Where("match_id = ?", id).Order("sequence").Find(&rows).Error; err != nil {
		return scoring.MatchStats{}, err
	}
	details := make([]scoring.PointDetail, len(rows))
	for i, row := range rows {
		details[i] = row.Detail()
	}
	return scoring.ComputeStats(details), nil
}

// session returns the open session for id, loading the match from the database on a miss.
func (r *Registry) session(ctx context.Context, id uuid.UUID) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	var match models.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	var saved scoring.MatchState
	if err := json.Unmarshal([]byte(match.State), &saved); err != nil {
		return nil, fmt.Errorf("live: decode state of match %s: %w", id, err)
	}
	engine, err := r.newEngine(id, scoring.Player(match.FirstServer), scoring.Format(match.Format))
	if err != nil {
		return nil, err
	}
	engine.LoadState(saved)

	s := &session{match: match, engine: engine}
	r.sessions[id] = s
	r.logger.Debug("match loaded", "match", id)
	return s, nil
}

func (r *Registry) evict(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) newEngine(id uuid.UUID, server scoring.Player, format scoring.Format) (*scoring.Engine, error) {
	logger := r.logger.With("match", id)
	return scoring.New(server, format,
		scoring.WithLogger(logger),
		scoring.WithHistoryLimit(r.undoDepth),
		scoring.WithObserver(func(ev scoring.Event) {
			if ev.Kind == scoring.EventGameWon {
				logger.Debug("game won", "player", ev.Player, "set", ev.SetNumber, "games", ev.Games)
				return
			}
			logger.Info(string(ev.Kind), "player", ev.Player, "set", ev.SetNumber, "sets", ev.Sets)
		}),
	)
}

// persist stores state on the match row, running extra inside the same transaction.
func (r *Registry) persist(ctx context.Context, s *session, state scoring.MatchState, extra func(tx *gorm.DB) error) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	var winner *string
	if state.Winner != "" {
		w := string(state.Winner)
		winner = &w
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		return tx.Model(&models.Match{}).Where("id = ?", s.match.ID).Updates(map[string]any{
			"state":      string(raw),
			"status":     string(models.StatusFor(state)),
			"winner":     winner,
			"started_at": state.StartedAt,
			"ended_at":   state.EndedAt,
		}).Error
	})
	if err != nil {
		r.logger.Error("persist match", "match", s.match.ID, "err", err)
		return fmt.Errorf("live: persist match %s: %w", s.match.ID, err)
	}
	return nil
}

func (r *Registry) broadcast(snap Snapshot) {
	if r.hub == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("encode snapshot", "match", snap.MatchID, "err", err)
		return
	}
	r.hub.BroadcastToMatch(snap.MatchID, data)
}

// snapshot builds the API view. Callers hold s.mu.
func (s *session) snapshot() Snapshot {
	state := s.engine.State()
	format := scoring.Format(s.match.Format)
	return Snapshot{
		MatchID:      s.match.ID.String(),
		Format:       format,
		DisplayName:  scoring.DisplayName(format),
		DetailedName: scoring.DetailedName(format),
		Players:      scoring.Pair[string]{Player1: s.match.Player1Name, Player2: s.match.Player2Name},
		Status:       models.StatusFor(state),
		State:        state,
		CanUndo:      s.engine.CanUndo(),
		ServingSide:  s.engine.ServingSide(),
		ChangeSides:  s.engine.ShouldChangeSides(),
	}
}
