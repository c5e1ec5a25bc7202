package scoring

import (
	"time"

	"github.com/charmbracelet/log"
)

// EventKind names a transition reported to an Observer.
type EventKind string

const (
	EventGameWon              EventKind = "game_won"
	EventTiebreakStarted      EventKind = "tiebreak_started"
	EventMatchTiebreakStarted EventKind = "match_tiebreak_started"
	EventSetWon               EventKind = "set_won"
	EventMatchWon             EventKind = "match_won"
)

// Event describes one state transition. Player is the player the transition favours,
// or the first server for tiebreak starts.
type Event struct {
	Kind      EventKind `json:"kind"`
	Player    Player    `json:"player"`
	SetNumber int       `json:"setNumber"`
	Games     Pair[int] `json:"games"`
	Sets      Pair[int] `json:"sets"`
}

// Observer receives transition events synchronously, inside the mutating call.
type Observer func(Event)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recoverable anomalies.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers fn to receive transition events.
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHistoryLimit sets the undo depth. Values <= 0 select DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.historyLimit = n }
}

// Engine owns the mutable state of one match. It is not safe for concurrent use: callers
// must serialize RecordPoint, UndoLastPoint, Forfeit and LoadState per engine.
type Engine struct {
	rules        Ruleset
	state        MatchState
	history      *history
	historyLimit int
	points       []PointDetail

	logger   *log.Logger
	observer Observer
	now      func() time.Time
}

// New creates an engine for a match in the given format, with server serving first.
func New(server Player, format Format, opts ...Option) (*Engine, error) {
	rules, err := Resolve(format)
	if err != nil {
		return nil, err
	}
	if err := validatePlayer(server); err != nil {
		return nil, err
	}

	e := &Engine{
		rules:        rules,
		historyLimit: DefaultHistoryLimit,
		logger:       log.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = newHistory(e.historyLimit)
	e.state = initialState(rules, server)
	return e, nil
}

func initialState(rules Ruleset, server Player) MatchState {
	s := MatchState{
		CurrentSet:    1,
		Server:        server,
		CompletedSets: []CompletedSet{},
		Config:        rules,
	}
	if rules.MatchTiebreakOnly() {
		s.Game = GameState{Score: newNumericScore(), Server: server, IsMatchTiebreak: true}
	} else {
		s.Game = GameState{Score: newLadderScore(), Server: server}
	}
	return s
}

// State returns a copy of the current match state.
func (e *Engine) State() MatchState { return e.state.Clone() }

// Rules returns the ruleset the engine was built with.
func (e *Engine) Rules() Ruleset { return e.rules }

// Points returns a copy of the recorded point details.
func (e *Engine) Points() []PointDetail {
	out := make([]PointDetail, len(e.points))
	copy(out, e.points)
	return out
}

// CanUndo reports whether UndoLastPoint has anything to undo.
func (e *Engine) CanUndo() bool { return e.history.len() > 0 }

// RecordPoint awards a point to p and returns the resulting state. A point recorded on a
// finished match is ignored and the unchanged state is returned.
//
// When detail is non-nil it is appended to the points history with its Winner set to p.
// A zero Timestamp is replaced with the engine clock.
func (e *Engine) RecordPoint(p Player, detail *PointDetail) (MatchState, error) {
	if err := validatePlayer(p); err != nil {
		return MatchState{}, err
	}
	if e.state.IsFinished {
		return e.state.Clone(), nil
	}

	e.checkpoint()
	now := e.now()
	if e.state.StartedAt == nil {
		e.state.StartedAt = &now
	}
	if detail != nil {
		d := *detail
		d.Winner = p
		if d.Timestamp.IsZero() {
			d.Timestamp = now
		}
		e.points = append(e.points, d)
	}

	e.applyPoint(p)
	return e.state.Clone(), nil
}

// PlayDecidingPoint awards the deciding point of a no-ad game at 40-40. Outside that
// situation it does nothing and returns the unchanged state.
func (e *Engine) PlayDecidingPoint(p Player) (MatchState, error) {
	if err := validatePlayer(p); err != nil {
		return MatchState{}, err
	}
	if !e.state.Game.IsNoAdDecidingPoint {
		return e.state.Clone(), nil
	}
	return e.RecordPoint(p, nil)
}

// Forfeit ends the match in favour of winner without changing the score, as for a
// retirement or walkover. It is ignored on a finished match.
func (e *Engine) Forfeit(winner Player) (MatchState, error) {
	if err := validatePlayer(winner); err != nil {
		return MatchState{}, err
	}
	if e.state.IsFinished {
		return e.state.Clone(), nil
	}
	e.checkpoint()
	e.state.Forfeited = true
	e.finish(winner)
	return e.state.Clone(), nil
}

// UndoLastPoint restores the state from before the most recent mutation. It returns false
// and a zero state when there is nothing to undo.
func (e *Engine) UndoLastPoint() (MatchState, bool) {
	snap, ok := e.history.pop()
	if !ok {
		return MatchState{}, false
	}
	e.state = snap.state
	if snap.points < len(e.points) {
		e.points = e.points[:snap.points]
	}
	return e.state.Clone(), true
}

// LoadState replaces the current state with saved and clears the undo history. The
// engine's own ruleset always replaces saved.Config.
func (e *Engine) LoadState(saved MatchState) MatchState {
	if saved.Config.Format != "" && saved.Config.Format != e.rules.Format {
		e.logger.Warn("saved match format differs from engine format, keeping engine format",
			"saved", saved.Config.Format, "engine", e.rules.Format)
	}
	e.state = saved.Clone()
	e.state.Config = e.rules
	e.history.reset()
	return e.state.Clone()
}

func (e *Engine) checkpoint() {
	e.history.push(snapshot{state: e.state.Clone(), points: len(e.points)})
}

func (e *Engine) emit(kind EventKind, p Player) {
	if e.observer == nil {
		return
	}
	e.observer(Event{
		Kind:      kind,
		Player:    p,
		SetNumber: e.state.CurrentSet,
		Games:     e.state.Set.Games,
		Sets:      e.state.Sets,
	})
}

func (e *Engine) applyPoint(p Player) {
	g := &e.state.Game
	if g.IsTiebreak || g.IsMatchTiebreak {
		e.tiebreakPoint(p)
		return
	}
	if e.rules.TiebreakDue(e.state.Set.Games) && g.Score.IsZero() {
		e.startTiebreak(e.state.Server)
		e.tiebreakPoint(p)
		return
	}
	e.regularPoint(p)
}

func (e *Engine) regularPoint(p Player) {
	g := &e.state.Game
	ladder := &g.Score.Ladder
	opp := p.Opponent()

	switch ladder.Of(p) {
	case Advantage:
		e.winGame(p)
	case Forty:
		switch ladder.Of(opp) {
		case Advantage:
			// back to deuce
			ladder.Set(opp, Forty)
		case Forty:
			if e.rules.UseAdvantage && !e.rules.UseNoAd {
				ladder.Set(p, Advantage)
				return
			}
			if e.rules.UseNoAd {
				g.IsNoAdDecidingPoint = true
			}
			e.winGame(p)
		default:
			e.winGame(p)
		}
	default:
		ladder.Set(p, ladder.Of(p).next())
		if e.rules.UseNoAd && ladder.Player1 == Forty && ladder.Player2 == Forty {
			g.IsNoAdDecidingPoint = true
		}
	}
}

func (e *Engine) tiebreakPoint(p Player) {
	g := &e.state.Game
	score := &g.Score.Numeric
	score.Set(p, score.Of(p)+1)

	// Serve changes after the first point, then every two points.
	if (score.Player1+score.Player2)%2 == 1 {
		g.Server = g.Server.Opponent()
	}

	won, lost := score.Of(p), score.Of(p.Opponent())
	if won < e.rules.tiebreakTarget(g.IsMatchTiebreak) || won-lost < 2 {
		return
	}
	if g.IsMatchTiebreak {
		e.winMatch(p)
		return
	}
	e.winSet(p)
}

func (e *Engine) winGame(p Player) {
	games := &e.state.Set.Games
	games.Set(p, games.Of(p)+1)
	e.emit(EventGameWon, p)

	next := e.state.Server.Opponent()
	if e.rules.TiebreakDue(*games) && !e.rules.DeferTiebreak {
		e.startTiebreak(next)
		return
	}
	if e.rules.SetWon(*games, p) {
		e.winSet(p)
		return
	}
	e.newGame(next)
}

func (e *Engine) winSet(p Player) {
	set := &e.state.Set
	var tiebreak *Pair[int]
	if e.state.Game.IsTiebreak && !e.state.Game.IsMatchTiebreak {
		score := e.state.Game.Score.Numeric
		tiebreak = &score
		set.TiebreakScore = clonePair(tiebreak)
		// the tiebreak counts as one game for the set score, e.g. 7-6
		set.Games.Set(p, set.Games.Of(p)+1)
	}

	e.state.CompletedSets = append(e.state.CompletedSets, CompletedSet{
		SetNumber:     e.state.CurrentSet,
		Games:         set.Games,
		Winner:        p,
		TiebreakScore: tiebreak,
	})
	e.state.Sets.Set(p, e.state.Sets.Of(p)+1)
	e.emit(EventSetWon, p)

	if e.state.Sets.Of(p) >= e.rules.SetsToWin {
		e.winMatch(p)
		return
	}

	next := e.state.Server.Opponent()
	e.state.CurrentSet++
	e.state.Set = SetState{}

	deciding := e.rules.SetsToWin - 1
	if e.rules.DecidingMatchTiebreak() && e.state.Sets.Player1 == deciding && e.state.Sets.Player2 == deciding {
		e.startMatchTiebreak(next)
		return
	}
	e.newGame(next)
}

func (e *Engine) winMatch(p Player) {
	if !e.setRecorded(e.state.CurrentSet) {
		var tiebreak *Pair[int]
		if e.state.Game.IsMatchTiebreak {
			score := e.state.Game.Score.Numeric
			tiebreak = &score
			e.state.Set.TiebreakScore = clonePair(tiebreak)
		}
		e.state.CompletedSets = append(e.state.CompletedSets, CompletedSet{
			SetNumber:     e.state.CurrentSet,
			Games:         e.state.Set.Games,
			Winner:        p,
			TiebreakScore: tiebreak,
		})
		e.state.Sets.Set(p, e.state.Sets.Of(p)+1)
	}
	e.finish(p)
}

func (e *Engine) finish(p Player) {
	now := e.now()
	e.state.Winner = p
	e.state.IsFinished = true
	e.state.EndedAt = &now
	e.emit(EventMatchWon, p)
}

func (e *Engine) setRecorded(number int) bool {
	for _, cs := range e.state.CompletedSets {
		if cs.SetNumber == number {
			return true
		}
	}
	return false
}

func (e *Engine) newGame(server Player) {
	e.state.Server = server
	e.state.Game = GameState{Score: newLadderScore(), Server: server}
}

func (e *Engine) startTiebreak(server Player) {
	e.state.Server = server
	e.state.Game = GameState{Score: newNumericScore(), Server: server, IsTiebreak: true}
	e.emit(EventTiebreakStarted, server)
}

func (e *Engine) startMatchTiebreak(server Player) {
	e.state.Server = server
	e.state.Game = GameState{Score: newNumericScore(), Server: server, IsMatchTiebreak: true}
	e.emit(EventMatchTiebreakStarted, server)
}
