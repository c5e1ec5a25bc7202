package scoring

import (
	"strconv"
	"time"
)

// LadderPoint is a player's score within a regular game.
type LadderPoint string

const (
	Love      LadderPoint = "0"
	Fifteen   LadderPoint = "15"
	Thirty    LadderPoint = "30"
	Forty     LadderPoint = "40"
	Advantage LadderPoint = "AD"
)

// pointsPlayed is the number of points a ladder value stands for. Advantage has no exact
// count and is handled by the caller.
func (l LadderPoint) pointsPlayed() int {
	switch l {
	case Fifteen:
		return 1
	case Thirty:
		return 2
	case Forty:
		return 3
	default:
		return 0
	}
}

func (l LadderPoint) next() LadderPoint {
	switch l {
	case Love:
		return Fifteen
	case Fifteen:
		return Thirty
	default:
		return Forty
	}
}

// ScoreKind selects which variant of GameScore is in use.
type ScoreKind string

const (
	// LadderScore is used in regular games (0, 15, 30, 40, AD).
	LadderScore ScoreKind = "ladder"
	// NumericScore is used in tiebreaks and match tiebreaks.
	NumericScore ScoreKind = "numeric"
)

// GameScore is the point score of the current game. Exactly one of Ladder and Numeric is
// meaningful, as selected by Kind.
type GameScore struct {
	Kind    ScoreKind         `json:"kind"`
	Ladder  Pair[LadderPoint] `json:"ladder"`
	Numeric Pair[int]         `json:"numeric"`
}

func newLadderScore() GameScore {
	return GameScore{Kind: LadderScore, Ladder: Pair[LadderPoint]{Player1: Love, Player2: Love}}
}

func newNumericScore() GameScore {
	return GameScore{Kind: NumericScore, Ladder: Pair[LadderPoint]{Player1: Love, Player2: Love}}
}

// IsZero reports whether no point has been played in the game.
func (g GameScore) IsZero() bool {
	if g.Kind == NumericScore {
		return g.Numeric.Player1 == 0 && g.Numeric.Player2 == 0
	}
	return g.Ladder.Player1 == Love && g.Ladder.Player2 == Love
}

// Display renders p's score the way a scoreboard shows it.
func (g GameScore) Display(p Player) string {
	if g.Kind == NumericScore {
		return strconv.Itoa(g.Numeric.Of(p))
	}
	return string(g.Ladder.Of(p))
}

// GameState is the game currently in progress.
type GameState struct {
	Score           GameScore `json:"score"`
	Server          Player    `json:"server"`
	IsTiebreak      bool      `json:"isTiebreak"`
	IsMatchTiebreak bool      `json:"isMatchTiebreak"`
	// IsNoAdDecidingPoint is set while a no-ad game stands at 40-40.
	IsNoAdDecidingPoint bool `json:"isNoAdDecidingPoint,omitempty"`
}

// SetState is the set currently in progress.
type SetState struct {
	Games         Pair[int]  `json:"games"`
	TiebreakScore *Pair[int] `json:"tiebreakScore,omitempty"`
}

// CompletedSet is the permanent record of a finished set.
type CompletedSet struct {
	SetNumber     int        `json:"setNumber"`
	Games         Pair[int]  `json:"games"`
	Winner        Player     `json:"winner"`
	TiebreakScore *Pair[int] `json:"tiebreakScore,omitempty"`
}

// MatchState is the full state of a match. Values returned by the Engine are deep copies
// and may be kept or mutated freely by the caller.
type MatchState struct {
	Sets          Pair[int]      `json:"sets"`
	CurrentSet    int            `json:"currentSet"`
	Set           SetState       `json:"set"`
	Game          GameState      `json:"game"`
	Server        Player         `json:"server"`
	IsFinished    bool           `json:"isFinished"`
	Winner        Player         `json:"winner,omitempty"`
	Forfeited     bool           `json:"forfeited,omitempty"`
	CompletedSets []CompletedSet `json:"completedSets"`
	Config        Ruleset        `json:"config"`
	StartedAt     *time.Time     `json:"startedAt,omitempty"`
	EndedAt       *time.Time     `json:"endedAt,omitempty"`
}

// Clone returns a deep copy of s.
func (s MatchState) Clone() MatchState {
	out := s
	out.Set.TiebreakScore = clonePair(s.Set.TiebreakScore)
	out.CompletedSets = make([]CompletedSet, len(s.CompletedSets))
	for i, cs := range s.CompletedSets {
		cs.TiebreakScore = clonePair(cs.TiebreakScore)
		out.CompletedSets[i] = cs
	}
	out.StartedAt = cloneTime(s.StartedAt)
	out.EndedAt = cloneTime(s.EndedAt)
	return out
}

func clonePair(p *Pair[int]) *Pair[int] {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
