// Package scoring implements the tennis scoring engine: a deterministic state machine that
// turns a stream of point outcomes into game, set and match state for one match.
//
// The package is self-contained. It performs no I/O of its own; callers persist the
// MatchState snapshots it returns and hand them back through Engine.LoadState.
package scoring

import (
	"errors"
	"fmt"
)

// Player identifies one side of a match. Only Player1 and Player2 are valid.
type Player string

const (
	Player1 Player = "PLAYER_1"
	Player2 Player = "PLAYER_2"
)

var (
	// ErrInvalidPlayer is returned when a player identifier is neither Player1 nor Player2.
	ErrInvalidPlayer = errors.New("scoring: invalid player")
	// ErrUnsupportedFormat is returned when a format identifier is not in the catalog.
	ErrUnsupportedFormat = errors.New("scoring: unsupported format")
)

// Valid reports whether p is one of the two recognized players.
func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

// Opponent returns the other player. It must only be called on a valid player.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

func validatePlayer(p Player) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlayer, string(p))
	}
	return nil
}

// Pair holds one value per player. It serializes as {"PLAYER_1": ..., "PLAYER_2": ...}.
type Pair[T any] struct {
	Player1 T `json:"PLAYER_1" yaml:"PLAYER_1"`
	Player2 T `json:"PLAYER_2" yaml:"PLAYER_2"`
}

// Of returns the value for p.
func (pr Pair[T]) Of(p Player) T {
	if p == Player2 {
		return pr.Player2
	}
	return pr.Player1
}

// Set stores v for p.
func (pr *Pair[T]) Set(p Player, v T) {
	if p == Player2 {
		pr.Player2 = v
		return
	}
	pr.Player1 = v
}
