package scoring

// Side is the half of the court the server serves from.
type Side string

const (
	SideRight Side = "right" // deuce court
	SideLeft  Side = "left"  // advantage court
)

// ServingSide returns the side the next point is served from: right after an even number
// of points in the current game, left after an odd number.
func (e *Engine) ServingSide() Side {
	if pointsPlayed(e.state.Game.Score)%2 == 0 {
		return SideRight
	}
	return SideLeft
}

// pointsPlayed counts the points played in the current game. With an advantage on the
// board the exact count is unknown, so it is approximated as six points to reach deuce
// plus one per advantage held.
func pointsPlayed(s GameScore) int {
	if s.Kind == NumericScore {
		return s.Numeric.Player1 + s.Numeric.Player2
	}
	l := s.Ladder
	if l.Player1 == Advantage || l.Player2 == Advantage {
		total := 6
		if l.Player1 == Advantage {
			total++
		}
		if l.Player2 == Advantage {
			total++
		}
		return total
	}
	return l.Player1.pointsPlayed() + l.Player2.pointsPlayed()
}

// ShouldChangeSides reports whether the players change ends now. In regular play that is
// after every odd game of the set. In a tiebreak it is every six points, or after the
// first point and every four thereafter when the ruleset uses alternate tiebreak sides.
func (e *Engine) ShouldChangeSides() bool {
	g := e.state.Game
	if g.IsTiebreak || g.IsMatchTiebreak {
		total := g.Score.Numeric.Player1 + g.Score.Numeric.Player2
		if total == 0 {
			return false
		}
		if e.rules.AlternateTiebreakSides {
			return (total-1)%4 == 0
		}
		return total%6 == 0
	}
	games := e.state.Set.Games
	return (games.Player1+games.Player2)%2 == 1
}

// IsNoLetServe reports whether a serve that touched the net stays in play.
func (e *Engine) IsNoLetServe(touchedNet bool) bool {
	return e.rules.NoLet && touchedNet
}

// MatchStats reduces the engine's points history into per-player statistics.
func (e *Engine) MatchStats() MatchStats {
	return ComputeStats(e.points)
}
