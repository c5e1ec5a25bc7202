package scoring

import "time"

// Outcome categorizes how a point ended.
type Outcome string

const (
	OutcomeWinner        Outcome = "WINNER"
	OutcomeUnforcedError Outcome = "UNFORCED_ERROR"
	OutcomeForcedError   Outcome = "FORCED_ERROR"
)

// ServeDetail describes the serve of a point. Ace, ServiceWinner and DoubleFault imply an
// outcome that must agree with the point's winner; the engine does not check this.
type ServeDetail struct {
	Ace           bool `json:"ace,omitempty"`
	DoubleFault   bool `json:"doubleFault,omitempty"`
	ServiceWinner bool `json:"serviceWinner,omitempty"`
	// Serve is 1 for a first serve and 2 for a second serve; 0 when not recorded.
	Serve int `json:"serve,omitempty"`
}

// PointDetail is an optional annotation of a point, kept only for statistics.
type PointDetail struct {
	Winner      Player      `json:"winner"`
	Outcome     Outcome     `json:"outcome,omitempty"`
	Serve       ServeDetail `json:"serve"`
	RallyLength int         `json:"rallyLength,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// PlayerStats is the per-player reduction of the points history.
type PlayerStats struct {
	PointsWon      int `json:"pointsWon"`
	Aces           int `json:"aces"`
	DoubleFaults   int `json:"doubleFaults"`
	ServiceWinners int `json:"serviceWinners"`
	Winners        int `json:"winners"`
	UnforcedErrors int `json:"unforcedErrors"`
	ForcedErrors   int `json:"forcedErrors"`
}

// MatchStats holds statistics for both players.
type MatchStats = Pair[PlayerStats]

// ComputeStats folds a points history into per-player statistics. Aces, service winners
// and winners count for the point's winner; double faults and errors count against the
// player who lost the point.
func ComputeStats(points []PointDetail) MatchStats {
	var stats MatchStats
	bump := func(p Player, f func(*PlayerStats)) {
		s := stats.Of(p)
		f(&s)
		stats.Set(p, s)
	}
	for _, pt := range points {
		if !pt.Winner.Valid() {
			continue
		}
		winner, loser := pt.Winner, pt.Winner.Opponent()
		bump(winner, func(s *PlayerStats) { s.PointsWon++ })
		switch {
		case pt.Serve.Ace:
			bump(winner, func(s *PlayerStats) { s.Aces++ })
		case pt.Serve.DoubleFault:
			bump(loser, func(s *PlayerStats) { s.DoubleFaults++ })
		case pt.Serve.ServiceWinner:
			bump(winner, func(s *PlayerStats) { s.ServiceWinners++ })
		}
		switch pt.Outcome {
		case OutcomeWinner:
			bump(winner, func(s *PlayerStats) { s.Winners++ })
		case OutcomeUnforcedError:
			bump(loser, func(s *PlayerStats) { s.UnforcedErrors++ })
		case OutcomeForcedError:
			bump(loser, func(s *PlayerStats) { s.ForcedErrors++ })
		}
	}
	return stats
}
