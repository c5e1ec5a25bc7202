package replay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	winnerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	gameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	serveMarker = "●"
	setWidth    = 6 // "7(10)" plus a space
	gameWidth   = 4
)

// Scoreboard renders the engine's match as a boxed board: one row per player with the
// completed sets, the current set and the current game, followed by a status line.
func Scoreboard(players scoring.Pair[string], e *scoring.Engine) string {
	s := e.State()
	rules := e.Rules()

	nameWidth := max(lipgloss.Width(players.Player1), lipgloss.Width(players.Player2))
	rows := make([]string, 0, 2)
	for _, p := range []scoring.Player{scoring.Player1, scoring.Player2} {
		var b strings.Builder

		marker := " "
		if !s.IsFinished && s.Game.Server == p {
			marker = serveMarker
		}
		name := lipgloss.NewStyle().Width(nameWidth).Render(players.Of(p))
		if s.IsFinished && s.Winner == p {
			name = winnerStyle.Width(nameWidth).Render(players.Of(p))
		}
		b.WriteString(marker + " " + name + "  ")

		for _, cs := range s.CompletedSets {
			cell := strconv.Itoa(cs.Games.Of(p))
			if cs.TiebreakScore != nil && cs.Winner != p {
				cell += "(" + strconv.Itoa(cs.TiebreakScore.Of(p)) + ")"
			}
			style := dimStyle
			if cs.Winner == p {
				style = lipgloss.NewStyle()
			}
			b.WriteString(style.Width(setWidth).Render(cell))
		}
		if !s.IsFinished {
			if !rules.MatchTiebreakOnly() {
				b.WriteString(lipgloss.NewStyle().Width(setWidth).Render(strconv.Itoa(s.Set.Games.Of(p))))
			}
			b.WriteString(gameStyle.Width(gameWidth).Render(s.Game.Score.Display(p)))
		}
		rows = append(rows, strings.TrimRight(b.String(), " "))
	}

	title := titleStyle.Render(scoring.DisplayName(rules.Format)) + " " +
		dimStyle.Render(scoring.DetailedName(rules.Format))
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", rows[0], rows[1], "", status(players, e, s))
	return boxStyle.Render(body)
}

func status(players scoring.Pair[string], e *scoring.Engine, s scoring.MatchState) string {
	if s.IsFinished {
		if s.Forfeited {
			return winnerStyle.Render(players.Of(s.Winner) + " wins by forfeit")
		}
		return winnerStyle.Render("Game, set and match " + players.Of(s.Winner))
	}

	parts := []string{fmt.Sprintf("%s serving from the %s court", players.Of(s.Game.Server), e.ServingSide())}
	switch {
	case s.Game.IsMatchTiebreak:
		parts = append(parts, "match tiebreak")
	case s.Game.IsTiebreak:
		parts = append(parts, "tiebreak")
	}
	if s.Game.IsNoAdDecidingPoint {
		parts = append(parts, "deciding point")
	}
	if e.ShouldChangeSides() {
		parts = append(parts, "change ends")
	}
	if e.IsNoLetServe(true) {
		parts = append(parts, "lets play on")
	}
	return dimStyle.Render(strings.Join(parts, ", "))
}

// StatsTable renders per-player statistics side by side.
func StatsTable(players scoring.Pair[string], stats scoring.MatchStats) string {
	lines := []struct {
		label string
		value func(scoring.PlayerStats) int
	}{
		{"Points won", func(s scoring.PlayerStats) int { return s.PointsWon }},
		{"Aces", func(s scoring.PlayerStats) int { return s.Aces }},
		{"Double faults", func(s scoring.PlayerStats) int { return s.DoubleFaults }},
		{"Service winners", func(s scoring.PlayerStats) int { return s.ServiceWinners }},
		{"Winners", func(s scoring.PlayerStats) int { return s.Winners }},
		{"Unforced errors", func(s scoring.PlayerStats) int { return s.UnforcedErrors }},
		{"Forced errors", func(s scoring.PlayerStats) int { return s.ForcedErrors }},
	}

	colWidth := max(lipgloss.Width(players.Player1), lipgloss.Width(players.Player2)) + 2
	label := lipgloss.NewStyle().Width(16)
	col := lipgloss.NewStyle().Width(colWidth).Align(lipgloss.Right)

	out := []string{label.Render("") + col.Render(players.Player1) + col.Render(players.Player2)}
	for _, l := range lines {
		out = append(out, dimStyle.Width(16).Render(l.label)+
			col.Render(strconv.Itoa(l.value(stats.Player1)))+
			col.Render(strconv.Itoa(l.value(stats.Player2))))
	}
	return strings.Join(out, "\n")
}
