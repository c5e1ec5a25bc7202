package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trentd187/tennis-tracker/internal/replay"
	"github.com/trentd187/tennis-tracker/internal/scoring"
)

var flagStats bool

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Score a scripted match and print the scoreboard",
	Long: `Runs every step of a YAML point script through the scoring engine and prints
the final scoreboard.

A script names the format and lists points; see testdata/ for examples:

  format: FAST4
  players: {PLAYER_1: Ada, PLAYER_2: Grace}
  points:
    - {winner: PLAYER_1, repeat: 4}
    - 2
    - undo`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&flagStats, "stats", false, "Also print per-player statistics")
}

func runReplay(cmd *cobra.Command, args []string) error {
	sc, err := replay.Load(args[0])
	if err != nil {
		return err
	}

	res, err := replay.Run(sc,
		scoring.WithLogger(logger),
		scoring.WithObserver(func(ev scoring.Event) {
			logger.Debug(string(ev.Kind), "player", sc.Players.Of(ev.Player), "set", ev.SetNumber, "games", ev.Games)
		}),
	)
	if err != nil {
		return err
	}
	logger.Info("replayed", "script", args[0], "points", res.Recorded, "undone", res.Undone, "ignored", res.Ignored)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, replay.Scoreboard(sc.Players, res.Engine))
	if flagStats {
		fmt.Fprintln(out)
		fmt.Fprintln(out, replay.StatsTable(sc.Players, res.Engine.MatchStats()))
	}
	return nil
}
