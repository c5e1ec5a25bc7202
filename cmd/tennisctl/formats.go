package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported match formats",
	Long:  `Shows every format in the catalog with its display name and a one-line description.`,
	Run:   runFormats,
}

func runFormats(cmd *cobra.Command, args []string) {
	formats := scoring.Formats()
	out := cmd.OutOrStdout()

	// Calculate column widths
	idWidth, nameWidth := len("ID"), len("Name")
	for _, f := range formats {
		idWidth = max(idWidth, len(f))
		nameWidth = max(nameWidth, len(scoring.DisplayName(f)))
	}

	fmt.Fprintf(out, "  %-*s  %-*s  %s\n", idWidth, "ID", nameWidth, "Name", "Rules")
	fmt.Fprintf(out, "  %-*s  %-*s  %s\n", idWidth, "--", nameWidth, "----", "-----")
	for _, f := range formats {
		fmt.Fprintf(out, "  %-*s  %-*s  %s\n", idWidth, f, nameWidth, scoring.DisplayName(f), scoring.DetailedName(f))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'tennisctl replay <script.yaml>' to score a match in one of these formats.")
}
