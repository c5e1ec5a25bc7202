package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		flagStats = false
		flagLogLevel = "warn"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFormatsCommand(t *testing.T) {
	out, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats failed: %v", err)
	}
	for _, want := range []string{"BEST_OF_3", "SHORT_SET_NO_AD", "NO_LET_TENNIS", "Fast4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestReplayCommand(t *testing.T) {
	out, err := execute(t, "replay", "../../testdata/fast4.yaml", "--stats")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	for _, want := range []string{"Game, set and match Ada", "Aces", "Grace"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestReplayCommandErrors(t *testing.T) {
	if _, err := execute(t, "replay"); err == nil {
		t.Error("replay without a script succeeded")
	}
	if _, err := execute(t, "replay", "../../testdata/missing.yaml"); err == nil {
		t.Error("replay of a missing script succeeded")
	}
	if _, err := execute(t, "--log-level", "chatty", "formats"); err == nil {
		t.Error("unknown log level accepted")
	}
}
