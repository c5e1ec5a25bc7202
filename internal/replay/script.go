// Package replay runs a scripted sequence of points through the scoring engine offline.
// Scripts are YAML so a match can be written down by hand or exported from a scorer:
//
//	format: BEST_OF_3
//	server: PLAYER_1
//	players: {PLAYER_1: Ada, PLAYER_2: Grace}
//	points:
//	  - {winner: PLAYER_1, repeat: 4}
//	  - 2                                  # shorthand for {winner: PLAYER_2}
//	  - {winner: PLAYER_1, ace: true, serve: 1}
//	  - undo
//	  - {forfeit: PLAYER_2}
package replay

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// Script is a parsed replay file.
type Script struct {
	Format  scoring.Format       `yaml:"format"`
	Server  scoring.Player       `yaml:"server,omitempty"`
	Players scoring.Pair[string] `yaml:"players,omitempty"`
	Points  []Step               `yaml:"points"`
}

// Step is one scripted action. Exactly one of Winner, Undo and Forfeit is set.
type Step struct {
	Winner        scoring.Player  `yaml:"winner,omitempty"`
	Outcome       scoring.Outcome `yaml:"outcome,omitempty"`
	Ace           bool            `yaml:"ace,omitempty"`
	DoubleFault   bool            `yaml:"doubleFault,omitempty"`
	ServiceWinner bool            `yaml:"serviceWinner,omitempty"`
	Serve         int             `yaml:"serve,omitempty"`
	Rally         int             `yaml:"rally,omitempty"`
	// Deciding plays the point as the deciding point of a no-ad game.
	Deciding bool           `yaml:"deciding,omitempty"`
	Undo     bool           `yaml:"undo,omitempty"`
	Forfeit  scoring.Player `yaml:"forfeit,omitempty"`
	// Repeat applies the step this many times; 0 means once.
	Repeat int `yaml:"repeat,omitempty"`
}

// UnmarshalYAML accepts the mapping form of a step and the scalar shorthands
// "1", "2", "P1", "P2", "PLAYER_1", "PLAYER_2" and "undo".
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		switch strings.ToUpper(node.Value) {
		case "1", "P1", string(scoring.Player1):
			*s = Step{Winner: scoring.Player1}
		case "2", "P2", string(scoring.Player2):
			*s = Step{Winner: scoring.Player2}
		case "UNDO":
			*s = Step{Undo: true}
		default:
			return fmt.Errorf("line %d: unknown step %q", node.Line, node.Value)
		}
		return nil
	}

	// The alias type drops this method so Decode doesn't recurse.
	type plain Step
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

func (s Step) validate() error {
	actions := 0
	if s.Winner != "" {
		actions++
	}
	if s.Undo {
		actions++
	}
	if s.Forfeit != "" {
		actions++
	}
	if actions != 1 {
		return errors.New("step needs exactly one of winner, undo or forfeit")
	}
	if s.Repeat < 0 {
		return errors.New("repeat must not be negative")
	}
	return nil
}

func (s Step) detail() *scoring.PointDetail {
	return &scoring.PointDetail{
		Outcome: s.Outcome,
		Serve: scoring.ServeDetail{
			Ace:           s.Ace,
			DoubleFault:   s.DoubleFault,
			ServiceWinner: s.ServiceWinner,
			Serve:         s.Serve,
		},
		RallyLength: s.Rally,
	}
}

// Parse decodes a script and fills in defaults: PLAYER_1 serves first and players are
// named "Player 1" and "Player 2".
func Parse(data []byte) (Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Script{}, fmt.Errorf("replay: yaml unmarshal: %w", err)
	}
	if sc.Format == "" {
		return Script{}, errors.New("replay: script has no format")
	}
	if sc.Server == "" {
		sc.Server = scoring.Player1
	}
	if sc.Players.Player1 == "" {
		sc.Players.Player1 = "Player 1"
	}
	if sc.Players.Player2 == "" {
		sc.Players.Player2 = "Player 2"
	}
	for i, st := range sc.Points {
		if err := st.validate(); err != nil {
			return Script{}, fmt.Errorf("replay: step %d: %w", i+1, err)
		}
	}
	return sc, nil
}

// Load reads and parses the script at path.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("replay: %w", err)
	}
	return Parse(data)
}
