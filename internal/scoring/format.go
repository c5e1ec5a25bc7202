package scoring

import "fmt"

// Format identifies one of the supported match formats.
type Format string

const (
	BestOf3        Format = "BEST_OF_3"
	BestOf5        Format = "BEST_OF_5"
	SingleSet      Format = "SINGLE_SET"
	ProSet         Format = "PRO_SET"
	MatchTiebreak  Format = "MATCH_TIEBREAK"
	ShortSet       Format = "SHORT_SET"
	NoAd           Format = "NO_AD"
	Fast4          Format = "FAST4"
	BestOf3MatchTB Format = "BEST_OF_3_MATCH_TB"
	ShortSetNoAd   Format = "SHORT_SET_NO_AD"
	NoLetTennis    Format = "NO_LET_TENNIS"
)

// StandardTiebreakPoints is the target score of a set tiebreak.
const StandardTiebreakPoints = 7

// Ruleset is the static rule configuration of a format. Rulesets are plain values and are
// never mutated after the catalog builds them.
type Ruleset struct {
	Format                 Format `json:"format"`
	SetsToWin              int    `json:"setsToWin"`
	GamesPerSet            int    `json:"gamesPerSet"`
	UseAdvantage           bool   `json:"useAdvantage"`
	UseTiebreak            bool   `json:"useTiebreak"`
	TiebreakAt             int    `json:"tiebreakAt"`
	TiebreakPoints         int    `json:"tiebreakPoints"`
	UseNoAd                bool   `json:"useNoAd"`
	AlternateTiebreakSides bool   `json:"alternateTiebreakSides"`
	NoLet                  bool   `json:"noLet"`
	// DeferTiebreak starts the tiebreak on the point after the levelling game instead of
	// as soon as that game is won.
	DeferTiebreak bool `json:"deferTiebreak"`
}

type formatEntry struct {
	rules    Ruleset
	display  string
	detailed string
}

func baseRuleset(f Format) Ruleset {
	return Ruleset{
		Format:         f,
		SetsToWin:      2,
		GamesPerSet:    6,
		UseAdvantage:   true,
		UseTiebreak:    true,
		TiebreakAt:     6,
		TiebreakPoints: StandardTiebreakPoints,
	}
}

// catalogOrder is the presentation order of Formats.
var catalogOrder = []Format{
	BestOf3, BestOf5, SingleSet, ProSet, MatchTiebreak, ShortSet,
	NoAd, Fast4, BestOf3MatchTB, ShortSetNoAd, NoLetTennis,
}

var catalog = buildCatalog()

func buildCatalog() map[Format]formatEntry {
	entry := func(f Format, display, detailed string, override func(*Ruleset)) formatEntry {
		r := baseRuleset(f)
		override(&r)
		return formatEntry{rules: r, display: display, detailed: detailed}
	}
	entries := []formatEntry{
		entry(BestOf3, "Best of 3 Sets", "Best of 3 sets, tiebreak at 6-6",
			func(r *Ruleset) {}),
		entry(BestOf5, "Best of 5 Sets", "Best of 5 sets, tiebreak at 6-6",
			func(r *Ruleset) { r.SetsToWin = 3 }),
		entry(SingleSet, "Single Set", "One set to 6 games, tiebreak at 6-6",
			func(r *Ruleset) { r.SetsToWin = 1 }),
		entry(ProSet, "Pro Set", "One set to 8 games, tiebreak at 8-8",
			func(r *Ruleset) {
				r.SetsToWin = 1
				r.GamesPerSet = 8
				r.TiebreakAt = 8
			}),
		entry(MatchTiebreak, "Match Tiebreak", "A single match tiebreak to 10 points, win by 2",
			func(r *Ruleset) {
				r.SetsToWin = 1
				r.GamesPerSet = 0
				r.UseAdvantage = false
				r.TiebreakAt = 0
				r.TiebreakPoints = 10
			}),
		entry(ShortSet, "Short Set", "One set to 4 games, tiebreak at 4-4",
			func(r *Ruleset) {
				r.SetsToWin = 1
				r.GamesPerSet = 4
				r.TiebreakAt = 4
				r.DeferTiebreak = true
			}),
		entry(NoAd, "No-Ad Scoring", "Best of 3 sets, deciding point at deuce",
			func(r *Ruleset) {
				r.UseAdvantage = false
				r.UseNoAd = true
			}),
		entry(Fast4, "Fast4", "One set to 4 games, no-ad, tiebreak at 3-3",
			func(r *Ruleset) {
				r.SetsToWin = 1
				r.GamesPerSet = 4
				r.UseAdvantage = false
				r.TiebreakAt = 3
				r.UseNoAd = true
			}),
		entry(BestOf3MatchTB, "Best of 3 with Match Tiebreak", "Best of 3 sets, third set played as a 10-point match tiebreak",
			func(r *Ruleset) { r.TiebreakPoints = 10 }),
		entry(ShortSetNoAd, "Short Set No-Ad", "One set to 4 games, no-ad, tiebreak at 4-4",
			func(r *Ruleset) {
				r.SetsToWin = 1
				r.GamesPerSet = 4
				r.UseAdvantage = false
				r.TiebreakAt = 4
				r.UseNoAd = true
			}),
		entry(NoLetTennis, "No-Let Tennis", "Best of 3 sets, serves clipping the net stay in play",
			func(r *Ruleset) { r.NoLet = true }),
	}

	m := make(map[Format]formatEntry, len(entries))
	for _, e := range entries {
		m[e.rules.Format] = e
	}
	return m
}

// Resolve returns the ruleset for f, or ErrUnsupportedFormat.
func Resolve(f Format) (Ruleset, error) {
	e, ok := catalog[f]
	if !ok {
		return Ruleset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
	return e.rules, nil
}

// DisplayName returns a short human-readable name, or f itself when unknown.
func DisplayName(f Format) string {
	if e, ok := catalog[f]; ok {
		return e.display
	}
	return string(f)
}

// DetailedName returns a one-line rules description, or f itself when unknown.
func DetailedName(f Format) string {
	if e, ok := catalog[f]; ok {
		return e.detailed
	}
	return string(f)
}

// Formats lists every supported format in catalog order.
func Formats() []Format {
	out := make([]Format, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// MatchTiebreakOnly reports whether the whole match is a single match tiebreak.
func (r Ruleset) MatchTiebreakOnly() bool {
	return r.GamesPerSet == 0
}

// DecidingMatchTiebreak reports whether the deciding set of a multi-set match is replaced
// by a match tiebreak.
func (r Ruleset) DecidingMatchTiebreak() bool {
	return r.SetsToWin > 1 && r.GamesPerSet > 0 && r.TiebreakPoints > StandardTiebreakPoints
}

// TiebreakDue reports whether the games score has reached the tiebreak trigger.
func (r Ruleset) TiebreakDue(games Pair[int]) bool {
	if !r.UseTiebreak || r.TiebreakAt <= 0 {
		return false
	}
	return games.Player1 == games.Player2 && games.Player1 >= r.TiebreakAt
}

// SetWon reports whether p has won the set with the given games score.
func (r Ruleset) SetWon(games Pair[int], p Player) bool {
	won, lost := games.Of(p), games.Of(p.Opponent())
	return won >= r.GamesPerSet && won-lost >= 2
}

// tiebreakTarget is the points needed to win the current tiebreak.
func (r Ruleset) tiebreakTarget(matchTiebreak bool) int {
	if matchTiebreak {
		return r.TiebreakPoints
	}
	return StandardTiebreakPoints
}
