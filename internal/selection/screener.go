package selection

import (
	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Predicate selects which filter conditions a screen applies
type Predicate uint8

const (
	ByScore Predicate = 1 << iota
	ByCountry
	ByType

	AllPredicates = ByScore | ByCountry | ByType
)

// Exclusion reasons reported in screening logs
const (
	ReasonScore   = "min_score"
	ReasonCountry = "country"
	ReasonType    = "signal_type"
)

// Screener evaluates a Filter against score rows. Both the radar and the
// digest go through it so they share one definition of "matches".
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	if log == nil {
		log = logger.Nop()
	}
	return &Screener{logger: log}
}

// Evaluate applies every predicate of f. typesByAccount is the per-account
// signal type set; it is only consulted when f has signal types.
// A nil filter passes everything. Input order is preserved.
func (s *Screener) Evaluate(f *contracts.Filter, rows []contracts.ScoreRow, typesByAccount map[string][]string) []contracts.ScoreRow {
	return s.Screen(f, rows, typesByAccount, AllPredicates)
}

// Screen applies the predicates selected by preds
func (s *Screener) Screen(f *contracts.Filter, rows []contracts.ScoreRow, typesByAccount map[string][]string, preds Predicate) []contracts.ScoreRow {
	passed := make([]contracts.ScoreRow, 0, len(rows))
	filtered := make(map[string]int)

	for _, row := range rows {
		reason := checkConditions(f, row, typesByAccount, preds)
		if reason == "" {
			passed = append(passed, row)
		} else {
			filtered[reason]++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(rows),
		"passed":       len(passed),
		"filtered_out": len(rows) - len(passed),
		"filters":      filtered,
	}).Debug("Screening completed")

	return passed
}

// checkConditions returns the first failing predicate, or "" when row passes
func checkConditions(f *contracts.Filter, row contracts.ScoreRow, typesByAccount map[string][]string, preds Predicate) string {
	if f == nil {
		return ""
	}

	if preds&ByScore != 0 && !PassesScore(f, row.Score()) {
		return ReasonScore
	}

	if preds&ByCountry != 0 {
		country, ok := contracts.CountryOf(row)
		if !PassesCountry(f, country, ok) {
			return ReasonCountry
		}
	}

	if preds&ByType != 0 && f.HasTypeFilter() {
		if !MatchesAnyType(f, typesByAccount[row.AccountID()]) {
			return ReasonType
		}
	}

	return ""
}

// PassesScore checks score >= MinScore. A zero MinScore always passes.
func PassesScore(f *contracts.Filter, score int) bool {
	if !f.HasScoreFilter() {
		return true
	}
	return score >= f.MinScore
}

// PassesCountry checks country membership. A missing country fails whenever
// a country filter is active.
func PassesCountry(f *contracts.Filter, country string, known bool) bool {
	if !f.HasCountryFilter() {
		return true
	}
	if !known {
		return false
	}
	for _, c := range f.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// MatchesAnyType reports whether types intersects the filter's signal types.
// With no type filter every set matches, including an empty one.
func MatchesAnyType(f *contracts.Filter, types []string) bool {
	if !f.HasTypeFilter() {
		return true
	}
	for _, t := range types {
		if MatchesType(f, t) {
			return true
		}
	}
	return false
}

// MatchesType reports whether a single signal type is selected by f
func MatchesType(f *contracts.Filter, signalType string) bool {
	if !f.HasTypeFilter() {
		return true
	}
	for _, want := range f.SignalTypes {
		if want == signalType {
			return true
		}
	}
	return false
}

// FilterSignals keeps the signals whose type is selected by f, in order
func FilterSignals(f *contracts.Filter, signals []contracts.Signal) []contracts.Signal {
	if !f.HasTypeFilter() {
		return signals
	}
	out := make([]contracts.Signal, 0, len(signals))
	for _, sig := range signals {
		if MatchesType(f, sig.Type) {
			out = append(out, sig)
		}
	}
	return out
}
