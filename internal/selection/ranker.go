package selection

import (
	"sort"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Ranker orders score rows by buying pressure index
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{logger: log}
}

// Rank returns rows sorted by score descending. The sort is stable, so rows
// arriving in store order keep that order on ties; callers must not rely on it.
func (r *Ranker) Rank(rows []contracts.ScoreRow) []contracts.ScoreRow {
	ranked := make([]contracts.ScoreRow, len(rows))
	copy(ranked, rows)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"total_accounts": len(ranked),
			"top_score":      ranked[0].Score(),
			"top_account":    ranked[0].AccountID(),
		}).Debug("Ranking completed")
	}

	return ranked
}

// Top returns the first n ranked rows
func (r *Ranker) Top(rows []contracts.ScoreRow, n int) []contracts.ScoreRow {
	ranked := r.Rank(rows)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
