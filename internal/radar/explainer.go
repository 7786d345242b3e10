package radar

import (
	"context"
	"fmt"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Explainer reconciles a score with the provider's breakdown
type Explainer struct {
	provider contracts.ScoreProvider
	logger   *logger.Logger
}

// NewExplainer creates a new explainer
func NewExplainer(provider contracts.ScoreProvider, log *logger.Logger) *Explainer {
	if log == nil {
		log = logger.Nop()
	}
	return &Explainer{provider: provider, logger: log}
}

// Explain returns the aggregate with up to limit breakdown entries.
// Only a failed aggregate lookup is an error; a failed breakdown is
// reported in BreakdownError.
func (e *Explainer) Explain(ctx context.Context, orgID, accountID string, limit int) (*Explanation, error) {
	if limit <= 0 {
		limit = DefaultBreakdownLimit
	}

	aggregate, err := e.provider.AggregateScore(ctx, orgID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}

	exp := &Explanation{
		OrgID:     orgID,
		AccountID: accountID,
		Aggregate: aggregate,
		Band:      contracts.BandFor(aggregate),
		Entries:   []contracts.BreakdownEntry{},
	}

	log := e.logger.WithOrg(orgID).WithField("account_id", accountID)

	entries, err := e.provider.ScoreBreakdown(ctx, orgID, accountID, limit)
	if err != nil {
		log.WithError(err).Warn("Score breakdown unavailable")
		exp.BreakdownError = err.Error()
		return exp, nil
	}

	exp.Entries = entries
	exp.DeltaLabel = DeltaLabel
	for _, entry := range entries {
		exp.BreakdownTotal += entry.Points
	}

	exp.Delta = aggregate - exp.BreakdownTotal
	if exp.Delta < 0 {
		exp.Delta = 0
		exp.Anomalous = true
		log.WithFields(map[string]interface{}{
			"aggregate":       aggregate,
			"breakdown_total": exp.BreakdownTotal,
		}).Warn("Breakdown exceeds aggregate score")
	}

	return exp, nil
}
