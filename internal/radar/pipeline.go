package radar

import (
	"context"
	"fmt"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/internal/selection"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Pipeline ranks an organization's accounts through its active filter
type Pipeline struct {
	filters  contracts.FilterRepository
	scores   contracts.ScoreRepository
	screener *selection.Screener
	ranker   *selection.Ranker
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewPipeline creates a new radar pipeline. m may be nil.
func NewPipeline(filters contracts.FilterRepository, scores contracts.ScoreRepository, m *metrics.Registry, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		filters:  filters,
		scores:   scores,
		screener: selection.NewScreener(log),
		ranker:   selection.NewRanker(log),
		metrics:  m,
		logger:   log,
	}
}

// Rank returns the org's filtered accounts, score descending.
// An empty result is a View with Status set, not an error.
func (p *Pipeline) Rank(ctx context.Context, orgID string) (view *View, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRadar(time.Since(start), err) }()

	filter, err := p.filters.ActiveFilter(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	rows, err := p.scores.ScoreRows(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	passed := p.screener.Screen(filter, rows, nil, selection.ByScore|selection.ByCountry)

	if filter.HasTypeFilter() && len(passed) > 0 {
		ids := make([]string, len(passed))
		for i, r := range passed {
			ids[i] = r.AccountID()
		}

		types, err := p.scores.LatestSignalTypes(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		passed = p.screener.Screen(filter, passed, types, selection.ByType)
	}

	ranked := p.ranker.Rank(passed)

	view = &View{
		OrgID:  orgID,
		Filter: filter,
		Rows:   make([]Row, len(ranked)),
	}
	if filter != nil {
		view.FilterName = filter.Name
	}
	for i, r := range ranked {
		view.Rows[i] = rowFor(r)
	}
	if len(view.Rows) == 0 {
		view.Status = StatusNoMatches
	}

	p.logger.WithOrg(orgID).WithFields(map[string]interface{}{
		"total":   len(rows),
		"matched": len(view.Rows),
	}).Debug("Radar ranked")

	return view, nil
}
