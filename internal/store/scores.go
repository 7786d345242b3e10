package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// ScoreRepository implements contracts.ScoreRepository and
// contracts.ScoreProvider over the provider's tables and RPC
type ScoreRepository struct {
	pool database.Pool
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(pool database.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// ScoreRows returns every score row for the org, highest index first.
// Rows whose account cannot be joined come back as OrphanedScore.
func (r *ScoreRepository) ScoreRows(ctx context.Context, orgID string) ([]contracts.ScoreRow, error) {
	query := `
		SELECT s.account_id, s.buying_pressure_index,
		       a.id, a.name, a.domain, a.country, a.segment
		FROM org_account_scores s
		LEFT JOIN accounts a ON a.id = s.account_id
		WHERE s.org_id = $1
		ORDER BY s.buying_pressure_index DESC
	`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	result := make([]contracts.ScoreRow, 0)
	for rows.Next() {
		var (
			accountID                                string
			index                                    int
			joinedID, name, domain, country, segment pgtype.Text
		)
		if err := rows.Scan(&accountID, &index, &joinedID, &name, &domain, &country, &segment); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}

		if !joinedID.Valid {
			result = append(result, contracts.OrphanedScore{ID: accountID, Index: index})
			continue
		}

		result = append(result, contracts.MatchedScore{
			Account: contracts.Account{
				ID:      joinedID.String,
				Name:    name.String,
				Domain:  domain.String,
				Country: country.String,
				Segment: segment.String,
			},
			Index: index,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}

	return result, nil
}

// LatestSignalTypes reads the latest-signal-types projection for the given
// accounts. Accounts with no signals are absent from the map.
func (r *ScoreRepository) LatestSignalTypes(ctx context.Context, accountIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT account_id, signal_types
		FROM account_latest_signal_types
		WHERE account_id = ANY($1::uuid[])
	`

	rows, err := r.pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest signal types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		var types []string
		if err := rows.Scan(&accountID, &types); err != nil {
			return nil, fmt.Errorf("failed to scan signal types: %w", err)
		}
		result[accountID] = types
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal types: %w", err)
	}

	return result, nil
}

// AggregateScore returns the buying pressure index or contracts.ErrNotFound
func (r *ScoreRepository) AggregateScore(ctx context.Context, orgID, accountID string) (int, error) {
	query := `
		SELECT buying_pressure_index
		FROM org_account_scores
		WHERE org_id = $1 AND account_id = $2
	`

	var index int
	err := r.pool.QueryRow(ctx, query, orgID, accountID).Scan(&index)
	if database.IsNoRows(err) {
		return 0, fmt.Errorf("score for %s: %w", accountID, contracts.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get score: %w", err)
	}
	return index, nil
}

// ScoreBreakdown calls the provider's get_score_breakdown procedure
func (r *ScoreRepository) ScoreBreakdown(ctx context.Context, orgID, accountID string, limit int) ([]contracts.BreakdownEntry, error) {
	query := `
		SELECT signal_id, title, type, category, occurred_at, strength_score,
		       type_weight, recency_multiplier, points, rule
		FROM get_score_breakdown($1, $2, $3)
	`

	rows, err := r.pool.Query(ctx, query, orgID, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to call get_score_breakdown: %w", err)
	}
	defer rows.Close()

	entries := make([]contracts.BreakdownEntry, 0, limit)
	for rows.Next() {
		var e contracts.BreakdownEntry
		err := rows.Scan(
			&e.SignalID, &e.Title, &e.Type, &e.Category, &e.OccurredAt, &e.StrengthScore,
			&e.TypeWeight, &e.RecencyMultiplier, &e.Points, &e.Rule,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan breakdown entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breakdown: %w", err)
	}

	return entries, nil
}
