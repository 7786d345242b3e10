package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// FilterRepository implements contracts.FilterRepository
type FilterRepository struct {
	pool database.Pool
}

// NewFilterRepository creates a new filter repository
func NewFilterRepository(pool database.Pool) *FilterRepository {
	return &FilterRepository{pool: pool}
}

const filterColumns = `
	id, org_id, name, countries, signal_types, min_score,
	digest_frequency, email_alerts, is_active, created_at
`

func scanFilter(row pgx.Row) (*contracts.Filter, error) {
	var f contracts.Filter
	var cadence string
	err := row.Scan(
		&f.ID, &f.OrgID, &f.Name, &f.Countries, &f.SignalTypes, &f.MinScore,
		&cadence, &f.EmailAlerts, &f.Active, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Cadence = contracts.Cadence(cadence)
	return &f, nil
}

// ActiveFilter returns the flagged filter. When none is flagged the most
// recently created one is used. No filters at all yields (nil, nil).
func (r *FilterRepository) ActiveFilter(ctx context.Context, orgID string) (*contracts.Filter, error) {
	query := `SELECT ` + filterColumns + `
		FROM filters
		WHERE org_id = $1
		ORDER BY is_active DESC, created_at DESC
		LIMIT 1
	`

	f, err := scanFilter(r.pool.QueryRow(ctx, query, orgID))
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active filter: %w", err)
	}
	return f, nil
}

// ListFilters returns the org's filters, newest first
func (r *FilterRepository) ListFilters(ctx context.Context, orgID string) ([]contracts.Filter, error) {
	query := `SELECT ` + filterColumns + `
		FROM filters
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query filters: %w", err)
	}
	defer rows.Close()

	filters := make([]contracts.Filter, 0)
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		filters = append(filters, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filters: %w", err)
	}

	return filters, nil
}

// CreateFilter inserts f as the org's only active filter and fills its
// generated id and timestamp
func (r *FilterRepository) CreateFilter(ctx context.Context, f *contracts.Filter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := deactivateAll(ctx, tx, f.OrgID); err != nil {
		return err
	}

	countries := f.Countries
	if countries == nil {
		countries = []string{}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO filters (
			org_id, name, countries, signal_types, min_score,
			digest_frequency, email_alerts, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id, created_at
	`, f.OrgID, f.Name, countries, f.SignalTypes, f.MinScore, string(f.Cadence), f.EmailAlerts,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert filter: %w", err)
	}
	f.Active = true

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteFilter removes a filter owned by orgID
func (r *FilterRepository) DeleteFilter(ctx context.Context, orgID, filterID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM filters WHERE id = $1 AND org_id = $2`, filterID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("filter %s: %w", filterID, contracts.ErrNotFound)
	}
	return nil
}

// ActivateFilter makes filterID the org's active filter
func (r *FilterRepository) ActivateFilter(ctx context.Context, orgID, filterID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := deactivateAll(ctx, tx, orgID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE filters SET is_active = TRUE
		WHERE id = $1 AND org_id = $2
	`, filterID, orgID)
	if err != nil {
		return fmt.Errorf("failed to activate filter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("filter %s: %w", filterID, contracts.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deactivateAll(ctx context.Context, tx pgx.Tx, orgID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE filters SET is_active = FALSE
		WHERE org_id = $1 AND is_active
	`, orgID)
	if err != nil {
		return fmt.Errorf("failed to deactivate filters: %w", err)
	}
	return nil
}
