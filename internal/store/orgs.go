package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// OrgRepository implements contracts.OrgRepository and
// contracts.MembershipRepository
type OrgRepository struct {
	pool database.Pool
}

// NewOrgRepository creates a new org repository
func NewOrgRepository(pool database.Pool) *OrgRepository {
	return &OrgRepository{pool: pool}
}

// ListOrgs returns every org in creation order
func (r *OrgRepository) ListOrgs(ctx context.Context) ([]contracts.Org, error) {
	query := `
		SELECT id, name, COALESCE(created_by::text, ''), created_at
		FROM orgs
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orgs: %w", err)
	}
	defer rows.Close()

	orgs := make([]contracts.Org, 0)
	for rows.Next() {
		var o contracts.Org
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedBy, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		orgs = append(orgs, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orgs: %w", err)
	}

	return orgs, nil
}

// GetOrg returns one org or contracts.ErrNotFound
func (r *OrgRepository) GetOrg(ctx context.Context, orgID string) (*contracts.Org, error) {
	query := `
		SELECT id, name, COALESCE(created_by::text, ''), created_at
		FROM orgs
		WHERE id = $1
	`

	var o contracts.Org
	err := r.pool.QueryRow(ctx, query, orgID).Scan(&o.ID, &o.Name, &o.CreatedBy, &o.CreatedAt)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("org %s: %w", orgID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org: %w", err)
	}

	return &o, nil
}

// MemberEmails resolves the profile emails of every member of the org
func (r *OrgRepository) MemberEmails(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT p.email
		FROM org_members m
		JOIN profiles p ON p.id = m.user_id
		WHERE m.org_id = $1 AND p.email <> ''
		ORDER BY m.created_at, p.email
	`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query member emails: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member emails: %w", err)
	}

	return emails, nil
}

// UpsertProfile stores the user's email for digest delivery
func (r *OrgRepository) UpsertProfile(ctx context.Context, p contracts.Profile) error {
	query := `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, p.ID, p.Email); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// OrgForUser returns the user's first org or contracts.ErrNotFound
func (r *OrgRepository) OrgForUser(ctx context.Context, userID string) (*contracts.Org, error) {
	query := `
		SELECT o.id, o.name, COALESCE(o.created_by::text, ''), o.created_at
		FROM org_members m
		JOIN orgs o ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY m.created_at
		LIMIT 1
	`

	var o contracts.Org
	err := r.pool.QueryRow(ctx, query, userID).Scan(&o.ID, &o.Name, &o.CreatedBy, &o.CreatedAt)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("membership for %s: %w", userID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &o, nil
}

// CreateOrgWithOwner creates the org and the owner membership in one transaction
func (r *OrgRepository) CreateOrgWithOwner(ctx context.Context, name, userID string) (*contracts.Org, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var o contracts.Org
	err = tx.QueryRow(ctx, `
		INSERT INTO orgs (name, created_by)
		VALUES ($1, $2)
		RETURNING id, name, created_at
	`, name, userID).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create org: %w", err)
	}
	o.CreatedBy = userID

	if err := addMember(ctx, tx, o.ID, userID, contracts.RoleOwner); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &o, nil
}

func addMember(ctx context.Context, tx pgx.Tx, orgID, userID string, role contracts.Role) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, $3)
	`, orgID, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}
