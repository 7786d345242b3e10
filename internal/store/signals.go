package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// SignalRepository implements contracts.SignalRepository
type SignalRepository struct {
	pool database.Pool
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(pool database.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

const signalColumns = `id, account_id, title, type, category, occurred_at, strength_score, source_url`

// RecentSignals returns the account's newest signals, occurred_at descending
func (r *SignalRepository) RecentSignals(ctx context.Context, accountID string, limit int) ([]contracts.Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals
		WHERE account_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, accountID, limit)
}

// SignalsSince returns the account's newest signals with occurred_at >= since
func (r *SignalRepository) SignalsSince(ctx context.Context, accountID string, since time.Time, limit int) ([]contracts.Signal, error) {
	query := `SELECT ` + signalColumns + `
		FROM signals
		WHERE account_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	return r.query(ctx, query, accountID, since, limit)
}

func (r *SignalRepository) query(ctx context.Context, query string, args ...any) ([]contracts.Signal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	signals := make([]contracts.Signal, 0)
	for rows.Next() {
		var s contracts.Signal
		var accountID, sourceURL pgtype.Text
		err := rows.Scan(&s.ID, &accountID, &s.Title, &s.Type, &s.Category, &s.OccurredAt, &s.StrengthScore, &sourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		s.AccountID = accountID.String
		s.SourceURL = sourceURL.String
		signals = append(signals, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}

// InsertSignal appends a signal. Strength is clamped before writing.
func (r *SignalRepository) InsertSignal(ctx context.Context, s *contracts.Signal) error {
	query := `
		INSERT INTO signals (account_id, title, type, category, occurred_at, strength_score, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	s.StrengthScore = contracts.ClampStrength(s.StrengthScore)
	err := r.pool.QueryRow(ctx, query,
		nullIfEmpty(s.AccountID), s.Title, s.Type, s.Category, s.OccurredAt, s.StrengthScore, nullIfEmpty(s.SourceURL),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
