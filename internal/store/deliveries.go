package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

// DeliveryRepository implements contracts.DeliveryRepository
type DeliveryRepository struct {
	pool database.Pool
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(pool database.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// ClaimDelivery reserves (org, date) for runID. It returns false when some
// run already holds the claim.
func (r *DeliveryRepository) ClaimDelivery(ctx context.Context, orgID string, date time.Time, runID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO digest_deliveries (org_id, digest_date, run_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, digest_date) DO NOTHING
	`, orgID, date, runID)
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteDelivery records the send outcome on a held claim
func (r *DeliveryRepository) CompleteDelivery(ctx context.Context, d contracts.Delivery) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE digest_deliveries
		SET recipients = $3, message_id = $4, sent_at = NOW()
		WHERE org_id = $1 AND digest_date = $2
	`, d.OrgID, d.DigestDate, d.Recipients, nullIfEmpty(d.MessageID))
	if err != nil {
		return fmt.Errorf("failed to complete delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery %s/%s: %w", d.OrgID, d.DigestDate.Format(time.DateOnly), contracts.ErrNotFound)
	}
	return nil
}

// ReleaseDelivery drops an unsent claim so a later run can retry
func (r *DeliveryRepository) ReleaseDelivery(ctx context.Context, orgID string, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM digest_deliveries
		WHERE org_id = $1 AND digest_date = $2 AND sent_at IS NULL
	`, orgID, date)
	if err != nil {
		return fmt.Errorf("failed to release delivery: %w", err)
	}
	return nil
}
