package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

func TestClaimDelivery(t *testing.T) {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"first claim", 1, true},
		{"already claimed", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec("ON CONFLICT \\(org_id, digest_date\\) DO NOTHING").
				WithArgs("org-1", date, "run-1").
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			ok, err := NewDeliveryRepository(mock).ClaimDelivery(context.Background(), "org-1", date, "run-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCompleteDelivery(t *testing.T) {
	mock := newMock(t)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE digest_deliveries").
		WithArgs("org-1", date, 3, "msg-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE digest_deliveries").
		WithArgs("org-2", date, 1, nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewDeliveryRepository(mock)
	require.NoError(t, repo.CompleteDelivery(context.Background(), contracts.Delivery{
		OrgID: "org-1", DigestDate: date, Recipients: 3, MessageID: "msg-1",
	}))

	err := repo.CompleteDelivery(context.Background(), contracts.Delivery{OrgID: "org-2", DigestDate: date, Recipients: 1})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestReleaseDelivery(t *testing.T) {
	mock := newMock(t)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("sent_at IS NULL").WithArgs("org-1", date).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, NewDeliveryRepository(mock).ReleaseDelivery(context.Background(), "org-1", date))
	assert.NoError(t, mock.ExpectationsWereMet())
}
