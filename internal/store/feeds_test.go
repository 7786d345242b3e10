package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/database"
)

func TestEnabledSources(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("FROM rss_sources").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "url", "category", "enabled"}).
			AddRow("feed-1", "FDA press", "https://fda.example/rss", "regulatory", true).
			AddRow("feed-2", "Pharma news", "https://news.example/atom", nil, true))

	sources, err := NewFeedRepository(mock).EnabledSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "regulatory", sources[0].Category)
	assert.Empty(t, sources[1].Category)
}

func TestInsertItem(t *testing.T) {
	item := contracts.FeedItem{
		FeedID:      "feed-1",
		GUID:        "guid-1",
		Title:       "Plant expansion",
		Link:        "https://news.example/1",
		PublishedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		execErr  error
		want     bool
		wantFail bool
	}{
		{name: "new item", want: true},
		{name: "duplicate guid", execErr: &pgconn.PgError{Code: database.CodeUniqueViolation}},
		{name: "other failure", execErr: errors.New("disk full"), wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec("INSERT INTO rss_items").
				WithArgs(item.FeedID, item.GUID, item.Title, item.Link, item.PublishedAt)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			inserted, err := NewFeedRepository(mock).InsertItem(context.Background(), item)
			if tt.wantFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, inserted)
		})
	}
}
