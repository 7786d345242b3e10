package radar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

func TestDrilldownMemoizesPerSession(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	signals := &fakeSignals{signals: []contracts.Signal{
		{ID: "s2", Type: "QA_HIRING", OccurredAt: now.Add(-72 * time.Hour)},
		{ID: "s1", Type: "CSV_HIRING", OccurredAt: now.Add(-200 * time.Hour)},
	}}

	d := NewDrilldown(signals, NewMemoryMemo(0), nil)
	d.now = func() time.Time { return now }

	first, err := d.Recent(context.Background(), "sess-1", "acc-1")
	require.NoError(t, err)
	second, err := d.Recent(context.Background(), "sess-1", "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 1, signals.calls)
	assert.Equal(t, first.Signals, second.Signals)
	require.NotNil(t, first.LastSignalAt)
	assert.Equal(t, now.Add(-72*time.Hour), *first.LastSignalAt)
	require.NotNil(t, first.DaysSinceLastSignal)
	assert.Equal(t, 3, *first.DaysSinceLastSignal)

	_, err = d.Recent(context.Background(), "sess-2", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, signals.calls)
}

func TestDrilldownNoSignals(t *testing.T) {
	d := NewDrilldown(&fakeSignals{}, nil, nil)

	list, err := d.Recent(context.Background(), "sess", "acc-1")
	require.NoError(t, err)
	assert.Empty(t, list.Signals)
	assert.Nil(t, list.LastSignalAt)
	assert.Nil(t, list.DaysSinceLastSignal)
}

func TestDrilldownStoreErrorIsNotMemoized(t *testing.T) {
	signals := &fakeSignals{err: errors.New("timeout")}
	memo := NewMemoryMemo(0)
	d := NewDrilldown(signals, memo, nil)

	_, err := d.Recent(context.Background(), "sess", "acc-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, memo.Len())
}

func TestMemoryMemoExpires(t *testing.T) {
	memo := NewMemoryMemo(time.Nanosecond)
	memo.Store(context.Background(), "k", &SignalList{AccountID: "a"})
	time.Sleep(time.Millisecond)

	_, ok := memo.Load(context.Background(), "k")
	assert.False(t, ok)
	assert.Zero(t, memo.Len())
}

func TestMemoryMemoSweepsExpiredOnStore(t *testing.T) {
	ctx := context.Background()
	memo := NewMemoryMemo(200 * time.Millisecond)

	for _, session := range []string{"10.0.0.1:5000", "10.0.0.2:5001", "10.0.0.3:5002"} {
		memo.Store(ctx, redis.SignalDrilldownKey(session, "acc-1"), &SignalList{AccountID: "acc-1"})
	}
	require.Equal(t, 3, memo.Len())

	time.Sleep(300 * time.Millisecond)
	memo.Store(ctx, redis.SignalDrilldownKey("10.0.0.4:5003", "acc-1"), &SignalList{AccountID: "acc-1"})

	assert.Equal(t, 1, memo.Len())
}

func TestRedisMemoHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	memo := NewSignalMemo(redis.NewFromClient(db), redis.TTLDrilldown)
	require.IsType(t, &RedisMemo{}, memo)

	key := redis.SignalDrilldownKey("sess", "acc-1")
	mock.ExpectGet("radar:cache:" + key).SetVal(`{"account_id":"acc-1","signals":[]}`)

	signals := &fakeSignals{}
	list, err := NewDrilldown(signals, memo, nil).Recent(context.Background(), "sess", "acc-1")
	require.NoError(t, err)

	assert.Equal(t, "acc-1", list.AccountID)
	assert.Zero(t, signals.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSignalMemoFallsBackWithoutRedis(t *testing.T) {
	assert.IsType(t, &MemoryMemo{}, NewSignalMemo(nil, time.Minute))
}
