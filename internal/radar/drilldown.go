package radar

import (
	"context"
	"fmt"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// DrilldownLimit is the number of recent signals shown per account
const DrilldownLimit = 5

// Drilldown loads an account's most recent signals, once per session
type Drilldown struct {
	signals contracts.SignalRepository
	memo    SignalMemo
	now     func() time.Time
	logger  *logger.Logger
}

// NewDrilldown creates a new drill-down service
func NewDrilldown(signals contracts.SignalRepository, memo SignalMemo, log *logger.Logger) *Drilldown {
	if log == nil {
		log = logger.Nop()
	}
	if memo == nil {
		memo = NewMemoryMemo(redis.TTLDrilldown)
	}
	return &Drilldown{
		signals: signals,
		memo:    memo,
		now:     time.Now,
		logger:  log,
	}
}

// Recent returns up to DrilldownLimit signals, newest first.
// Repeated calls for the same session and account are served from the memo.
func (d *Drilldown) Recent(ctx context.Context, sessionID, accountID string) (*SignalList, error) {
	key := redis.SignalDrilldownKey(sessionID, accountID)
	if list, ok := d.memo.Load(ctx, key); ok {
		return d.withAge(list), nil
	}

	signals, err := d.signals.RecentSignals(ctx, accountID, DrilldownLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	list := &SignalList{AccountID: accountID, Signals: signals}
	if len(signals) > 0 {
		last := signals[0].OccurredAt
		list.LastSignalAt = &last
	}
	d.memo.Store(ctx, key, list)

	d.logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"signals":    len(signals),
	}).Debug("Loaded signal drill-down")

	return d.withAge(list), nil
}

// withAge recomputes the day count so memoized lists stay current
func (d *Drilldown) withAge(list *SignalList) *SignalList {
	if list.LastSignalAt == nil {
		return list
	}
	out := *list
	days := contracts.DaysSince(*list.LastSignalAt, d.now())
	out.DaysSinceLastSignal = &days
	return &out
}
