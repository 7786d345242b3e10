package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/mail"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/internal/selection"
	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// JobName is the scheduler name of the digest job
const JobName = "daily_digest"

// Options tunes digest content and delivery
type Options struct {
	Schedule          string
	TopAccounts       int
	SignalsPerAccount int
	Window            time.Duration
	LockTTL           time.Duration
	From              string
	Brand             string
}

// OptionsFromConfig reads digest options from config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schedule:          cfg.Digest.Schedule,
		TopAccounts:       cfg.Digest.TopAccounts,
		SignalsPerAccount: cfg.Digest.SignalsPerAccount,
		Window:            cfg.Digest.Window,
		LockTTL:           cfg.Digest.LockTTL,
		From:              cfg.Mail.FromEmail,
		Brand:             cfg.Mail.Brand,
	}
}

// Stores groups the repositories the digest reads and writes
type Stores struct {
	Orgs       contracts.OrgRepository
	Filters    contracts.FilterRepository
	Scores     contracts.ScoreRepository
	Signals    contracts.SignalRepository
	Deliveries contracts.DeliveryRepository
}

// Job emails every organization its filtered top accounts
type Job struct {
	stores   Stores
	sender   mail.Sender
	lock     *redis.Lock
	screener *selection.Screener
	ranker   *selection.Ranker
	opts     Options
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// NewJob creates a digest job. lock and m may be nil.
func NewJob(stores Stores, sender mail.Sender, lock *redis.Lock, opts Options, m *metrics.Registry, log *logger.Logger) *Job {
	if log == nil {
		log = logger.Nop()
	}
	return &Job{
		stores:   stores,
		sender:   sender,
		lock:     lock,
		screener: selection.NewScreener(log),
		ranker:   selection.NewRanker(log),
		opts:     opts,
		metrics:  m,
		logger:   log.WithJob(JobName),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return JobName
}

// Schedule returns the cron schedule
func (j *Job) Schedule() string {
	return j.opts.Schedule
}

// Run delivers the digest to every organization. Organizations fail
// independently into RunResult.Failures; only a failure to list
// organizations or to take the run lock aborts the run.
func (j *Job) Run(ctx context.Context) (*RunResult, error) {
	start := j.now()
	date := digestDate(start)

	result := &RunResult{
		RunID:       uuid.NewString(),
		DigestDate:  date.Format(time.DateOnly),
		SkipReasons: make(map[string]int),
		Failures:    []OrgFailure{},
	}

	if j.lock != nil {
		lockName := "digest:" + result.DigestDate
		token, ok, err := j.lock.Acquire(ctx, lockName, j.opts.LockTTL)
		if err != nil {
			j.metrics.DigestRun(0, 0, err)
			return nil, fmt.Errorf("failed to acquire digest lock: %w", err)
		}
		if !ok {
			j.logger.WithField("digest_date", result.DigestDate).Warn("Digest run already in progress")
			return nil, contracts.ErrRunInProgress
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), lockName, token); err != nil {
				j.logger.WithError(err).Warn("Failed to release digest lock")
			}
		}()
	}

	orgs, err := j.stores.Orgs.ListOrgs(ctx)
	if err != nil {
		j.metrics.DigestRun(0, 0, err)
		return nil, fmt.Errorf("failed to list orgs: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"orgs":   len(orgs),
	}).Info("Digest run started")

	for _, org := range orgs {
		reason, err := j.deliver(ctx, org, start, date, result.RunID)
		switch {
		case err != nil:
			j.logger.WithOrg(org.ID).WithError(err).Error("Digest failed")
			result.Failures = append(result.Failures, OrgFailure{OrgID: org.ID, OrgName: org.Name, Error: err.Error()})
		case reason != "":
			result.Skipped++
			result.SkipReasons[reason]++
			j.metrics.DigestSkip(reason)
		default:
			result.Sent++
		}
	}

	result.Duration = j.now().Sub(start)
	j.metrics.DigestRun(result.Sent, len(result.Failures), nil)

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"sent":     result.Sent,
		"skipped":  result.Skipped,
		"failures": len(result.Failures),
		"duration": result.Duration,
	}).Info("Digest run completed")

	return result, nil
}

// deliver sends one org's digest. It returns a skip reason, or "" when sent.
func (j *Job) deliver(ctx context.Context, org contracts.Org, now, date time.Time, runID string) (string, error) {
	d, err := j.Prepare(ctx, org, now)
	if err != nil {
		return "", err
	}
	if d.SkipReason != "" {
		return d.SkipReason, nil
	}

	claimed, err := j.stores.Deliveries.ClaimDelivery(ctx, org.ID, date, runID)
	if err != nil {
		return "", err
	}
	if !claimed {
		return SkipAlreadySent, nil
	}

	msg, err := Render(d, j.opts.Brand)
	if err != nil {
		j.release(ctx, org.ID, date)
		return "", err
	}
	msg.From = j.opts.From
	msg.IdempotencyKey = fmt.Sprintf("digest/%s/%s", org.ID, date.Format(time.DateOnly))

	messageID, err := j.sender.Send(ctx, msg)
	if err != nil {
		j.release(ctx, org.ID, date)
		return "", err
	}

	err = j.stores.Deliveries.CompleteDelivery(ctx, contracts.Delivery{
		OrgID:      org.ID,
		DigestDate: date,
		RunID:      runID,
		Recipients: len(d.Recipients),
		MessageID:  messageID,
	})
	if err != nil {
		// The mail is out; the held claim still blocks a second send.
		j.logger.WithOrg(org.ID).WithError(err).Warn("Failed to record digest delivery")
	}

	j.logger.WithOrg(org.ID).WithFields(map[string]interface{}{
		"accounts":   len(d.Items),
		"recipients": len(d.Recipients),
		"message_id": messageID,
	}).Info("Digest sent")

	return "", nil
}

func (j *Job) release(ctx context.Context, orgID string, date time.Time) {
	if err := j.stores.Deliveries.ReleaseDelivery(context.WithoutCancel(ctx), orgID, date); err != nil {
		j.logger.WithOrg(orgID).WithError(err).Error("Failed to release digest claim")
	}
}

// Prepare builds the org's digest as of now without sending anything.
// The same stored data always yields the same digest.
func (j *Job) Prepare(ctx context.Context, org contracts.Org, now time.Time) (*Digest, error) {
	d := &Digest{Org: org, Items: []Item{}, Recipients: []string{}}

	filter, err := j.stores.Filters.ActiveFilter(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load filter: %w", err)
	}
	if filter == nil {
		d.SkipReason = SkipNoFilter
		return d, nil
	}
	d.Filter = filter
	if !filter.DigestEnabled() {
		d.SkipReason = SkipAlertsDisabled
		return d, nil
	}

	rows, err := j.stores.Scores.ScoreRows(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}

	top := j.topAccounts(filter, rows)
	if len(top) == 0 {
		d.SkipReason = SkipNoAccounts
		return d, nil
	}

	since := now.Add(-j.opts.Window)
	for _, m := range top {
		signals, err := j.stores.Signals.SignalsSince(ctx, m.Account.ID, since, j.opts.SignalsPerAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to load signals for %s: %w", m.Account.ID, err)
		}

		signals = selection.FilterSignals(filter, signals)
		if filter.HasTypeFilter() && len(signals) == 0 {
			continue
		}

		d.Items = append(d.Items, Item{Account: m.Account, Score: m.Index, Signals: signals})
	}
	if len(d.Items) == 0 {
		d.SkipReason = SkipNoSignals
		return d, nil
	}

	recipients, err := j.stores.Orgs.MemberEmails(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	if len(recipients) == 0 {
		d.SkipReason = SkipNoRecipients
		return d, nil
	}
	d.Recipients = recipients

	return d, nil
}

// topAccounts applies the score and country predicates, then keeps the
// TopAccounts highest rows that have an account record
func (j *Job) topAccounts(filter *contracts.Filter, rows []contracts.ScoreRow) []contracts.MatchedScore {
	passed := j.screener.Screen(filter, rows, nil, selection.ByScore|selection.ByCountry)

	out := make([]contracts.MatchedScore, 0, j.opts.TopAccounts)
	for _, row := range j.ranker.Rank(passed) {
		m, ok := row.(contracts.MatchedScore)
		if !ok {
			continue
		}
		out = append(out, m)
		if len(out) == j.opts.TopAccounts {
			break
		}
	}
	return out
}

// digestDate is the UTC calendar day a run delivers for
func digestDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
