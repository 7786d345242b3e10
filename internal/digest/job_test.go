package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

var testNow = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Schedule:          "0 0 7 * * *",
		TopAccounts:       10,
		SignalsPerAccount: 5,
		Window:            7 * 24 * time.Hour,
		LockTTL:           30 * time.Minute,
		From:              "Radar <digest@example.com>",
		Brand:             "LifeScienceSignals",
	}
}

func newTestJob(w *world, sender *recordingSender) *Job {
	j := NewJob(w.stores(), sender, nil, testOptions(), nil, nil)
	j.now = func() time.Time { return testNow }
	return j
}

func signal(id, typ string, age time.Duration) contracts.Signal {
	return contracts.Signal{ID: id, Title: "Signal " + id, Type: typ, OccurredAt: testNow.Add(-age), StrengthScore: 80}
}

func TestJobContract(t *testing.T) {
	j := newTestJob(newWorld(), &recordingSender{})
	assert.Equal(t, "daily_digest", j.Name())
	assert.Equal(t, "0 0 7 * * *", j.Schedule())
}

func TestRunCountryAndScoreFilter(t *testing.T) {
	w := newWorld()
	w.orgs = []contracts.Org{{ID: "org-1", Name: "acme.ie"}}
	f := dailyFilter("Ireland")
	f.Countries = []string{"IE"}
	f.MinScore = 100
	w.filters["org-1"] = f
	w.scores["org-1"] = []contracts.ScoreRow{
		account("ie-1", "IE", 180),
		account("uk-1", "UK", 170),
		account("ie-2", "IE", 90),
		account("ie-3", "IE", 120),
		contracts.OrphanedScore{ID: "ghost", Index: 190},
	}
	w.signals["ie-1"] = []contracts.Signal{signal("s1", "QA_HIRING", time.Hour)}
	w.emails["org-1"] = []string{"a@acme.ie", "b@acme.ie"}

	sender := &recordingSender{}
	result, err := newTestJob(w, sender).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	assert.Empty(t, result.Failures)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"a@acme.ie", "b@acme.ie"}, msg.To)
	assert.Equal(t, "LifeScienceSignals Daily Digest — Ireland", msg.Subject)
	assert.Equal(t, "Radar <digest@example.com>", msg.From)
	assert.Equal(t, "digest/org-1/2025-06-02", msg.IdempotencyKey)
	assert.Contains(t, msg.HTML, "Account ie-1")
	assert.Contains(t, msg.HTML, "Account ie-3")
	assert.NotContains(t, msg.HTML, "Account uk-1")
	assert.NotContains(t, msg.HTML, "Account ie-2")

	delivery := w.claims[claimKey("org-1", digestDate(testNow))]
	assert.Equal(t, "msg-1", delivery.MessageID)
	assert.Equal(t, 2, delivery.Recipients)
}

func TestPrepareSignalTypeFilter(t *testing.T) {
	w := newWorld()
	org := contracts.Org{ID: "org-1", Name: "acme.ie"}
	f := dailyFilter("CSV only")
	f.SignalTypes = []string{"CSV_HIRING"}
	w.filters["org-1"] = f
	w.scores["org-1"] = []contracts.ScoreRow{account("expander", "IE", 160), account("validator", "IE", 150)}
	w.signals["expander"] = []contracts.Signal{signal("e1", "FACILITY_EXPANSION", time.Hour)}
	w.signals["validator"] = []contracts.Signal{
		signal("v1", "CSV_HIRING", time.Hour),
		signal("v2", "FACILITY_EXPANSION", 2*time.Hour),
	}
	w.emails["org-1"] = []string{"a@acme.ie"}

	d, err := newTestJob(w, &recordingSender{}).Prepare(context.Background(), org, testNow)
	require.NoError(t, err)
	require.Empty(t, d.SkipReason)
	require.Len(t, d.Items, 1)

	assert.Equal(t, "validator", d.Items[0].Account.ID)
	require.Len(t, d.Items[0].Signals, 1)
	assert.Equal(t, "CSV_HIRING", d.Items[0].Signals[0].Type)
}

func TestPrepareWindowIsInclusive(t *testing.T) {
	w := newWorld()
	org := contracts.Org{ID: "org-1"}
	w.filters["org-1"] = dailyFilter("All")
	w.scores["org-1"] = []contracts.ScoreRow{account("a", "IE", 120)}
	w.signals["a"] = []contracts.Signal{
		signal("edge", "QA_HIRING", 7*24*time.Hour),
		signal("stale", "QA_HIRING", 7*24*time.Hour+time.Second),
	}
	w.emails["org-1"] = []string{"a@acme.ie"}

	d, err := newTestJob(w, &recordingSender{}).Prepare(context.Background(), org, testNow)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	require.Len(t, d.Items[0].Signals, 1)
	assert.Equal(t, "edge", d.Items[0].Signals[0].ID)
}

func TestPrepareLimits(t *testing.T) {
	w := newWorld()
	org := contracts.Org{ID: "org-1"}
	w.filters["org-1"] = dailyFilter("All")
	for i := 0; i < 15; i++ {
		id := string(rune('a' + i))
		w.scores["org-1"] = append(w.scores["org-1"], account(id, "IE", 200-i))
	}
	for i := 0; i < 8; i++ {
		w.signals["a"] = append(w.signals["a"], signal(string(rune('0'+i)), "QA_HIRING", time.Duration(i)*time.Hour))
	}
	w.emails["org-1"] = []string{"a@acme.ie"}

	d, err := newTestJob(w, &recordingSender{}).Prepare(context.Background(), org, testNow)
	require.NoError(t, err)

	require.Len(t, d.Items, 10)
	assert.Equal(t, "a", d.Items[0].Account.ID)
	assert.Len(t, d.Items[0].Signals, 5)
	assert.Empty(t, d.Items[1].Signals)
}

func TestPrepareSkipReasons(t *testing.T) {
	weekly := dailyFilter("Weekly")
	weekly.Cadence = contracts.CadenceWeekly
	muted := dailyFilter("Muted")
	muted.EmailAlerts = false
	typed := dailyFilter("Typed")
	typed.SignalTypes = []string{"QA_HIRING"}

	tests := []struct {
		name   string
		filter *contracts.Filter
		scores []contracts.ScoreRow
		emails []string
		want   string
	}{
		{"no filter", nil, nil, nil, SkipNoFilter},
		{"weekly cadence", weekly, nil, nil, SkipAlertsDisabled},
		{"alerts off", muted, nil, nil, SkipAlertsDisabled},
		{"no scores", dailyFilter("All"), nil, nil, SkipNoAccounts},
		{"only orphans", dailyFilter("All"), []contracts.ScoreRow{contracts.OrphanedScore{ID: "x", Index: 150}}, nil, SkipNoAccounts},
		{"types leave nothing", typed, []contracts.ScoreRow{account("a", "IE", 150)}, nil, SkipNoSignals},
		{"no recipients", dailyFilter("All"), []contracts.ScoreRow{account("a", "IE", 150)}, nil, SkipNoRecipients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld()
			if tt.filter != nil {
				w.filters["org-1"] = tt.filter
			}
			w.scores["org-1"] = tt.scores
			w.emails["org-1"] = tt.emails

			d, err := newTestJob(w, &recordingSender{}).Prepare(context.Background(), contracts.Org{ID: "org-1"}, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.SkipReason)
		})
	}
}

func TestRunWithoutFiltersSendsNothing(t *testing.T) {
	w := newWorld()
	w.orgs = []contracts.Org{{ID: "org-1"}, {ID: "org-2"}}

	sender := &recordingSender{}
	result, err := newTestJob(w, sender).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Sent)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 2, result.SkipReasons[SkipNoFilter])
	assert.Empty(t, sender.sent)
	assert.NoError(t, result.Err())
}

func seededWorld() *world {
	w := newWorld()
	w.orgs = []contracts.Org{{ID: "org-1", Name: "acme.ie"}, {ID: "org-2", Name: "beta.co.uk"}}
	for _, org := range []string{"org-1", "org-2"} {
		w.filters[org] = dailyFilter("All")
		w.scores[org] = []contracts.ScoreRow{account(org+"-acct", "IE", 150)}
	}
	w.emails["org-1"] = []string{"a@acme.ie"}
	w.emails["org-2"] = []string{"b@beta.co.uk"}
	return w
}

func TestRunIsIdempotentPerDay(t *testing.T) {
	w := seededWorld()
	sender := &recordingSender{}
	j := newTestJob(w, sender)

	first, err := j.Run(context.Background())
	require.NoError(t, err)
	second, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Sent)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 2, second.SkipReasons[SkipAlreadySent])
	assert.Len(t, sender.sent, 2)

	j.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	third, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, third.Sent)
}

func TestPrepareIsDeterministic(t *testing.T) {
	w := seededWorld()
	w.signals["org-1-acct"] = []contracts.Signal{signal("s1", "QA_HIRING", time.Hour), signal("s2", "CSV_HIRING", 2*time.Hour)}
	j := newTestJob(w, &recordingSender{})
	org := w.orgs[0]

	first, err := j.Prepare(context.Background(), org, testNow)
	require.NoError(t, err)
	second, err := j.Prepare(context.Background(), org, testNow)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	m1, err := Render(first, "LifeScienceSignals")
	require.NoError(t, err)
	m2, err := Render(second, "LifeScienceSignals")
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestRunIsolatesOrgFailures(t *testing.T) {
	w := seededWorld()
	sender := &recordingSender{failTo: map[string]bool{"a@acme.ie": true}}
	reg := metrics.NewRegistry()

	j := NewJob(w.stores(), sender, nil, testOptions(), reg, nil)
	j.now = func() time.Time { return testNow }

	result, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sent)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "org-1", result.Failures[0].OrgID)
	assert.Contains(t, result.Failures[0].Error, "unavailable")
	assert.Error(t, result.Err())

	// the failed org's claim is released so a retry can deliver
	assert.Equal(t, 1, w.released)
	_, held := w.claims[claimKey("org-1", digestDate(testNow))]
	assert.False(t, held)

	sender.failTo = nil
	retry, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Sent)
	assert.Equal(t, 1, retry.SkipReasons[SkipAlreadySent])
}

func TestRunAbortsWhenOrgsUnavailable(t *testing.T) {
	w := newWorld()
	w.orgsErr = errors.New("connection refused")

	_, err := newTestJob(w, &recordingSender{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list orgs")
}

func TestRunHonoursLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lock := redis.NewLock(redis.NewFromClient(db), "radar")

	mock.Regexp().ExpectSetNX("radar:lock:digest:2025-06-02", `.+`, 30*time.Minute).SetVal(false)

	sender := &recordingSender{}
	j := NewJob(seededWorld().stores(), sender, lock, testOptions(), nil, nil)
	j.now = func() time.Time { return testNow }

	_, err := j.Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrRunInProgress)
	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDigestDate(t *testing.T) {
	local := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2025, 6, 3, 2, 0, 0, 0, local)
	assert.Equal(t, "2025-06-02", digestDate(at).Format(time.DateOnly))
}
