package digest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/mail"
)

// world is an in-memory backing for every repository the digest uses
type world struct {
	orgs     []contracts.Org
	orgsErr  error
	filters  map[string]*contracts.Filter
	scores   map[string][]contracts.ScoreRow
	signals  map[string][]contracts.Signal
	emails   map[string][]string
	claims   map[string]contracts.Delivery
	released int
	mu       sync.Mutex
}

func newWorld() *world {
	return &world{
		filters: make(map[string]*contracts.Filter),
		scores:  make(map[string][]contracts.ScoreRow),
		signals: make(map[string][]contracts.Signal),
		emails:  make(map[string][]string),
		claims:  make(map[string]contracts.Delivery),
	}
}

func (w *world) stores() Stores {
	return Stores{Orgs: w, Filters: w, Scores: w, Signals: w, Deliveries: w}
}

func (w *world) ListOrgs(context.Context) ([]contracts.Org, error) { return w.orgs, w.orgsErr }

func (w *world) GetOrg(_ context.Context, id string) (*contracts.Org, error) {
	for _, o := range w.orgs {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (w *world) MemberEmails(_ context.Context, orgID string) ([]string, error) {
	return w.emails[orgID], nil
}

func (w *world) ActiveFilter(_ context.Context, orgID string) (*contracts.Filter, error) {
	return w.filters[orgID], nil
}

func (w *world) ListFilters(context.Context, string) ([]contracts.Filter, error) { return nil, nil }
func (w *world) CreateFilter(context.Context, *contracts.Filter) error           { return nil }
func (w *world) DeleteFilter(context.Context, string, string) error              { return nil }
func (w *world) ActivateFilter(context.Context, string, string) error            { return nil }

func (w *world) ScoreRows(_ context.Context, orgID string) ([]contracts.ScoreRow, error) {
	rows := append([]contracts.ScoreRow(nil), w.scores[orgID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score() > rows[j].Score() })
	return rows, nil
}

func (w *world) LatestSignalTypes(context.Context, []string) (map[string][]string, error) {
	return nil, errors.New("digest must not use the latest-types projection")
}

func (w *world) RecentSignals(context.Context, string, int) ([]contracts.Signal, error) {
	return nil, nil
}

func (w *world) SignalsSince(_ context.Context, accountID string, since time.Time, limit int) ([]contracts.Signal, error) {
	out := make([]contracts.Signal, 0)
	for _, s := range w.signals[accountID] {
		if !s.OccurredAt.Before(since) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (w *world) InsertSignal(context.Context, *contracts.Signal) error { return nil }

func claimKey(orgID string, date time.Time) string {
	return orgID + "/" + date.Format(time.DateOnly)
}

func (w *world) ClaimDelivery(_ context.Context, orgID string, date time.Time, runID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := claimKey(orgID, date)
	if _, ok := w.claims[key]; ok {
		return false, nil
	}
	w.claims[key] = contracts.Delivery{OrgID: orgID, DigestDate: date, RunID: runID}
	return true, nil
}

func (w *world) CompleteDelivery(_ context.Context, d contracts.Delivery) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.claims[claimKey(d.OrgID, d.DigestDate)] = d
	return nil
}

func (w *world) ReleaseDelivery(_ context.Context, orgID string, date time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.claims, claimKey(orgID, date))
	w.released++
	return nil
}

// recordingSender keeps sent messages and fails for listed recipients
type recordingSender struct {
	sent   []mail.Message
	failTo map[string]bool
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) (string, error) {
	for _, to := range msg.To {
		if s.failTo[to] {
			return "", fmt.Errorf("mailbox %s unavailable", to)
		}
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func account(id, country string, score int) contracts.MatchedScore {
	return contracts.MatchedScore{
		Account: contracts.Account{ID: id, Name: "Account " + id, Country: country, Segment: "pharma"},
		Index:   score,
	}
}

func dailyFilter(name string) *contracts.Filter {
	return &contracts.Filter{Name: name, Cadence: contracts.CadenceDaily, EmailAlerts: true, Active: true}
}
