package contracts

import (
	"context"
	"time"
)

// Repository interfaces. Implementations live in internal/store.

// OrgRepository reads tenants and their members
type OrgRepository interface {
	ListOrgs(ctx context.Context) ([]Org, error)
	GetOrg(ctx context.Context, orgID string) (*Org, error)
	MemberEmails(ctx context.Context, orgID string) ([]string, error)
}

// MembershipRepository backs organization bootstrap
type MembershipRepository interface {
	UpsertProfile(ctx context.Context, p Profile) error
	// OrgForUser returns the first org the user belongs to, or ErrNotFound
	OrgForUser(ctx context.Context, userID string) (*Org, error)
	CreateOrgWithOwner(ctx context.Context, name, userID string) (*Org, error)
}

// FilterRepository stores filters
type FilterRepository interface {
	// ActiveFilter returns the flagged filter, else the newest, else nil
	ActiveFilter(ctx context.Context, orgID string) (*Filter, error)
	ListFilters(ctx context.Context, orgID string) ([]Filter, error)
	// CreateFilter inserts f and makes it the org's active filter
	CreateFilter(ctx context.Context, f *Filter) error
	DeleteFilter(ctx context.Context, orgID, filterID string) error
	ActivateFilter(ctx context.Context, orgID, filterID string) error
}

// ScoreRepository reads the score provider's per-org aggregates
type ScoreRepository interface {
	// ScoreRows returns every row for the org, score descending
	ScoreRows(ctx context.Context, orgID string) ([]ScoreRow, error)
	// LatestSignalTypes returns the latest-signal-types projection keyed by account
	LatestSignalTypes(ctx context.Context, accountIDs []string) (map[string][]string, error)
}

// ScoreProvider is the opaque scoring collaborator. Its momentum/stacking
// formula is not reproduced by this service.
type ScoreProvider interface {
	AggregateScore(ctx context.Context, orgID, accountID string) (int, error)
	ScoreBreakdown(ctx context.Context, orgID, accountID string, limit int) ([]BreakdownEntry, error)
}

// SignalRepository reads and appends signals
type SignalRepository interface {
	RecentSignals(ctx context.Context, accountID string, limit int) ([]Signal, error)
	SignalsSince(ctx context.Context, accountID string, since time.Time, limit int) ([]Signal, error)
	InsertSignal(ctx context.Context, s *Signal) error
}

// DeliveryRepository is the digest idempotency ledger keyed by (org, date)
type DeliveryRepository interface {
	// ClaimDelivery returns false when the pair was already claimed
	ClaimDelivery(ctx context.Context, orgID string, date time.Time, runID string) (bool, error)
	CompleteDelivery(ctx context.Context, d Delivery) error
	ReleaseDelivery(ctx context.Context, orgID string, date time.Time) error
}

// FeedRepository backs RSS ingestion
type FeedRepository interface {
	EnabledSources(ctx context.Context) ([]FeedSource, error)
	// InsertItem returns false when the (feed, guid) pair already exists
	InsertItem(ctx context.Context, item FeedItem) (bool, error)
}
