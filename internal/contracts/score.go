package contracts

import "time"

// ScoreRow is one (account, buying pressure index) pair for an organization.
// It is either a MatchedScore or an OrphanedScore; callers switch on the
// concrete type instead of checking for a missing account.
type ScoreRow interface {
	AccountID() string
	Score() int
	isScoreRow()
}

// MatchedScore is a score whose account record was found
type MatchedScore struct {
	Account Account
	Index   int
}

func (m MatchedScore) AccountID() string { return m.Account.ID }
func (m MatchedScore) Score() int        { return m.Index }
func (MatchedScore) isScoreRow()         {}

// OrphanedScore is a score row with no joinable account
type OrphanedScore struct {
	ID    string
	Index int
}

func (o OrphanedScore) AccountID() string { return o.ID }
func (o OrphanedScore) Score() int        { return o.Index }
func (OrphanedScore) isScoreRow()         {}

// CountryOf returns the account country. Orphaned rows have none.
func CountryOf(row ScoreRow) (string, bool) {
	switch r := row.(type) {
	case MatchedScore:
		return r.Account.Country, r.Account.Country != ""
	default:
		return "", false
	}
}

// BreakdownEntry is one signal's contribution to the aggregate index,
// as reported by the score provider. Never persisted.
type BreakdownEntry struct {
	SignalID          string    `json:"signal_id"`
	Title             string    `json:"title"`
	Type              string    `json:"type"`
	Category          string    `json:"category"`
	OccurredAt        time.Time `json:"occurred_at"`
	StrengthScore     int       `json:"strength_score"`
	TypeWeight        float64   `json:"type_weight"`
	RecencyMultiplier float64   `json:"recency_multiplier"`
	Points            int       `json:"points"`
	Rule              string    `json:"rule"`
}
