package radar

import (
	"errors"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

// ErrStoreUnavailable wraps every store failure surfaced by the radar
var ErrStoreUnavailable = errors.New("store unavailable")

// StatusNoMatches is shown when the filter leaves no accounts
const StatusNoMatches = "No accounts match your current filter."

// UnknownAccountName labels rows whose account record is missing
const UnknownAccountName = "(Unknown account)"

// Row is one ranked account on the radar
type Row struct {
	AccountID string             `json:"account_id"`
	Name      string             `json:"name"`
	Account   *contracts.Account `json:"account,omitempty"`
	Score     int                `json:"buying_pressure_index"`
	Band      contracts.Band     `json:"band"`
}

// View is the ranked radar for one organization
type View struct {
	OrgID      string            `json:"org_id"`
	Filter     *contracts.Filter `json:"filter,omitempty"`
	FilterName string            `json:"filter_name,omitempty"`
	Rows       []Row             `json:"rows"`
	Status     string            `json:"status,omitempty"`
}

// SignalList is the drill-down of one account
type SignalList struct {
	AccountID           string             `json:"account_id"`
	Signals             []contracts.Signal `json:"signals"`
	LastSignalAt        *time.Time         `json:"last_signal_at,omitempty"`
	DaysSinceLastSignal *int               `json:"days_since_last_signal,omitempty"`
}

// DeltaLabel names the part of the aggregate not explained by the entries
const DeltaLabel = "account-level momentum/stacking"

// DefaultBreakdownLimit is the number of breakdown entries requested
const DefaultBreakdownLimit = 10

// Explanation reconciles an aggregate score with its per-signal breakdown.
// When the breakdown is unavailable only the aggregate and BreakdownError
// are set.
type Explanation struct {
	OrgID          string                     `json:"org_id"`
	AccountID      string                     `json:"account_id"`
	Aggregate      int                        `json:"buying_pressure_index"`
	Band           contracts.Band             `json:"band"`
	Entries        []contracts.BreakdownEntry `json:"entries"`
	BreakdownTotal int                        `json:"breakdown_total"`
	Delta          int                        `json:"delta"`
	DeltaLabel     string                     `json:"delta_label,omitempty"`
	Anomalous      bool                       `json:"anomalous"`
	BreakdownError string                     `json:"breakdown_error,omitempty"`
}

func rowFor(sr contracts.ScoreRow) Row {
	row := Row{
		AccountID: sr.AccountID(),
		Name:      UnknownAccountName,
		Score:     sr.Score(),
		Band:      contracts.BandFor(sr.Score()),
	}
	if m, ok := sr.(contracts.MatchedScore); ok {
		acct := m.Account
		row.Account = &acct
		row.Name = acct.Name
	}
	return row
}
