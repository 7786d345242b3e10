package digest

import (
	"errors"
	"fmt"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

// Skip reasons reported per organization
const (
	SkipNoFilter       = "no_filter"
	SkipAlertsDisabled = "alerts_disabled"
	SkipNoAccounts     = "no_accounts"
	SkipNoSignals      = "no_matching_signals"
	SkipNoRecipients   = "no_recipients"
	SkipAlreadySent    = "already_sent"
)

// Item is one account block of a digest
type Item struct {
	Account contracts.Account  `json:"account"`
	Score   int                `json:"score"`
	Signals []contracts.Signal `json:"signals"`
}

// Digest is the prepared content for one organization.
// A non-empty SkipReason means nothing should be sent.
type Digest struct {
	Org        contracts.Org     `json:"org"`
	Filter     *contracts.Filter `json:"filter,omitempty"`
	Items      []Item            `json:"items"`
	Recipients []string          `json:"recipients"`
	SkipReason string            `json:"skip_reason,omitempty"`
}

// OrgFailure records an organization whose digest could not be delivered
type OrgFailure struct {
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Error   string `json:"error"`
}

// RunResult summarizes one digest run
type RunResult struct {
	RunID       string         `json:"run_id"`
	DigestDate  string         `json:"digest_date"`
	Sent        int            `json:"sent"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons"`
	Failures    []OrgFailure   `json:"failures"`
	Duration    time.Duration  `json:"duration"`
}

// Err joins the per-organization failures, or returns nil
func (r *RunResult) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("org %s: %s", f.OrgID, f.Error)
	}
	return errors.Join(errs...)
}
