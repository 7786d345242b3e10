package contracts

import "time"

// Cadence is how often a filter's digest is sent
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceInstant Cadence = "instant"
)

// Valid reports whether c is one of the known cadences
func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceInstant:
		return true
	}
	return false
}

// Filter narrows which accounts and signals an organization sees.
// Empty Countries and nil SignalTypes mean "any".
type Filter struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Countries   []string  `json:"countries"`
	SignalTypes []string  `json:"signal_types"`
	MinScore    int       `json:"min_score"`
	Cadence     Cadence   `json:"digest_frequency"`
	EmailAlerts bool      `json:"email_alerts"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasScoreFilter reports whether the min score predicate applies
func (f *Filter) HasScoreFilter() bool {
	return f != nil && f.MinScore > 0
}

// HasCountryFilter reports whether the country predicate applies
func (f *Filter) HasCountryFilter() bool {
	return f != nil && len(f.Countries) > 0
}

// HasTypeFilter reports whether the signal type predicate applies
func (f *Filter) HasTypeFilter() bool {
	return f != nil && len(f.SignalTypes) > 0
}

// DigestEnabled reports whether the filter asks for the daily email digest
func (f *Filter) DigestEnabled() bool {
	return f != nil && f.EmailAlerts && f.Cadence == CadenceDaily
}
