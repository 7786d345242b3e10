package contracts

import "time"

// Account is a target company. Reference data, maintained by enrichment.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Domain  string `json:"domain,omitempty"`
	Country string `json:"country,omitempty"` // ISO-like code, e.g. "IE", "UK"
	Segment string `json:"segment,omitempty"`
}

// Signal is a detected buying event. RSS signals may have no account.
type Signal struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id,omitempty"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	OccurredAt    time.Time `json:"occurred_at"`
	StrengthScore int       `json:"strength_score"`
	SourceURL     string    `json:"source_url,omitempty"`
}

// Strength bounds enforced at ingestion
const (
	MinStrength = 10
	MaxStrength = 200
)

// ClampStrength bounds a raw strength into [MinStrength, MaxStrength]
func ClampStrength(v int) int {
	if v < MinStrength {
		return MinStrength
	}
	if v > MaxStrength {
		return MaxStrength
	}
	return v
}

// Band is the display bucket of a buying pressure index
type Band string

const (
	BandHot  Band = "Hot"
	BandWarm Band = "Warm"
	BandLow  Band = "Low"
)

// BandFor maps a score to its band: Hot >= 150, Warm 100-149, Low < 100
func BandFor(score int) Band {
	switch {
	case score >= 150:
		return BandHot
	case score >= 100:
		return BandWarm
	default:
		return BandLow
	}
}

// DaysSince returns whole days elapsed from t to now, never negative
func DaysSince(t, now time.Time) int {
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
