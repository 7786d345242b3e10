package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		score int
		want  Band
	}{
		{0, BandLow},
		{99, BandLow},
		{100, BandWarm},
		{149, BandWarm},
		{150, BandHot},
		{420, BandHot},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %d", tt.score)
	}
}

func TestClampStrength(t *testing.T) {
	assert.Equal(t, 10, ClampStrength(-5))
	assert.Equal(t, 50, ClampStrength(50))
	assert.Equal(t, 200, ClampStrength(260))
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysSince(now.Add(-23*time.Hour), now))
	assert.Equal(t, 3, DaysSince(now.Add(-72*time.Hour), now))
	assert.Equal(t, 0, DaysSince(now.Add(time.Hour), now))
}

func TestScoreRowVariants(t *testing.T) {
	matched := MatchedScore{Account: Account{ID: "a", Country: "IE"}, Index: 160}
	orphan := OrphanedScore{ID: "b", Index: 90}

	rows := []ScoreRow{matched, orphan}
	assert.Equal(t, "a", rows[0].AccountID())
	assert.Equal(t, 160, rows[0].Score())
	assert.Equal(t, "b", rows[1].AccountID())
	assert.Equal(t, 90, rows[1].Score())

	country, ok := CountryOf(matched)
	assert.True(t, ok)
	assert.Equal(t, "IE", country)

	_, ok = CountryOf(orphan)
	assert.False(t, ok)

	_, ok = CountryOf(MatchedScore{Account: Account{ID: "c"}})
	assert.False(t, ok)
}

func TestFilterPredicatesApply(t *testing.T) {
	var none *Filter
	assert.False(t, none.HasScoreFilter())
	assert.False(t, none.HasCountryFilter())
	assert.False(t, none.HasTypeFilter())
	assert.False(t, none.DigestEnabled())

	f := &Filter{MinScore: 120, Countries: []string{"IE"}, SignalTypes: []string{"CSV_HIRING"}, Cadence: CadenceDaily, EmailAlerts: true}
	assert.True(t, f.HasScoreFilter())
	assert.True(t, f.HasCountryFilter())
	assert.True(t, f.HasTypeFilter())
	assert.True(t, f.DigestEnabled())

	f.Cadence = CadenceWeekly
	assert.False(t, f.DigestEnabled())
	f.Cadence = CadenceDaily
	f.EmailAlerts = false
	assert.False(t, f.DigestEnabled())
}

func TestCadenceValid(t *testing.T) {
	assert.True(t, CadenceDaily.Valid())
	assert.True(t, CadenceWeekly.Valid())
	assert.True(t, CadenceInstant.Valid())
	assert.False(t, Cadence("hourly").Valid())
}

func TestTaxonomy(t *testing.T) {
	all := AllSignalTypes()
	assert.Len(t, SignalGroups, 8)
	assert.Equal(t, "CSV_HIRING", all[0])
	assert.True(t, IsKnownSignalType("FACILITY_EXPANSION"))
	assert.False(t, IsKnownSignalType(TypeOther))

	for typ := range HighIntent {
		assert.True(t, IsKnownSignalType(typ), typ)
	}
	for typ := range AlertEligible {
		assert.True(t, IsKnownSignalType(typ), typ)
	}

	assert.True(t, CoversTaxonomy(all))
	assert.False(t, CoversTaxonomy(all[1:]))
	assert.True(t, CoversTaxonomy(append(append([]string{}, all...), TypeOther)))
}
