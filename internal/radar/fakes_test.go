package radar

import (
	"context"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

type fakeFilters struct {
	filter *contracts.Filter
	err    error
}

func (f *fakeFilters) ActiveFilter(context.Context, string) (*contracts.Filter, error) {
	return f.filter, f.err
}
func (f *fakeFilters) ListFilters(context.Context, string) ([]contracts.Filter, error) {
	return nil, nil
}
func (f *fakeFilters) CreateFilter(context.Context, *contracts.Filter) error { return nil }
func (f *fakeFilters) DeleteFilter(context.Context, string, string) error    { return nil }
func (f *fakeFilters) ActivateFilter(context.Context, string, string) error  { return nil }

type fakeScores struct {
	rows      []contracts.ScoreRow
	types     map[string][]string
	rowsErr   error
	typesErr  error
	typeCalls int
	typeIDs   []string
}

func (f *fakeScores) ScoreRows(context.Context, string) ([]contracts.ScoreRow, error) {
	return f.rows, f.rowsErr
}

func (f *fakeScores) LatestSignalTypes(_ context.Context, ids []string) (map[string][]string, error) {
	f.typeCalls++
	f.typeIDs = ids
	return f.types, f.typesErr
}

type fakeSignals struct {
	signals []contracts.Signal
	err     error
	calls   int
}

func (f *fakeSignals) RecentSignals(context.Context, string, int) ([]contracts.Signal, error) {
	f.calls++
	return f.signals, f.err
}
func (f *fakeSignals) SignalsSince(context.Context, string, time.Time, int) ([]contracts.Signal, error) {
	return nil, nil
}
func (f *fakeSignals) InsertSignal(context.Context, *contracts.Signal) error { return nil }

type fakeProvider struct {
	aggregate    int
	aggErr       error
	entries      []contracts.BreakdownEntry
	breakdownErr error
	limit        int
}

func (f *fakeProvider) AggregateScore(context.Context, string, string) (int, error) {
	return f.aggregate, f.aggErr
}

func (f *fakeProvider) ScoreBreakdown(_ context.Context, _, _ string, limit int) ([]contracts.BreakdownEntry, error) {
	f.limit = limit
	return f.entries, f.breakdownErr
}

func matched(id, country string, score int) contracts.MatchedScore {
	return contracts.MatchedScore{
		Account: contracts.Account{ID: id, Name: "Account " + id, Country: country},
		Index:   score,
	}
}
