package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/digest"
	"github.com/lifesciencesignals/radar/internal/events"
	"github.com/lifesciencesignals/radar/internal/filters"
	"github.com/lifesciencesignals/radar/internal/ingest"
	"github.com/lifesciencesignals/radar/internal/orgs"
	"github.com/lifesciencesignals/radar/internal/radar"
	"github.com/lifesciencesignals/radar/internal/scheduler"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

type stubRanker struct {
	view *radar.View
	err  error
}

func (s stubRanker) Rank(context.Context, string) (*radar.View, error) { return s.view, s.err }

type stubDrilldown struct {
	session string
	account string
}

func (s *stubDrilldown) Recent(_ context.Context, sessionID, accountID string) (*radar.SignalList, error) {
	s.session, s.account = sessionID, accountID
	return &radar.SignalList{AccountID: accountID, Signals: []contracts.Signal{}}, nil
}

type stubExplainer struct {
	limit int
	err   error
}

func (s *stubExplainer) Explain(_ context.Context, orgID, accountID string, limit int) (*radar.Explanation, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return &radar.Explanation{OrgID: orgID, AccountID: accountID, Aggregate: 120, BreakdownError: "rpc failed"}, nil
}

type stubFilters struct {
	created *filters.Input
	active  *contracts.Filter
	err     error
}

func (s *stubFilters) Create(_ context.Context, orgID string, in filters.Input) (*contracts.Filter, error) {
	s.created = &in
	if s.err != nil {
		return nil, s.err
	}
	return &contracts.Filter{ID: "f1", OrgID: orgID, Name: in.Name, Active: true}, nil
}

func (s *stubFilters) List(context.Context, string) ([]contracts.Filter, error) {
	return []contracts.Filter{{ID: "f1"}}, s.err
}

func (s *stubFilters) Active(context.Context, string) (*contracts.Filter, error) {
	return s.active, s.err
}

func (s *stubFilters) Delete(context.Context, string, string) error   { return s.err }
func (s *stubFilters) Activate(context.Context, string, string) error { return s.err }

type stubBootstrapper struct {
	res *orgs.Result
	err error
}

func (s stubBootstrapper) Bootstrap(context.Context, string, string) (*orgs.Result, error) {
	return s.res, s.err
}

type stubDigest struct {
	res *digest.RunResult
	err error
}

func (s stubDigest) Run(context.Context) (*digest.RunResult, error) { return s.res, s.err }

type stubIngest struct {
	res *ingest.Result
	err error
}

func (s stubIngest) Run(context.Context) (*ingest.Result, error) { return s.res, s.err }

type stubStats map[string]scheduler.JobStats

func (s stubStats) GetJobStats() map[string]scheduler.JobStats { return s }

// serve routes req through a one-route mux so path variables resolve
func serve(pattern, method string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc(pattern, h).Methods(method)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetRadar(t *testing.T) {
	view := &radar.View{OrgID: "org-1", Rows: []radar.Row{}, Status: radar.StatusNoMatches}
	h := NewRadarHandler(stubRanker{view: view}, nil, nil, logger.Nop())

	rec := serve("/orgs/{orgID}/radar", "GET", h.GetRadar, httptest.NewRequest("GET", "/orgs/org-1/radar", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got radar.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, radar.StatusNoMatches, got.Status)

	h = NewRadarHandler(stubRanker{err: radar.ErrStoreUnavailable}, nil, nil, logger.Nop())
	rec = serve("/orgs/{orgID}/radar", "GET", h.GetRadar, httptest.NewRequest("GET", "/orgs/org-1/radar", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error loading radar.", decode(t, rec)["error"])
}

func TestGetSignalsSession(t *testing.T) {
	drill := &stubDrilldown{}
	h := NewRadarHandler(nil, drill, nil, logger.Nop())
	pattern := "/orgs/{orgID}/accounts/{accountID}/signals"

	req := httptest.NewRequest("GET", "/orgs/org-1/accounts/acc-9/signals", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := serve(pattern, "GET", h.GetSignals, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", drill.session)
	assert.Equal(t, "acc-9", drill.account)

	req = httptest.NewRequest("GET", "/orgs/org-1/accounts/acc-9/signals", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	serve(pattern, "GET", h.GetSignals, req)
	assert.Equal(t, "10.0.0.1:5555", drill.session)
}

func TestGetBreakdown(t *testing.T) {
	pattern := "/orgs/{orgID}/accounts/{accountID}/breakdown"

	tests := []struct {
		name      string
		query     string
		err       error
		wantCode  int
		wantLimit int
	}{
		{"default limit", "", nil, http.StatusOK, radar.DefaultBreakdownLimit},
		{"custom limit", "?limit=3", nil, http.StatusOK, 3},
		{"bad limit", "?limit=abc", nil, http.StatusBadRequest, 0},
		{"zero limit", "?limit=0", nil, http.StatusBadRequest, 0},
		{"no score", "", fmt.Errorf("score: %w", contracts.ErrNotFound), http.StatusNotFound, radar.DefaultBreakdownLimit},
		{"store down", "", errors.New("db down"), http.StatusInternalServerError, radar.DefaultBreakdownLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &stubExplainer{err: tt.err}
			h := NewRadarHandler(nil, nil, exp, logger.Nop())

			req := httptest.NewRequest("GET", "/orgs/org-1/accounts/acc-1/breakdown"+tt.query, nil)
			rec := serve(pattern, "GET", h.GetBreakdown, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, exp.limit)
			if tt.wantCode == http.StatusOK {
				body := decode(t, rec)
				assert.Equal(t, "rpc failed", body["breakdown_error"])
			}
		})
	}
}

func TestFilterHandlers(t *testing.T) {
	svc := &stubFilters{}
	h := NewFilterHandler(svc, logger.Nop())

	body := `{"name":"Ireland","countries":["ie"],"min_score":100,"digest_frequency":"daily","email_alerts":true}`
	rec := serve("/orgs/{orgID}/filters", "POST", h.Create,
		httptest.NewRequest("POST", "/orgs/org-1/filters", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Ireland", svc.created.Name)
	assert.Equal(t, contracts.CadenceDaily, svc.created.Cadence)
	assert.Equal(t, "org-1", decode(t, rec)["org_id"])

	rec = serve("/orgs/{orgID}/filters", "POST", h.Create,
		httptest.NewRequest("POST", "/orgs/org-1/filters", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve("/orgs/{orgID}/filters", "GET", h.List, httptest.NewRequest("GET", "/orgs/org-1/filters", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve("/orgs/{orgID}/filters/{filterID}", "DELETE", h.Delete,
		httptest.NewRequest("DELETE", "/orgs/org-1/filters/f1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetActiveFilter(t *testing.T) {
	h := NewFilterHandler(&stubFilters{}, logger.Nop())
	rec := serve("/orgs/{orgID}/filters/active", "GET", h.GetActive,
		httptest.NewRequest("GET", "/orgs/org-1/filters/active", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "filter")
	assert.Nil(t, body["filter"])

	h = NewFilterHandler(&stubFilters{active: &contracts.Filter{ID: "f2", Name: "UK"}}, logger.Nop())
	rec = serve("/orgs/{orgID}/filters/active", "GET", h.GetActive,
		httptest.NewRequest("GET", "/orgs/org-1/filters/active", nil))
	filter, ok := decode(t, rec)["filter"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "f2", filter["id"])

	h = NewFilterHandler(&stubFilters{err: errors.New("db down")}, logger.Nop())
	rec = serve("/orgs/{orgID}/filters/active", "GET", h.GetActive,
		httptest.NewRequest("GET", "/orgs/org-1/filters/active", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFilterHandlerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("%w: name is required", contracts.ErrInvalidFilter), http.StatusBadRequest},
		{"missing", fmt.Errorf("filter f9: %w", contracts.ErrNotFound), http.StatusNotFound},
		{"store", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFilterHandler(&stubFilters{err: tt.err}, logger.Nop())

			rec := serve("/orgs/{orgID}/filters", "POST", h.Create,
				httptest.NewRequest("POST", "/orgs/org-1/filters", strings.NewReader(`{"name":"x"}`)))
			assert.Equal(t, tt.want, rec.Code)

			rec = serve("/orgs/{orgID}/filters/{filterID}/activate", "POST", h.Activate,
				httptest.NewRequest("POST", "/orgs/org-1/filters/f9/activate", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestBootstrap(t *testing.T) {
	created := &orgs.Result{Org: &contracts.Org{ID: "org-1", Name: "acme.ie"}, Created: true}
	h := NewOrgHandler(stubBootstrapper{res: created}, logger.Nop())

	req := httptest.NewRequest("POST", "/orgs/bootstrap", strings.NewReader(`{"user_id":"u1","email":"a@acme.ie"}`))
	rec := serve("/orgs/bootstrap", "POST", h.Bootstrap, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	h = NewOrgHandler(stubBootstrapper{res: &orgs.Result{Org: created.Org}}, logger.Nop())
	req = httptest.NewRequest("POST", "/orgs/bootstrap", strings.NewReader(`{"user_id":"u1"}`))
	assert.Equal(t, http.StatusOK, serve("/orgs/bootstrap", "POST", h.Bootstrap, req).Code)

	h = NewOrgHandler(stubBootstrapper{err: orgs.ErrInvalidUser}, logger.Nop())
	req = httptest.NewRequest("POST", "/orgs/bootstrap", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, serve("/orgs/bootstrap", "POST", h.Bootstrap, req).Code)

	h = NewOrgHandler(stubBootstrapper{err: errors.New("db down")}, logger.Nop())
	req = httptest.NewRequest("POST", "/orgs/bootstrap", strings.NewReader(`{"user_id":"u1"}`))
	assert.Equal(t, http.StatusInternalServerError, serve("/orgs/bootstrap", "POST", h.Bootstrap, req).Code)
}

func TestTriggerDigest(t *testing.T) {
	res := &digest.RunResult{RunID: "run-1", Sent: 2, Skipped: 1, SkipReasons: map[string]int{digest.SkipNoFilter: 1}}
	h := NewJobsHandler(stubDigest{res: res}, nil, nil, nil, logger.Nop())

	rec := serve("/digest", "GET", h.TriggerDigest, httptest.NewRequest("GET", "/digest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got DigestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.OK)
	assert.Equal(t, 2, got.Sent)
	assert.Equal(t, 1, got.Skipped)
	assert.NotNil(t, got.Failures)

	h = NewJobsHandler(stubDigest{err: errors.New("db down")}, nil, nil, nil, logger.Nop())
	rec = serve("/digest", "GET", h.TriggerDigest, httptest.NewRequest("GET", "/digest", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "db down", body["error"])

	h = NewJobsHandler(stubDigest{err: contracts.ErrRunInProgress}, nil, nil, nil, logger.Nop())
	rec = serve("/digest", "GET", h.TriggerDigest, httptest.NewRequest("GET", "/digest", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerIngest(t *testing.T) {
	res := &ingest.Result{TotalFeeds: 1, TotalFetched: 4, TotalNew: 2, Results: []ingest.FeedResult{{Feed: "News", Errors: []string{}}}}
	h := NewJobsHandler(nil, stubIngest{res: res}, nil, nil, logger.Nop())

	rec := serve("/ingest/rss", "GET", h.TriggerIngest, httptest.NewRequest("GET", "/ingest/rss", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, 2.0, body["totalNew"])

	h = NewJobsHandler(nil, stubIngest{err: errors.New("db down")}, nil, nil, logger.Nop())
	rec = serve("/ingest/rss", "GET", h.TriggerIngest, httptest.NewRequest("GET", "/ingest/rss", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Could not load rss_sources", decode(t, rec)["error"])
}

func TestJobsStatus(t *testing.T) {
	h := NewJobsHandler(nil, nil, nil, nil, logger.Nop())
	rec := serve("/ingest/jobs", "GET", h.JobsStatus, httptest.NewRequest("GET", "/ingest/jobs", nil))
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotContains(t, body, "jobs")
	assert.NotContains(t, body, "stream")

	hub := events.NewHub()
	hub.Subscribe()
	h = NewJobsHandler(nil, nil, stubStats{"daily_digest": {JobName: "daily_digest", TotalRuns: 4}}, hub, logger.Nop())
	rec = serve("/ingest/jobs", "GET", h.JobsStatus, httptest.NewRequest("GET", "/ingest/jobs", nil))
	body = decode(t, rec)
	assert.Contains(t, body, "jobs")
	stream, ok := body["stream"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), stream["subscribers"])
}

func TestGetTaxonomy(t *testing.T) {
	rec := serve("/taxonomy", "GET", GetTaxonomy, httptest.NewRequest("GET", "/taxonomy", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=86400")

	var body struct {
		Groups    []TaxonomyGroup `json:"groups"`
		Countries []string        `json:"countries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Groups, len(contracts.SignalGroups))
	assert.Equal(t, contracts.CountryOptions, body.Countries)

	total := 0
	for _, g := range body.Groups {
		total += len(g.Items)
	}
	assert.Equal(t, len(contracts.AllSignalTypes()), total)
}
