package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lifesciencesignals/radar/internal/radar"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// SessionHeader carries the viewer's session for drill-down memoization
const SessionHeader = "X-Session-ID"

// RadarRanker builds an org's radar view
type RadarRanker interface {
	Rank(ctx context.Context, orgID string) (*radar.View, error)
}

// SignalDrilldown loads an account's recent signals
type SignalDrilldown interface {
	Recent(ctx context.Context, sessionID, accountID string) (*radar.SignalList, error)
}

// ScoreExplainer reconciles a score with its breakdown
type ScoreExplainer interface {
	Explain(ctx context.Context, orgID, accountID string, limit int) (*radar.Explanation, error)
}

// RadarHandler serves the radar view, drill-downs and score explanations
type RadarHandler struct {
	ranker    RadarRanker
	drilldown SignalDrilldown
	explainer ScoreExplainer
	logger    *logger.Logger
}

// NewRadarHandler creates a new radar handler
func NewRadarHandler(ranker RadarRanker, drilldown SignalDrilldown, explainer ScoreExplainer, log *logger.Logger) *RadarHandler {
	return &RadarHandler{
		ranker:    ranker,
		drilldown: drilldown,
		explainer: explainer,
		logger:    log,
	}
}

// GetRadar returns the org's filtered, ranked accounts
// GET /api/orgs/{orgID}/radar
func (h *RadarHandler) GetRadar(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	view, err := h.ranker.Rank(r.Context(), orgID)
	if err != nil {
		h.logger.WithOrg(orgID).WithError(err).Error("Failed to rank radar")
		respondError(w, http.StatusInternalServerError, "Error loading radar.")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetSignals returns an account's most recent signals
// GET /api/orgs/{orgID}/accounts/{accountID}/signals
func (h *RadarHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	session := r.Header.Get(SessionHeader)
	if session == "" {
		session = r.RemoteAddr
	}

	list, err := h.drilldown.Recent(r.Context(), session, vars["accountID"])
	if err != nil {
		h.logger.WithError(err).WithField("account_id", vars["accountID"]).Error("Failed to load signals")
		respondError(w, http.StatusInternalServerError, "Error loading signals.")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// GetBreakdown explains an account's score. A failed breakdown still
// answers 200 with the aggregate and the error text.
// GET /api/orgs/{orgID}/accounts/{accountID}/breakdown?limit=10
func (h *RadarHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit := radar.DefaultBreakdownLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = n
	}

	exp, err := h.explainer.Explain(r.Context(), vars["orgID"], vars["accountID"], limit)
	if err != nil {
		h.logger.WithOrg(vars["orgID"]).WithError(err).Error("Failed to explain score")
		respondStoreError(w, err, "Error loading score.")
		return
	}

	respondJSON(w, http.StatusOK, exp)
}
