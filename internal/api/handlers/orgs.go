package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifesciencesignals/radar/internal/orgs"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// OrgBootstrapper ensures a user has an organization
type OrgBootstrapper interface {
	Bootstrap(ctx context.Context, userID, email string) (*orgs.Result, error)
}

// OrgHandler handles organization endpoints
type OrgHandler struct {
	bootstrapper OrgBootstrapper
	logger       *logger.Logger
}

// NewOrgHandler creates a new org handler
func NewOrgHandler(b OrgBootstrapper, log *logger.Logger) *OrgHandler {
	return &OrgHandler{bootstrapper: b, logger: log}
}

// BootstrapRequest identifies the signed-in user
type BootstrapRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Bootstrap upserts the profile and returns (or creates) the user's org
// POST /api/orgs/bootstrap
func (h *OrgHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.bootstrapper.Bootstrap(r.Context(), req.UserID, req.Email)
	if errors.Is(err, orgs.ErrInvalidUser) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", req.UserID).Error("Failed to bootstrap organization")
		respondError(w, http.StatusInternalServerError, "Error creating organisation.")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, res)
}
