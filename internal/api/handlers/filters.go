package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/filters"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// FilterService manages an org's filters
type FilterService interface {
	Create(ctx context.Context, orgID string, in filters.Input) (*contracts.Filter, error)
	List(ctx context.Context, orgID string) ([]contracts.Filter, error)
	Active(ctx context.Context, orgID string) (*contracts.Filter, error)
	Delete(ctx context.Context, orgID, filterID string) error
	Activate(ctx context.Context, orgID, filterID string) error
}

// FilterHandler handles filter CRUD
type FilterHandler struct {
	service FilterService
	logger  *logger.Logger
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(service FilterService, log *logger.Logger) *FilterHandler {
	return &FilterHandler{service: service, logger: log}
}

// List returns the org's filters, newest first
// GET /api/orgs/{orgID}/filters
func (h *FilterHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	list, err := h.service.List(r.Context(), orgID)
	if err != nil {
		h.logger.WithOrg(orgID).WithError(err).Error("Failed to list filters")
		respondError(w, http.StatusInternalServerError, "Error loading filters.")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// GetActive returns the filter the radar and digest use, or null
// GET /api/orgs/{orgID}/filters/active
func (h *FilterHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	f, err := h.service.Active(r.Context(), orgID)
	if err != nil {
		h.logger.WithOrg(orgID).WithError(err).Error("Failed to load active filter")
		respondError(w, http.StatusInternalServerError, "Error loading filters.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"filter": f})
}

// Create stores a new filter and makes it active
// POST /api/orgs/{orgID}/filters
func (h *FilterHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["orgID"]

	var in filters.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	f, err := h.service.Create(r.Context(), orgID, in)
	if err != nil {
		h.logger.WithOrg(orgID).WithError(err).Warn("Failed to create filter")
		respondStoreError(w, err, "Error saving filter.")
		return
	}

	respondJSON(w, http.StatusCreated, f)
}

// Delete removes a filter of the org
// DELETE /api/orgs/{orgID}/filters/{filterID}
func (h *FilterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.service.Delete(r.Context(), vars["orgID"], vars["filterID"]); err != nil {
		respondStoreError(w, err, "Error deleting filter.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Activate makes a filter the org's active one
// POST /api/orgs/{orgID}/filters/{filterID}/activate
func (h *FilterHandler) Activate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.service.Activate(r.Context(), vars["orgID"], vars["filterID"]); err != nil {
		respondStoreError(w, err, "Error activating filter.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
