package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondStoreError maps repository errors onto status codes
func respondStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, contracts.ErrInvalidFilter):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	default:
		respondError(w, http.StatusInternalServerError, message)
	}
}
