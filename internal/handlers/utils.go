package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mpv-remote/internal/cache"
	"mpv-remote/internal/logging"
	"mpv-remote/internal/mpv"
	"mpv-remote/internal/shares"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given
// status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Error("failed to encode JSON error response: %v", err)
	}
}

// writeError maps an error from the core services to a status code.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mpv.ErrInstanceNotFound),
		errors.Is(err, shares.ErrShareNotFound),
		errors.Is(err, shares.ErrTrackNotFound),
		errors.Is(err, shares.ErrThumbnailNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, mpv.ErrInvalidState),
		errors.Is(err, mpv.ErrUnknownAction),
		errors.Is(err, mpv.ErrMissingParam),
		errors.Is(err, cache.ErrInvalidPath):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mpv.ErrTimeout):
		writeJSONError(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, mpv.ErrChannel):
		writeJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
