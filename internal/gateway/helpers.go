package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/session"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
// Returns false when the caller should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// apiError maps errors from the state holders and the REST client onto
// appropriate status codes, keeping the server-provided message when the
// upstream API supplied one.
func apiError(w http.ResponseWriter, err error) {
	var remote *api.Error
	switch {
	case errors.As(err, &remote):
		http.Error(w, remote.Error(), remote.Status)
	case errors.Is(err, session.ErrNoSession):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, call.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, call.ErrNoInvite):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
