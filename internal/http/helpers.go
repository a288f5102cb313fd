package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tally/internal/core"
	"tally/internal/pin"
	"tally/internal/storage"
)

// userIDHeader carries the caller identity assigned by the external
// identity provider.
const userIDHeader = "X-User-ID"

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser rejects requests without an identity header.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
			return
		}
		next(w, r, userID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps domain errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, pin.ErrBadLength),
		errors.Is(err, pin.ErrNotDigits),
		errors.Is(err, pin.ErrWeakPin):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pin.ErrPinMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
