package http

import (
	"net/http"

	"tally/internal/pin"
)

type pinRequest struct {
	Pin string `json:"pin"`
}

func (s *Server) handleSetupPin(w http.ResponseWriter, r *http.Request, userID string) {
	var req pinRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.pins.Setup(r.Context(), userID, req.Pin); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"pin_set": true})
}

func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request, userID string) {
	var req pinRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	ok := s.pins.Unlock(r.Context(), userID, req.Pin)
	s.collector.RecordPinVerification(ok)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) handleRemovePin(w http.ResponseWriter, r *http.Request, userID string) {
	var req pinRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.pins.Remove(r.Context(), userID, req.Pin); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pin_set": false})
}

func (s *Server) handlePinState(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pin_set":              s.pins.HasPin(r.Context(), userID),
		"lock_timeout_minutes": pin.LockTimeout(),
	})
}

// handleBackground records that the app left the foreground so the next
// startup requires the PIN.
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.pins.MarkBackgrounded(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLockState(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"pin_required": s.pins.Required(r.Context(), userID),
	})
}
