package http

import (
	"net/http"

	"tally/internal/bus"
	"tally/internal/limits"
)

func (s *Server) handleGetLimits(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, s.limitsReg.Get(userID))
}

func (s *Server) handleSetLimits(w http.ResponseWriter, r *http.Request, userID string) {
	var configs []limits.Config
	if err := readJSON(r, &configs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.limitsReg.Set(userID, configs)
	// Reconfiguring limits re-arms alerting and triggers a fresh pass.
	s.evaluator.Reset(userID)
	s.events.Publish(bus.EventDataUpdate)
	writeJSON(w, http.StatusOK, configs)
}

type limitAlertJSON struct {
	Severity string   `json:"severity"`
	Types    []string `json:"types"`
}

type limitStatusResponse struct {
	Limits []limits.Status `json:"limits"`
	Alert  *limitAlertJSON `json:"alert,omitempty"`
}

func (s *Server) handleLimitStatus(w http.ResponseWriter, r *http.Request, userID string) {
	snapshot, alert := s.evaluator.Evaluate(r.Context(), userID, s.limitsReg.Get(userID))
	resp := limitStatusResponse{Limits: snapshot.Limits}
	if alert != nil {
		resp.Alert = &limitAlertJSON{Severity: string(alert.Severity), Types: alert.Types}
	}
	writeJSON(w, http.StatusOK, resp)
}
