package api

import (
	"net/http"
)

type initializeRequest struct {
	Admin             string `json:"admin"`
	Operator          string `json:"operator"`
	FeeRecipient      string `json:"feeRecipient"`
	PerformanceFeeBps uint16 `json:"performanceFeeBps"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Admin == "" || req.Operator == "" || req.FeeRecipient == "" {
		writeError(w, http.StatusBadRequest, "admin, operator and feeRecipient are required")
		return
	}

	cfg, err := s.engine.Initialize(r.Context(), req.Admin, req.Operator, req.FeeRecipient, req.PerformanceFeeBps)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Pause(r.Context(), req.Caller); err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Unpause(r.Context(), req.Caller); err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
