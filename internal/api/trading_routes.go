package api

import (
	"net/http"

	"github.com/lhermoso/grid-vault/internal/models"
)

type deployRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.DeployCapital(r.Context(), req.Caller, req.Amount)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type returnRequest struct {
	Caller         string `json:"caller"`
	AmountReturned uint64 `json:"amountReturned"`
	RealizedPnl    int64  `json:"realizedPnl"`
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.ReturnCapital(r.Context(), req.Caller, req.AmountReturned, req.RealizedPnl)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type valuationRequest struct {
	Caller             string `json:"caller"`
	DeploymentID       string `json:"deploymentId"`
	OrcaPositionsValue uint64 `json:"orcaPositionsValue"`
	DriftEquityValue   uint64 `json:"driftEquityValue"`
	UncollectedFees    uint64 `json:"uncollectedFees"`
	UnrealizedPnl      int64  `json:"unrealizedPnl"`
	Timestamp          int64  `json:"timestamp"`
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := models.ValuationReport{
		DeploymentID:       req.DeploymentID,
		OrcaPositionsValue: req.OrcaPositionsValue,
		DriftEquityValue:   req.DriftEquityValue,
		UncollectedFees:    req.UncollectedFees,
		UnrealizedPnl:      req.UnrealizedPnl,
		Timestamp:          req.Timestamp,
	}

	result, err := s.engine.UpdateValuation(r.Context(), req.Caller, report)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSweepFees(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.SweepFees(r.Context(), req.Caller)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
