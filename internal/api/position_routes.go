package api

import (
	"net/http"
)

type createPositionRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	pos, err := s.engine.CreatePosition(r.Context(), req.Owner)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	positions, err := s.engine.Positions(r.Context(), limit)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	pos, err := s.engine.Position(r.Context(), owner)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	bal, err := s.engine.UserBalance(r.Context(), owner)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

type depositRequest struct {
	Amount    uint64 `json:"amount"`
	MinShares uint64 `json:"minShares"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Deposit(r.Context(), owner, req.Amount, req.MinShares)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type withdrawRequest struct {
	Shares uint64 `json:"shares"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.Withdraw(r.Context(), owner, req.Shares)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
