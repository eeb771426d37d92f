package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// DepositRequest is the body of POST /api/ventures/{ventureID}/deposits.
type DepositRequest struct {
	Amount int64 `json:"amount"`
}

// DepositResponse reports the venture's pending pool after the deposit.
type DepositResponse struct {
	VentureID string `json:"venture_id"`
	Amount    int64  `json:"amount"`
	PoolTotal int64  `json:"pool_total"`
}

// Deposit adds revenue to a venture's pending pool.
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	var req DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	total, err := s.engine.Deposit(r.Context(), ventureID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DepositResponse{
		VentureID: ventureID,
		Amount:    req.Amount,
		PoolTotal: total,
	})
}

// InitiateResponse reports the id of the newly opened distribution.
type InitiateResponse struct {
	DistributionID int64 `json:"distribution_id"`
}

// Initiate opens a new distribution for a venture.
func (s *Server) Initiate(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	id, err := s.engine.Initiate(r.Context(), ventureID)
	if err != nil {
		// Auto-distribution failures still opened a distribution; report the
		// id alongside the error so the caller can settle it explicitly.
		if id != 0 {
			s.log.Error("auto-distribute failed", "distribution", id, "error", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, InitiateResponse{DistributionID: id})
}

// Distribute settles an active distribution, or resumes pending payouts of a
// completed one.
func (s *Server) Distribute(w http.ResponseWriter, r *http.Request) {
	id, ok := distributionID(w, r)
	if !ok {
		return
	}
	if err := s.engine.Distribute(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

// ClaimRequest is the body of POST /api/distributions/{distributionID}/claims.
type ClaimRequest struct {
	MemberID string `json:"member_id"`
}

// ClaimResponse reports the amount released by the claim.
type ClaimResponse struct {
	DistributionID int64  `json:"distribution_id"`
	MemberID       string `json:"member_id"`
	Amount         int64  `json:"amount"`
}

// Claim releases the vested periods that have elapsed for a member.
func (s *Server) Claim(w http.ResponseWriter, r *http.Request) {
	id, ok := distributionID(w, r)
	if !ok {
		return
	}
	var req ClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MemberID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "member_id is required"})
		return
	}
	amount, err := s.engine.Claim(r.Context(), id, req.MemberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimResponse{
		DistributionID: id,
		MemberID:       req.MemberID,
		Amount:         amount,
	})
}

func distributionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "distributionID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid distribution id"})
		return 0, false
	}
	return id, true
}
