package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coopfoundry/divvy/ledger"
)

// SetOwnerRequest is the body of PUT /api/admin/owner.
type SetOwnerRequest struct {
	Owner string `json:"owner"`
}

// SetOwner transfers engine ownership.
func (s *Server) SetOwner(w http.ResponseWriter, r *http.Request) {
	var req SetOwnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetOwner(r.Context(), caller(r), req.Owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": req.Owner})
}

// Pause halts all value-moving operations.
func (s *Server) Pause(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Pause(r.Context(), caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// Unpause restores normal operation.
func (s *Server) Unpause(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Unpause(r.Context(), caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// SetFeeRequest is the body of PUT /api/admin/fee.
type SetFeeRequest struct {
	FeePercent int64 `json:"fee_percent"`
}

// SetFeePercent updates the protocol fee percentage.
func (s *Server) SetFeePercent(w http.ResponseWriter, r *http.Request) {
	var req SetFeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetFeePercent(r.Context(), caller(r), req.FeePercent); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"fee_percent": req.FeePercent})
}

// SetVestingRequest is the body of PUT /api/admin/vesting.
type SetVestingRequest struct {
	Enabled    bool  `json:"enabled"`
	PeriodSecs int64 `json:"period_secs"`
	Periods    int64 `json:"periods"`
}

// SetVesting updates the engine-wide vesting policy for future distributions.
func (s *Server) SetVesting(w http.ResponseWriter, r *http.Request) {
	var req SetVestingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.engine.SetVesting(r.Context(), caller(r), req.Enabled, req.PeriodSecs, req.Periods)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ConfigureVentureRequest is the body of PUT /api/ventures/{ventureID}/config.
type ConfigureVentureRequest struct {
	MinShareThreshold int64  `json:"min_share_threshold"`
	MaxMembers        int    `json:"max_members"`
	AutoDistribute    bool   `json:"auto_distribute"`
	OracleRef         string `json:"oracle_ref"`
}

// ConfigureVenture creates or updates a venture's distribution policy.
func (s *Server) ConfigureVenture(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	var req ConfigureVentureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg := &ledger.VentureConfig{
		VentureID:         ventureID,
		MinShareThreshold: req.MinShareThreshold,
		MaxMembers:        req.MaxMembers,
		AutoDistribute:    req.AutoDistribute,
		OracleRef:         req.OracleRef,
	}
	if err := s.engine.ConfigureVenture(r.Context(), caller(r), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
