package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coopfoundry/divvy/api/handlers/dberror"
	"github.com/coopfoundry/divvy/ledger"
)

// Status reports the engine-wide settings and counters: pause state, fee
// percentage, vesting policy and the cumulative total distributed.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	settings, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (*ledger.Settings, error) {
		return s.engine.Settings(r.Context())
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// VentureConfig returns a venture's distribution policy.
func (s *Server) VentureConfig(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	cfg, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (*ledger.VentureConfig, error) {
		return s.engine.Venture(r.Context(), ventureID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PendingPoolResponse reports a venture's undistributed deposits.
type PendingPoolResponse struct {
	VentureID string `json:"venture_id"`
	Amount    int64  `json:"amount"`
}

// PendingPool returns the venture's pending pool amount.
func (s *Server) PendingPool(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	amount, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (int64, error) {
		return s.engine.Pending(r.Context(), ventureID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PendingPoolResponse{VentureID: ventureID, Amount: amount})
}

// MemberBalance returns a member's realized balance within a venture.
func (s *Server) MemberBalance(w http.ResponseWriter, r *http.Request) {
	ventureID := chi.URLParam(r, "ventureID")
	memberID := chi.URLParam(r, "memberID")
	balance, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (*ledger.MemberBalance, error) {
		return s.engine.Balance(r.Context(), ventureID, memberID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Distribution returns a distribution's audit record.
func (s *Server) Distribution(w http.ResponseWriter, r *http.Request) {
	id, ok := distributionID(w, r)
	if !ok {
		return
	}
	d, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (*ledger.Distribution, error) {
		return s.engine.DistributionByID(r.Context(), id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DistributionEntries returns the per-member settlement checkpoints of a
// distribution, paginated.
func (s *Server) DistributionEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := distributionID(w, r)
	if !ok {
		return
	}
	page := ParsePagination(r, DefaultLimit)
	entries, total, err := s.engine.Entries(r.Context(), id, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedResponse[ledger.Entry]{
		Items:  entries,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// VestingSchedule returns a member's vesting schedule for a distribution.
func (s *Server) VestingSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := distributionID(w, r)
	if !ok {
		return
	}
	memberID := chi.URLParam(r, "memberID")
	sc, err := dberror.Retry(r.Context(), dberror.DefaultRetryConfig(), func() (*ledger.VestingSchedule, error) {
		return s.engine.Schedule(r.Context(), id, memberID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
