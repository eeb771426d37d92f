package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coopfoundry/divvy/ledger"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger's typed errors onto HTTP statuses. Upstream
// collaborator failures surface as 502 so callers can tell them apart from
// their own bad requests.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidConfig),
		errors.Is(err, ledger.ErrInvalidPeriod),
		errors.Is(err, ledger.ErrTooManyMembers):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnknownVenture),
		errors.Is(err, ledger.ErrUnknownDistribution),
		errors.Is(err, ledger.ErrScheduleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrPaused),
		errors.Is(err, ledger.ErrAlreadyDistributed),
		errors.Is(err, ledger.ErrNothingToClaim),
		errors.Is(err, ledger.ErrNoProfits):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrOracleFailure),
		errors.Is(err, ledger.ErrNoContributions),
		errors.Is(err, ledger.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
