package ledger

import "errors"

var (
	// ErrUnauthorized indicates the caller is not the engine owner.
	ErrUnauthorized = errors.New("ledger: caller is not the owner")

	// ErrPaused indicates the engine is paused and rejecting value-moving operations.
	ErrPaused = errors.New("ledger: engine is paused")

	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrUnknownVenture indicates no configuration exists for the venture.
	ErrUnknownVenture = errors.New("ledger: venture not configured")

	// ErrUnknownDistribution indicates the distribution id does not exist.
	ErrUnknownDistribution = errors.New("ledger: distribution not found")

	// ErrNoProfits indicates there is no revenue to distribute.
	ErrNoProfits = errors.New("ledger: no profits to distribute")

	// ErrNoContributions indicates the contribution tracker or membership
	// collaborator returned nothing usable.
	ErrNoContributions = errors.New("ledger: no usable contribution data")

	// ErrOracleFailure indicates the revenue oracle failed.
	ErrOracleFailure = errors.New("ledger: oracle failure")

	// ErrAlreadyDistributed indicates the distribution has already been settled.
	ErrAlreadyDistributed = errors.New("ledger: distribution already settled")

	// ErrTooManyMembers indicates the member list exceeds the venture's cap.
	ErrTooManyMembers = errors.New("ledger: member list exceeds venture cap")

	// ErrScheduleNotFound indicates no vesting schedule exists for the pair.
	ErrScheduleNotFound = errors.New("ledger: vesting schedule not found")

	// ErrNothingToClaim indicates no new vesting periods have elapsed.
	ErrNothingToClaim = errors.New("ledger: nothing to claim")

	// ErrInvalidPeriod indicates an invalid vesting period setting.
	ErrInvalidPeriod = errors.New("ledger: invalid vesting period")

	// ErrInvalidConfig indicates invalid administrative input.
	ErrInvalidConfig = errors.New("ledger: invalid configuration")

	// ErrTransferFailed indicates the value transfer collaborator failed.
	ErrTransferFailed = errors.New("ledger: value transfer failed")
)
