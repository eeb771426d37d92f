package ledger

import "time"

// Distribution lifecycle statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Entry kinds and settlement statuses.
const (
	EntryKindDirect = "direct"
	EntryKindVested = "vested"

	EntryPending = "pending"
	EntrySettled = "settled"
)

// Settings is the process-wide engine configuration and counters.
type Settings struct {
	Owner             string `json:"owner"`
	Paused            bool   `json:"paused"`
	FeePercent        int64  `json:"fee_percent"`
	VestingEnabled    bool   `json:"vesting_enabled"`
	VestingPeriodSecs int64  `json:"vesting_period_secs"`
	VestingPeriods    int64  `json:"vesting_periods"`
	TotalDistributed  int64  `json:"total_distributed"`
}

// VentureConfig is the per-venture distribution policy.
type VentureConfig struct {
	VentureID         string    `json:"venture_id"`
	MinShareThreshold int64     `json:"min_share_threshold"`
	MaxMembers        int       `json:"max_members"`
	AutoDistribute    bool      `json:"auto_distribute"`
	OracleRef         string    `json:"oracle_ref"`
	CreatedAt         time.Time `json:"created_at"`
}

// Distribution is one snapshot-and-settle cycle. The revenue and weight
// snapshots are immutable once written; rows are never deleted.
type Distribution struct {
	ID           int64     `json:"id"`
	VentureID    string    `json:"venture_id"`
	NetRevenue   int64     `json:"net_revenue"`
	FeeCollected int64     `json:"fee_collected"`
	TotalWeight  int64     `json:"total_weight"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry is the per-member settlement checkpoint of a distribution. Direct
// entries start pending and flip to settled once the payout has been signalled;
// vested entries settle through claims against their schedule.
type Entry struct {
	DistributionID int64  `json:"distribution_id"`
	MemberID       string `json:"member_id"`
	Amount         int64  `json:"amount"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
}

// MemberBalance is the lifetime total of revenue realized by a member within
// a venture: direct allocations plus vested increments already claimed.
type MemberBalance struct {
	VentureID string    `json:"venture_id"`
	MemberID  string    `json:"member_id"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VestingSchedule tracks time-gated release of one member's entitlement from
// one distribution. PeriodSecs is snapshotted at creation so later changes to
// the engine-wide vesting settings cannot alter the claim math of open
// schedules. Rows are never deleted.
type VestingSchedule struct {
	DistributionID int64     `json:"distribution_id"`
	MemberID       string    `json:"member_id"`
	VentureID      string    `json:"venture_id"`
	TotalEntitled  int64     `json:"total_entitled"`
	Periods        int64     `json:"periods"`
	ClaimedPeriods int64     `json:"claimed_periods"`
	PeriodSecs     int64     `json:"period_secs"`
	StartTime      time.Time `json:"start_time"`
}

// ClaimableAt returns the number of vesting periods that can be claimed at the
// given instant and the amount they release. Per-period amounts use floor
// division, so up to Periods-1 units of the entitlement are never released.
func (s *VestingSchedule) ClaimableAt(now time.Time) (periods, amount int64) {
	if s.PeriodSecs <= 0 || s.Periods <= 0 {
		return 0, 0
	}
	elapsed := int64(now.Sub(s.StartTime).Seconds()) / s.PeriodSecs
	if elapsed > s.Periods {
		elapsed = s.Periods
	}
	claimable := elapsed - s.ClaimedPeriods
	if claimable <= 0 {
		return 0, 0
	}
	return claimable, claimable * (s.TotalEntitled / s.Periods)
}
