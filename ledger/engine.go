package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

type Config struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	Pool          *pgxpool.Pool
	Oracle        Oracle
	Membership    Membership
	Contributions ContributionTracker
	Transfer      ValueTransfer

	// Owner is installed as the engine owner when the settings row does not
	// exist yet. Ignored on an already-bootstrapped ledger.
	Owner string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if cfg.Oracle == nil {
		return errors.New("oracle is required")
	}
	if cfg.Membership == nil {
		return errors.New("membership is required")
	}
	if cfg.Contributions == nil {
		return errors.New("contribution tracker is required")
	}
	if cfg.Transfer == nil {
		return errors.New("value transfer is required")
	}
	if cfg.Owner == "" {
		return errors.New("owner is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Engine is the distribution ledger: it owns the pending pools, distribution
// records, member balances and vesting schedules, and orchestrates
// initiate → allocate → (vest | settle) → claim.
//
// Mutating operations are serialized per venture and each commits all of its
// writes in a single transaction or none of them. Collaborator calls happen
// while the venture lock is held, so an operation observes a consistent
// snapshot of revenue and contribution weights.
type Engine struct {
	log   *slog.Logger
	cfg   Config
	clock clockwork.Clock
	store *Store

	mu           sync.Mutex
	ventureLocks map[string]*sync.Mutex
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := NewStore(StoreConfig{Logger: cfg.Logger, Pool: cfg.Pool})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &Engine{
		log:          cfg.Logger,
		cfg:          cfg,
		clock:        cfg.Clock,
		store:        store,
		ventureLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Bootstrap installs the singleton settings row on a fresh ledger.
func (e *Engine) Bootstrap(ctx context.Context) error {
	return e.store.EnsureSettings(ctx, e.store.Pool(), e.cfg.Owner)
}

func (e *Engine) lockVenture(ventureID string) func() {
	e.mu.Lock()
	lock, ok := e.ventureLocks[ventureID]
	if !ok {
		lock = &sync.Mutex{}
		e.ventureLocks[ventureID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// --- operations ---

// Deposit adds revenue to the venture's pending pool and returns the new pool
// total.
func (e *Engine) Deposit(ctx context.Context, ventureID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit must be positive, got %d", ErrInvalidAmount, amount)
	}

	unlock := e.lockVenture(ventureID)
	defer unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin deposit: %w", err)
	}
	defer tx.Rollback(ctx)

	settings, err := e.store.GetSettings(ctx, tx)
	if err != nil {
		return 0, err
	}
	if settings.Paused {
		return 0, ErrPaused
	}
	if _, err := e.store.GetVenture(ctx, tx, ventureID); err != nil {
		return 0, err
	}

	total, err := e.store.AddPending(ctx, tx, ventureID, amount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit deposit: %w", err)
	}

	depositsTotal.WithLabelValues(ventureID).Inc()
	depositedAmountTotal.WithLabelValues(ventureID).Add(float64(amount))
	e.log.Info("ledger: deposit accepted", "venture", ventureID, "amount", amount, "pool", total)
	return total, nil
}

// Initiate snapshots oracle revenue plus the pending pool, collects the
// protocol fee and opens a new distribution. If the venture is configured for
// auto-distribution the new distribution is settled before returning. The new
// distribution id is returned even when auto-distribution fails afterwards.
func (e *Engine) Initiate(ctx context.Context, ventureID string) (int64, error) {
	unlock := e.lockVenture(ventureID)
	defer unlock()

	settings, err := e.store.GetSettings(ctx, e.store.Pool())
	if err != nil {
		return 0, err
	}
	if settings.Paused {
		return 0, ErrPaused
	}
	vcfg, err := e.store.GetVenture(ctx, e.store.Pool(), ventureID)
	if err != nil {
		return 0, err
	}

	revenue, err := e.cfg.Oracle.Revenue(ctx, ventureID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleFailure, err)
	}
	totalWeight, err := e.cfg.Contributions.TotalWeight(ctx, ventureID)
	if err != nil {
		return 0, fmt.Errorf("%w: total weight: %v", ErrNoContributions, err)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin initiate: %w", err)
	}
	defer tx.Rollback(ctx)

	pending, err := e.store.TakePending(ctx, tx, ventureID)
	if err != nil {
		return 0, err
	}
	gross := revenue + pending
	if gross <= 0 {
		return 0, ErrNoProfits
	}
	fee, net := SplitFee(gross, settings.FeePercent)

	id, err := e.store.InsertDistribution(ctx, tx, &Distribution{
		VentureID:    ventureID,
		NetRevenue:   net,
		FeeCollected: fee,
		TotalWeight:  totalWeight,
		Status:       StatusActive,
		CreatedAt:    e.clock.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if fee > 0 {
		if err := e.cfg.Transfer.Pay(ctx, fee, settings.Owner); err != nil {
			return 0, fmt.Errorf("%w: fee to owner: %v", ErrTransferFailed, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit initiate: %w", err)
	}

	distributionsInitiatedTotal.WithLabelValues(ventureID).Inc()
	feeCollectedTotal.Add(float64(fee))
	e.log.Info("ledger: distribution opened",
		"venture", ventureID, "distribution", id,
		"gross", gross, "fee", fee, "net", net, "total_weight", totalWeight)

	if vcfg.AutoDistribute {
		if err := e.distributeLocked(ctx, id); err != nil {
			return id, fmt.Errorf("auto-distribute %d: %w", id, err)
		}
	}
	return id, nil
}

// Distribute settles an active distribution across the venture's members.
// Allocation is atomic: entries, schedules, balances and the cumulative
// counter commit together with the status flip, so a distribution can be
// settled exactly once. Payout signalling happens after commit, checkpointed
// per member; re-invoking Distribute on a completed distribution resumes any
// payouts that did not go through.
func (e *Engine) Distribute(ctx context.Context, distributionID int64) error {
	d, err := e.store.GetDistribution(ctx, e.store.Pool(), distributionID)
	if err != nil {
		return err
	}
	unlock := e.lockVenture(d.VentureID)
	defer unlock()
	return e.distributeLocked(ctx, distributionID)
}

// distributeLocked runs distribution with the venture lock already held.
func (e *Engine) distributeLocked(ctx context.Context, distributionID int64) error {
	d, err := e.store.GetDistribution(ctx, e.store.Pool(), distributionID)
	if err != nil {
		return err
	}
	settings, err := e.store.GetSettings(ctx, e.store.Pool())
	if err != nil {
		return err
	}
	if settings.Paused {
		return ErrPaused
	}

	if d.Status == StatusCompleted {
		pending, err := e.store.PendingEntries(ctx, e.store.Pool(), distributionID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrAlreadyDistributed
		}
		e.log.Info("ledger: resuming payout settlement",
			"distribution", distributionID, "pending", len(pending))
		return e.settleEntries(ctx, d, pending)
	}

	vcfg, err := e.store.GetVenture(ctx, e.store.Pool(), d.VentureID)
	if err != nil {
		return err
	}
	members, err := e.cfg.Membership.ActiveMembers(ctx, d.VentureID)
	if err != nil {
		return fmt.Errorf("%w: active members: %v", ErrNoContributions, err)
	}
	if vcfg.MaxMembers > 0 && len(members) > vcfg.MaxMembers {
		return fmt.Errorf("%w: %d members, cap %d", ErrTooManyMembers, len(members), vcfg.MaxMembers)
	}

	now := e.clock.Now().UTC()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin distribute: %w", err)
	}
	defer tx.Rollback(ctx)

	completed, err := e.store.CompleteDistribution(ctx, tx, distributionID)
	if err != nil {
		return err
	}
	if !completed {
		return ErrAlreadyDistributed
	}

	var allocated int64
	var recipients int
	for _, member := range members {
		weight, err := e.cfg.Contributions.MemberWeight(ctx, d.VentureID, member)
		if err != nil {
			return fmt.Errorf("%w: weight of %s: %v", ErrNoContributions, member, err)
		}
		share := Allocate(weight, d.TotalWeight, d.NetRevenue, vcfg.MinShareThreshold)
		if share == 0 {
			continue
		}

		if settings.VestingEnabled {
			err = e.store.InsertEntry(ctx, tx, &Entry{
				DistributionID: distributionID,
				MemberID:       member,
				Amount:         share,
				Kind:           EntryKindVested,
				Status:         EntrySettled,
			})
			if err != nil {
				return err
			}
			err = e.store.InsertSchedule(ctx, tx, &VestingSchedule{
				DistributionID: distributionID,
				MemberID:       member,
				VentureID:      d.VentureID,
				TotalEntitled:  share,
				Periods:        settings.VestingPeriods,
				PeriodSecs:     settings.VestingPeriodSecs,
				StartTime:      now,
			})
			if err != nil {
				return err
			}
		} else {
			err = e.store.InsertEntry(ctx, tx, &Entry{
				DistributionID: distributionID,
				MemberID:       member,
				Amount:         share,
				Kind:           EntryKindDirect,
				Status:         EntryPending,
			})
			if err != nil {
				return err
			}
			if err := e.store.AddBalance(ctx, tx, d.VentureID, member, share, now); err != nil {
				return err
			}
		}
		allocated += share
		recipients++
	}

	if err := e.store.AddTotalDistributed(ctx, tx, d.NetRevenue); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit distribute: %w", err)
	}

	distributionsSettledTotal.WithLabelValues(d.VentureID).Inc()
	distributedAmountTotal.Add(float64(d.NetRevenue))
	distributionMembers.Observe(float64(len(members)))
	e.log.Info("ledger: distribution settled",
		"venture", d.VentureID, "distribution", distributionID,
		"members", len(members), "recipients", recipients,
		"allocated", allocated, "net", d.NetRevenue,
		"vesting", settings.VestingEnabled)

	if settings.VestingEnabled {
		return nil
	}
	pending, err := e.store.PendingEntries(ctx, e.store.Pool(), distributionID)
	if err != nil {
		return err
	}
	return e.settleEntries(ctx, d, pending)
}

// settleEntries signals payouts for pending direct entries, marking each as
// settled once its transfer has been accepted. A transfer failure leaves the
// remaining entries pending so a later Distribute call can resume.
func (e *Engine) settleEntries(ctx context.Context, d *Distribution, entries []Entry) error {
	for _, entry := range entries {
		if err := e.cfg.Transfer.Pay(ctx, entry.Amount, entry.MemberID); err != nil {
			return fmt.Errorf("%w: payout to %s: %v", ErrTransferFailed, entry.MemberID, err)
		}
		if err := e.store.SettleEntry(ctx, e.store.Pool(), d.ID, entry.MemberID); err != nil {
			return err
		}
		e.log.Debug("ledger: payout settled",
			"distribution", d.ID, "member", entry.MemberID, "amount", entry.Amount)
	}
	return nil
}

// Claim releases the vested periods that have elapsed since the member's last
// claim on the given distribution and returns the released amount.
func (e *Engine) Claim(ctx context.Context, distributionID int64, memberID string) (int64, error) {
	sc, err := e.store.GetSchedule(ctx, e.store.Pool(), distributionID, memberID)
	if err != nil {
		return 0, err
	}

	unlock := e.lockVenture(sc.VentureID)
	defer unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	settings, err := e.store.GetSettings(ctx, tx)
	if err != nil {
		return 0, err
	}
	if settings.Paused {
		return 0, ErrPaused
	}

	sc, err = e.store.GetSchedule(ctx, tx, distributionID, memberID)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now().UTC()
	periods, amount := sc.ClaimableAt(now)
	if periods <= 0 {
		return 0, ErrNothingToClaim
	}

	if err := e.store.AdvanceSchedule(ctx, tx, distributionID, memberID, periods); err != nil {
		return 0, err
	}
	if amount > 0 {
		if err := e.store.AddBalance(ctx, tx, sc.VentureID, memberID, amount, now); err != nil {
			return 0, err
		}
		if err := e.cfg.Transfer.Pay(ctx, amount, memberID); err != nil {
			return 0, fmt.Errorf("%w: claim payout to %s: %v", ErrTransferFailed, memberID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit claim: %w", err)
	}

	claimsTotal.WithLabelValues(sc.VentureID).Inc()
	claimedAmountTotal.Add(float64(amount))
	e.log.Info("ledger: vesting claimed",
		"distribution", distributionID, "member", memberID,
		"periods", periods, "amount", amount,
		"claimed_periods", sc.ClaimedPeriods+periods, "total_periods", sc.Periods)
	return amount, nil
}

// --- admin surface (owner-gated, available while paused) ---

func (e *Engine) requireOwner(ctx context.Context, q querier, caller string) (*Settings, error) {
	settings, err := e.store.GetSettings(ctx, q)
	if err != nil {
		return nil, err
	}
	if caller == "" || caller != settings.Owner {
		return nil, ErrUnauthorized
	}
	return settings, nil
}

func (e *Engine) SetOwner(ctx context.Context, caller, newOwner string) error {
	if newOwner == "" {
		return fmt.Errorf("%w: owner must not be empty", ErrInvalidConfig)
	}
	if _, err := e.requireOwner(ctx, e.store.Pool(), caller); err != nil {
		return err
	}
	if err := e.store.SetOwner(ctx, e.store.Pool(), newOwner); err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	e.log.Info("ledger: owner transferred", "from", caller, "to", newOwner)
	return nil
}

func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	if _, err := e.requireOwner(ctx, e.store.Pool(), caller); err != nil {
		return err
	}
	if err := e.store.SetPaused(ctx, e.store.Pool(), paused); err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	e.log.Info("ledger: pause flag changed", "paused", paused)
	return nil
}

func (e *Engine) SetFeePercent(ctx context.Context, caller string, pct int64) error {
	if pct < MinFeePercent || pct > MaxFeePercent {
		return fmt.Errorf("%w: fee percent %d out of [%d,%d]",
			ErrInvalidConfig, pct, MinFeePercent, MaxFeePercent)
	}
	if _, err := e.requireOwner(ctx, e.store.Pool(), caller); err != nil {
		return err
	}
	if err := e.store.SetFeePercent(ctx, e.store.Pool(), pct); err != nil {
		return fmt.Errorf("set fee percent: %w", err)
	}
	e.log.Info("ledger: fee percent changed", "fee_percent", pct)
	return nil
}

// SetVesting updates the engine-wide vesting policy. Existing schedules keep
// the period length they were created with.
func (e *Engine) SetVesting(ctx context.Context, caller string, enabled bool, periodSecs, periods int64) error {
	if enabled && periodSecs <= 0 {
		return fmt.Errorf("%w: period length must be positive", ErrInvalidPeriod)
	}
	if enabled && periods <= 0 {
		return fmt.Errorf("%w: period count must be positive", ErrInvalidPeriod)
	}
	if _, err := e.requireOwner(ctx, e.store.Pool(), caller); err != nil {
		return err
	}
	var err error
	if enabled {
		err = e.store.SetVesting(ctx, e.store.Pool(), true, periodSecs, periods)
	} else {
		// Keep the period settings; they stay valid for a later re-enable.
		err = e.store.SetVestingEnabled(ctx, e.store.Pool(), false)
	}
	if err != nil {
		return fmt.Errorf("set vesting: %w", err)
	}
	e.log.Info("ledger: vesting policy changed",
		"enabled", enabled, "period_secs", periodSecs, "periods", periods)
	return nil
}

func (e *Engine) ConfigureVenture(ctx context.Context, caller string, cfg *VentureConfig) error {
	if cfg.VentureID == "" {
		return fmt.Errorf("%w: venture id must not be empty", ErrInvalidConfig)
	}
	if cfg.MaxMembers <= 0 {
		return fmt.Errorf("%w: max members must be positive", ErrInvalidConfig)
	}
	if cfg.MinShareThreshold < 0 {
		return fmt.Errorf("%w: min share threshold must not be negative", ErrInvalidConfig)
	}
	if _, err := e.requireOwner(ctx, e.store.Pool(), caller); err != nil {
		return err
	}
	cfg.CreatedAt = e.clock.Now().UTC()
	if err := e.store.UpsertVenture(ctx, e.store.Pool(), cfg); err != nil {
		return err
	}
	e.log.Info("ledger: venture configured",
		"venture", cfg.VentureID, "min_share_threshold", cfg.MinShareThreshold,
		"max_members", cfg.MaxMembers, "auto_distribute", cfg.AutoDistribute,
		"oracle_ref", cfg.OracleRef)
	return nil
}

// --- query surface (unrestricted reads) ---

func (e *Engine) Settings(ctx context.Context) (*Settings, error) {
	return e.store.GetSettings(ctx, e.store.Pool())
}

func (e *Engine) Venture(ctx context.Context, ventureID string) (*VentureConfig, error) {
	return e.store.GetVenture(ctx, e.store.Pool(), ventureID)
}

func (e *Engine) Pending(ctx context.Context, ventureID string) (int64, error) {
	if _, err := e.store.GetVenture(ctx, e.store.Pool(), ventureID); err != nil {
		return 0, err
	}
	return e.store.GetPending(ctx, e.store.Pool(), ventureID)
}

func (e *Engine) DistributionByID(ctx context.Context, id int64) (*Distribution, error) {
	return e.store.GetDistribution(ctx, e.store.Pool(), id)
}

func (e *Engine) Entries(ctx context.Context, distributionID int64, limit, offset int) ([]Entry, int, error) {
	if _, err := e.store.GetDistribution(ctx, e.store.Pool(), distributionID); err != nil {
		return nil, 0, err
	}
	total, err := e.store.CountEntries(ctx, e.store.Pool(), distributionID)
	if err != nil {
		return nil, 0, err
	}
	entries, err := e.store.ListEntries(ctx, e.store.Pool(), distributionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (e *Engine) Balance(ctx context.Context, ventureID, memberID string) (*MemberBalance, error) {
	return e.store.GetBalance(ctx, e.store.Pool(), ventureID, memberID)
}

func (e *Engine) Schedule(ctx context.Context, distributionID int64, memberID string) (*VestingSchedule, error) {
	return e.store.GetSchedule(ctx, e.store.Pool(), distributionID, memberID)
}
