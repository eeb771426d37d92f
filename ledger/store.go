package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so store methods can
// run standalone or inside an operation's transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type StoreConfig struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	return nil
}

// Store persists all ledger state in PostgreSQL.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{log: cfg.Logger, pool: cfg.Pool}, nil
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// Pool exposes the underlying pool for read-only queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// --- engine settings ---

// EnsureSettings inserts the singleton settings row if it does not exist yet.
func (s *Store) EnsureSettings(ctx context.Context, q querier, owner string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO engine_settings (id, owner)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO NOTHING
	`, owner)
	if err != nil {
		return fmt.Errorf("ensure settings: %w", err)
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context, q querier) (*Settings, error) {
	var st Settings
	err := q.QueryRow(ctx, `
		SELECT owner, paused, fee_percent, vesting_enabled, vesting_period_secs,
		       vesting_periods, total_distributed
		FROM engine_settings WHERE id = TRUE
	`).Scan(&st.Owner, &st.Paused, &st.FeePercent, &st.VestingEnabled,
		&st.VestingPeriodSecs, &st.VestingPeriods, &st.TotalDistributed)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &st, nil
}

func (s *Store) SetOwner(ctx context.Context, q querier, owner string) error {
	_, err := q.Exec(ctx, `UPDATE engine_settings SET owner = $1 WHERE id = TRUE`, owner)
	return err
}

func (s *Store) SetPaused(ctx context.Context, q querier, paused bool) error {
	_, err := q.Exec(ctx, `UPDATE engine_settings SET paused = $1 WHERE id = TRUE`, paused)
	return err
}

func (s *Store) SetFeePercent(ctx context.Context, q querier, pct int64) error {
	_, err := q.Exec(ctx, `UPDATE engine_settings SET fee_percent = $1 WHERE id = TRUE`, pct)
	return err
}

func (s *Store) SetVesting(ctx context.Context, q querier, enabled bool, periodSecs, periods int64) error {
	_, err := q.Exec(ctx, `
		UPDATE engine_settings
		SET vesting_enabled = $1, vesting_period_secs = $2, vesting_periods = $3
		WHERE id = TRUE
	`, enabled, periodSecs, periods)
	return err
}

// SetVestingEnabled flips the vesting flag without touching the period
// settings, so disabling keeps them valid for a later re-enable.
func (s *Store) SetVestingEnabled(ctx context.Context, q querier, enabled bool) error {
	_, err := q.Exec(ctx, `UPDATE engine_settings SET vesting_enabled = $1 WHERE id = TRUE`, enabled)
	return err
}

func (s *Store) AddTotalDistributed(ctx context.Context, q querier, amount int64) error {
	_, err := q.Exec(ctx, `
		UPDATE engine_settings SET total_distributed = total_distributed + $1 WHERE id = TRUE
	`, amount)
	return err
}

// --- ventures ---

func (s *Store) UpsertVenture(ctx context.Context, q querier, cfg *VentureConfig) error {
	_, err := q.Exec(ctx, `
		INSERT INTO ventures (id, min_share_threshold, max_members, auto_distribute, oracle_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			min_share_threshold = EXCLUDED.min_share_threshold,
			max_members = EXCLUDED.max_members,
			auto_distribute = EXCLUDED.auto_distribute,
			oracle_ref = EXCLUDED.oracle_ref
	`, cfg.VentureID, cfg.MinShareThreshold, cfg.MaxMembers, cfg.AutoDistribute,
		cfg.OracleRef, cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert venture: %w", err)
	}
	return nil
}

func (s *Store) GetVenture(ctx context.Context, q querier, ventureID string) (*VentureConfig, error) {
	var cfg VentureConfig
	err := q.QueryRow(ctx, `
		SELECT id, min_share_threshold, max_members, auto_distribute, oracle_ref, created_at
		FROM ventures WHERE id = $1
	`, ventureID).Scan(&cfg.VentureID, &cfg.MinShareThreshold, &cfg.MaxMembers,
		&cfg.AutoDistribute, &cfg.OracleRef, &cfg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownVenture
	}
	if err != nil {
		return nil, fmt.Errorf("get venture: %w", err)
	}
	return &cfg, nil
}

// --- pending pool ---

// AddPending accumulates a deposit and returns the venture's new pool total.
func (s *Store) AddPending(ctx context.Context, q querier, ventureID string, amount int64) (int64, error) {
	var total int64
	err := q.QueryRow(ctx, `
		INSERT INTO pending_pools (venture_id, amount)
		VALUES ($1, $2)
		ON CONFLICT (venture_id) DO UPDATE SET amount = pending_pools.amount + EXCLUDED.amount
		RETURNING amount
	`, ventureID, amount).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("add pending: %w", err)
	}
	return total, nil
}

func (s *Store) GetPending(ctx context.Context, q querier, ventureID string) (int64, error) {
	var amount int64
	err := q.QueryRow(ctx, `
		SELECT amount FROM pending_pools WHERE venture_id = $1
	`, ventureID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get pending: %w", err)
	}
	return amount, nil
}

// TakePending drains the venture's pool and returns what it held. Deposits
// arriving after the drain belong to the next distribution.
func (s *Store) TakePending(ctx context.Context, q querier, ventureID string) (int64, error) {
	var amount int64
	err := q.QueryRow(ctx, `
		DELETE FROM pending_pools WHERE venture_id = $1 RETURNING amount
	`, ventureID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("take pending: %w", err)
	}
	return amount, nil
}

// --- distributions ---

func (s *Store) InsertDistribution(ctx context.Context, q querier, d *Distribution) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO distributions (venture_id, net_revenue, fee_collected, total_weight, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, d.VentureID, d.NetRevenue, d.FeeCollected, d.TotalWeight, d.Status, d.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert distribution: %w", err)
	}
	return id, nil
}

func (s *Store) GetDistribution(ctx context.Context, q querier, id int64) (*Distribution, error) {
	var d Distribution
	err := q.QueryRow(ctx, `
		SELECT id, venture_id, net_revenue, fee_collected, total_weight, status, created_at
		FROM distributions WHERE id = $1
	`, id).Scan(&d.ID, &d.VentureID, &d.NetRevenue, &d.FeeCollected, &d.TotalWeight,
		&d.Status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownDistribution
	}
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}
	return &d, nil
}

// CompleteDistribution flips an active distribution to completed. It reports
// false if the distribution was not active, which is the double-settle guard.
func (s *Store) CompleteDistribution(ctx context.Context, q querier, id int64) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE distributions SET status = $1 WHERE id = $2 AND status = $3
	`, StatusCompleted, id, StatusActive)
	if err != nil {
		return false, fmt.Errorf("complete distribution: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// --- distribution entries ---

func (s *Store) InsertEntry(ctx context.Context, q querier, e *Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO distribution_entries (distribution_id, member_id, amount, kind, status)
		VALUES ($1, $2, $3, $4, $5)
	`, e.DistributionID, e.MemberID, e.Amount, e.Kind, e.Status)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) SettleEntry(ctx context.Context, q querier, distributionID int64, memberID string) error {
	_, err := q.Exec(ctx, `
		UPDATE distribution_entries SET status = $1
		WHERE distribution_id = $2 AND member_id = $3
	`, EntrySettled, distributionID, memberID)
	if err != nil {
		return fmt.Errorf("settle entry: %w", err)
	}
	return nil
}

// PendingEntries returns the direct entries of a distribution that have not
// been paid out yet, in member order.
func (s *Store) PendingEntries(ctx context.Context, q querier, distributionID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT distribution_id, member_id, amount, kind, status
		FROM distribution_entries
		WHERE distribution_id = $1 AND kind = $2 AND status = $3
		ORDER BY member_id
	`, distributionID, EntryKindDirect, EntryPending)
	if err != nil {
		return nil, fmt.Errorf("pending entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) ListEntries(ctx context.Context, q querier, distributionID int64, limit, offset int) ([]Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT distribution_id, member_id, amount, kind, status
		FROM distribution_entries
		WHERE distribution_id = $1
		ORDER BY member_id
		LIMIT $2 OFFSET $3
	`, distributionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) CountEntries(ctx context.Context, q querier, distributionID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM distribution_entries WHERE distribution_id = $1
	`, distributionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.DistributionID, &e.MemberID, &e.Amount, &e.Kind, &e.Status); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// --- member balances ---

// AddBalance accumulates realized revenue into the member's lifetime balance.
func (s *Store) AddBalance(ctx context.Context, q querier, ventureID, memberID string, delta int64, now time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO member_balances (venture_id, member_id, amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (venture_id, member_id) DO UPDATE SET
			amount = member_balances.amount + EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at
	`, ventureID, memberID, delta, now)
	if err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	return nil
}

// GetBalance returns the member's balance, zero-valued if nothing has been
// realized yet.
func (s *Store) GetBalance(ctx context.Context, q querier, ventureID, memberID string) (*MemberBalance, error) {
	b := MemberBalance{VentureID: ventureID, MemberID: memberID}
	err := q.QueryRow(ctx, `
		SELECT amount, updated_at FROM member_balances
		WHERE venture_id = $1 AND member_id = $2
	`, ventureID, memberID).Scan(&b.Amount, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

// --- vesting schedules ---

func (s *Store) InsertSchedule(ctx context.Context, q querier, sc *VestingSchedule) error {
	_, err := q.Exec(ctx, `
		INSERT INTO vesting_schedules
			(distribution_id, member_id, venture_id, total_entitled, periods,
			 claimed_periods, period_secs, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sc.DistributionID, sc.MemberID, sc.VentureID, sc.TotalEntitled, sc.Periods,
		sc.ClaimedPeriods, sc.PeriodSecs, sc.StartTime)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, q querier, distributionID int64, memberID string) (*VestingSchedule, error) {
	var sc VestingSchedule
	err := q.QueryRow(ctx, `
		SELECT distribution_id, member_id, venture_id, total_entitled, periods,
		       claimed_periods, period_secs, start_time
		FROM vesting_schedules
		WHERE distribution_id = $1 AND member_id = $2
	`, distributionID, memberID).Scan(&sc.DistributionID, &sc.MemberID, &sc.VentureID,
		&sc.TotalEntitled, &sc.Periods, &sc.ClaimedPeriods, &sc.PeriodSecs, &sc.StartTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &sc, nil
}

// AdvanceSchedule increases the claimed-period counter. Claimed periods only
// ever grow.
func (s *Store) AdvanceSchedule(ctx context.Context, q querier, distributionID int64, memberID string, periods int64) error {
	_, err := q.Exec(ctx, `
		UPDATE vesting_schedules SET claimed_periods = claimed_periods + $1
		WHERE distribution_id = $2 AND member_id = $3
	`, periods, distributionID, memberID)
	if err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	return nil
}
