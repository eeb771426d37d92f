package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDivvy_Ledger_VestingSchedule_ClaimableAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	schedule := func() *VestingSchedule {
		return &VestingSchedule{
			DistributionID: 1,
			MemberID:       "m1",
			VentureID:      "v1",
			TotalEntitled:  1200,
			Periods:        12,
			PeriodSecs:     100,
			StartTime:      start,
		}
	}

	t.Run("nothing claimable before the first period elapses", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		periods, amount := sc.ClaimableAt(start.Add(99 * time.Second))
		require.Equal(t, int64(0), periods)
		require.Equal(t, int64(0), amount)
	})

	t.Run("elapsed periods release proportional amount", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		periods, amount := sc.ClaimableAt(start.Add(300 * time.Second))
		require.Equal(t, int64(3), periods)
		require.Equal(t, int64(300), amount)
	})

	t.Run("claimed periods are not released twice", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		sc.ClaimedPeriods = 3
		periods, amount := sc.ClaimableAt(start.Add(300 * time.Second))
		require.Equal(t, int64(0), periods)
		require.Equal(t, int64(0), amount)

		periods, amount = sc.ClaimableAt(start.Add(500 * time.Second))
		require.Equal(t, int64(2), periods)
		require.Equal(t, int64(200), amount)
	})

	t.Run("elapsed periods cap at the schedule length", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		periods, amount := sc.ClaimableAt(start.Add(24 * time.Hour))
		require.Equal(t, int64(12), periods)
		require.Equal(t, int64(1200), amount)
	})

	t.Run("fully claimed schedule releases nothing", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		sc.ClaimedPeriods = 12
		periods, amount := sc.ClaimableAt(start.Add(24 * time.Hour))
		require.Equal(t, int64(0), periods)
		require.Equal(t, int64(0), amount)
	})

	t.Run("per-period amount floors, residue never released", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		sc.TotalEntitled = 1000 // 1000/12 = 83 per period
		periods, amount := sc.ClaimableAt(start.Add(2000 * time.Second))
		require.Equal(t, int64(12), periods)
		require.Equal(t, int64(996), amount)
	})

	t.Run("invalid schedule parameters release nothing", func(t *testing.T) {
		t.Parallel()

		sc := schedule()
		sc.PeriodSecs = 0
		periods, amount := sc.ClaimableAt(start.Add(time.Hour))
		require.Equal(t, int64(0), periods)
		require.Equal(t, int64(0), amount)

		sc = schedule()
		sc.Periods = 0
		periods, amount = sc.ClaimableAt(start.Add(time.Hour))
		require.Equal(t, int64(0), periods)
		require.Equal(t, int64(0), amount)
	})
}
