package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDivvy_Ledger_SplitFee(t *testing.T) {
	t.Parallel()

	t.Run("splits gross into fee and net", func(t *testing.T) {
		t.Parallel()

		fee, net := SplitFee(6000, 1)
		require.Equal(t, int64(60), fee)
		require.Equal(t, int64(5940), net)
	})

	t.Run("zero fee percent collects nothing", func(t *testing.T) {
		t.Parallel()

		fee, net := SplitFee(1000, 0)
		require.Equal(t, int64(0), fee)
		require.Equal(t, int64(1000), net)
	})

	t.Run("fee is floored, remainder accrues to net", func(t *testing.T) {
		t.Parallel()

		// 3% of 99 is 2.97; fee floors to 2.
		fee, net := SplitFee(99, 3)
		require.Equal(t, int64(2), fee)
		require.Equal(t, int64(97), net)
		require.Equal(t, int64(99), fee+net)
	})

	t.Run("fee plus net always equals gross", func(t *testing.T) {
		t.Parallel()

		for gross := int64(1); gross < 1000; gross += 7 {
			for pct := int64(MinFeePercent); pct <= MaxFeePercent; pct++ {
				fee, net := SplitFee(gross, pct)
				require.Equal(t, gross, fee+net, "gross=%d pct=%d", gross, pct)
				require.GreaterOrEqual(t, fee, int64(0))
			}
		}
	})

	t.Run("non-positive gross yields no fee", func(t *testing.T) {
		t.Parallel()

		fee, net := SplitFee(0, 5)
		require.Equal(t, int64(0), fee)
		require.Equal(t, int64(0), net)

		fee, net = SplitFee(-100, 5)
		require.Equal(t, int64(0), fee)
		require.Equal(t, int64(-100), net)
	})
}
