package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDivvy_Ledger_Allocate(t *testing.T) {
	t.Parallel()

	t.Run("proportional shares", func(t *testing.T) {
		t.Parallel()

		// Weights 50/30/20 over net 5940.
		require.Equal(t, int64(2970), Allocate(50, 100, 5940, 0))
		require.Equal(t, int64(1782), Allocate(30, 100, 5940, 0))
		require.Equal(t, int64(1188), Allocate(20, 100, 5940, 0))
	})

	t.Run("floor division never over-allocates", func(t *testing.T) {
		t.Parallel()

		weights := []int64{7, 11, 13, 17}
		var totalWeight int64
		for _, w := range weights {
			totalWeight += w
		}
		net := int64(1000)

		var sum int64
		for _, w := range weights {
			sum += Allocate(w, totalWeight, net, 0)
		}
		require.LessOrEqual(t, sum, net)
	})

	t.Run("share below threshold is suppressed", func(t *testing.T) {
		t.Parallel()

		// 20/100 of 5940 is 1188, below a 1200 threshold.
		require.Equal(t, int64(0), Allocate(20, 100, 5940, 1200))
		require.Equal(t, int64(2970), Allocate(50, 100, 5940, 1200))
	})

	t.Run("zero or negative inputs allocate nothing", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, int64(0), Allocate(0, 100, 1000, 0))
		require.Equal(t, int64(0), Allocate(50, 0, 1000, 0))
		require.Equal(t, int64(0), Allocate(50, 100, 0, 0))
		require.Equal(t, int64(0), Allocate(-5, 100, 1000, 0))
		require.Equal(t, int64(0), Allocate(50, -100, 1000, 0))
	})

	t.Run("single member takes the whole net", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, int64(5940), Allocate(100, 100, 5940, 0))
	})
}
