package ledger

// Allocate computes one member's integer share of a distribution's net
// revenue. A zero total weight allocates nothing to anyone; the revenue stays
// in the ledger's accounting rather than being an error. Shares below the
// minimum threshold are suppressed entirely so no dust records are created.
//
// Floor division guarantees the sum of all members' shares never exceeds the
// net revenue. The rounding residue is retained, not redistributed.
func Allocate(memberWeight, totalWeight, netRevenue, minThreshold int64) int64 {
	if totalWeight <= 0 || memberWeight <= 0 || netRevenue <= 0 {
		return 0
	}
	share := memberWeight * netRevenue / totalWeight
	if share < minThreshold {
		return 0
	}
	return share
}
