package ledger

// Fee percent bounds enforced by SetFeePercent.
const (
	MinFeePercent = 0
	MaxFeePercent = 10
)

// SplitFee splits a gross revenue amount into protocol fee and net revenue.
// The fee is floor(gross * feePercent / 100); fractional remainders accrue to
// net, never lost.
func SplitFee(gross, feePercent int64) (fee, net int64) {
	if gross <= 0 {
		return 0, gross
	}
	fee = gross * feePercent / 100
	return fee, gross - fee
}
