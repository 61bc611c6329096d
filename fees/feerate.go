package fees

import (
	"fmt"

	"github.com/OrdinateLabs/ordd/ordutil"
)

// FeeRate expresses the price of block space in grams per byte of serialized
// transaction.  Division always rounds up so that paying at a given rate is
// never below it.
type FeeRate int64

// MinFeeRate is the lowest representable fee rate.  It doubles as the
// sentinel returned by rate queries while the sample window is empty.
const MinFeeRate FeeRate = 1

// NewFeeRate computes the fee rate paid by a transaction of the given
// serialized size.  A non-positive size is rejected since a transaction
// without bytes cannot have paid for block space.
func NewFeeRate(fee ordutil.Amount, size int) (FeeRate, error) {
	if size <= 0 {
		return 0, fmt.Errorf("fee rate needs a positive transaction "+
			"size, got %d: %w", size, ErrInvalidArgument)
	}

	rate := (int64(fee) + int64(size) - 1) / int64(size)
	if rate < int64(MinFeeRate) {
		rate = int64(MinFeeRate)
	}
	return FeeRate(rate), nil
}

// Fee returns the absolute fee implied by the rate for a transaction of the
// given serialized size.
func (r FeeRate) Fee(size int) ordutil.Amount {
	return ordutil.Amount(int64(r) * int64(size))
}

// String returns the rate in the human-readable form "n gram/byte".
func (r FeeRate) String() string {
	return fmt.Sprintf("%d gram/byte", int64(r))
}
