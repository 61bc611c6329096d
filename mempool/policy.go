package mempool

import (
	"github.com/OrdinateLabs/ordd/ordutil"
)

const (
	// DefaultBlockPrioritySize is the default size in bytes for high-
	// priority / low-fee transactions.  The pool's admission policy does
	// not consult it.
	DefaultBlockPrioritySize = 50000

	// DefaultMinRelayTxFee is the default minimum relay fee, used as the
	// base for calculating the minimum fee a transaction must pay to be
	// admitted to the pool.  This value is in grams/1000 bytes.
	DefaultMinRelayTxFee = ordutil.Amount(1000)
)

// calcMinRequiredTxRelayFee returns the minimum transaction fee required for
// a transaction with the passed serialized size to be accepted into the
// memory pool and relayed.
func calcMinRequiredTxRelayFee(serializedSize int64, minRelayTxFee ordutil.Amount) int64 {
	// Calculate the minimum fee for a transaction to be allowed into the
	// mempool and relayed by scaling the base fee (which is the minimum
	// free transaction relay fee).  minRelayTxFee is in grams/kB so
	// multiply by serializedSize (which is in bytes) and divide by 1000 to
	// get minimum grams.
	minFee := (serializedSize * int64(minRelayTxFee)) / 1000

	if minFee == 0 && minRelayTxFee > 0 {
		minFee = int64(minRelayTxFee)
	}

	// Set the minimum fee to the maximum possible value if the calculated
	// fee is not in the valid range for monetary amounts.
	if minFee < 0 || minFee > ordutil.MaxGram {
		minFee = ordutil.MaxGram
	}

	return minFee
}
