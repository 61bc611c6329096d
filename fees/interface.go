package fees

import (
	"context"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// Chain supplies the recently connected suffix of the best chain.  It is
// consumed by Setup to rebuild the sample window after a restart.
type Chain interface {
	// RecentBlocks returns up to n of the most recently connected blocks
	// in increasing height order.  Blocks that cannot be loaded are simply
	// absent from the result.
	RecentBlocks(ctx context.Context, n int) ([]*ordutil.Block, error)
}

// MempoolTxSource provides a membership view of the transaction pool.  The
// estimator treats an instance as a snapshot that is only valid for the
// duration of a single call.
type MempoolTxSource interface {
	// Contains returns whether or not the passed transaction hash is
	// currently in the pool.
	Contains(hash *chainhash.Hash) bool
}

// Output describes a single payment a pending spend would make.
type Output struct {
	// Recipient is the address the payment is destined for.
	Recipient string

	// Amount is the value of the payment in grams.
	Amount ordutil.Amount

	// Memo is an optional free-form note attached to the payment.
	Memo string
}

// DraftTx is the wallet's answer to a draft construction request.  Only the
// serialized size matters to the fee solver.
type DraftTx struct {
	// Size is the serialized byte length of the draft transaction.
	Size int
}

// Wallet constructs draft transactions on behalf of the fee solver.
//
// CreateDraft selects inputs from the given account to cover the outputs
// plus exactly the given fee and reports the serialized size of the
// resulting transaction.  Implementations must be deterministic for a fixed
// (account, outputs, fee) under stable UTXO state, and must wrap
// ErrInsufficientFunds when coin selection cannot cover the target amount.
type Wallet interface {
	CreateDraft(ctx context.Context, account string, outputs []Output,
		fee ordutil.Amount) (*DraftTx, error)
}
