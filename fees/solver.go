package fees

import (
	"context"
	"fmt"

	"github.com/OrdinateLabs/ordd/ordutil"
)

// maxFeeIterations bounds the fixed-point loop in EstimateFee.  Convergence
// normally takes two or three rounds; the cap keeps a pathological wallet
// from looping forever.
const maxFeeIterations = 8

// EstimateFee computes the absolute fee, in grams, that a transaction paying
// the given outputs from the given account should attach to be confirmed
// within the given horizon.
//
// The fee and the transaction size depend on each other: a higher fee may
// force coin selection to add inputs, which grows the transaction, which
// raises the fee again.  The loop feeds the fee back into the wallet's draft
// builder until the fee implied by the draft's size equals the fee the draft
// was built with.  If the loop hits its iteration cap the last iterate is
// returned; it overshoots by at most one size delta at the current rate,
// which overpays slightly rather than underpaying.
//
// Wallet errors, including ErrInsufficientFunds, propagate unmodified.
// Cancelling the context aborts between wallet calls; the sample window is
// never mutated by this query.
func (e *Estimator) EstimateFee(ctx context.Context, horizonSecs int64,
	account string, outputs []Output) (ordutil.Amount, error) {

	if len(outputs) == 0 {
		return 0, fmt.Errorf("fee estimate requires at least one "+
			"output: %w", ErrInvalidArgument)
	}
	if e.wallet == nil {
		return 0, fmt.Errorf("fee estimate requires a wallet: %w",
			ErrInvalidArgument)
	}

	rate := e.EstimateRate(horizonSecs)

	var fee ordutil.Amount
	for i := 0; i < maxFeeIterations; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		draft, err := e.wallet.CreateDraft(ctx, account, outputs, fee)
		if err != nil {
			return 0, err
		}
		if draft.Size <= 0 {
			return 0, fmt.Errorf("wallet produced a draft of "+
				"size %d: %w", draft.Size, ErrInvalidArgument)
		}

		newFee := rate.Fee(draft.Size)
		if newFee == fee {
			return fee, nil
		}
		fee = newFee
	}

	log.Debugf("Fee estimate for account %q did not converge after %d "+
		"iterations, returning last iterate %v", account,
		maxFeeIterations, fee)
	return fee, nil
}
