package fees

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/OrdinateLabs/ordd/ordutil"
)

// MockWallet is a mock implementation of the Wallet interface.
type MockWallet struct {
	mock.Mock
}

// Ensure the MockWallet implements the Wallet interface.
var _ Wallet = (*MockWallet)(nil)

// CreateDraft selects inputs from the given account to cover the outputs
// plus exactly the given fee and reports the serialized size of the draft.
func (m *MockWallet) CreateDraft(ctx context.Context, account string,
	outputs []Output, fee ordutil.Amount) (*DraftTx, error) {

	args := m.Called(ctx, account, outputs, fee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DraftTx), args.Error(1)
}

// walletFunc adapts a function to the Wallet interface for tests that need
// stateful draft behavior.
type walletFunc func(ctx context.Context, account string, outputs []Output,
	fee ordutil.Amount) (*DraftTx, error)

func (f walletFunc) CreateDraft(ctx context.Context, account string,
	outputs []Output, fee ordutil.Amount) (*DraftTx, error) {

	return f(ctx, account, outputs, fee)
}

// newSolverEstimator returns an estimator whose window has been seeded so
// EstimateRate answers the given rate for every horizon, wired to the given
// wallet.
func newSolverEstimator(t *testing.T, rate int64, wallet Wallet) *Estimator {
	t.Helper()

	est, err := New(&Config{
		RecentBlocksNum: 10,
		TxSampleSize:    1,
		Wallet:          wallet,
	})
	require.NoError(t, err)

	if rate > 0 {
		et := estimatorTester{t: t}
		populateRates(t, est, &et, []int64{rate})
	}
	return est
}

// testOutputs returns the single-payment output list used across the solver
// tests.
func testOutputs() []Output {
	return []Output{{Recipient: "oc1qw508d6qejxtdg4y5r3zarvary0c5xw7k", Amount: 5, Memo: "test"}}
}

// TestEstimateFeeImmediateConvergence checks the seeded scenario where the
// first drafted size already implies a self-consistent fee.
func TestEstimateFeeImmediateConvergence(t *testing.T) {
	// Rate 2 gram/byte and a stable draft of 5 bytes converge at fee 10.
	wallet := &MockWallet{}
	est := newSolverEstimator(t, 2, wallet)
	outputs := testOutputs()

	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(0)).Return(&DraftTx{Size: 5}, nil).Once()
	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(10)).Return(&DraftTx{Size: 5}, nil).Once()

	fee, err := est.EstimateFee(context.Background(), 20, "default", outputs)
	require.NoError(t, err)
	require.Equal(t, ordutil.Amount(10), fee)

	// The converged fee equals rate times the converged draft size.
	require.Equal(t, est.EstimateRate(20).Fee(5), fee)
	wallet.AssertExpectations(t)
}

// TestEstimateFeeGrowingDraft checks convergence when the fee forces coin
// selection to add an input, growing the draft once.
func TestEstimateFeeGrowingDraft(t *testing.T) {
	wallet := &MockWallet{}
	est := newSolverEstimator(t, 2, wallet)
	outputs := testOutputs()

	// Fee 0 drafts 100 bytes.  The implied fee of 200 needs another
	// input, growing the draft to 120 bytes and the fee to 240, where
	// the selection stabilizes.
	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(0)).Return(&DraftTx{Size: 100}, nil).Once()
	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(200)).Return(&DraftTx{Size: 120}, nil).Once()
	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(240)).Return(&DraftTx{Size: 120}, nil).Once()

	fee, err := est.EstimateFee(context.Background(), 20, "default", outputs)
	require.NoError(t, err)
	require.Equal(t, ordutil.Amount(240), fee)
	wallet.AssertExpectations(t)
}

// TestEstimateFeeEmptyOutputs checks that an empty output list is rejected
// before the wallet is consulted.
func TestEstimateFeeEmptyOutputs(t *testing.T) {
	wallet := &MockWallet{}
	est := newSolverEstimator(t, 2, wallet)

	_, err := est.EstimateFee(context.Background(), 20, "default", nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	wallet.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything)
}

// TestEstimateFeeNoWallet checks that an estimator constructed without a
// wallet rejects fee queries.
func TestEstimateFeeNoWallet(t *testing.T) {
	est := newSolverEstimator(t, 2, nil)

	_, err := est.EstimateFee(context.Background(), 20, "default",
		testOutputs())
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// TestEstimateFeeInsufficientFunds checks that wallet failures propagate
// unmodified.
func TestEstimateFeeInsufficientFunds(t *testing.T) {
	wallet := &MockWallet{}
	est := newSolverEstimator(t, 2, wallet)
	outputs := testOutputs()

	walletErr := fmt.Errorf("account %q holds 3 grams, need 5: %w",
		"default", ErrInsufficientFunds)
	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(0)).Return(nil, walletErr).Once()

	_, err := est.EstimateFee(context.Background(), 20, "default", outputs)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, walletErr, err)
	wallet.AssertExpectations(t)
}

// TestEstimateFeeIterationCap checks that a draft whose size grows on every
// call terminates at the iteration cap with the last iterate.
func TestEstimateFeeIterationCap(t *testing.T) {
	// The window is empty, so the rate is the minimum of 1 gram/byte.
	calls := 0
	wallet := walletFunc(func(_ context.Context, _ string, _ []Output,
		_ ordutil.Amount) (*DraftTx, error) {

		size := 100 + calls
		calls++
		return &DraftTx{Size: size}, nil
	})
	est := newSolverEstimator(t, 0, wallet)

	fee, err := est.EstimateFee(context.Background(), 20, "default",
		testOutputs())
	require.NoError(t, err)
	require.Equal(t, maxFeeIterations, calls)

	// The last drafted size was 100+7 at rate 1.
	require.Equal(t, ordutil.Amount(107), fee)
}

// TestEstimateFeeCancellation checks that cancellation between wallet calls
// aborts the loop.
func TestEstimateFeeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	wallet := walletFunc(func(_ context.Context, _ string, _ []Output,
		fee ordutil.Amount) (*DraftTx, error) {

		// Cancel while the "wallet" is working; the first draft implies
		// a fee other than zero, so the loop would otherwise go on to a
		// second wallet call.
		cancel()
		return &DraftTx{Size: 100}, nil
	})
	est := newSolverEstimator(t, 2, wallet)

	_, err := est.EstimateFee(ctx, 20, "default", testOutputs())
	require.ErrorIs(t, err, context.Canceled)
}

// TestEstimateFeeBadDraftSize checks that a wallet returning a non-positive
// draft size is reported instead of converging at a zero fee.
func TestEstimateFeeBadDraftSize(t *testing.T) {
	wallet := &MockWallet{}
	est := newSolverEstimator(t, 2, wallet)
	outputs := testOutputs()

	wallet.On("CreateDraft", mock.Anything, "default", outputs,
		ordutil.Amount(0)).Return(&DraftTx{Size: 0}, nil).Once()

	_, err := est.EstimateFee(context.Background(), 20, "default", outputs)
	require.ErrorIs(t, err, ErrInvalidArgument)
	wallet.AssertExpectations(t)
}

// TestNewFeeRate checks rounding and argument validation of fee rates.
func TestNewFeeRate(t *testing.T) {
	tests := []struct {
		fee   ordutil.Amount
		size  int
		want  FeeRate
		valid bool
	}{
		{600, 60, 10, true},
		{601, 60, 11, true}, // rounds up
		{1, 1000, 1, true},  // rounds up to the minimum
		{0, 100, 1, true},   // clamps to the minimum
		{100, 0, 0, false},
		{100, -5, 0, false},
	}

	for _, test := range tests {
		rate, err := NewFeeRate(test.fee, test.size)
		if !test.valid {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("fee %d size %d: got %v, want "+
					"ErrInvalidArgument", test.fee,
					test.size, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("fee %d size %d: unexpected error: %v",
				test.fee, test.size, err)
			continue
		}
		if rate != test.want {
			t.Errorf("fee %d size %d: got %v, want %v", test.fee,
				test.size, rate, test.want)
		}
	}
}
