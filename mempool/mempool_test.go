package mempool

import (
	"testing"

	"github.com/OrdinateLabs/ordd/fees"
	"github.com/OrdinateLabs/ordd/ordutil"
	"github.com/OrdinateLabs/ordd/wire"
)

// Ensure the pool satisfies the fee estimator's transaction source
// interface.
var _ fees.MempoolTxSource = (*TxPool)(nil)

// newTestPool returns a pool with the default relay fee policy.
func newTestPool() *TxPool {
	return New(&Config{
		Policy: Policy{
			MinRelayTxFee: DefaultMinRelayTxFee,
		},
	})
}

// testTx returns a distinct transaction whose serialized size is stable
// across calls.
func testTx(version int32) *ordutil.Tx {
	msgTx := wire.NewMsgTx(version)
	msgTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil))
	msgTx.AddTxOut(wire.NewTxOut(100, nil))
	return ordutil.NewTx(msgTx)
}

// TestProcessTransaction checks admission, duplicate rejection, and the
// relay fee policy.
func TestProcessTransaction(t *testing.T) {
	mp := newTestPool()

	tx := testTx(1)
	minFee := calcMinRequiredTxRelayFee(int64(tx.MsgTx().SerializeSize()),
		DefaultMinRelayTxFee)

	// A fee below the policy minimum is rejected.
	_, err := mp.ProcessTransaction(testTx(2), ordutil.Amount(minFee-1), 0)
	if _, ok := err.(RuleError); !ok {
		t.Fatalf("low fee: got %v, want RuleError", err)
	}

	// An adequate fee is accepted and recorded.
	desc, err := mp.ProcessTransaction(tx, ordutil.Amount(minFee), 0)
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if desc.Fee != ordutil.Amount(minFee) {
		t.Fatalf("recorded fee: got %v, want %v", desc.Fee, minFee)
	}
	if !mp.HaveTransaction(tx.Hash()) {
		t.Fatal("pool does not contain accepted transaction")
	}
	if !mp.Contains(tx.Hash()) {
		t.Fatal("Contains disagrees with HaveTransaction")
	}
	if mp.Count() != 1 {
		t.Fatalf("pool count: got %d, want 1", mp.Count())
	}

	// Resubmitting the same transaction is rejected.
	_, err = mp.ProcessTransaction(tx, ordutil.Amount(minFee), 0)
	if _, ok := err.(RuleError); !ok {
		t.Fatalf("duplicate: got %v, want RuleError", err)
	}

	// Removal forgets the transaction.
	mp.RemoveTransaction(tx.Hash())
	if mp.HaveTransaction(tx.Hash()) {
		t.Fatal("pool still contains removed transaction")
	}
}

// TestAnnotateFees checks that the fees the pool recorded at admission are
// copied onto a block's wrapped transactions.
func TestAnnotateFees(t *testing.T) {
	mp := newTestPool()

	pooled := testTx(1)
	foreign := testTx(2)
	const fee = ordutil.Amount(2500)
	if _, err := mp.ProcessTransaction(pooled, fee, 0); err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}

	coinbase := wire.NewMsgTx(3)
	coinbase.AddTxOut(wire.NewTxOut(50*ordutil.GramPerOrdinate, nil))
	msgBlock := &wire.MsgBlock{
		Transactions: []*wire.MsgTx{
			coinbase, pooled.MsgTx(), foreign.MsgTx(),
		},
	}
	block := ordutil.NewBlock(msgBlock)

	mp.AnnotateFees(block)

	txns := block.Transactions()
	if got := txns[1].Fee(); got != fee {
		t.Fatalf("pooled tx fee: got %v, want %v", got, fee)
	}
	if got := txns[2].Fee(); got != 0 {
		t.Fatalf("foreign tx fee: got %v, want 0", got)
	}

	// Removing the block's transactions empties the pool of the mined tx
	// only.
	mp.RemoveBlockTransactions(block)
	if mp.Count() != 0 {
		t.Fatalf("pool count after block removal: got %d, want 0",
			mp.Count())
	}
}

// TestCalcMinRequiredTxRelayFee checks the relay fee scaling.
func TestCalcMinRequiredTxRelayFee(t *testing.T) {
	tests := []struct {
		name     string // test description.
		size     int64  // Transaction size in bytes.
		relayFee ordutil.Amount
		want     int64 // Expected fee.
	}{
		{
			"zero value with default minimum relay fee",
			0,
			DefaultMinRelayTxFee,
			int64(DefaultMinRelayTxFee),
		},
		{
			"1000 bytes with default minimum relay fee",
			1000,
			DefaultMinRelayTxFee,
			1000,
		},
		{
			"max gram amount with default minimum relay fee",
			ordutil.MaxGram,
			DefaultMinRelayTxFee,
			ordutil.MaxGram,
		},
		{
			"1500 bytes with 5000 relay fee",
			1500,
			5000,
			7500,
		},
		{
			"782 bytes with 11 relay fee",
			782,
			11,
			8,
		},
	}

	for _, test := range tests {
		got := calcMinRequiredTxRelayFee(test.size, test.relayFee)
		if got != test.want {
			t.Errorf("TestCalcMinRequiredTxRelayFee test '%s' "+
				"failed: got %v want %v", test.name, got,
				test.want)
			continue
		}
	}
}
