package fees

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/ordutil"
	"github.com/OrdinateLabs/ordd/wire"
)

// poolSnapshot is a MempoolTxSource for testing purposes backed by a plain
// set of transaction hashes.
type poolSnapshot map[chainhash.Hash]struct{}

// Contains returns whether or not the passed transaction hash is in the
// snapshot.
func (s poolSnapshot) Contains(hash *chainhash.Hash) bool {
	_, ok := s[*hash]
	return ok
}

// add records the passed transactions as known to the pool.
func (s poolSnapshot) add(txs ...*ordutil.Tx) {
	for _, tx := range txs {
		s[*tx.Hash()] = struct{}{}
	}
}

// estimatorTester builds distinct transactions and blocks with controlled
// fees for testing purposes.
type estimatorTester struct {
	t       *testing.T
	version int32
	nonce   uint32
}

// testTx returns a transaction paying the given fee whose signature script is
// padded by the given number of bytes to control the serialized size.  Each
// returned transaction is distinct.
func (et *estimatorTester) testTx(fee ordutil.Amount, padding int) *ordutil.Tx {
	et.version++
	msgTx := wire.NewMsgTx(et.version)
	msgTx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, make([]byte, padding)))
	msgTx.AddTxOut(wire.NewTxOut(100, nil))

	tx := ordutil.NewTx(msgTx)
	tx.SetFee(fee)
	return tx
}

// testBlock returns a distinct block containing a reward transaction at
// index 0 followed by the passed transactions, with their fees carried over
// to the block's wrapped transactions.
func (et *estimatorTester) testBlock(txs ...*ordutil.Tx) *ordutil.Block {
	et.nonce++
	et.version++

	coinbase := wire.NewMsgTx(et.version)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0xffffffff}, nil))
	coinbase.AddTxOut(wire.NewTxOut(50*ordutil.GramPerOrdinate, nil))

	msgBlock := &wire.MsgBlock{
		Header:       wire.BlockHeader{Nonce: et.nonce},
		Transactions: []*wire.MsgTx{coinbase},
	}
	for _, tx := range txs {
		msgBlock.AddTransaction(tx.MsgTx())
	}

	block := ordutil.NewBlock(msgBlock)
	for i, tx := range txs {
		wrapped, err := block.Tx(i + 1)
		if err != nil {
			et.t.Fatalf("unable to wrap block transaction: %v", err)
		}
		wrapped.SetFee(tx.Fee())
	}
	return block
}

// expectedFeeRate returns the fee rate the estimator should compute for the
// passed transaction.
func expectedFeeRate(t *testing.T, tx *ordutil.Tx) FeeRate {
	t.Helper()

	rate, err := NewFeeRate(tx.Fee(), tx.MsgTx().SerializeSize())
	if err != nil {
		t.Fatalf("unable to compute fee rate: %v", err)
	}
	return rate
}

// newTestEstimator returns an estimator with the given window caps and no
// collaborators.
func newTestEstimator(t *testing.T, recentBlocksNum, txSampleSize int) *Estimator {
	t.Helper()

	est, err := New(&Config{
		RecentBlocksNum: recentBlocksNum,
		TxSampleSize:    txSampleSize,
	})
	if err != nil {
		t.Fatalf("unable to create estimator: %v", err)
	}
	return est
}

// TestSingleSampleWindow checks that a window capped at a single sample from
// a single block reports the rate of the one transaction it admitted.
func TestSingleSampleWindow(t *testing.T) {
	est := newTestEstimator(t, 1, 1)
	et := estimatorTester{t: t}

	tx := et.testTx(600, 0)
	pool := make(poolSnapshot)
	pool.add(tx)

	est.ConnectBlock(et.testBlock(tx), pool)

	if est.Size() != 1 {
		t.Fatalf("window size: got %d, want 1", est.Size())
	}
	if got, want := est.EstimateRate(60), expectedFeeRate(t, tx); got != want {
		t.Fatalf("estimated rate: got %v, want %v", got, want)
	}
}

// TestWindowEviction checks that connecting a second block through a window
// capped at one block evicts the first block's sample.
func TestWindowEviction(t *testing.T) {
	est := newTestEstimator(t, 1, 1)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB := et.testTx(540, 0)
	pool := make(poolSnapshot)
	pool.add(txA, txB)

	est.ConnectBlock(et.testBlock(txA), pool)
	est.ConnectBlock(et.testBlock(txB), pool)

	if est.Size() != 1 {
		t.Fatalf("window size: got %d, want 1", est.Size())
	}
	if got, want := est.EstimateRate(60), expectedFeeRate(t, txB); got != want {
		t.Fatalf("estimated rate: got %v, want %v", got, want)
	}
}

// TestWindowRetention checks that a window capped at two blocks retains
// samples from both.
func TestWindowRetention(t *testing.T) {
	est := newTestEstimator(t, 2, 1)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB := et.testTx(540, 0)
	pool := make(poolSnapshot)
	pool.add(txA, txB)

	est.ConnectBlock(et.testBlock(txA), pool)
	est.ConnectBlock(et.testBlock(txB), pool)

	if est.Size() != 2 {
		t.Fatalf("window size: got %d, want 2", est.Size())
	}
}

// TestPerBlockSampleCap checks that a single block can contribute at most
// TxSampleSize samples and that the cheapest transactions win admission,
// without evicting prior blocks that remain within the block cap.
func TestPerBlockSampleCap(t *testing.T) {
	est := newTestEstimator(t, 2, 2)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB1 := et.testTx(540, 0)
	txB2 := et.testTx(720, 0)
	txB3 := et.testTx(660, 0)
	pool := make(poolSnapshot)
	pool.add(txA, txB1, txB2, txB3)

	blockA := et.testBlock(txA)
	blockB := et.testBlock(txB1, txB2, txB3)
	est.ConnectBlock(blockA, pool)
	est.ConnectBlock(blockB, pool)

	if est.Size() != 3 {
		t.Fatalf("window size: got %d, want 3", est.Size())
	}

	// The sample from block A is still present, followed by block B's two
	// cheapest transactions in ascending rate order.
	want := []Sample{
		{BlockHash: *blockA.Hash(), FeeRate: expectedFeeRate(t, txA)},
		{BlockHash: *blockB.Hash(), FeeRate: expectedFeeRate(t, txB1)},
		{BlockHash: *blockB.Hash(), FeeRate: expectedFeeRate(t, txB3)},
	}
	if got := est.Samples(); !reflect.DeepEqual(got, want) {
		t.Fatalf("window samples mismatch:\ngot %s\nwant %s",
			spew.Sdump(got), spew.Sdump(want))
	}
}

// TestMempoolFilter checks that transactions the pool snapshot has never
// seen contribute no samples.
func TestMempoolFilter(t *testing.T) {
	est := newTestEstimator(t, 1, 1)
	et := estimatorTester{t: t}

	tx := et.testTx(600, 0)
	est.ConnectBlock(et.testBlock(tx), make(poolSnapshot))

	if est.Size() != 0 {
		t.Fatalf("window size: got %d, want 0", est.Size())
	}
}

// TestCoinbaseExcluded checks that the reward transaction at index 0 never
// contributes a sample, even when the pool somehow claims to know it.
func TestCoinbaseExcluded(t *testing.T) {
	est := newTestEstimator(t, 1, 3)
	et := estimatorTester{t: t}

	block := et.testBlock()
	pool := make(poolSnapshot)
	coinbase, err := block.Tx(0)
	if err != nil {
		t.Fatalf("unable to wrap reward transaction: %v", err)
	}
	pool[*coinbase.Hash()] = struct{}{}

	est.ConnectBlock(block, pool)

	if est.Size() != 0 {
		t.Fatalf("window size: got %d, want 0", est.Size())
	}
}

// TestDisconnectBlock checks that disconnecting the tip unwinds exactly the
// samples that block contributed.
func TestDisconnectBlock(t *testing.T) {
	est := newTestEstimator(t, 2, 1)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB := et.testTx(540, 0)
	pool := make(poolSnapshot)
	pool.add(txA, txB)

	blockA := et.testBlock(txA)
	blockB := et.testBlock(txB)
	est.ConnectBlock(blockA, pool)
	est.ConnectBlock(blockB, pool)

	est.DisconnectBlock(blockB)

	if est.Size() != 1 {
		t.Fatalf("window size: got %d, want 1", est.Size())
	}
	if got := est.Samples()[0].BlockHash; got != *blockA.Hash() {
		t.Fatalf("remaining sample block: got %v, want %v", got,
			blockA.Hash())
	}
}

// TestConnectDisconnectRoundTrip checks that connecting then disconnecting
// the same block leaves the window in its pre-connect state.
func TestConnectDisconnectRoundTrip(t *testing.T) {
	est := newTestEstimator(t, 3, 2)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB := et.testTx(540, 10)
	pool := make(poolSnapshot)
	pool.add(txA, txB)

	est.ConnectBlock(et.testBlock(txA), pool)
	before := est.Samples()

	blockB := et.testBlock(txB)
	est.ConnectBlock(blockB, pool)
	est.DisconnectBlock(blockB)

	if after := est.Samples(); !reflect.DeepEqual(before, after) {
		t.Fatalf("window changed by connect/disconnect round trip:\n"+
			"before %s\nafter %s", spew.Sdump(before),
			spew.Sdump(after))
	}
}

// TestDisconnectOutOfOrder checks that disconnecting a block whose samples
// are not at the window's tail removes nothing.
func TestDisconnectOutOfOrder(t *testing.T) {
	est := newTestEstimator(t, 2, 1)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	txB := et.testTx(540, 0)
	pool := make(poolSnapshot)
	pool.add(txA, txB)

	blockA := et.testBlock(txA)
	est.ConnectBlock(blockA, pool)
	est.ConnectBlock(et.testBlock(txB), pool)

	est.DisconnectBlock(blockA)

	if est.Size() != 2 {
		t.Fatalf("window size: got %d, want 2", est.Size())
	}
}

// TestEmptyBlockDoesNotEvict checks that a block contributing no samples is
// not represented in the window and therefore cannot evict prior samples,
// even at the tightest cap.
func TestEmptyBlockDoesNotEvict(t *testing.T) {
	est := newTestEstimator(t, 1, 1)
	et := estimatorTester{t: t}

	txA := et.testTx(600, 0)
	pool := make(poolSnapshot)
	pool.add(txA)

	est.ConnectBlock(et.testBlock(txA), pool)
	before := est.Samples()

	// The new block's transaction is unknown to the pool, so the block
	// contributes nothing.
	txB := et.testTx(540, 0)
	est.ConnectBlock(et.testBlock(txB), pool)

	if after := est.Samples(); !reflect.DeepEqual(before, after) {
		t.Fatalf("zero-sample block changed the window:\nbefore %s\n"+
			"after %s", spew.Sdump(before), spew.Sdump(after))
	}

	// Disconnecting a block that contributed no samples is likewise a
	// no-op.
	est.DisconnectBlock(et.testBlock())
	if after := est.Samples(); !reflect.DeepEqual(before, after) {
		t.Fatalf("zero-sample disconnect changed the window")
	}
}

// TestWindowOrdering checks that samples appear in block-connect order with
// ascending rates within each block, and that the window caps hold across a
// longer connect sequence.
func TestWindowOrdering(t *testing.T) {
	const recentBlocksNum = 3
	const txSampleSize = 2

	est := newTestEstimator(t, recentBlocksNum, txSampleSize)
	et := estimatorTester{t: t}
	pool := make(poolSnapshot)

	var blockHashes []chainhash.Hash
	for i := 0; i < 6; i++ {
		txCheap := et.testTx(ordutil.Amount(600+60*i), 0)
		txRich := et.testTx(ordutil.Amount(6000+60*i), 0)
		pool.add(txCheap, txRich)

		block := et.testBlock(txRich, txCheap)
		blockHashes = append(blockHashes, *block.Hash())
		est.ConnectBlock(block, pool)

		if est.Size() > recentBlocksNum*txSampleSize {
			t.Fatalf("window size %d exceeds cap %d", est.Size(),
				recentBlocksNum*txSampleSize)
		}
	}

	samples := est.Samples()
	if len(samples) != recentBlocksNum*txSampleSize {
		t.Fatalf("window size: got %d, want %d", len(samples),
			recentBlocksNum*txSampleSize)
	}

	// The window must hold the last recentBlocksNum blocks in connect
	// order, two samples each in ascending rate order.
	wantHashes := blockHashes[len(blockHashes)-recentBlocksNum:]
	for i, s := range samples {
		if s.BlockHash != wantHashes[i/txSampleSize] {
			t.Fatalf("sample %d carries block %v, want %v", i,
				s.BlockHash, wantHashes[i/txSampleSize])
		}
	}
	for i := 1; i < len(samples); i += 2 {
		if samples[i].FeeRate < samples[i-1].FeeRate {
			t.Fatalf("samples of one block not ascending: %v > %v",
				samples[i-1].FeeRate, samples[i].FeeRate)
		}
	}
}
