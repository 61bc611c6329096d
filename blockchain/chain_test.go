package blockchain

import (
	"context"
	"testing"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/database"
	"github.com/OrdinateLabs/ordd/ordutil"
	"github.com/OrdinateLabs/ordd/wire"
)

// memDB is an in-memory database.DB for testing purposes.
type memDB struct {
	byHash     map[chainhash.Hash][]byte
	byHeight   map[int32]chainhash.Hash
	bestHeight int32
	hasBest    bool
}

func newMemDB() *memDB {
	return &memDB{
		byHash:   make(map[chainhash.Hash][]byte),
		byHeight: make(map[int32]chainhash.Hash),
	}
}

func (m *memDB) Type() string {
	return "memdb"
}

func (m *memDB) BlockByHash(hash *chainhash.Hash) (*ordutil.Block, error) {
	serialized, ok := m.byHash[*hash]
	if !ok {
		return nil, database.ErrBlockNotFound
	}
	return ordutil.NewBlockFromBytes(serialized)
}

func (m *memDB) BlockByHeight(height int32) (*ordutil.Block, error) {
	hash, ok := m.byHeight[height]
	if !ok {
		return nil, database.ErrBlockNotFound
	}
	block, err := m.BlockByHash(&hash)
	if err != nil {
		return nil, err
	}
	block.SetHeight(height)
	return block, nil
}

func (m *memDB) PutBlock(block *ordutil.Block) error {
	serialized, err := block.Bytes()
	if err != nil {
		return err
	}
	m.byHash[*block.Hash()] = serialized
	m.byHeight[block.Height()] = *block.Hash()
	if !m.hasBest || block.Height() > m.bestHeight {
		m.bestHeight = block.Height()
		m.hasBest = true
	}
	return nil
}

func (m *memDB) BestHeight() (int32, error) {
	if !m.hasBest {
		return 0, database.ErrBlockNotFound
	}
	return m.bestHeight, nil
}

func (m *memDB) Close() error {
	return nil
}

// testBlock returns a block that extends the passed previous hash, made
// distinct via the nonce.
func testBlock(prevHash chainhash.Hash, nonce uint32) *ordutil.Block {
	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxOut(wire.NewTxOut(50*ordutil.GramPerOrdinate, nil))

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			PrevBlock: prevHash,
			Nonce:     nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	return ordutil.NewBlock(msgBlock)
}

// TestConnectDisconnect checks chain extension, tip-only disconnects, and
// the notification order observers rely on.
func TestConnectDisconnect(t *testing.T) {
	chain, err := New(&Config{DB: newMemDB()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []string
	chain.Subscribe(func(n *Notification) {
		block := n.Data.(*ordutil.Block)
		events = append(events, n.Type.String()+":"+
			block.Hash().String()[:8])
	})

	if chain.BestHeight() != -1 {
		t.Fatalf("empty chain height: got %d, want -1",
			chain.BestHeight())
	}

	genesis := testBlock(chainhash.Hash{}, 0)
	blockA := testBlock(*genesis.Hash(), 1)
	blockB := testBlock(*blockA.Hash(), 2)

	for _, block := range []*ordutil.Block{genesis, blockA, blockB} {
		if err := chain.ConnectBlock(block); err != nil {
			t.Fatalf("ConnectBlock(%v): %v", block.Hash(), err)
		}
	}
	if chain.BestHeight() != 2 {
		t.Fatalf("height: got %d, want 2", chain.BestHeight())
	}

	// A block that does not extend the tip is rejected.
	orphan := testBlock(*genesis.Hash(), 3)
	if err := chain.ConnectBlock(orphan); !IsRuleErr(err) {
		t.Fatalf("orphan connect: got %v, want rule error", err)
	}

	// Hash lookups answer from the view.
	hash, err := chain.BlockHashByHeight(1)
	if err != nil {
		t.Fatalf("BlockHashByHeight: %v", err)
	}
	if *hash != *blockA.Hash() {
		t.Fatalf("hash at height 1: got %v, want %v", hash,
			blockA.Hash())
	}
	if _, err := chain.BlockHashByHeight(7); !IsNotInMainChainErr(err) {
		t.Fatalf("missing height: got %v, want not-in-main-chain", err)
	}

	// Disconnect pops the tip.
	detached, err := chain.DisconnectBlock()
	if err != nil {
		t.Fatalf("DisconnectBlock: %v", err)
	}
	if *detached.Hash() != *blockB.Hash() {
		t.Fatalf("detached block: got %v, want %v", detached.Hash(),
			blockB.Hash())
	}
	if chain.BestHeight() != 1 {
		t.Fatalf("height after disconnect: got %d, want 1",
			chain.BestHeight())
	}

	// Observers saw every event in chain order.
	want := []string{
		"NTBlockConnected:" + genesis.Hash().String()[:8],
		"NTBlockConnected:" + blockA.Hash().String()[:8],
		"NTBlockConnected:" + blockB.Hash().String()[:8],
		"NTBlockDisconnected:" + blockB.Hash().String()[:8],
	}
	if len(events) != len(want) {
		t.Fatalf("notification count: got %d, want %d", len(events),
			len(want))
	}
	for i, event := range events {
		if event != want[i] {
			t.Fatalf("notification %d: got %s, want %s", i, event,
				want[i])
		}
	}
}

// TestRecentBlocks checks the estimator-facing suffix iteration.
func TestRecentBlocks(t *testing.T) {
	chain, err := New(&Config{DB: newMemDB()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	prevHash := chainhash.Hash{}
	var hashes []chainhash.Hash
	for i := uint32(0); i < 5; i++ {
		block := testBlock(prevHash, i)
		if err := chain.ConnectBlock(block); err != nil {
			t.Fatalf("ConnectBlock: %v", err)
		}
		prevHash = *block.Hash()
		hashes = append(hashes, prevHash)
	}

	blocks, err := chain.RecentBlocks(context.Background(), 3)
	if err != nil {
		t.Fatalf("RecentBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("recent blocks: got %d, want 3", len(blocks))
	}

	// The suffix arrives in increasing height order.
	for i, block := range blocks {
		wantHash := hashes[len(hashes)-3+i]
		if *block.Hash() != wantHash {
			t.Fatalf("recent block %d: got %v, want %v", i,
				block.Hash(), wantHash)
		}
		if block.Height() != int32(len(hashes)-3+i) {
			t.Fatalf("recent block %d height: got %d, want %d", i,
				block.Height(), len(hashes)-3+i)
		}
	}

	// Asking for more blocks than exist returns them all.
	blocks, err = chain.RecentBlocks(context.Background(), 50)
	if err != nil {
		t.Fatalf("RecentBlocks: %v", err)
	}
	if len(blocks) != 5 {
		t.Fatalf("recent blocks: got %d, want 5", len(blocks))
	}

	// A cancelled context aborts the read.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := chain.RecentBlocks(ctx, 3); err != context.Canceled {
		t.Fatalf("cancelled RecentBlocks: got %v, want "+
			"context.Canceled", err)
	}
}

// TestChainReload checks that a new instance rebuilds its view from the
// database.
func TestChainReload(t *testing.T) {
	db := newMemDB()
	chain, err := New(&Config{DB: db})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	genesis := testBlock(chainhash.Hash{}, 0)
	blockA := testBlock(*genesis.Hash(), 1)
	for _, block := range []*ordutil.Block{genesis, blockA} {
		if err := chain.ConnectBlock(block); err != nil {
			t.Fatalf("ConnectBlock: %v", err)
		}
	}

	reloaded, err := New(&Config{DB: db})
	if err != nil {
		t.Fatalf("New after reload: %v", err)
	}
	if reloaded.BestHeight() != 1 {
		t.Fatalf("reloaded height: got %d, want 1",
			reloaded.BestHeight())
	}
	if *reloaded.BestHash() != *blockA.Hash() {
		t.Fatalf("reloaded tip: got %v, want %v", reloaded.BestHash(),
			blockA.Hash())
	}
}
