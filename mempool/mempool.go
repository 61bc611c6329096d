package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related to
	// policy.
	Policy Policy
}

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MinRelayTxFee defines the minimum transaction fee in grams/kB to be
	// considered a non-zero fee.
	MinRelayTxFee ordutil.Amount
}

// RuleError identifies a transaction that was rejected by mempool policy
// rather than by a failure of the pool itself.
type RuleError struct {
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// txRuleError creates a RuleError given a description.
func txRuleError(description string) RuleError {
	return RuleError{Description: description}
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *ordutil.Tx

	// Added is the time when the entry was added to the source pool.
	Added time.Time

	// Height is the block height when the entry was added to the source
	// pool.
	Height int32

	// Fee is the total fee the transaction associated with the entry pays.
	Fee ordutil.Amount
}

// TxPool is used as a source of transactions that need to be mined into
// blocks and relayed to other peers.  It is safe for concurrent access.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated

	mtx  sync.RWMutex
	cfg  Config
	pool map[chainhash.Hash]*TxDesc
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	return &TxPool{
		cfg:  *cfg,
		pool: make(map[chainhash.Hash]*TxDesc),
	}
}

// Count returns the number of transactions in the main pool.  It does not
// include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()

	return count
}

// HaveTransaction returns whether or not the passed transaction already
// exists in the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	_, exists := mp.pool[*hash]
	mp.mtx.RUnlock()

	return exists
}

// Contains returns whether or not the passed transaction hash is currently
// in the pool.  It is an alias of HaveTransaction that satisfies the fee
// estimator's transaction source interface.
//
// This function is safe for concurrent access.
func (mp *TxPool) Contains(hash *chainhash.Hash) bool {
	return mp.HaveTransaction(hash)
}

// FetchTxDesc returns the descriptor for the passed transaction hash from
// the pool along with whether or not it exists.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTxDesc(hash *chainhash.Hash) (*TxDesc, bool) {
	mp.mtx.RLock()
	desc, exists := mp.pool[*hash]
	mp.mtx.RUnlock()

	return desc, exists
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()

	return descs
}

// LastUpdated returns the last time a transaction was added to or removed
// from the main pool.  It does not include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// ProcessTransaction is the main workhorse for handling insertion of new
// free-standing transactions into the memory pool.  It enforces the
// configured relay-fee policy and rejects duplicates.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *ordutil.Tx, fee ordutil.Amount,
	height int32) (*TxDesc, error) {

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	hash := tx.Hash()
	if _, exists := mp.pool[*hash]; exists {
		str := fmt.Sprintf("already have transaction %v", hash)
		return nil, txRuleError(str)
	}

	serializedSize := int64(tx.MsgTx().SerializeSize())
	minFee := calcMinRequiredTxRelayFee(serializedSize,
		mp.cfg.Policy.MinRelayTxFee)
	if int64(fee) < minFee {
		str := fmt.Sprintf("transaction %v has %d fees which is under "+
			"the required amount of %d", hash, fee, minFee)
		return nil, txRuleError(str)
	}

	tx.SetFee(fee)
	desc := &TxDesc{
		Tx:     tx,
		Added:  time.Now(),
		Height: height,
		Fee:    fee,
	}
	mp.pool[*hash] = desc
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())

	log.Debugf("Accepted transaction %v (pool size: %d)", hash,
		len(mp.pool))
	return desc, nil
}

// RemoveTransaction removes the passed transaction from the mempool.  It is
// a no-op for transactions the pool does not contain.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(hash *chainhash.Hash) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if _, exists := mp.pool[*hash]; exists {
		delete(mp.pool, *hash)
		atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	}
}

// AnnotateFees copies the fees the pool knows about onto the wrapped
// transactions of the passed block.  Block transactions the pool has never
// seen are left untouched.  This runs before the block is handed to the fee
// estimator so the estimator can read per-transaction fees without UTXO
// access.
//
// This function is safe for concurrent access.
func (mp *TxPool) AnnotateFees(block *ordutil.Block) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	for _, tx := range block.Transactions() {
		if desc, exists := mp.pool[*tx.Hash()]; exists {
			tx.SetFee(desc.Fee)
		}
	}
}

// RemoveBlockTransactions removes every transaction mined in the passed
// block from the mempool.  This is called after a block is connected and
// after the fee estimator has taken its samples.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveBlockTransactions(block *ordutil.Block) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	removed := 0
	for _, tx := range block.Transactions() {
		if _, exists := mp.pool[*tx.Hash()]; exists {
			delete(mp.pool, *tx.Hash())
			removed++
		}
	}
	if removed > 0 {
		atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
		log.Debugf("Removed %d transactions mined in block %v", removed,
			block.Hash())
	}
}
