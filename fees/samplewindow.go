package fees

import (
	"sort"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// Sample is a single fee-rate observation retained by the sample window.  It
// carries the hash of the block that mined the observed transaction so the
// observation can be unwound if that block is disconnected.
type Sample struct {
	// BlockHash identifies the block the observation came from.
	BlockHash chainhash.Hash

	// FeeRate is the rate the observed transaction paid.
	FeeRate FeeRate
}

// sampleWindow is a bounded sliding window of fee-rate samples over the
// recently connected suffix of the best chain.  Samples are kept oldest
// first and samples that share a block hash always form a contiguous run,
// because they are appended together on connect and removed together on
// disconnect or eviction.
type sampleWindow struct {
	// recentBlocksNum caps the number of distinct blocks represented in
	// the window.  Blocks that contribute no samples are not represented
	// and therefore do not count against the cap.
	recentBlocksNum int

	// txSampleSize caps the samples admitted per connected block.
	txSampleSize int

	samples []Sample
}

// newSampleWindow returns an empty window with the given caps.  The caller
// is responsible for ensuring the caps are positive.
func newSampleWindow(recentBlocksNum, txSampleSize int) *sampleWindow {
	return &sampleWindow{
		recentBlocksNum: recentBlocksNum,
		txSampleSize:    txSampleSize,
		samples:         make([]Sample, 0, recentBlocksNum*txSampleSize),
	}
}

// size returns the number of samples currently held.
func (w *sampleWindow) size() int {
	return len(w.samples)
}

// distinctBlocks returns the number of distinct blocks represented in the
// window.  Since samples of a block are contiguous, counting hash changes
// along the window is sufficient.
func (w *sampleWindow) distinctBlocks() int {
	count := 0
	for i, s := range w.samples {
		if i == 0 || s.BlockHash != w.samples[i-1].BlockHash {
			count++
		}
	}
	return count
}

// connectBlock folds a newly connected block into the window.  The reward
// transaction at index 0 is skipped, the remaining transactions are filtered
// to those the supplied pool snapshot knows about, and the cheapest
// txSampleSize of them (by fee rate) are appended as samples.  Finally the
// oldest represented blocks are evicted until the distinct-block cap holds
// again.
func (w *sampleWindow) connectBlock(block *ordutil.Block, txSource MempoolTxSource) {
	transactions := block.Transactions()
	if len(transactions) <= 1 {
		return
	}

	blockHash := *block.Hash()
	candidates := make([]Sample, 0, len(transactions)-1)
	for _, tx := range transactions[1:] {
		// Transactions the local pool never saw carry no market
		// signal, typically private relay or miner self-submission.
		if !txSource.Contains(tx.Hash()) {
			continue
		}

		rate, err := NewFeeRate(tx.Fee(), tx.MsgTx().SerializeSize())
		if err != nil {
			log.Warnf("Skipping sample for transaction %v in "+
				"block %v: %v", tx.Hash(), blockHash, err)
			continue
		}

		candidates = append(candidates, Sample{
			BlockHash: blockHash,
			FeeRate:   rate,
		})
	}
	if len(candidates) == 0 {
		// The block is processed but unrepresented, so it must not
		// evict anything.
		return
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FeeRate < candidates[j].FeeRate
	})
	if len(candidates) > w.txSampleSize {
		candidates = candidates[:w.txSampleSize]
	}
	w.samples = append(w.samples, candidates...)

	for w.distinctBlocks() > w.recentBlocksNum {
		w.evictOldest()
	}
}

// disconnectBlock removes the tail run of samples belonging to the given
// block hash.  Disconnects arrive in LIFO order matching connects, so the
// block's samples, if any remain, are exactly the window's tail.  When the
// tail belongs to a different block there is nothing to unwind and the
// window is left untouched.
func (w *sampleWindow) disconnectBlock(blockHash *chainhash.Hash) {
	i := len(w.samples)
	for i > 0 && w.samples[i-1].BlockHash == *blockHash {
		i--
	}
	w.samples = w.samples[:i]
}

// evictOldest drops the leading run of samples, i.e. every sample belonging
// to the oldest represented block.
func (w *sampleWindow) evictOldest() {
	if len(w.samples) == 0 {
		return
	}

	oldest := w.samples[0].BlockHash
	i := 1
	for i < len(w.samples) && w.samples[i].BlockHash == oldest {
		i++
	}
	w.samples = append(w.samples[:0], w.samples[i:]...)
}

// rates returns a copy of the fee rates currently held, in window order.
func (w *sampleWindow) rates() []FeeRate {
	rates := make([]FeeRate, len(w.samples))
	for i, s := range w.samples {
		rates[i] = s.FeeRate
	}
	return rates
}

// snapshot returns a copy of the samples currently held, oldest first.
func (w *sampleWindow) snapshot() []Sample {
	samples := make([]Sample, len(w.samples))
	copy(samples, w.samples)
	return samples
}
