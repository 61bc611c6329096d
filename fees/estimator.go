package fees

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/OrdinateLabs/ordd/ordutil"
)

const (
	// DefaultRecentBlocksNum is the default number of distinct blocks the
	// sample window may represent.
	DefaultRecentBlocksNum = 10

	// DefaultTxSampleSize is the default number of samples admitted per
	// connected block.  Capping per-block admission keeps a single large
	// block from dominating the window.
	DefaultTxSampleSize = 3

	// DefaultLowPercentile, DefaultMediumPercentile and
	// DefaultHighPercentile are the default percentiles into the sorted
	// window rates for the three priority buckets.  They sit near the
	// bottom of the included distribution since callers overwhelmingly
	// want the minimum viable rate.
	DefaultLowPercentile    = 10
	DefaultMediumPercentile = 20
	DefaultHighPercentile   = 30

	// lowHorizonSecs and mediumHorizonSecs are the horizon boundaries of
	// the priority buckets.  A horizon of lowHorizonSecs or more maps to
	// the low bucket, one below mediumHorizonSecs to the high bucket, and
	// everything in between to the medium bucket.
	lowHorizonSecs    = 300
	mediumHorizonSecs = 60
)

// Bucket identifies one of the three priority classes a confirmation horizon
// maps to.
type Bucket int

// The supported priority buckets, from most patient to most urgent.
const (
	BucketLow Bucket = iota
	BucketMedium
	BucketHigh
)

// String returns the bucket as a human-readable name.
func (b Bucket) String() string {
	switch b {
	case BucketLow:
		return "low"
	case BucketMedium:
		return "medium"
	case BucketHigh:
		return "high"
	}
	return fmt.Sprintf("unknown bucket %d", int(b))
}

// BucketForHorizon maps a target confirmation horizon in seconds to the
// priority bucket that serves it.  Negative horizons are treated as the most
// urgent request; the RPC boundary rejects them before they reach here.
func BucketForHorizon(horizonSecs int64) Bucket {
	switch {
	case horizonSecs >= lowHorizonSecs:
		return BucketLow
	case horizonSecs >= mediumHorizonSecs:
		return BucketMedium
	default:
		return BucketHigh
	}
}

// Percentiles holds the percentile, per priority bucket, into the
// ascending-sorted fee rates of the sample window.
type Percentiles struct {
	Low    int
	Medium int
	High   int
}

// DefaultPercentiles returns the documented default percentiles.
func DefaultPercentiles() Percentiles {
	return Percentiles{
		Low:    DefaultLowPercentile,
		Medium: DefaultMediumPercentile,
		High:   DefaultHighPercentile,
	}
}

// Config is a descriptor containing the fee estimator configuration.
type Config struct {
	// RecentBlocksNum caps the number of distinct blocks represented in
	// the sample window.  It must be positive.
	RecentBlocksNum int

	// TxSampleSize caps the samples admitted per connected block.  It
	// must be positive.
	TxSampleSize int

	// Percentiles optionally overrides the per-bucket percentiles.  When
	// nil the documented defaults of 10/20/30 are used.
	Percentiles *Percentiles

	// Chain provides the recent suffix of the best chain for Setup.  It
	// may be nil, in which case Setup is a no-op.
	Chain Chain

	// Wallet constructs draft transactions for EstimateFee.  It may be
	// nil when only rate queries are needed.
	Wallet Wallet
}

// Estimator maintains a bounded sliding window of fee-rate samples over the
// recently connected suffix of the best chain and answers rate and fee
// queries against it.
//
// ConnectBlock and DisconnectBlock must be called in the serialized order
// the chain produces the corresponding events; the chain's notification
// callbacks provide exactly that ordering.
type Estimator struct {
	mtx sync.RWMutex

	window      *sampleWindow
	percentiles Percentiles
	chain       Chain
	wallet      Wallet
}

// New returns a fee estimator for the given configuration.
func New(cfg *Config) (*Estimator, error) {
	if cfg.RecentBlocksNum < 1 {
		return nil, fmt.Errorf("recent blocks cap must be positive, "+
			"got %d: %w", cfg.RecentBlocksNum, ErrInvalidArgument)
	}
	if cfg.TxSampleSize < 1 {
		return nil, fmt.Errorf("per-block sample cap must be positive, "+
			"got %d: %w", cfg.TxSampleSize, ErrInvalidArgument)
	}

	percentiles := DefaultPercentiles()
	if cfg.Percentiles != nil {
		percentiles = *cfg.Percentiles
		if percentiles.Low < 1 || percentiles.High > 100 ||
			percentiles.Low > percentiles.Medium ||
			percentiles.Medium > percentiles.High {

			return nil, fmt.Errorf("percentiles %+v must be "+
				"ordered within [1, 100]: %w", percentiles,
				ErrInvalidArgument)
		}
	}

	return &Estimator{
		window:      newSampleWindow(cfg.RecentBlocksNum, cfg.TxSampleSize),
		percentiles: percentiles,
		chain:       cfg.Chain,
		wallet:      cfg.Wallet,
	}, nil
}

// Setup populates the sample window from the recent suffix of the best
// chain, replaying each block against the current pool snapshot exactly as
// if it had just been connected.  Setup is best effort: blocks the chain
// cannot provide are skipped.  Cancelling the context aborts the replay and
// leaves the window untouched.
func (e *Estimator) Setup(ctx context.Context, txSource MempoolTxSource) error {
	if e.chain == nil {
		return nil
	}

	e.mtx.RLock()
	recentBlocksNum := e.window.recentBlocksNum
	txSampleSize := e.window.txSampleSize
	e.mtx.RUnlock()

	blocks, err := e.chain.RecentBlocks(ctx, recentBlocksNum)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("Unable to read recent blocks for fee estimation: "+
			"%v", err)
		return nil
	}

	// Replay into a scratch window and swap it in only once the whole
	// suffix has been processed, so that cancellation cannot leave a
	// half-populated window behind.
	scratch := newSampleWindow(recentBlocksNum, txSampleSize)
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		scratch.connectBlock(block, txSource)
	}

	e.mtx.Lock()
	e.window = scratch
	e.mtx.Unlock()

	log.Debugf("Fee estimator primed with %d samples from %d recent "+
		"blocks", scratch.size(), len(blocks))
	return nil
}

// ConnectBlock informs the estimator that a block was connected to the best
// chain.  Transactions the supplied pool snapshot has seen contribute
// samples; the cheapest ones win per-block admission.
func (e *Estimator) ConnectBlock(block *ordutil.Block, txSource MempoolTxSource) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.window.connectBlock(block, txSource)
}

// DisconnectBlock informs the estimator that a block was disconnected from
// the best chain, unwinding the samples it contributed.  Disconnecting a
// block that contributed no samples is a no-op.
func (e *Estimator) DisconnectBlock(block *ordutil.Block) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.window.disconnectBlock(block.Hash())
}

// EstimateRate returns the fee rate a transaction should pay to be confirmed
// within the given horizon in seconds.  While the window is empty it returns
// MinFeeRate, which callers should treat as "unknown, minimum viable"
// rather than as an estimate.
func (e *Estimator) EstimateRate(horizonSecs int64) FeeRate {
	return e.EstimateRateForBucket(BucketForHorizon(horizonSecs))
}

// EstimateRateForBucket returns the fee rate for the given priority bucket,
// which is the bucket's percentile into the ascending-sorted rates of the
// sample window.
func (e *Estimator) EstimateRateForBucket(bucket Bucket) FeeRate {
	e.mtx.RLock()
	rates := e.window.rates()
	e.mtx.RUnlock()

	if len(rates) == 0 {
		return MinFeeRate
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })

	var p int
	switch bucket {
	case BucketLow:
		p = e.percentiles.Low
	case BucketMedium:
		p = e.percentiles.Medium
	default:
		p = e.percentiles.High
	}

	idx := p * len(rates) / 100
	if idx >= len(rates) {
		idx = len(rates) - 1
	}
	return rates[idx]
}

// Size returns the number of samples currently held by the window.
func (e *Estimator) Size() int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()

	return e.window.size()
}

// Samples returns a copy of the window's samples, oldest first.
func (e *Estimator) Samples() []Sample {
	e.mtx.RLock()
	defer e.mtx.RUnlock()

	return e.window.snapshot()
}
