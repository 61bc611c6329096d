package fees

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/OrdinateLabs/ordd/ordutil"
)

// fakeChain is a Chain for testing purposes backed by a fixed block list.
type fakeChain struct {
	blocks []*ordutil.Block
	err    error
}

// RecentBlocks returns up to n of the fake chain's most recent blocks in
// increasing height order.
func (c *fakeChain) RecentBlocks(_ context.Context, n int) ([]*ordutil.Block, error) {
	if c.err != nil {
		return nil, c.err
	}
	if len(c.blocks) > n {
		return c.blocks[len(c.blocks)-n:], nil
	}
	return c.blocks, nil
}

// TestNewConfigValidation checks that construction rejects non-positive caps
// and malformed percentile overrides.
func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"defaults", Config{RecentBlocksNum: 10, TxSampleSize: 3}, true},
		{"zero block cap", Config{RecentBlocksNum: 0, TxSampleSize: 3}, false},
		{"zero sample cap", Config{RecentBlocksNum: 10, TxSampleSize: 0}, false},
		{"negative block cap", Config{RecentBlocksNum: -1, TxSampleSize: 3}, false},
		{"valid percentiles", Config{
			RecentBlocksNum: 10, TxSampleSize: 3,
			Percentiles: &Percentiles{Low: 5, Medium: 50, High: 95},
		}, true},
		{"zero percentile", Config{
			RecentBlocksNum: 10, TxSampleSize: 3,
			Percentiles: &Percentiles{Low: 0, Medium: 20, High: 30},
		}, false},
		{"unordered percentiles", Config{
			RecentBlocksNum: 10, TxSampleSize: 3,
			Percentiles: &Percentiles{Low: 30, Medium: 20, High: 10},
		}, false},
		{"percentile above 100", Config{
			RecentBlocksNum: 10, TxSampleSize: 3,
			Percentiles: &Percentiles{Low: 10, Medium: 20, High: 101},
		}, false},
	}

	for _, test := range tests {
		_, err := New(&test.cfg)
		if test.valid && err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
		}
		if !test.valid {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("%s: got %v, want ErrInvalidArgument",
					test.name, err)
			}
		}
	}
}

// TestBucketForHorizon checks the horizon boundaries of the priority
// buckets.
func TestBucketForHorizon(t *testing.T) {
	tests := []struct {
		horizonSecs int64
		want        Bucket
	}{
		{600, BucketLow},
		{300, BucketLow},
		{299, BucketMedium},
		{60, BucketMedium},
		{59, BucketHigh},
		{20, BucketHigh},
		{0, BucketHigh},
		{-1, BucketHigh},
	}

	for _, test := range tests {
		if got := BucketForHorizon(test.horizonSecs); got != test.want {
			t.Errorf("horizon %d: got %v, want %v",
				test.horizonSecs, got, test.want)
		}
	}
}

// TestEmptyWindowSentinel checks that every rate query against an empty
// window answers the minimum fee rate.
func TestEmptyWindowSentinel(t *testing.T) {
	est := newTestEstimator(t, 10, 3)

	for _, bucket := range []Bucket{BucketLow, BucketMedium, BucketHigh} {
		if got := est.EstimateRateForBucket(bucket); got != MinFeeRate {
			t.Errorf("bucket %v on empty window: got %v, want %v",
				bucket, got, MinFeeRate)
		}
	}
	if got := est.EstimateRate(60); got != MinFeeRate {
		t.Errorf("rate on empty window: got %v, want %v", got,
			MinFeeRate)
	}
}

// populateRates connects one block per entry of rates, each contributing a
// single sample with exactly that fee rate.
func populateRates(t *testing.T, est *Estimator, et *estimatorTester, rates []int64) {
	t.Helper()

	pool := make(poolSnapshot)
	for _, rate := range rates {
		// The test transactions serialize to 60 bytes, so a fee of
		// rate*60 yields the rate exactly.
		tx := et.testTx(ordutil.Amount(rate*60), 0)
		if size := tx.MsgTx().SerializeSize(); size != 60 {
			t.Fatalf("test transaction size: got %d, want 60", size)
		}
		pool.add(tx)
		est.ConnectBlock(et.testBlock(tx), pool)
	}
}

// TestPercentileSelection checks the percentile index math against a window
// of known ascending rates.
func TestPercentileSelection(t *testing.T) {
	est := newTestEstimator(t, 10, 1)
	et := estimatorTester{t: t}

	populateRates(t, est, &et, []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	// With ten samples the 10th/20th/30th percentiles select indices
	// 1, 2 and 3 of the ascending rates.
	tests := []struct {
		bucket Bucket
		want   FeeRate
	}{
		{BucketLow, 20},
		{BucketMedium, 30},
		{BucketHigh, 40},
	}
	for _, test := range tests {
		if got := est.EstimateRateForBucket(test.bucket); got != test.want {
			t.Errorf("bucket %v: got %v, want %v", test.bucket, got,
				test.want)
		}
	}
}

// TestPercentileOverrides checks that configured percentiles replace the
// defaults.
func TestPercentileOverrides(t *testing.T) {
	est, err := New(&Config{
		RecentBlocksNum: 10,
		TxSampleSize:    1,
		Percentiles:     &Percentiles{Low: 50, Medium: 90, High: 100},
	})
	if err != nil {
		t.Fatalf("unable to create estimator: %v", err)
	}
	et := estimatorTester{t: t}

	populateRates(t, est, &et, []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	tests := []struct {
		bucket Bucket
		want   FeeRate
	}{
		{BucketLow, 60},
		{BucketMedium, 100},
		{BucketHigh, 100}, // index clamped to the last sample
	}
	for _, test := range tests {
		if got := est.EstimateRateForBucket(test.bucket); got != test.want {
			t.Errorf("bucket %v: got %v, want %v", test.bucket, got,
				test.want)
		}
	}
}

// TestRateMonotoneInHorizon checks that the estimated rate never increases
// as the horizon grows across the bucket boundaries.
func TestRateMonotoneInHorizon(t *testing.T) {
	est := newTestEstimator(t, 10, 1)
	et := estimatorTester{t: t}

	populateRates(t, est, &et, []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	horizons := []int64{30, 59, 60, 299, 300, 600}
	for i := len(horizons) - 1; i > 0; i-- {
		longer := est.EstimateRate(horizons[i])
		shorter := est.EstimateRate(horizons[i-1])
		if longer > shorter {
			t.Errorf("rate increased with horizon: %v at %ds > %v "+
				"at %ds", longer, horizons[i], shorter,
				horizons[i-1])
		}
	}
}

// TestRateQueryDoesNotMutate checks that rate queries leave the window
// byte-identical.
func TestRateQueryDoesNotMutate(t *testing.T) {
	est := newTestEstimator(t, 5, 2)
	et := estimatorTester{t: t}

	populateRates(t, est, &et, []int64{50, 10, 40, 20, 30})
	before := est.Samples()

	est.EstimateRate(20)
	est.EstimateRate(600)
	est.EstimateRateForBucket(BucketMedium)

	if after := est.Samples(); !reflect.DeepEqual(before, after) {
		t.Fatalf("rate query mutated the window:\nbefore %s\nafter %s",
			spew.Sdump(before), spew.Sdump(after))
	}
}

// TestSetupReplaysRecentBlocks checks that Setup leaves the window exactly
// as a live connect sequence over the same blocks would.
func TestSetupReplaysRecentBlocks(t *testing.T) {
	et := estimatorTester{t: t}
	pool := make(poolSnapshot)

	var blocks []*ordutil.Block
	for i := int64(1); i <= 5; i++ {
		tx := et.testTx(ordutil.Amount(i*600), 0)
		pool.add(tx)
		blocks = append(blocks, et.testBlock(tx))
	}

	// Reference estimator fed by live connects.
	live := newTestEstimator(t, 3, 1)
	for _, block := range blocks {
		live.ConnectBlock(block, pool)
	}

	// Estimator primed by Setup over the same chain.
	primed, err := New(&Config{
		RecentBlocksNum: 3,
		TxSampleSize:    1,
		Chain:           &fakeChain{blocks: blocks},
	})
	if err != nil {
		t.Fatalf("unable to create estimator: %v", err)
	}
	if err := primed.Setup(context.Background(), pool); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if got, want := primed.Samples(), live.Samples(); !reflect.DeepEqual(got, want) {
		t.Fatalf("setup window mismatch:\ngot %s\nwant %s",
			spew.Sdump(got), spew.Sdump(want))
	}
}

// TestSetupCancellation checks that cancelling Setup leaves the window
// untouched.
func TestSetupCancellation(t *testing.T) {
	et := estimatorTester{t: t}
	pool := make(poolSnapshot)

	tx := et.testTx(600, 0)
	pool.add(tx)

	est, err := New(&Config{
		RecentBlocksNum: 3,
		TxSampleSize:    1,
		Chain:           &fakeChain{blocks: []*ordutil.Block{et.testBlock(tx)}},
	})
	if err != nil {
		t.Fatalf("unable to create estimator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := est.Setup(ctx, pool); !errors.Is(err, context.Canceled) {
		t.Fatalf("setup error: got %v, want context.Canceled", err)
	}
	if est.Size() != 0 {
		t.Fatalf("cancelled setup populated the window: %d samples",
			est.Size())
	}
}

// TestSetupBestEffort checks that a failing chain read degrades to an empty
// window rather than an error.
func TestSetupBestEffort(t *testing.T) {
	est, err := New(&Config{
		RecentBlocksNum: 3,
		TxSampleSize:    1,
		Chain:           &fakeChain{err: errors.New("pruned")},
	})
	if err != nil {
		t.Fatalf("unable to create estimator: %v", err)
	}

	if err := est.Setup(context.Background(), make(poolSnapshot)); err != nil {
		t.Fatalf("setup should be best effort, got %v", err)
	}
	if est.Size() != 0 {
		t.Fatalf("window size: got %d, want 0", est.Size())
	}
}
