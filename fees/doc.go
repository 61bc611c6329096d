/*
Package fees provides fee-rate estimation for transactions to be included in
the chain within a target time horizon.

The estimator observes blocks as they are connected to and disconnected from
the best chain and samples the fee rates of the transactions the local
mempool had seen before their inclusion.  Transactions that appear in a
block without ever entering the local pool (private relay, miner
self-submission) carry no market signal and are ignored, as is the reward
transaction at index 0 of every block.

Samples are kept in a bounded sliding window: at most TxSampleSize samples
per block, chosen from the block's cheapest pool-known transactions, and at
most RecentBlocksNum distinct blocks represented at once.  Disconnecting a
block unwinds exactly the samples it contributed, so the window stays
consistent across reorgs.

Rate queries map a horizon in seconds to one of three priority buckets (low,
medium, high) and answer a low percentile of the window's sorted rates; the
percentile represents the fraction of recently included transactions that
paid less.  While the window is empty every query answers the minimum rate
of one, which callers should read as "unknown, minimum viable" rather than
as an estimate.

Absolute fees for a concrete pending spend are computed by EstimateFee,
which iterates the wallet's draft construction until the fee implied by the
draft's size equals the fee the draft was built with.
*/
package fees
