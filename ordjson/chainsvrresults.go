package ordjson

// EstimateRateResult models the data returned from the estimaterate command.
type EstimateRateResult struct {
	// FeeRate is the estimated rate in grams per byte.
	FeeRate int64 `json:"feerate"`

	// Bucket is the priority bucket the requested horizon mapped to.
	Bucket string `json:"bucket"`
}

// EstimateFeeResult models the data returned from the estimatefee command.
type EstimateFeeResult struct {
	// Fee is the estimated absolute fee in grams.
	Fee int64 `json:"fee"`

	// FeeRate is the rate the estimate was computed at.
	FeeRate int64 `json:"feerate"`
}

// FeeWindowSample models a single sample of the getfeewindow result.
type FeeWindowSample struct {
	BlockHash string `json:"blockhash"`
	FeeRate   int64  `json:"feerate"`
}

// GetFeeWindowResult models the data returned from the getfeewindow command.
type GetFeeWindowResult struct {
	Size    int               `json:"size"`
	Samples []FeeWindowSample `json:"samples"`
}
