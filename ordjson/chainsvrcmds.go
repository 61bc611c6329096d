// NOTE: This file is intended to house the RPC commands that are supported by
// a chain server.

package ordjson

// GetBlockHashCmd defines the getblockhash JSON-RPC command.
type GetBlockHashCmd struct {
	Index int64
}

// NewGetBlockHashCmd returns a new instance which can be used to issue a
// getblockhash JSON-RPC command.
func NewGetBlockHashCmd(index int64) *GetBlockHashCmd {
	return &GetBlockHashCmd{
		Index: index,
	}
}

// GetBestHeightCmd defines the getbestheight JSON-RPC command.
type GetBestHeightCmd struct{}

// NewGetBestHeightCmd returns a new instance which can be used to issue a
// getbestheight JSON-RPC command.
func NewGetBestHeightCmd() *GetBestHeightCmd {
	return &GetBestHeightCmd{}
}

// EstimateRateCmd defines the estimaterate JSON-RPC command.
type EstimateRateCmd struct {
	// Horizon is the target confirmation delay in seconds.
	Horizon int64
}

// NewEstimateRateCmd returns a new instance which can be used to issue an
// estimaterate JSON-RPC command.
func NewEstimateRateCmd(horizon int64) *EstimateRateCmd {
	return &EstimateRateCmd{
		Horizon: horizon,
	}
}

// FeeOutput models one payment of a pending spend submitted to the
// estimatefee JSON-RPC command.
type FeeOutput struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// EstimateFeeCmd defines the estimatefee JSON-RPC command.
type EstimateFeeCmd struct {
	// Horizon is the target confirmation delay in seconds.
	Horizon int64

	// Account names the wallet account the spend would draw from.
	Account string

	// Outputs lists the payments the spend would make.
	Outputs []FeeOutput
}

// NewEstimateFeeCmd returns a new instance which can be used to issue an
// estimatefee JSON-RPC command.
func NewEstimateFeeCmd(horizon int64, account string, outputs []FeeOutput) *EstimateFeeCmd {
	return &EstimateFeeCmd{
		Horizon: horizon,
		Account: account,
		Outputs: outputs,
	}
}

// GetFeeWindowCmd defines the getfeewindow JSON-RPC command.
type GetFeeWindowCmd struct{}

// NewGetFeeWindowCmd returns a new instance which can be used to issue a
// getfeewindow JSON-RPC command.
func NewGetFeeWindowCmd() *GetFeeWindowCmd {
	return &GetFeeWindowCmd{}
}

// SendRawTransactionCmd defines the sendrawtransaction JSON-RPC command.
type SendRawTransactionCmd struct {
	HexTx string

	// Fee is the total fee the transaction pays, declared by the
	// submitter until the node carries full UTXO accounting.
	Fee int64
}

// NewSendRawTransactionCmd returns a new instance which can be used to issue
// a sendrawtransaction JSON-RPC command.
func NewSendRawTransactionCmd(hexTx string, fee int64) *SendRawTransactionCmd {
	return &SendRawTransactionCmd{
		HexTx: hexTx,
		Fee:   fee,
	}
}

func init() {
	// No special flags for commands in this file.
	flags := UsageFlag(0)

	MustRegisterCmd("estimatefee", (*EstimateFeeCmd)(nil), flags)
	MustRegisterCmd("estimaterate", (*EstimateRateCmd)(nil), flags)
	MustRegisterCmd("getbestheight", (*GetBestHeightCmd)(nil), flags)
	MustRegisterCmd("getblockhash", (*GetBlockHashCmd)(nil), flags)
	MustRegisterCmd("getfeewindow", (*GetFeeWindowCmd)(nil), flags)
	MustRegisterCmd("sendrawtransaction", (*SendRawTransactionCmd)(nil), flags)
}
