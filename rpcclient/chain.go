package rpcclient

import (
	"encoding/json"

	"github.com/OrdinateLabs/ordd/ordjson"
)

// FutureGetBlockHashResult is a future promise to deliver the result of a
// GetBlockHashAsync RPC invocation (or an applicable error).
type FutureGetBlockHashResult chan *Response

// GetBlockHashAsync returns an instance of a type that can be used to get
// the result of the RPC at some future time by invoking the Receive function
// on the returned instance.
//
// See GetBlockHash for the blocking version and more details.
func (c *Client) GetBlockHashAsync(blockHeight int64) FutureGetBlockHashResult {
	cmd := ordjson.NewGetBlockHashCmd(blockHeight)
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the hash
// of the block in the best block chain at the given height.
func (r FutureGetBlockHashResult) Receive() (string, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return "", err
	}

	// Unmarshal the result as a string-encoded sha.
	var txHashStr string
	err = json.Unmarshal(res, &txHashStr)
	if err != nil {
		return "", err
	}
	return txHashStr, nil
}

// GetBlockHash returns the hash of the block in the best block chain at the
// given height.
func (c *Client) GetBlockHash(blockHeight int64) (string, error) {
	return c.GetBlockHashAsync(blockHeight).Receive()
}

// FutureGetBestHeightResult is a future promise to deliver the result of a
// GetBestHeightAsync RPC invocation (or an applicable error).
type FutureGetBestHeightResult chan *Response

// GetBestHeightAsync returns an instance of a type that can be used to get
// the result of the RPC at some future time by invoking the Receive function
// on the returned instance.
//
// See GetBestHeight for the blocking version and more details.
func (c *Client) GetBestHeightAsync() FutureGetBestHeightResult {
	cmd := ordjson.NewGetBestHeightCmd()
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the
// height of the best chain tip.
func (r FutureGetBestHeightResult) Receive() (int32, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return 0, err
	}

	var height int32
	err = json.Unmarshal(res, &height)
	if err != nil {
		return 0, err
	}
	return height, nil
}

// GetBestHeight returns the height of the best chain tip.
func (c *Client) GetBestHeight() (int32, error) {
	return c.GetBestHeightAsync().Receive()
}

// FutureEstimateRateResult is a future promise to deliver the result of an
// EstimateRateAsync RPC invocation (or an applicable error).
type FutureEstimateRateResult chan *Response

// EstimateRateAsync returns an instance of a type that can be used to get
// the result of the RPC at some future time by invoking the Receive function
// on the returned instance.
//
// See EstimateRate for the blocking version and more details.
func (c *Client) EstimateRateAsync(horizonSecs int64) FutureEstimateRateResult {
	cmd := ordjson.NewEstimateRateCmd(horizonSecs)
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the
// estimated fee rate in grams per byte along with the priority bucket the
// requested horizon mapped to.
func (r FutureEstimateRateResult) Receive() (*ordjson.EstimateRateResult, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return nil, err
	}

	var rateResult ordjson.EstimateRateResult
	err = json.Unmarshal(res, &rateResult)
	if err != nil {
		return nil, err
	}
	return &rateResult, nil
}

// EstimateRate returns the fee rate, in grams per byte, a transaction should
// pay to be confirmed within the given horizon in seconds.
func (c *Client) EstimateRate(horizonSecs int64) (*ordjson.EstimateRateResult, error) {
	return c.EstimateRateAsync(horizonSecs).Receive()
}

// FutureEstimateFeeResult is a future promise to deliver the result of an
// EstimateFeeAsync RPC invocation (or an applicable error).
type FutureEstimateFeeResult chan *Response

// EstimateFeeAsync returns an instance of a type that can be used to get the
// result of the RPC at some future time by invoking the Receive function on
// the returned instance.
//
// See EstimateFee for the blocking version and more details.
func (c *Client) EstimateFeeAsync(horizonSecs int64, account string,
	outputs []ordjson.FeeOutput) FutureEstimateFeeResult {

	cmd := ordjson.NewEstimateFeeCmd(horizonSecs, account, outputs)
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the
// estimated absolute fee in grams.
func (r FutureEstimateFeeResult) Receive() (*ordjson.EstimateFeeResult, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return nil, err
	}

	var feeResult ordjson.EstimateFeeResult
	err = json.Unmarshal(res, &feeResult)
	if err != nil {
		return nil, err
	}
	return &feeResult, nil
}

// EstimateFee returns the absolute fee, in grams, that a transaction paying
// the given outputs from the given account should attach to be confirmed
// within the given horizon in seconds.
func (c *Client) EstimateFee(horizonSecs int64, account string,
	outputs []ordjson.FeeOutput) (*ordjson.EstimateFeeResult, error) {

	return c.EstimateFeeAsync(horizonSecs, account, outputs).Receive()
}

// FutureGetFeeWindowResult is a future promise to deliver the result of a
// GetFeeWindowAsync RPC invocation (or an applicable error).
type FutureGetFeeWindowResult chan *Response

// GetFeeWindowAsync returns an instance of a type that can be used to get
// the result of the RPC at some future time by invoking the Receive function
// on the returned instance.
//
// See GetFeeWindow for the blocking version and more details.
func (c *Client) GetFeeWindowAsync() FutureGetFeeWindowResult {
	cmd := ordjson.NewGetFeeWindowCmd()
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the
// current contents of the fee estimator's sample window.
func (r FutureGetFeeWindowResult) Receive() (*ordjson.GetFeeWindowResult, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return nil, err
	}

	var windowResult ordjson.GetFeeWindowResult
	err = json.Unmarshal(res, &windowResult)
	if err != nil {
		return nil, err
	}
	return &windowResult, nil
}

// GetFeeWindow returns the current contents of the fee estimator's sample
// window for observability and testing.
func (c *Client) GetFeeWindow() (*ordjson.GetFeeWindowResult, error) {
	return c.GetFeeWindowAsync().Receive()
}

// FutureSendRawTransactionResult is a future promise to deliver the result
// of a SendRawTransactionAsync RPC invocation (or an applicable error).
type FutureSendRawTransactionResult chan *Response

// SendRawTransactionAsync returns an instance of a type that can be used to
// get the result of the RPC at some future time by invoking the Receive
// function on the returned instance.
//
// See SendRawTransaction for the blocking version and more details.
func (c *Client) SendRawTransactionAsync(hexTx string, fee int64) FutureSendRawTransactionResult {
	cmd := ordjson.NewSendRawTransactionCmd(hexTx, fee)
	return c.SendCmd(cmd)
}

// Receive waits for the Response promised by the future and returns the hash
// of the transaction that was accepted into the pool.
func (r FutureSendRawTransactionResult) Receive() (string, error) {
	res, err := ReceiveFuture(r)
	if err != nil {
		return "", err
	}

	var txHashStr string
	err = json.Unmarshal(res, &txHashStr)
	if err != nil {
		return "", err
	}
	return txHashStr, nil
}

// SendRawTransaction submits the serialized, hex-encoded transaction to the
// server which will then relay it to the pool.
func (c *Client) SendRawTransaction(hexTx string, fee int64) (string, error) {
	return c.SendRawTransactionAsync(hexTx, fee).Receive()
}
