package fees

import "errors"

var (
	// ErrInvalidArgument is returned when the estimator is constructed or
	// queried with parameters it cannot act on, such as a non-positive
	// window cap or an empty output list.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds is the sentinel a Wallet implementation wraps
	// when coin selection cannot cover the requested outputs plus fee.  It
	// is propagated unmodified by EstimateFee so callers can react to it.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
