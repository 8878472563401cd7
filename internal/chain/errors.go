package chain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels for node and transaction failures. Callers match them with
// errors.Is; the web layer maps them to status codes.
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrGRPCConnectionInvalid = errors.New("gRPC connection is invalid")
	ErrRPCConnectionFailed   = errors.New("RPC connection failed")
	ErrSDKConfigFailed       = errors.New("SDK configuration failed")
	ErrInvalidKey            = errors.New("private key is invalid")
	ErrAccountRetrieval      = errors.New("account retrieval failed")
	ErrTxBuildFailed         = errors.New("transaction build failed")
	ErrTxSignFailed          = errors.New("transaction signing failed")
	ErrTxBroadcastFailed     = errors.New("transaction broadcast failed")
	ErrGasSimulationFailed   = errors.New("gas simulation failed")
	ErrQueryFailed           = errors.New("chain query failed")

	// ErrTxRejected is returned when CheckTx or DeliverTx reports a non-zero code.
	ErrTxRejected = errors.New("transaction rejected by chain")
	// ErrSlippageExceeded is returned when the venue refuses a trade because
	// its minimum-receive or spread bound was violated.
	ErrSlippageExceeded = errors.New("slippage bound exceeded")
	// ErrBroadcastTimeout matches *BroadcastTimeoutError.
	ErrBroadcastTimeout = errors.New("transaction not committed before timeout")
)

// BroadcastTimeoutError means the transaction was accepted into the mempool
// but was not seen in a block in time. The outcome is unknown; callers should
// poll TxHash.
type BroadcastTimeoutError struct {
	TxHash  string
	Timeout time.Duration
}

func (e *BroadcastTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not committed within %s", e.TxHash, e.Timeout)
}

func (e *BroadcastTimeoutError) Is(target error) bool {
	return target == ErrBroadcastTimeout
}

// Contract error strings that mean the slippage bound tripped.
var slippageMarkers = []string{
	"minimum receive",
	"max spread",
	"max_spread",
	"slippage",
}

// isSlippageLog reports whether a contract error message is a slippage failure.
func isSlippageLog(log string) bool {
	lower := strings.ToLower(log)
	for _, m := range slippageMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classifyRejection wraps a chain failure message with the matching sentinels.
func classifyRejection(code uint32, log string) error {
	err := fmt.Errorf("%w: code %d: %s", ErrTxRejected, code, log)
	if isSlippageLog(log) {
		return errors.Join(ErrSlippageExceeded, err)
	}
	return err
}
