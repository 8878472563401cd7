package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ReceiptKind is what a journaled transaction did.
type ReceiptKind string

const (
	ReceiptSwap   ReceiptKind = "swap"
	ReceiptOrder  ReceiptKind = "order"
	ReceiptCancel ReceiptKind = "cancel"
	ReceiptBatch  ReceiptKind = "batch"
)

// Receipt is the journal entry written after a committed broadcast. Amounts
// are the pre-trade estimates, not settled values.
type Receipt struct {
	ID             string      `json:"id"`
	TxHash         string      `json:"txHash"`
	Network        string      `json:"network"`
	Kind           ReceiptKind `json:"kind"`
	Address        string      `json:"address"`
	Venue          string      `json:"venue"` // pool or market id
	Side           Side        `json:"side,omitempty"`
	InputAmount    sdkmath.Int `json:"inputAmount"`
	ExpectedOutput sdkmath.Int `json:"expectedOutput"`
	Height         int64       `json:"height"`
	GasUsed        int64       `json:"gasUsed"`
	CreatedAt      time.Time   `json:"createdAt"`
}
