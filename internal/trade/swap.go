package trade

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/types"
)

var ErrInvalidSwap = errors.New("invalid swap")

// Swap describes one routed swap ready to be encoded.
type Swap struct {
	Router         string
	Operations     []types.SwapOperation
	Input          types.AssetRef
	InputAmount    sdkmath.Int
	MinimumReceive sdkmath.Int
	// To receives the output; empty means the sender.
	To string
}

type executeSwapOperations struct {
	ExecuteSwapOperations struct {
		Operations     []types.SwapOperation `json:"operations"`
		MinimumReceive *sdkmath.Int          `json:"minimum_receive,omitempty"`
		To             string                `json:"to,omitempty"`
	} `json:"execute_swap_operations"`
}

// BuildSwap encodes s for the router.
func BuildSwap(s Swap) (types.TradeInstruction, error) {
	if s.Router == "" {
		return types.TradeInstruction{}, fmt.Errorf("%w: no router", ErrInvalidSwap)
	}
	if len(s.Operations) == 0 {
		return types.TradeInstruction{}, fmt.Errorf("%w: empty route", ErrInvalidSwap)
	}
	if s.InputAmount.IsNil() || !s.InputAmount.IsPositive() {
		return types.TradeInstruction{}, fmt.Errorf("%w: input amount must be positive", ErrInvalidSwap)
	}

	var msg executeSwapOperations
	msg.ExecuteSwapOperations.Operations = s.Operations
	msg.ExecuteSwapOperations.To = s.To
	if !s.MinimumReceive.IsNil() {
		if s.MinimumReceive.IsNegative() {
			return types.TradeInstruction{}, fmt.Errorf("%w: negative minimum receive", ErrInvalidSwap)
		}
		minimum := s.MinimumReceive
		msg.ExecuteSwapOperations.MinimumReceive = &minimum
	}
	return fund(s.Input, s.Router, s.InputAmount, msg)
}
