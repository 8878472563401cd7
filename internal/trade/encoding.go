package trade

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/types"
)

type cw20Send struct {
	Send struct {
		Contract string      `json:"contract"`
		Amount   sdkmath.Int `json:"amount"`
		Msg      []byte      `json:"msg"` // base64 on the wire
	} `json:"send"`
}

// fund delivers amount of asset to target along with msg. Bank assets are
// attached as funds on a direct call; CW20 tokens are sent to target through
// the token contract with msg as the hook payload.
func fund(asset types.AssetRef, target string, amount sdkmath.Int, msg any) (types.TradeInstruction, error) {
	inner, err := json.Marshal(msg)
	if err != nil {
		return types.TradeInstruction{}, fmt.Errorf("failed to encode message for %s: %w", target, err)
	}

	switch asset.Kind {
	case types.AssetKindNative, types.AssetKindIBC:
		return types.TradeInstruction{
			ContractAddress: target,
			Msg:             inner,
			Funds:           []types.Coin{{Denom: asset.Address, Amount: amount}},
		}, nil
	case types.AssetKindContractToken:
		var send cw20Send
		send.Send.Contract = target
		send.Send.Amount = amount
		send.Send.Msg = inner
		wrapped, err := json.Marshal(send)
		if err != nil {
			return types.TradeInstruction{}, err
		}
		return types.TradeInstruction{ContractAddress: asset.Address, Msg: wrapped}, nil
	default:
		return types.TradeInstruction{}, fmt.Errorf("%w: %s has kind %d", types.ErrUnknownAssetKind, asset.Symbol, int(asset.Kind))
	}
}

// call is a direct contract call with no funds.
func call(target string, msg any) (types.TradeInstruction, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return types.TradeInstruction{}, fmt.Errorf("failed to encode message for %s: %w", target, err)
	}
	return types.TradeInstruction{ContractAddress: target, Msg: raw}, nil
}
