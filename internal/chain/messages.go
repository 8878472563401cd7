package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"

	"github.com/elys-network/cwgateway/internal/types"
)

// InstructionsToMessages converts trade instructions into MsgExecuteContract
// messages sent by sender, preserving order.
func InstructionsToMessages(sender string, instructions []types.TradeInstruction) ([]sdk.Msg, error) {
	if sender == "" {
		return nil, errors.New("sender cannot be empty")
	}
	if len(instructions) == 0 {
		return nil, errors.New("instructions cannot be empty")
	}

	msgs := make([]sdk.Msg, 0, len(instructions))
	for i, in := range instructions {
		if in.ContractAddress == "" {
			return nil, fmt.Errorf("instruction %d: contract address cannot be empty", i)
		}
		if !json.Valid(in.Msg) {
			return nil, fmt.Errorf("instruction %d: message is not valid JSON", i)
		}

		funds, err := toSDKCoins(in.Funds)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}

		msgs = append(msgs, &wasmtypes.MsgExecuteContract{
			Sender:   sender,
			Contract: in.ContractAddress,
			Msg:      wasmtypes.RawContractMessage(in.Msg),
			Funds:    funds,
		})
	}
	return msgs, nil
}

// toSDKCoins sorts and validates funds. Duplicate denoms are summed.
func toSDKCoins(funds []types.Coin) (sdk.Coins, error) {
	if len(funds) == 0 {
		return sdk.Coins{}, nil
	}
	coins := sdk.Coins{}
	for _, f := range funds {
		if f.Amount.IsNil() || !f.Amount.IsPositive() {
			return nil, fmt.Errorf("funds amount for %s must be positive", f.Denom)
		}
		c := sdk.Coin{Denom: f.Denom, Amount: f.Amount}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid funds: %w", err)
		}
		coins = coins.Add(c)
	}
	return coins, nil
}
