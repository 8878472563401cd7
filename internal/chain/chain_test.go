package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"

	"github.com/elys-network/cwgateway/internal/types"
)

var testPrivKey = bytes.Repeat([]byte{0x42}, 32)

func TestNewWalletDerivesAddress(t *testing.T) {
	w, err := NewWallet(testPrivKey, "aura")
	require.NoError(t, err)
	assert.Equal(t, "aura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh", w.Address())

	o, err := NewWallet(testPrivKey, "orai")
	require.NoError(t, err)
	assert.Equal(t, "orai1znd5zwx4dghvlvggsx5muw2dnuepnpdj3n756a", o.Address())
	assert.Equal(t, w.AccAddress(), o.AccAddress())

	_, err = NewWallet(testPrivKey[:31], "aura")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestWalletZero(t *testing.T) {
	key := append([]byte(nil), testPrivKey...)
	w, err := NewWallet(key, "aura")
	require.NoError(t, err)
	w.Zero()
	assert.Equal(t, make([]byte, 32), w.priv.Key)
	assert.Equal(t, testPrivKey, key, "caller's slice is not aliased")
}

func TestInstructionsToMessages(t *testing.T) {
	instructions := []types.TradeInstruction{
		{
			ContractAddress: "aura1router",
			Msg:             json.RawMessage(`{"execute_swap_operations":{}}`),
			Funds: []types.Coin{
				{Denom: "uaura", Amount: sdkmath.NewInt(5)},
				{Denom: "ibc/ABC", Amount: sdkmath.NewInt(7)},
			},
		},
		{
			ContractAddress: "aura1token",
			Msg:             json.RawMessage(`{"send":{}}`),
		},
	}

	msgs, err := InstructionsToMessages("aura1sender", instructions)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first, ok := msgs[0].(*wasmtypes.MsgExecuteContract)
	require.True(t, ok)
	assert.Equal(t, "aura1sender", first.Sender)
	assert.Equal(t, "aura1router", first.Contract)
	assert.JSONEq(t, `{"execute_swap_operations":{}}`, string(first.Msg))
	require.Len(t, first.Funds, 2)
	assert.Equal(t, "ibc/ABC", first.Funds[0].Denom, "funds are sorted by denom")

	second := msgs[1].(*wasmtypes.MsgExecuteContract)
	assert.Equal(t, "aura1token", second.Contract)
	assert.Empty(t, second.Funds)
}

func TestInstructionsToMessagesRejects(t *testing.T) {
	_, err := InstructionsToMessages("aura1sender", nil)
	assert.Error(t, err)

	_, err = InstructionsToMessages("aura1sender", []types.TradeInstruction{{ContractAddress: "c", Msg: json.RawMessage(`{`)}})
	assert.Error(t, err)

	_, err = InstructionsToMessages("aura1sender", []types.TradeInstruction{{
		ContractAddress: "c",
		Msg:             json.RawMessage(`{}`),
		Funds:           []types.Coin{{Denom: "uaura", Amount: sdkmath.ZeroInt()}},
	}})
	assert.Error(t, err)
}

func TestBroadcastTimeoutError(t *testing.T) {
	var err error = &BroadcastTimeoutError{TxHash: "ABC", Timeout: 8 * time.Second}
	wrapped := fmt.Errorf("trade: %w", err)

	assert.ErrorIs(t, wrapped, ErrBroadcastTimeout)
	var bte *BroadcastTimeoutError
	require.True(t, errors.As(wrapped, &bte))
	assert.Equal(t, "ABC", bte.TxHash)
	assert.Contains(t, err.Error(), "ABC")
}

func TestClassifyRejection(t *testing.T) {
	err := classifyRejection(5, "failed to execute message; message index: 0: Operation exceeds max spread limit")
	assert.ErrorIs(t, err, ErrTxRejected)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	err = classifyRejection(5, "Assertion failed; minimum receive amount: 59400000")
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	err = classifyRejection(13, "insufficient fee")
	assert.ErrorIs(t, err, ErrTxRejected)
	assert.NotErrorIs(t, err, ErrSlippageExceeded)
}

func TestMakeEncodingConfig(t *testing.T) {
	enc, err := MakeEncodingConfig("aura")
	require.NoError(t, err)

	msgs, err := InstructionsToMessages("aura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh", []types.TradeInstruction{{
		ContractAddress: "aura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh",
		Msg:             json.RawMessage(`{"noop":{}}`),
	}})
	require.NoError(t, err)

	builder := enc.TxConfig.NewTxBuilder()
	require.NoError(t, builder.SetMsgs(msgs...))
	builder.SetMemo("swap from cwgateway")

	bz, err := enc.TxConfig.TxEncoder()(builder.GetTx())
	require.NoError(t, err)

	decoded, err := enc.TxConfig.TxDecoder()(bz)
	require.NoError(t, err)
	require.Len(t, decoded.GetMsgs(), 1)
	_, ok := decoded.GetMsgs()[0].(*wasmtypes.MsgExecuteContract)
	assert.True(t, ok)

	_, err = MakeEncodingConfig("")
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	valid := Options{
		ChainID:          "euphoria-2",
		Bech32Prefix:     "aura",
		DefaultGasLimit:  500000,
		GasAdjustment:    1.5,
		GasPriceAmount:   "0.025",
		GasPriceDenom:    "ueaura",
		QueryTimeout:     10 * time.Second,
		BroadcastTimeout: 8 * time.Second,
		PollInterval:     300 * time.Millisecond,
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "0.025ueaura", valid.gasPrice())

	bad := valid
	bad.GasAdjustment = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.GasPriceAmount = "cheap"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.ChainID = ""
	assert.Error(t, bad.Validate())
}

func TestFeeAndGasAdjustment(t *testing.T) {
	s := &SigningClient{opts: Options{GasAdjustment: 1.5, GasPriceAmount: "0.025"}}
	assert.Equal(t, uint64(160000), s.adjustGas(100000))
	assert.Equal(t, sdkmath.NewInt(4000), s.fee(160000))
	assert.Equal(t, sdkmath.NewInt(1), s.fee(1), "fees round up")
}
