package trade

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/types"
)

var (
	atom = types.AssetRef{Symbol: "ATOM", Address: "ibc/ATOM", Kind: types.AssetKindIBC, Decimals: 6}
	aura = types.AssetRef{Symbol: "AURA", Address: "uaura", Kind: types.AssetKindNative, Decimals: 6}
	usdc = types.AssetRef{Symbol: "USDC", Address: "aura1usdc", Kind: types.AssetKindContractToken, Decimals: 6}

	atomUSDC = types.Market{MarketID: "ATOM-USDC", BaseAsset: atom, QuoteAsset: usdc, ContractAddress: "aura1book"}
)

func dec(s string) sdkmath.LegacyDec { return sdkmath.LegacyMustNewDecFromStr(s) }

func TestParseSlippage(t *testing.T) {
	valid := map[string]string{
		"1/100":  "0.010000000000000000",
		"1%":     "0.010000000000000000",
		" 2 % ":  "0.020000000000000000",
		"0/1":    "0.000000000000000000",
		"1/3":    "0.333333333333333333",
		"0.5%":   "0.005000000000000000",
		"99/100": "0.990000000000000000",
	}
	for in, want := range valid {
		got, err := ParseSlippage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	for _, in := range []string{"", "1", "1/0", "100%", "1/1", "3/2", "-1%", "a/b", "x%"} {
		_, err := ParseSlippage(in)
		assert.ErrorIs(t, err, ErrInvalidSlippage, in)
	}
}

func TestBounds(t *testing.T) {
	assert.Equal(t, int64(990), MinimumReceive(sdkmath.NewInt(1000), dec("0.01")).Int64())
	assert.Equal(t, int64(510), MaximumInput(sdkmath.NewInt(500), dec("0.02")).Int64())

	// floor and ceil, never rounding toward the caller's disadvantage
	assert.Equal(t, int64(98), MinimumReceive(sdkmath.NewInt(99), dec("0.01")).Int64())
	assert.Equal(t, int64(100), MaximumInput(sdkmath.NewInt(99), dec("0.01")).Int64())
	assert.Equal(t, int64(7), MaximumInput(sdkmath.NewInt(7), sdkmath.LegacyZeroDec()).Int64())
}

type swapMsg struct {
	ExecuteSwapOperations struct {
		Operations     []json.RawMessage `json:"operations"`
		MinimumReceive string            `json:"minimum_receive"`
	} `json:"execute_swap_operations"`
}

func route(offer, ask types.AssetRef) []types.SwapOperation {
	o, _ := offer.Info()
	a, _ := ask.Info()
	return []types.SwapOperation{{Key: "halo_swap", OfferAssetInfo: o, AskAssetInfo: a}}
}

func TestBuildSwapNativeInput(t *testing.T) {
	ins, err := BuildSwap(Swap{
		Router:         "aura1router",
		Operations:     route(atom, usdc),
		Input:          atom,
		InputAmount:    sdkmath.NewInt(10_000_000),
		MinimumReceive: sdkmath.NewInt(59_400_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "aura1router", ins.ContractAddress)
	require.Len(t, ins.Funds, 1)
	assert.Equal(t, "ibc/ATOM", ins.Funds[0].Denom)
	assert.Equal(t, int64(10_000_000), ins.Funds[0].Amount.Int64())

	var msg swapMsg
	require.NoError(t, json.Unmarshal(ins.Msg, &msg))
	assert.Equal(t, "59400000", msg.ExecuteSwapOperations.MinimumReceive)
	require.Len(t, msg.ExecuteSwapOperations.Operations, 1)
	assert.JSONEq(t,
		`{"halo_swap":{"offer_asset_info":{"native_token":{"denom":"ibc/ATOM"}},"ask_asset_info":{"token":{"contract_addr":"aura1usdc"}}}}`,
		string(msg.ExecuteSwapOperations.Operations[0]))
}

func TestBuildSwapTokenInput(t *testing.T) {
	ins, err := BuildSwap(Swap{
		Router:         "aura1router",
		Operations:     route(usdc, atom),
		Input:          usdc,
		InputAmount:    sdkmath.NewInt(6_000_000),
		MinimumReceive: sdkmath.NewInt(990_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "aura1usdc", ins.ContractAddress, "cw20 input goes through the token contract")
	assert.Empty(t, ins.Funds)

	var send struct {
		Send struct {
			Contract string `json:"contract"`
			Amount   string `json:"amount"`
			Msg      string `json:"msg"`
		} `json:"send"`
	}
	require.NoError(t, json.Unmarshal(ins.Msg, &send))
	assert.Equal(t, "aura1router", send.Send.Contract)
	assert.Equal(t, "6000000", send.Send.Amount)

	inner, err := base64.StdEncoding.DecodeString(send.Send.Msg)
	require.NoError(t, err)
	var msg swapMsg
	require.NoError(t, json.Unmarshal(inner, &msg))
	assert.Equal(t, "990000", msg.ExecuteSwapOperations.MinimumReceive)
}

func TestBuildSwapRejects(t *testing.T) {
	base := Swap{Router: "r", Operations: route(atom, usdc), Input: atom, InputAmount: sdkmath.NewInt(1)}

	s := base
	s.Router = ""
	_, err := BuildSwap(s)
	assert.ErrorIs(t, err, ErrInvalidSwap)

	s = base
	s.InputAmount = sdkmath.ZeroInt()
	_, err = BuildSwap(s)
	assert.ErrorIs(t, err, ErrInvalidSwap)

	s = base
	s.Operations = nil
	_, err = BuildSwap(s)
	assert.ErrorIs(t, err, ErrInvalidSwap)

	s = base
	s.Input.Kind = types.AssetKind(99)
	_, err = BuildSwap(s)
	assert.ErrorIs(t, err, types.ErrUnknownAssetKind)
}

type submitMsg struct {
	SubmitOrder struct {
		Assets []struct {
			Info   json.RawMessage `json:"info"`
			Amount string          `json:"amount"`
		} `json:"assets"`
		Direction string `json:"direction"`
	} `json:"submit_order"`
}

func TestSubmitSell(t *testing.T) {
	b, err := NewOrderBuilder(DefaultDecimalScale)
	require.NoError(t, err)

	ins, err := b.Submit(OrderParams{Market: atomUSDC, Side: types.SideSell, Amount: dec("1.5"), Price: dec("6.25")})
	require.NoError(t, err)
	assert.Equal(t, "aura1book", ins.ContractAddress)
	require.Len(t, ins.Funds, 1, "sell is funded in base, which is a bank denom")
	assert.Equal(t, "ibc/ATOM", ins.Funds[0].Denom)
	assert.Equal(t, int64(1_500_000), ins.Funds[0].Amount.Int64())

	var msg submitMsg
	require.NoError(t, json.Unmarshal(ins.Msg, &msg))
	assert.Equal(t, "sell", msg.SubmitOrder.Direction)
	require.Len(t, msg.SubmitOrder.Assets, 2)
	assert.Equal(t, "1500000", msg.SubmitOrder.Assets[0].Amount)
	assert.Equal(t, "9375000", msg.SubmitOrder.Assets[1].Amount)
	assert.JSONEq(t, `{"native_token":{"denom":"ibc/ATOM"}}`, string(msg.SubmitOrder.Assets[0].Info))
}

func TestSubmitBuyWrapsToken(t *testing.T) {
	b, err := NewOrderBuilder(DefaultDecimalScale)
	require.NoError(t, err)

	ins, err := b.Submit(OrderParams{Market: atomUSDC, Side: types.SideBuy, Amount: dec("2"), Price: dec("0.1234567")})
	require.NoError(t, err)
	assert.Equal(t, "aura1usdc", ins.ContractAddress, "buy is funded in quote, a cw20")
	assert.Empty(t, ins.Funds)

	var send struct {
		Send struct {
			Contract string `json:"contract"`
			Amount   string `json:"amount"`
			Msg      []byte `json:"msg"`
		} `json:"send"`
	}
	require.NoError(t, json.Unmarshal(ins.Msg, &send))
	assert.Equal(t, "aura1book", send.Send.Contract)
	assert.Equal(t, "246913", send.Send.Amount, "0.2469134 * 1e6 rounds to nearest")

	var msg submitMsg
	require.NoError(t, json.Unmarshal(send.Send.Msg, &msg))
	assert.Equal(t, "buy", msg.SubmitOrder.Direction)
	assert.Equal(t, "2000000", msg.SubmitOrder.Assets[0].Amount)
}

func TestSubmitRejects(t *testing.T) {
	b, err := NewOrderBuilder(DefaultDecimalScale)
	require.NoError(t, err)

	cases := []OrderParams{
		{Market: atomUSDC, Side: types.SideBuy, Amount: sdkmath.LegacyZeroDec(), Price: dec("1")},
		{Market: atomUSDC, Side: types.SideBuy, Amount: dec("1"), Price: sdkmath.LegacyZeroDec()},
		{Market: atomUSDC, Side: types.SideBuy, Amount: dec("0.0000001"), Price: dec("1")},
		{Market: atomUSDC, Side: "HOLD", Amount: dec("1"), Price: dec("1")},
	}
	for i, p := range cases {
		_, err := b.Submit(p)
		assert.ErrorIs(t, err, ErrInvalidOrder, "case %d", i)
	}

	_, err = NewOrderBuilder(-1)
	assert.Error(t, err)
}

func TestCancelAndBatch(t *testing.T) {
	b, err := NewOrderBuilder(DefaultDecimalScale)
	require.NoError(t, err)

	auraUSDC := types.Market{MarketID: "AURA-USDC", BaseAsset: aura, QuoteAsset: usdc, ContractAddress: "aura1book"}

	batch, err := b.Batch(
		[]OrderParams{
			{Market: auraUSDC, Side: types.SideSell, Amount: dec("3"), Price: dec("1")},
			{Market: atomUSDC, Side: types.SideSell, Amount: dec("1"), Price: dec("6")},
		},
		[]CancelParams{{Market: atomUSDC, OrderID: 17}, {Market: auraUSDC, OrderID: 4}},
	)
	require.NoError(t, err)
	require.Len(t, batch, 4)

	assert.JSONEq(t,
		`{"cancel_order":{"asset_infos":[{"native_token":{"denom":"ibc/ATOM"}},{"token":{"contract_addr":"aura1usdc"}}],"order_id":17}}`,
		string(batch[0].Msg))
	assert.Empty(t, batch[0].Funds)
	assert.Contains(t, string(batch[1].Msg), `"order_id":4`)
	assert.Equal(t, "uaura", batch[2].Funds[0].Denom)
	assert.Equal(t, "ibc/ATOM", batch[3].Funds[0].Denom)

	_, err = b.Batch(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}
