package pricing

import (
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/types"
)

var (
	atom = types.AssetRef{Symbol: "ATOM", Address: "ibc/ATOM", Kind: types.AssetKindIBC, Decimals: 6}
	usdc = types.AssetRef{Symbol: "USDC", Address: "aura1usdc", Kind: types.AssetKindContractToken, Decimals: 6}
	wbtc = types.AssetRef{Symbol: "WBTC", Address: "aura1wbtc", Kind: types.AssetKindContractToken, Decimals: 8}

	atomUSDC = types.Pool{ID: "ATOM-USDC", AssetA: atom, AssetB: usdc, ContractAddress: "aura1pool"}
	wbtcUSDC = types.Pool{ID: "WBTC-USDC", AssetA: wbtc, AssetB: usdc, ContractAddress: "aura1btcpool"}

	market = types.Market{MarketID: "ATOM-USDC", BaseAsset: atom, QuoteAsset: usdc, ContractAddress: "aura1book"}
)

func reserves(pairs ...any) map[string]any {
	assets := make([]types.Asset, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		ref := pairs[i].(types.AssetRef)
		info, _ := ref.Info()
		assets = append(assets, types.Asset{Info: info, Amount: sdkmath.NewInt(pairs[i+1].(int64))})
	}
	return map[string]any{"assets": assets, "total_share": "1"}
}

func body(t *testing.T, q map[string]json.RawMessage, key string, out any) {
	t.Helper()
	raw, ok := q[key]
	require.True(t, ok, "query %s expected, got %v", key, q)
	require.NoError(t, json.Unmarshal(raw, out))
}
