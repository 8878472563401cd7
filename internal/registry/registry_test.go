package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/chain/chaintest"
	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/types"
)

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load(context.Background(), filepath.Join("testdata", "tokens.json"), config.TokenListFile)
	require.NoError(t, err)
	return reg
}

func TestLoadFile(t *testing.T) {
	reg := loadTestRegistry(t)

	atom, err := reg.Token("atom")
	require.NoError(t, err, "symbol lookup ignores case")
	assert.Equal(t, types.AssetKindIBC, atom.Kind)
	assert.Equal(t, uint8(6), atom.Decimals)

	usdc, ok := reg.TokenByAddress("aura1usdccontract")
	require.True(t, ok)
	assert.Equal(t, types.AssetKindContractToken, usdc.Kind)

	_, err = reg.Token("DOGE")
	assert.ErrorIs(t, err, ErrUnknownAsset)

	assert.Len(t, reg.Tokens(), 3)
	assert.Len(t, reg.Pools(), 1)
}

func TestPoolLookupEitherOrientation(t *testing.T) {
	reg := loadTestRegistry(t)

	p, err := reg.Pool("ATOM", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "aura1pool", p.ContractAddress)

	reversed, err := reg.Pool("usdc", "atom")
	require.NoError(t, err)
	assert.Equal(t, p, reversed)

	_, err = reg.Pool("AURA", "USDC")
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	_, err := Build(&File{Tokens: []TokenEntry{{Address: "uaura", Symbol: "AURA", Type: "erc20", Decimals: 6}}})
	assert.ErrorIs(t, err, types.ErrUnknownAssetKind)
}

func TestBuildRejectsBadEntries(t *testing.T) {
	_, err := Build(&File{Tokens: []TokenEntry{
		{Address: "uaura", Symbol: "AURA", Type: "native"},
		{Address: "uaura2", Symbol: "aura", Type: "native"},
	}})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = Build(&File{
		Tokens: []TokenEntry{{Address: "uaura", Symbol: "AURA", Type: "native"}},
		Pools:  []PoolEntry{{Name: "AURA-X", Address: "aura1pool", Asset1Address: "uaura", Asset2Address: "ux"}},
	})
	assert.ErrorIs(t, err, ErrUnknownAsset)

	_, err = Build(&File{Tokens: []TokenEntry{{Address: "uatom", Symbol: "ATOM", Type: "ibc"}}})
	assert.Error(t, err, "ibc tokens must carry an ibc/ denom")
}

func TestParseBareArray(t *testing.T) {
	f, err := Parse([]byte(`[{"address":"uaura","decimals":6,"symbol":"AURA","type":"native"}]`))
	require.NoError(t, err)
	require.Len(t, f.Tokens, 1)
	assert.Empty(t, f.Pools)
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join("testdata", "tokens.json"))
	}))
	defer srv.Close()

	reg, err := Load(context.Background(), srv.URL, config.TokenListURL)
	require.NoError(t, err)
	assert.Len(t, reg.Tokens(), 3)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer failing.Close()
	_, err = Load(context.Background(), failing.URL, config.TokenListURL)
	assert.Error(t, err)
}

func TestFetchMarkets(t *testing.T) {
	reg := loadTestRegistry(t)
	mock := &chaintest.Mock{
		Query: func(contract string, q map[string]json.RawMessage) (any, error) {
			switch {
			case contract == "aura1orderbook" && q["order_books"] != nil:
				return map[string]any{
					"order_books": []map[string]any{
						{
							"base_coin_info":        map[string]any{"native_token": map[string]string{"denom": "uaura"}},
							"quote_coin_info":       map[string]any{"token": map[string]string{"contract_addr": "aura1usdccontract"}},
							"min_quote_coin_amount": "10",
							"spread":                "0.5",
						},
						{
							"base_coin_info":        map[string]any{"token": map[string]string{"contract_addr": "aura1newtoken"}},
							"quote_coin_info":       map[string]any{"token": map[string]string{"contract_addr": "aura1usdccontract"}},
							"min_quote_coin_amount": "0",
							"spread":                nil,
						},
					},
				}, nil
			case contract == "aura1newtoken" && q["token_info"] != nil:
				return map[string]any{"name": "New", "symbol": "NEW", "decimals": 8, "total_supply": "1"}, nil
			}
			return nil, errors.New("unexpected query")
		},
	}

	markets, err := FetchMarkets(context.Background(), mock, reg, "aura1orderbook")
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, "AURA-USDC", markets[0].MarketID)
	assert.True(t, markets[0].Spread.Equal(sdkmath.LegacyNewDecWithPrec(5, 1)))
	assert.Equal(t, sdkmath.NewInt(10), markets[0].MinQuoteCoinAmount)

	assert.Equal(t, "NEW-USDC", markets[1].MarketID)
	assert.Equal(t, uint8(8), markets[1].BaseAsset.Decimals)
	assert.True(t, markets[1].Spread.IsZero())

	withMarkets, err := reg.WithMarkets(markets)
	require.NoError(t, err)
	m, err := withMarkets.Market("aura-usdc")
	require.NoError(t, err)
	assert.Equal(t, "aura1orderbook", m.ContractAddress)

	_, err = reg.Market("AURA-USDC")
	assert.ErrorIs(t, err, ErrUnknownMarket, "the original registry is not mutated")

	_, err = withMarkets.WithMarkets(append(markets, markets[0]))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFetchMarketsWarnsOnUnlistedDenom(t *testing.T) {
	var logs bytes.Buffer
	prev := registryLogger
	registryLogger = zerolog.New(&logs)
	t.Cleanup(func() { registryLogger = prev })

	reg := loadTestRegistry(t)
	mock := &chaintest.Mock{
		Query: func(string, map[string]json.RawMessage) (any, error) {
			return map[string]any{
				"order_books": []map[string]any{{
					"base_coin_info":        map[string]any{"native_token": map[string]string{"denom": "ibc/UNLISTED"}},
					"quote_coin_info":       map[string]any{"token": map[string]string{"contract_addr": "aura1usdccontract"}},
					"min_quote_coin_amount": "0",
				}},
			}, nil
		},
	}

	markets, err := FetchMarkets(context.Background(), mock, reg, "aura1orderbook")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, uint8(defaultDecimals), markets[0].BaseAsset.Decimals)
	assert.Equal(t, types.AssetKindIBC, markets[0].BaseAsset.Kind)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"denom":"ibc/UNLISTED"`)
}
