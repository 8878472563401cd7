/*

Liquidity venues: AMM pools and order-book markets. Both are loaded once at
start-up and never mutated. Pool reserves and order-book depth are not part of
these types; they are read from chain on every request.

*/

package types

import (
	"encoding/json"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// VenueID is the "BASE-QUOTE" key used for both pools and markets.
func VenueID(base, quote string) string {
	return base + "-" + quote
}

type Pool struct {
	ID              string   `json:"id"` // e.g., "ATOM-USDC"
	AssetA          AssetRef `json:"asset_a"`
	AssetB          AssetRef `json:"asset_b"`
	ContractAddress string   `json:"contract_address"`
}

// Has reports whether the pool trades the asset.
func (p Pool) Has(a AssetRef) bool {
	return p.AssetA.Address == a.Address || p.AssetB.Address == a.Address
}

type MarketFees struct {
	Maker sdkmath.LegacyDec `json:"maker"`
	Taker sdkmath.LegacyDec `json:"taker"`
}

type Market struct {
	MarketID                    string            `json:"marketId"` // e.g., "ORAI-USDT"
	BaseAsset                   AssetRef          `json:"baseToken"`
	QuoteAsset                  AssetRef          `json:"quoteToken"`
	ContractAddress             string            `json:"contractAddress"`
	Fees                        MarketFees        `json:"fees"`
	MinQuoteCoinAmount          sdkmath.Int       `json:"min_quote_coin_amount"`
	Spread                      sdkmath.LegacyDec `json:"spread"`
	MinimumOrderSize            sdkmath.LegacyDec `json:"minimumOrderSize"`
	MinimumPriceIncrement       sdkmath.LegacyDec `json:"minimumPriceIncrement"`
	MinimumBaseAmountIncrement  sdkmath.LegacyDec `json:"minimumBaseAmountIncrement"`
	MinimumQuoteAmountIncrement sdkmath.LegacyDec `json:"minimumQuoteAmountIncrement"`
}

// AssetInfos returns the [base, quote] pair order-book queries are keyed by.
func (m Market) AssetInfos() ([2]AssetInfo, error) {
	base, err := m.BaseAsset.Info()
	if err != nil {
		return [2]AssetInfo{}, err
	}
	quote, err := m.QuoteAsset.Info()
	if err != nil {
		return [2]AssetInfo{}, err
	}
	return [2]AssetInfo{base, quote}, nil
}

// SwapOperation is one hop of a router route. Routers name the variant after
// the AMM they wrap ("halo_swap", "orai_swap"), so the key is carried along.
type SwapOperation struct {
	Key            string
	OfferAssetInfo AssetInfo
	AskAssetInfo   AssetInfo
}

type swapAssets struct {
	OfferAssetInfo AssetInfo `json:"offer_asset_info"`
	AskAssetInfo   AssetInfo `json:"ask_asset_info"`
}

func (o SwapOperation) MarshalJSON() ([]byte, error) {
	if o.Key == "" {
		return nil, errors.New("swap operation key cannot be empty")
	}
	return json.Marshal(map[string]swapAssets{
		o.Key: {OfferAssetInfo: o.OfferAssetInfo, AskAssetInfo: o.AskAssetInfo},
	})
}

func (o *SwapOperation) UnmarshalJSON(b []byte) error {
	var m map[string]swapAssets
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("swap operation must have exactly one variant, got %d", len(m))
	}
	for k, v := range m {
		o.Key = k
		o.OfferAssetInfo = v.OfferAssetInfo
		o.AskAssetInfo = v.AskAssetInfo
	}
	return nil
}
