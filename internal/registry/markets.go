package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/types"
)

// defaultDecimals is assumed for native denoms missing from the token list.
const defaultDecimals = 6

type orderBooksQuery struct {
	OrderBooks struct{} `json:"order_books"`
}

type orderBookInfo struct {
	BaseCoinInfo       types.AssetInfo `json:"base_coin_info"`
	QuoteCoinInfo      types.AssetInfo `json:"quote_coin_info"`
	MinQuoteCoinAmount sdkmath.Int     `json:"min_quote_coin_amount"`
	Spread             *string         `json:"spread"`
}

type orderBooksResponse struct {
	OrderBooks []orderBookInfo `json:"order_books"`
}

type tokenInfoQuery struct {
	TokenInfo struct{} `json:"token_info"`
}

type tokenInfoResponse struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Order-book contracts charge a fixed fee and accept six-decimal steps.
var (
	defaultMarketFee = sdkmath.LegacyNewDecWithPrec(1, 1)
	defaultIncrement = sdkmath.LegacyNewDecWithPrec(1, 6)
)

// FetchMarkets reads every order book pair from the limit order contract.
// Assets missing from the registry are resolved through token_info for CW20s
// or taken as-is for native denoms.
func FetchMarkets(ctx context.Context, client chain.Client, reg *Registry, orderBookAddress string) ([]types.Market, error) {
	if orderBookAddress == "" {
		return nil, errors.New("order book address cannot be empty")
	}

	var res orderBooksResponse
	if err := client.QueryContractSmart(ctx, orderBookAddress, orderBooksQuery{}, &res); err != nil {
		return nil, fmt.Errorf("failed to query order books: %w", err)
	}

	markets := make([]types.Market, 0, len(res.OrderBooks))
	for i, ob := range res.OrderBooks {
		base, err := resolveAsset(ctx, client, reg, ob.BaseCoinInfo)
		if err != nil {
			return nil, fmt.Errorf("order book %d base asset: %w", i, err)
		}
		quote, err := resolveAsset(ctx, client, reg, ob.QuoteCoinInfo)
		if err != nil {
			return nil, fmt.Errorf("order book %d quote asset: %w", i, err)
		}

		spread := sdkmath.LegacyZeroDec()
		if ob.Spread != nil && *ob.Spread != "" {
			if spread, err = sdkmath.LegacyNewDecFromStr(*ob.Spread); err != nil {
				return nil, fmt.Errorf("order book %s-%s spread: %w", base.Symbol, quote.Symbol, err)
			}
		}
		minQuote := ob.MinQuoteCoinAmount
		if minQuote.IsNil() {
			minQuote = sdkmath.ZeroInt()
		}

		markets = append(markets, types.Market{
			MarketID:                    types.VenueID(base.Symbol, quote.Symbol),
			BaseAsset:                   base,
			QuoteAsset:                  quote,
			ContractAddress:             orderBookAddress,
			Fees:                        types.MarketFees{Maker: defaultMarketFee, Taker: defaultMarketFee},
			MinQuoteCoinAmount:          minQuote,
			Spread:                      spread,
			MinimumOrderSize:            defaultIncrement,
			MinimumPriceIncrement:       defaultIncrement,
			MinimumBaseAmountIncrement:  defaultIncrement,
			MinimumQuoteAmountIncrement: defaultIncrement,
		})
	}

	registryLogger.Info().
		Str("orderBook", orderBookAddress).
		Int("markets", len(markets)).
		Msg("Order book markets loaded")

	return markets, nil
}

func resolveAsset(ctx context.Context, client chain.Client, reg *Registry, info types.AssetInfo) (types.AssetRef, error) {
	if err := info.Validate(); err != nil {
		return types.AssetRef{}, err
	}
	id := info.Identifier()
	if t, ok := reg.TokenByAddress(id); ok {
		return t, nil
	}

	if info.IsNative() {
		kind := types.AssetKindNative
		if strings.HasPrefix(id, "ibc/") {
			kind = types.AssetKindIBC
		}
		registryLogger.Warn().
			Str("denom", id).
			Int("decimals", defaultDecimals).
			Msg("Native denom missing from token list, assuming default decimals")
		return types.AssetRef{Symbol: id, Name: id, Address: id, Kind: kind, Decimals: defaultDecimals}, nil
	}

	var ti tokenInfoResponse
	if err := client.QueryContractSmart(ctx, id, tokenInfoQuery{}, &ti); err != nil {
		return types.AssetRef{}, fmt.Errorf("failed to query token_info of %s: %w", id, err)
	}
	if ti.Symbol == "" {
		return types.AssetRef{}, fmt.Errorf("token_info of %s has no symbol", id)
	}
	return types.AssetRef{
		Symbol:   ti.Symbol,
		Name:     ti.Name,
		Address:  id,
		Kind:     types.AssetKindContractToken,
		Decimals: ti.Decimals,
	}, nil
}
