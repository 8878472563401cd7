package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

var pricingLogger = logger.GetForComponent("pricing")

// AMM prices trades against constant-function pools and their router.
type AMM struct {
	client  chain.Client
	router  string
	swapKey string
}

func NewAMM(client chain.Client, router, swapKey string) *AMM {
	return &AMM{client: client, router: router, swapKey: swapKey}
}

func (a *AMM) Router() string { return a.router }

// ReserveQuote is the spot price implied by pool reserves.
type ReserveQuote struct {
	Pool           types.Pool
	BaseReserve    sdkmath.Int
	QuoteReserve   sdkmath.Int
	Price          sdkmath.LegacyDec // quote per base, human units
	ExpectedAmount sdkmath.LegacyDec // price * amount, human quote units
}

type poolQuery struct {
	Pool struct{} `json:"pool"`
}

type poolResponse struct {
	Assets     []types.Asset `json:"assets"`
	TotalShare *sdkmath.Int  `json:"total_share,omitempty"`
}

// PoolPrice computes price = reserve(quote)/reserve(base) * 10^(decBase - decQuote)
// and expectedAmount = price * amount, for both trade sides.
func (a *AMM) PoolPrice(ctx context.Context, pool types.Pool, base, quote types.AssetRef, amount sdkmath.LegacyDec) (*ReserveQuote, error) {
	if !pool.Has(base) || !pool.Has(quote) {
		return nil, fmt.Errorf("pool %s does not trade %s-%s", pool.ID, base.Symbol, quote.Symbol)
	}

	var raw json.RawMessage
	if err := a.client.QueryContractSmart(ctx, pool.ContractAddress, poolQuery{}, &raw); err != nil {
		return nil, fmt.Errorf("failed to query pool %s: %w", pool.ID, err)
	}
	var res poolResponse
	if err := decode(raw, &res, "pool"); err != nil {
		return nil, err
	}

	baseReserve, quoteReserve := sdkmath.ZeroInt(), sdkmath.ZeroInt()
	for _, asset := range res.Assets {
		if err := asset.Info.Validate(); err != nil {
			return nil, fmt.Errorf("%w: pool %s asset: %w", ErrVenueData, pool.ID, err)
		}
		if asset.Amount.IsNil() || asset.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: pool %s reserve for %s is invalid", ErrVenueData, pool.ID, asset.Info.Identifier())
		}
		switch {
		case base.Matches(asset.Info):
			baseReserve = asset.Amount
		case quote.Matches(asset.Info):
			quoteReserve = asset.Amount
		}
	}
	if baseReserve.IsZero() || quoteReserve.IsZero() {
		return nil, fmt.Errorf("%w: pool %s has an empty reserve", ErrNoRoute, pool.ID)
	}

	shift, err := utils.DecimalShift(int(base.Decimals) - int(quote.Decimals))
	if err != nil {
		return nil, err
	}
	price := sdkmath.LegacyNewDecFromInt(quoteReserve).
		QuoInt(baseReserve).
		Mul(shift)

	pricingLogger.Debug().
		Str("pool", pool.ID).
		Str("baseReserve", baseReserve.String()).
		Str("quoteReserve", quoteReserve.String()).
		Str("price", price.String()).
		Msg("Pool reserve price computed")

	return &ReserveQuote{
		Pool:           pool,
		BaseReserve:    baseReserve,
		QuoteReserve:   quoteReserve,
		Price:          price,
		ExpectedAmount: price.Mul(amount),
	}, nil
}

// Operations returns the single-hop route from offer to ask.
func (a *AMM) Operations(offer, ask types.AssetRef) ([]types.SwapOperation, error) {
	offerInfo, err := offer.Info()
	if err != nil {
		return nil, err
	}
	askInfo, err := ask.Info()
	if err != nil {
		return nil, err
	}
	return []types.SwapOperation{{Key: a.swapKey, OfferAssetInfo: offerInfo, AskAssetInfo: askInfo}}, nil
}

type simulateQuery struct {
	SimulateSwapOperations *simulateBody `json:"simulate_swap_operations,omitempty"`
	ReverseSimulate        *reverseBody  `json:"reverse_simulate_swap_operations,omitempty"`
}

type simulateBody struct {
	Operations  []types.SwapOperation `json:"operations"`
	OfferAmount sdkmath.Int           `json:"offer_amount"`
}

type reverseBody struct {
	Operations []types.SwapOperation `json:"operations"`
	AskAmount  sdkmath.Int           `json:"ask_amount"`
}

type simulateResponse struct {
	Amount sdkmath.Int `json:"amount"`
}

// Simulate runs the router forward: offerAmount of offer in, ask out.
func (a *AMM) Simulate(ctx context.Context, offer, ask types.AssetRef, offerAmount sdkmath.Int) (*types.TradeEstimate, error) {
	ops, err := a.Operations(offer, ask)
	if err != nil {
		return nil, err
	}
	out, err := a.simulate(ctx, simulateQuery{SimulateSwapOperations: &simulateBody{Operations: ops, OfferAmount: offerAmount}}, offer, ask)
	if err != nil {
		return nil, err
	}
	price, err := humanRatio(out, ask.Decimals, offerAmount, offer.Decimals)
	if err != nil {
		return nil, err
	}
	venueData, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	return &types.TradeEstimate{
		InputAsset:           offer,
		OutputAsset:          ask,
		InputAmount:          offerAmount,
		ExpectedOutputAmount: out,
		EffectivePrice:       price,
		TradeByTarget:        false,
		VenueData:            venueData,
	}, nil
}

// ReverseSimulate runs the router backwards: how much offer buys askAmount of ask.
func (a *AMM) ReverseSimulate(ctx context.Context, offer, ask types.AssetRef, askAmount sdkmath.Int) (*types.TradeEstimate, error) {
	ops, err := a.Operations(offer, ask)
	if err != nil {
		return nil, err
	}
	in, err := a.simulate(ctx, simulateQuery{ReverseSimulate: &reverseBody{Operations: ops, AskAmount: askAmount}}, offer, ask)
	if err != nil {
		return nil, err
	}
	price, err := humanRatio(in, offer.Decimals, askAmount, ask.Decimals)
	if err != nil {
		return nil, err
	}
	venueData, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	return &types.TradeEstimate{
		InputAsset:           offer,
		OutputAsset:          ask,
		InputAmount:          in,
		ExpectedOutputAmount: askAmount,
		EffectivePrice:       price,
		TradeByTarget:        true,
		VenueData:            venueData,
	}, nil
}

func (a *AMM) simulate(ctx context.Context, q simulateQuery, offer, ask types.AssetRef) (sdkmath.Int, error) {
	if a.router == "" {
		return sdkmath.Int{}, errors.New("no router configured")
	}
	var raw json.RawMessage
	if err := a.client.QueryContractSmart(ctx, a.router, q, &raw); err != nil {
		if routeMissing(err) {
			return sdkmath.Int{}, errors.Join(fmt.Errorf("%w: %s to %s", ErrNoRoute, offer.Symbol, ask.Symbol), err)
		}
		return sdkmath.Int{}, fmt.Errorf("router simulation %s to %s failed: %w", offer.Symbol, ask.Symbol, err)
	}
	var res simulateResponse
	if err := decode(raw, &res, "simulation"); err != nil {
		return sdkmath.Int{}, err
	}
	if res.Amount.IsNil() || !res.Amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: router returned no amount for %s to %s", ErrNoRoute, offer.Symbol, ask.Symbol)
	}
	return res.Amount, nil
}

// humanRatio is (counter / 10^counterDec) / (principal / 10^principalDec).
func humanRatio(counter sdkmath.Int, counterDec uint8, principal sdkmath.Int, principalDec uint8) (sdkmath.LegacyDec, error) {
	if principal.IsNil() || !principal.IsPositive() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: zero principal amount", ErrNoRoute)
	}
	shift, err := utils.DecimalShift(int(principalDec) - int(counterDec))
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return sdkmath.LegacyNewDecFromInt(counter).QuoInt(principal).Mul(shift), nil
}
