package executor

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

// pair is a validated base/quote request against one pool.
type pair struct {
	base, quote types.AssetRef
	pool        types.Pool
	side        types.Side
	amount      sdkmath.LegacyDec // human units of base
	baseAmount  sdkmath.Int
}

func (e *Executor) resolvePair(baseSym, quoteSym, amount string, side types.Side) (*pair, error) {
	if side != types.SideBuy && side != types.SideSell {
		return nil, fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidRequest)
	}
	base, err := e.registry.Token(baseSym)
	if err != nil {
		return nil, err
	}
	quote, err := e.registry.Token(quoteSym)
	if err != nil {
		return nil, err
	}
	pool, err := e.registry.Pool(base.Symbol, quote.Symbol)
	if err != nil {
		return nil, err
	}
	human, err := utils.ParseDec(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %w", ErrInvalidRequest, err)
	}
	raw, err := utils.DecToBaseUnits(human, int(base.Decimals))
	if err != nil {
		return nil, fmt.Errorf("%w: amount %s: %w", ErrInvalidRequest, amount, err)
	}
	return &pair{base: base, quote: quote, pool: pool, side: side, amount: human, baseAmount: raw}, nil
}

func (e *Executor) slippage(s string) (sdkmath.LegacyDec, error) {
	if s == "" {
		return e.defaultSlippage, nil
	}
	v, err := trade.ParseSlippage(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return v, nil
}

// Price reports the pool reserve price and the quote amount it implies.
func (e *Executor) Price(ctx context.Context, req types.PriceRequest) (*types.PriceResponse, error) {
	r := e.newRun("price")
	p, err := e.resolvePair(req.Base, req.Quote, req.Amount, req.Side)
	if err != nil {
		return nil, err
	}

	r.enter(StageEstimating)
	q, err := e.amm.PoolPrice(ctx, p.pool, p.base, p.quote, p.amount)
	if err != nil {
		return nil, r.fail(err)
	}
	gas := e.staticGas()
	r.done()

	return &types.PriceResponse{
		Envelope:       e.envelope(r.start),
		Base:           p.base.Symbol,
		Quote:          p.quote.Symbol,
		Amount:         utils.FormatDec(p.amount),
		RawAmount:      p.baseAmount.String(),
		ExpectedAmount: utils.FormatDec(q.ExpectedAmount),
		Price:          utils.FormatDec(q.Price),
		GasPrice:       gas.price,
		GasPriceToken:  gas.token,
		GasLimit:       gas.limit,
		GasCost:        gas.cost,
	}, nil
}

// Trade prices, signs and broadcasts one routed swap.
func (e *Executor) Trade(ctx context.Context, req types.TradeRequest) (*types.TradeResponse, error) {
	return e.swap(ctx, req, false)
}

// EstimateGas reports the configured gas settings, or simulates the trade
// when the request names a wallet.
func (e *Executor) EstimateGas(ctx context.Context, req types.TradeRequest) (*types.EstimateGasResponse, error) {
	if req.Address == "" {
		start := e.now()
		gas := e.staticGas()
		return &types.EstimateGasResponse{
			Envelope:      e.envelope(start),
			GasPrice:      gas.price,
			GasPriceToken: gas.token,
			GasLimit:      gas.limit,
			GasCost:       gas.cost,
		}, nil
	}
	res, err := e.swap(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &types.EstimateGasResponse{
		Envelope:      res.Envelope,
		GasPrice:      res.GasPrice,
		GasPriceToken: res.GasPriceToken,
		GasLimit:      res.GasLimit,
		GasCost:       res.GasCost,
		Simulated:     true,
	}, nil
}

// swapBounds is what Estimating hands to Building.
type swapBounds struct {
	offer, ask     types.AssetRef
	inputAmount    sdkmath.Int
	expectedOut    sdkmath.Int
	minimumReceive sdkmath.Int
	maximumIn      sdkmath.Int // BUY only
	price          sdkmath.LegacyDec
}

// estimate prices a SELL with the input fixed. A BUY fixes the output: it is
// reverse-simulated for the input it needs, then that input is simulated
// forward for the output bound.
func (e *Executor) estimate(ctx context.Context, p *pair, s sdkmath.LegacyDec) (*swapBounds, error) {
	if p.side == types.SideSell {
		est, err := e.amm.Simulate(ctx, p.base, p.quote, p.baseAmount)
		if err != nil {
			return nil, err
		}
		return &swapBounds{
			offer:          p.base,
			ask:            p.quote,
			inputAmount:    p.baseAmount,
			expectedOut:    est.ExpectedOutputAmount,
			minimumReceive: trade.MinimumReceive(est.ExpectedOutputAmount, s),
			price:          est.EffectivePrice,
		}, nil
	}

	rev, err := e.amm.ReverseSimulate(ctx, p.quote, p.base, p.baseAmount)
	if err != nil {
		return nil, err
	}
	fwd, err := e.amm.Simulate(ctx, p.quote, p.base, rev.InputAmount)
	if err != nil {
		return nil, err
	}
	return &swapBounds{
		offer:          p.quote,
		ask:            p.base,
		inputAmount:    rev.InputAmount,
		expectedOut:    fwd.ExpectedOutputAmount,
		minimumReceive: trade.MinimumReceive(fwd.ExpectedOutputAmount, s),
		maximumIn:      trade.MaximumInput(rev.InputAmount, s),
		price:          rev.EffectivePrice,
	}, nil
}

func (e *Executor) swap(ctx context.Context, req types.TradeRequest, simulateOnly bool) (*types.TradeResponse, error) {
	op := "trade"
	if simulateOnly {
		op = "simulate_trade"
	}
	r := e.newRun(op)

	p, err := e.resolvePair(req.Base, req.Quote, req.Amount, req.Side)
	if err != nil {
		return nil, err
	}
	s, err := e.slippage(req.AllowedSlippage)
	if err != nil {
		return nil, err
	}
	r.log = r.log.With().Str("pool", p.pool.ID).Str("side", string(p.side)).Str("amount", p.amount.String()).Logger()

	w, err := e.unlock(r, req.Address)
	if err != nil {
		return nil, r.fail(err)
	}
	defer w.Zero()

	r.enter(StageEstimating)
	b, err := e.estimate(ctx, p, s)
	if err != nil {
		return nil, r.fail(err)
	}
	r.log.Info().
		Str("input", b.inputAmount.String()).
		Str("expectedOut", b.expectedOut.String()).
		Str("minimumReceive", b.minimumReceive.String()).
		Str("price", b.price.String()).
		Msg("Trade estimated")

	r.enter(StageBuilding)
	ops, err := e.amm.Operations(b.offer, b.ask)
	if err != nil {
		return nil, r.fail(err)
	}
	ins, err := trade.BuildSwap(trade.Swap{
		Router:         e.amm.Router(),
		Operations:     ops,
		Input:          b.offer,
		InputAmount:    b.inputAmount,
		MinimumReceive: b.minimumReceive,
	})
	if err != nil {
		return nil, r.fail(err)
	}

	res, err := e.swapResponse(p, b)
	if err != nil {
		return nil, r.fail(err)
	}

	if simulateOnly {
		r.enter(StageSimulating)
		gas, err := e.client.Simulate(ctx, w, []types.TradeInstruction{ins})
		if err != nil {
			return nil, r.fail(err)
		}
		e.applyGasEstimate(res, gas)
		r.done()
		res.Envelope = e.envelope(r.start)
		return res, nil
	}

	r.enter(StageBroadcasting)
	out, err := e.client.SignAndBroadcast(ctx, w, []types.TradeInstruction{ins})
	if err != nil {
		return nil, r.fail(err)
	}
	res.TxHash = out.TxHash
	e.applyBroadcast(res, out)
	r.log.Info().Str("txHash", out.TxHash).Int64("height", out.Height).Msg("Trade committed")

	e.record(ctx, r.log, types.Receipt{
		TxHash:         out.TxHash,
		Kind:           types.ReceiptSwap,
		Address:        req.Address,
		Venue:          p.pool.ID,
		Side:           p.side,
		InputAmount:    b.inputAmount,
		ExpectedOutput: b.expectedOut,
		Height:         out.Height,
		GasUsed:        out.GasUsed,
	})
	r.done()
	res.Envelope = e.envelope(r.start)
	return res, nil
}

// swapResponse renders the estimate in human units. ExpectedAmount is always
// the quote side: received on a SELL, spent on a BUY.
func (e *Executor) swapResponse(p *pair, b *swapBounds) (*types.TradeResponse, error) {
	minOut, err := utils.FormatBaseUnits(b.minimumReceive, int(b.ask.Decimals))
	if err != nil {
		return nil, err
	}
	res := &types.TradeResponse{
		Base:       p.base.Symbol,
		Quote:      p.quote.Symbol,
		Amount:     utils.FormatDec(p.amount),
		RawAmount:  p.baseAmount.String(),
		MinimumOut: minOut,
		Price:      utils.FormatDec(b.price),
	}
	quoteAmount := b.expectedOut
	if p.side == types.SideBuy {
		quoteAmount = b.inputAmount
		if res.ExpectedIn, err = utils.FormatBaseUnits(b.inputAmount, int(b.offer.Decimals)); err != nil {
			return nil, err
		}
		if res.MaximumIn, err = utils.FormatBaseUnits(b.maximumIn, int(b.offer.Decimals)); err != nil {
			return nil, err
		}
	}
	if res.ExpectedAmount, err = utils.FormatBaseUnits(quoteAmount, int(p.quote.Decimals)); err != nil {
		return nil, err
	}
	gas := e.staticGas()
	res.GasPrice, res.GasPriceToken, res.GasLimit, res.GasCost = gas.price, gas.token, gas.limit, gas.cost
	return res, nil
}

type gasView struct {
	price, token, cost string
	limit              uint64
}

func (e *Executor) nativeToken() (string, int) {
	if t, ok := e.registry.TokenByAddress(e.gas.PriceDenom); ok {
		return t.Symbol, int(t.Decimals)
	}
	e.logger.Warn().
		Str("denom", e.gas.PriceDenom).
		Int("decimals", fallbackDecimals).
		Msg("Gas denom missing from token list, assuming default decimals")
	return e.gas.PriceDenom, fallbackDecimals
}

func (e *Executor) humanFee(amount sdkmath.Int) string {
	_, dec := e.nativeToken()
	s, err := utils.FormatBaseUnits(amount, dec)
	if err != nil {
		return amount.String()
	}
	return s
}

func (e *Executor) staticGas() gasView {
	symbol, _ := e.nativeToken()
	fee := e.gasPrice.MulInt64(int64(e.gas.Limit)).Ceil().TruncateInt()
	return gasView{
		price: utils.FormatDec(e.gasPrice),
		token: symbol,
		limit: e.gas.Limit,
		cost:  e.humanFee(fee),
	}
}

func (e *Executor) applyGasEstimate(res *types.TradeResponse, gas *types.GasEstimate) {
	res.GasLimit = gas.GasLimit
	if !gas.FeeAmount.IsNil() {
		res.GasCost = e.humanFee(gas.FeeAmount)
	}
}

func (e *Executor) applyBroadcast(res *types.TradeResponse, out *types.BroadcastResult) {
	if out.GasWanted > 0 {
		res.GasLimit = uint64(out.GasWanted)
	}
	for _, c := range out.Fee {
		if c.Denom == e.gas.PriceDenom {
			res.GasCost = e.humanFee(c.Amount)
		}
	}
}
