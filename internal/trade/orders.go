package trade

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

var ErrInvalidOrder = errors.New("invalid order")

// DefaultDecimalScale is the exponent order-book contracts scale amounts by.
const DefaultDecimalScale = 6

// OrderParams is a limit order in human units: Amount of base at Price quote per base.
type OrderParams struct {
	Market types.Market
	Side   types.Side
	Amount sdkmath.LegacyDec
	Price  sdkmath.LegacyDec
}

// CancelParams names one resting order.
type CancelParams struct {
	Market  types.Market
	OrderID uint64
}

// OrderBuilder encodes order-book messages at a fixed amount scale.
type OrderBuilder struct {
	scale sdkmath.LegacyDec
}

func NewOrderBuilder(decimalScale int) (*OrderBuilder, error) {
	scale, err := utils.PowTen(decimalScale)
	if err != nil {
		return nil, err
	}
	return &OrderBuilder{scale: scale}, nil
}

type submitOrder struct {
	SubmitOrder struct {
		Assets    [2]types.Asset  `json:"assets"`
		Direction types.Direction `json:"direction"`
	} `json:"submit_order"`
}

type cancelOrder struct {
	CancelOrder struct {
		AssetInfos [2]types.AssetInfo `json:"asset_infos"`
		OrderID    uint64             `json:"order_id"`
	} `json:"cancel_order"`
}

// Submit encodes a limit order. A buy is funded with the quote amount and a
// sell with the base amount.
func (b *OrderBuilder) Submit(p OrderParams) (types.TradeInstruction, error) {
	if p.Amount.IsNil() || !p.Amount.IsPositive() {
		return types.TradeInstruction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if p.Price.IsNil() || !p.Price.IsPositive() {
		return types.TradeInstruction{}, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	infos, err := p.Market.AssetInfos()
	if err != nil {
		return types.TradeInstruction{}, err
	}

	baseAmount := roundHalfUp(p.Amount.Mul(b.scale))
	quoteAmount := roundHalfUp(p.Price.Mul(p.Amount).Mul(b.scale))
	if !baseAmount.IsPositive() || !quoteAmount.IsPositive() {
		return types.TradeInstruction{}, fmt.Errorf("%w: %s at %s rounds to zero on %s", ErrInvalidOrder, p.Amount, p.Price, p.Market.MarketID)
	}

	var msg submitOrder
	msg.SubmitOrder.Assets = [2]types.Asset{
		{Info: infos[0], Amount: baseAmount},
		{Info: infos[1], Amount: quoteAmount},
	}

	switch p.Side {
	case types.SideBuy:
		msg.SubmitOrder.Direction = types.DirectionBuy
		return fund(p.Market.QuoteAsset, p.Market.ContractAddress, quoteAmount, msg)
	case types.SideSell:
		msg.SubmitOrder.Direction = types.DirectionSell
		return fund(p.Market.BaseAsset, p.Market.ContractAddress, baseAmount, msg)
	default:
		return types.TradeInstruction{}, fmt.Errorf("%w: side %q", ErrInvalidOrder, p.Side)
	}
}

// Cancel encodes cancel_order. No funds are attached.
func (b *OrderBuilder) Cancel(p CancelParams) (types.TradeInstruction, error) {
	infos, err := p.Market.AssetInfos()
	if err != nil {
		return types.TradeInstruction{}, err
	}
	var msg cancelOrder
	msg.CancelOrder.AssetInfos = infos
	msg.CancelOrder.OrderID = p.OrderID
	return call(p.Market.ContractAddress, msg)
}

// Batch encodes one multi-message transaction. All cancels come first, then
// all creates, whatever order the lists were given in; within each list the
// input order is kept.
func (b *OrderBuilder) Batch(creates []OrderParams, cancels []CancelParams) ([]types.TradeInstruction, error) {
	if len(creates) == 0 && len(cancels) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidOrder)
	}
	out := make([]types.TradeInstruction, 0, len(creates)+len(cancels))
	for i, c := range cancels {
		ins, err := b.Cancel(c)
		if err != nil {
			return nil, fmt.Errorf("cancel %d: %w", i, err)
		}
		out = append(out, ins)
	}
	for i, p := range creates {
		ins, err := b.Submit(p)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		out = append(out, ins)
	}
	return out, nil
}

func roundHalfUp(d sdkmath.LegacyDec) sdkmath.Int {
	return d.Add(sdkmath.LegacyNewDecWithPrec(5, 1)).TruncateInt()
}
