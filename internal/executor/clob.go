package executor

import (
	"context"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/pricing"
	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

// Markets lists the order-book markets loaded at start-up.
func (e *Executor) Markets(_ context.Context) *types.MarketsResponse {
	start := e.now()
	return &types.MarketsResponse{Envelope: e.envelope(start), Markets: e.registry.Markets()}
}

func (e *Executor) OrderBook(ctx context.Context, marketID string) (*types.OrderBookResponse, error) {
	start := e.now()
	m, err := e.registry.Market(marketID)
	if err != nil {
		return nil, err
	}
	book, err := e.clob.OrderBook(ctx, m)
	if err != nil {
		return nil, err
	}
	return &types.OrderBookResponse{
		Envelope: e.envelope(start),
		Market:   m.MarketID,
		Buys:     book.Buys,
		Sells:    book.Sells,
	}, nil
}

func (e *Executor) Ticker(ctx context.Context, marketID string) (*types.TickerResponse, error) {
	start := e.now()
	m, err := e.registry.Market(marketID)
	if err != nil {
		return nil, err
	}
	mid, err := e.clob.MidPrice(ctx, m)
	if err != nil {
		return nil, err
	}
	return &types.TickerResponse{Envelope: e.envelope(start), Market: m.MarketID, Price: utils.FormatDec(mid)}, nil
}

// Orders lists a market's orders, optionally only those of address. A
// non-zero orderID returns just that order.
func (e *Executor) Orders(ctx context.Context, marketID, address string, orderID uint64) (*types.OrdersResponse, error) {
	start := e.now()
	m, err := e.registry.Market(marketID)
	if err != nil {
		return nil, err
	}
	var orders []types.Order
	if orderID != 0 {
		o, err := e.clob.Order(ctx, m, orderID)
		if err != nil {
			return nil, err
		}
		orders = []types.Order{*o}
	} else {
		orders, err = e.clob.AllOrders(ctx, m, pricing.OrderFilter{Bidder: address})
		if err != nil {
			return nil, err
		}
	}
	if orders == nil {
		orders = []types.Order{}
	}
	return &types.OrdersResponse{Envelope: e.envelope(start), Orders: orders}, nil
}

func (e *Executor) orderParams(req types.OrderRequest) (trade.OrderParams, error) {
	m, err := e.registry.Market(req.Market)
	if err != nil {
		return trade.OrderParams{}, err
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return trade.OrderParams{}, fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidRequest)
	}
	amount, err := utils.ParseDec(req.Amount)
	if err != nil {
		return trade.OrderParams{}, fmt.Errorf("%w: amount: %w", ErrInvalidRequest, err)
	}
	price, err := utils.ParseDec(req.Price)
	if err != nil {
		return trade.OrderParams{}, fmt.Errorf("%w: price: %w", ErrInvalidRequest, err)
	}
	if !m.MinimumOrderSize.IsNil() && amount.LT(m.MinimumOrderSize) {
		return trade.OrderParams{}, fmt.Errorf("%w: amount %s is below the minimum order size %s of %s",
			ErrInvalidRequest, utils.FormatDec(amount), utils.FormatDec(m.MinimumOrderSize), m.MarketID)
	}
	return trade.OrderParams{Market: m, Side: req.Side, Amount: amount, Price: price}, nil
}

func (e *Executor) cancelParams(req types.CancelRequest) (trade.CancelParams, error) {
	m, err := e.registry.Market(req.Market)
	if err != nil {
		return trade.CancelParams{}, err
	}
	if req.OrderID == 0 {
		return trade.CancelParams{}, fmt.Errorf("%w: orderId is required", ErrInvalidRequest)
	}
	return trade.CancelParams{Market: m, OrderID: req.OrderID}, nil
}

// PostOrder places one limit order.
func (e *Executor) PostOrder(ctx context.Context, req types.OrderRequest) (*types.OrderResponse, error) {
	p, err := e.orderParams(req)
	if err != nil {
		return nil, err
	}
	return e.submitOrders(ctx, "post_order", req.Address, types.ReceiptOrder, p.Market.MarketID, func() ([]types.TradeInstruction, error) {
		ins, err := e.orders.Submit(p)
		if err != nil {
			return nil, err
		}
		return []types.TradeInstruction{ins}, nil
	})
}

// DeleteOrder cancels one resting order.
func (e *Executor) DeleteOrder(ctx context.Context, req types.CancelRequest) (*types.OrderResponse, error) {
	c, err := e.cancelParams(req)
	if err != nil {
		return nil, err
	}
	return e.submitOrders(ctx, "delete_order", req.Address, types.ReceiptCancel, c.Market.MarketID, func() ([]types.TradeInstruction, error) {
		ins, err := e.orders.Cancel(c)
		if err != nil {
			return nil, err
		}
		return []types.TradeInstruction{ins}, nil
	})
}

// BatchOrders cancels and places orders in one transaction.
func (e *Executor) BatchOrders(ctx context.Context, req types.BatchOrdersRequest) (*types.OrderResponse, error) {
	creates := make([]trade.OrderParams, 0, len(req.CreateOrderParams))
	for i, o := range req.CreateOrderParams {
		p, err := e.orderParams(o)
		if err != nil {
			return nil, fmt.Errorf("createOrderParams[%d]: %w", i, err)
		}
		creates = append(creates, p)
	}
	cancels := make([]trade.CancelParams, 0, len(req.CancelOrderParams))
	for i, c := range req.CancelOrderParams {
		p, err := e.cancelParams(c)
		if err != nil {
			return nil, fmt.Errorf("cancelOrderParams[%d]: %w", i, err)
		}
		cancels = append(cancels, p)
	}
	if len(creates) == 0 && len(cancels) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", ErrInvalidRequest)
	}
	return e.submitOrders(ctx, "batch_orders", req.Address, types.ReceiptBatch, "", func() ([]types.TradeInstruction, error) {
		return e.orders.Batch(creates, cancels)
	})
}

func (e *Executor) submitOrders(ctx context.Context, op, address string, kind types.ReceiptKind, venue string, build func() ([]types.TradeInstruction, error)) (*types.OrderResponse, error) {
	r := e.newRun(op)
	w, err := e.unlock(r, address)
	if err != nil {
		return nil, r.fail(err)
	}
	defer w.Zero()

	r.enter(StageBuilding)
	ins, err := build()
	if err != nil {
		return nil, r.fail(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	r.enter(StageBroadcasting)
	out, err := e.client.SignAndBroadcast(ctx, w, ins)
	if err != nil {
		return nil, r.fail(err)
	}
	ids := orderIDs(out.Events)
	r.log.Info().Str("txHash", out.TxHash).Int("messages", len(ins)).Interface("orderIds", ids).Msg("Orders committed")

	e.record(ctx, r.log, types.Receipt{
		TxHash:         out.TxHash,
		Kind:           kind,
		Address:        address,
		Venue:          venue,
		InputAmount:    sdkmath.ZeroInt(),
		ExpectedOutput: sdkmath.ZeroInt(),
		Height:         out.Height,
		GasUsed:        out.GasUsed,
	})
	r.done()
	return &types.OrderResponse{Envelope: e.envelope(r.start), TxHash: out.TxHash, OrderIDs: ids}, nil
}

// orderIDs collects order_id attributes of submit_order wasm events.
func orderIDs(events []types.TxEvent) []uint64 {
	var ids []uint64
	for _, ev := range events {
		if ev.Type != "wasm" {
			continue
		}
		if action, ok := ev.Attributes["action"]; ok && action != "submit_order" {
			continue
		}
		raw, ok := ev.Attributes["order_id"]
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
