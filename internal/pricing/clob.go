package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/types"
)

// OrderBookLimit is the page size used for order listing.
const OrderBookLimit = 100

// CLOB reads order-book venues.
type CLOB struct {
	client chain.Client
}

func NewCLOB(client chain.Client) *CLOB {
	return &CLOB{client: client}
}

type assetInfosBody struct {
	AssetInfos [2]types.AssetInfo `json:"asset_infos"`
}

type midPriceQuery struct {
	MidPrice assetInfosBody `json:"mid_price"`
}

// MidPrice asks the contract for its own mid price.
func (c *CLOB) MidPrice(ctx context.Context, m types.Market) (sdkmath.LegacyDec, error) {
	infos, err := m.AssetInfos()
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	var raw json.RawMessage
	if err := c.client.QueryContractSmart(ctx, m.ContractAddress, midPriceQuery{MidPrice: assetInfosBody{AssetInfos: infos}}, &raw); err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to query mid price of %s: %w", m.MarketID, err)
	}
	var s string
	if err := decode(raw, &s, "mid_price"); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	price, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: mid price %q: %w", ErrVenueData, s, err)
	}
	return price, nil
}

// OrderFilter selects all orders or one bidder's orders. It marshals as
// "none" or {"bidder":"..."}.
type OrderFilter struct {
	Bidder string
}

func (f OrderFilter) MarshalJSON() ([]byte, error) {
	if f.Bidder == "" {
		return json.Marshal("none")
	}
	return json.Marshal(map[string]string{"bidder": f.Bidder})
}

type ordersBody struct {
	AssetInfos [2]types.AssetInfo `json:"asset_infos"`
	Filter     OrderFilter        `json:"filter"`
	Limit      int                `json:"limit"`
	StartAfter *uint64            `json:"start_after,omitempty"`
}

type ordersQuery struct {
	Orders ordersBody `json:"orders"`
}

type ordersResponse struct {
	Orders []types.Order `json:"orders"`
}

// AllOrders lists every order matching filter. Pages of OrderBookLimit are
// fetched with the last order id as cursor until a short page comes back.
func (c *CLOB) AllOrders(ctx context.Context, m types.Market, filter OrderFilter) ([]types.Order, error) {
	infos, err := m.AssetInfos()
	if err != nil {
		return nil, err
	}

	var (
		all    []types.Order
		cursor *uint64
	)
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := ordersQuery{Orders: ordersBody{
			AssetInfos: infos,
			Filter:     filter,
			Limit:      OrderBookLimit,
			StartAfter: cursor,
		}}
		var raw json.RawMessage
		if err := c.client.QueryContractSmart(ctx, m.ContractAddress, q, &raw); err != nil {
			return nil, fmt.Errorf("failed to query orders of %s (page %d): %w", m.MarketID, page, err)
		}
		var res ordersResponse
		if err := decode(raw, &res, "orders"); err != nil {
			return nil, err
		}
		all = append(all, res.Orders...)

		if len(res.Orders) < OrderBookLimit {
			return all, nil
		}
		last := res.Orders[len(res.Orders)-1].OrderID
		if cursor != nil && last <= *cursor {
			return nil, fmt.Errorf("%w: order cursor did not advance past %d", ErrVenueData, *cursor)
		}
		cursor = &last
	}
}

type orderQuery struct {
	Order struct {
		OrderID    uint64             `json:"order_id"`
		AssetInfos [2]types.AssetInfo `json:"asset_infos"`
	} `json:"order"`
}

// Order fetches a single order by id.
func (c *CLOB) Order(ctx context.Context, m types.Market, orderID uint64) (*types.Order, error) {
	infos, err := m.AssetInfos()
	if err != nil {
		return nil, err
	}
	var q orderQuery
	q.Order.OrderID = orderID
	q.Order.AssetInfos = infos

	var raw json.RawMessage
	if err := c.client.QueryContractSmart(ctx, m.ContractAddress, q, &raw); err != nil {
		return nil, fmt.Errorf("failed to query order %d of %s: %w", orderID, m.MarketID, err)
	}
	var o types.Order
	if err := decode(raw, &o, "order"); err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderBook aggregates all resting orders into price levels. Buys are priced
// offer/ask with remaining ask − filled_ask; sells are priced ask/offer with
// remaining offer − filled_offer. Prices are in the contract's integer scale.
func (c *CLOB) OrderBook(ctx context.Context, m types.Market) (*types.OrderBook, error) {
	orders, err := c.AllOrders(ctx, m, OrderFilter{})
	if err != nil {
		return nil, err
	}
	return BuildOrderBook(orders)
}

// BuildOrderBook partitions orders by direction and merges equal prices.
func BuildOrderBook(orders []types.Order) (*types.OrderBook, error) {
	buys := map[string]*types.PriceLevel{}
	sells := map[string]*types.PriceLevel{}

	for _, o := range orders {
		if o.OfferAsset.Amount.IsNil() || o.AskAsset.Amount.IsNil() {
			return nil, fmt.Errorf("%w: order %d has no amounts", ErrVenueData, o.OrderID)
		}
		if !o.OfferAsset.Amount.IsPositive() || !o.AskAsset.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: order %d has a zero amount", ErrVenueData, o.OrderID)
		}
		offer := sdkmath.LegacyNewDecFromInt(o.OfferAsset.Amount)
		ask := sdkmath.LegacyNewDecFromInt(o.AskAsset.Amount)

		var (
			price     sdkmath.LegacyDec
			remaining sdkmath.Int
			side      map[string]*types.PriceLevel
		)
		switch o.Direction {
		case types.DirectionBuy:
			price = offer.Quo(ask)
			remaining = o.AskAsset.Amount.Sub(orZero(o.FilledAskAmount))
			side = buys
		case types.DirectionSell:
			price = ask.Quo(offer)
			remaining = o.OfferAsset.Amount.Sub(orZero(o.FilledOfferAmount))
			side = sells
		default:
			return nil, fmt.Errorf("%w: order %d has direction %q", ErrVenueData, o.OrderID, o.Direction)
		}
		if !remaining.IsPositive() {
			continue
		}

		key := price.String()
		if lvl, ok := side[key]; ok {
			lvl.Quantity = lvl.Quantity.Add(remaining)
		} else {
			side[key] = &types.PriceLevel{Price: price, Quantity: remaining}
		}
	}

	book := &types.OrderBook{
		Buys:  flatten(buys),
		Sells: flatten(sells),
	}
	sort.Slice(book.Buys, func(i, j int) bool { return book.Buys[i].Price.GT(book.Buys[j].Price) })
	sort.Slice(book.Sells, func(i, j int) bool { return book.Sells[i].Price.LT(book.Sells[j].Price) })
	return book, nil
}

func flatten(levels map[string]*types.PriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, *l)
	}
	return out
}

func orZero(i sdkmath.Int) sdkmath.Int {
	if i.IsNil() {
		return sdkmath.ZeroInt()
	}
	return i
}
