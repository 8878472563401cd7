/*

Limit orders as returned by the order-book contract, plus the aggregated book
view served to callers.

*/

package types

import (
	"encoding/json"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Direction is the side of a limit order in contract spelling.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Order is one open or filled order. Never cached; read from chain per request.
type Order struct {
	OrderID           uint64      `json:"order_id"`
	Status            string      `json:"status"`
	Direction         Direction   `json:"direction"`
	BidderAddr        string      `json:"bidder_addr"`
	OfferAsset        Asset       `json:"offer_asset"`
	AskAsset          Asset       `json:"ask_asset"`
	FilledOfferAmount sdkmath.Int `json:"filled_offer_amount"`
	FilledAskAmount   sdkmath.Int `json:"filled_ask_amount"`
}

// PriceLevel is one entry of the book view.
type PriceLevel struct {
	Price    sdkmath.LegacyDec `json:"price"`
	Quantity sdkmath.Int       `json:"quantity"`
}

// OrderBook holds buys best (highest) first and sells best (lowest) first.
type OrderBook struct {
	Buys  []PriceLevel `json:"buys"`
	Sells []PriceLevel `json:"sells"`
}

// Side is the caller-facing trade side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts BUY or SELL in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("side must be BUY or SELL, got %q", s)
	}
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Direction maps the caller side onto the order-book spelling.
func (s Side) Direction() Direction {
	if s == SideBuy {
		return DirectionBuy
	}
	return DirectionSell
}
