// Package registry holds the tokens, pools and markets a gateway trades.
//
// A Registry is built once during start-up and never mutated afterwards, so
// handlers share a single handle and read it without locking.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/elys-network/cwgateway/internal/types"
)

var (
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrUnknownMarket = errors.New("unknown market")
	ErrDuplicate     = errors.New("duplicate registry entry")
)

type Registry struct {
	tokens    []types.AssetRef
	bySymbol  map[string]types.AssetRef
	byAddress map[string]types.AssetRef
	pools     map[string]types.Pool
	markets   map[string]types.Market
}

// New validates and indexes tokens and pools.
func New(tokens []types.AssetRef, pools []types.Pool) (*Registry, error) {
	r := &Registry{
		bySymbol:  make(map[string]types.AssetRef, len(tokens)),
		byAddress: make(map[string]types.AssetRef, len(tokens)),
		pools:     make(map[string]types.Pool, len(pools)),
		markets:   map[string]types.Market{},
	}

	for _, t := range tokens {
		if err := validateToken(t); err != nil {
			return nil, err
		}
		key := strings.ToUpper(t.Symbol)
		if _, ok := r.bySymbol[key]; ok {
			return nil, fmt.Errorf("%w: token symbol %s", ErrDuplicate, t.Symbol)
		}
		if _, ok := r.byAddress[t.Address]; ok {
			return nil, fmt.Errorf("%w: token address %s", ErrDuplicate, t.Address)
		}
		r.bySymbol[key] = t
		r.byAddress[t.Address] = t
		r.tokens = append(r.tokens, t)
	}

	for _, p := range pools {
		if p.ContractAddress == "" {
			return nil, fmt.Errorf("pool %s has no contract address", p.ID)
		}
		if p.AssetA.Address == p.AssetB.Address {
			return nil, fmt.Errorf("pool %s trades an asset against itself", p.ID)
		}
		key := strings.ToUpper(p.ID)
		if _, ok := r.pools[key]; ok {
			return nil, fmt.Errorf("%w: pool %s", ErrDuplicate, p.ID)
		}
		r.pools[key] = p
	}
	return r, nil
}

func validateToken(t types.AssetRef) error {
	if t.Symbol == "" {
		return fmt.Errorf("token %q has no symbol", t.Address)
	}
	if t.Address == "" {
		return fmt.Errorf("token %s has no address or denom", t.Symbol)
	}
	if _, err := t.Kind.AttachesFunds(); err != nil {
		return fmt.Errorf("token %s: %w", t.Symbol, err)
	}
	if t.Kind == types.AssetKindIBC && !strings.HasPrefix(t.Address, "ibc/") {
		return fmt.Errorf("token %s: ibc denom must start with ibc/, got %s", t.Symbol, t.Address)
	}
	if t.Decimals > 18 {
		return fmt.Errorf("token %s: decimals %d out of range", t.Symbol, t.Decimals)
	}
	return nil
}

// WithMarkets returns a copy of the registry that also knows markets.
func (r *Registry) WithMarkets(markets []types.Market) (*Registry, error) {
	out := &Registry{
		tokens:    r.tokens,
		bySymbol:  r.bySymbol,
		byAddress: r.byAddress,
		pools:     r.pools,
		markets:   make(map[string]types.Market, len(markets)),
	}
	for _, m := range markets {
		if m.MarketID != types.VenueID(m.BaseAsset.Symbol, m.QuoteAsset.Symbol) {
			return nil, fmt.Errorf("market id %s does not match %s-%s", m.MarketID, m.BaseAsset.Symbol, m.QuoteAsset.Symbol)
		}
		key := strings.ToUpper(m.MarketID)
		if _, ok := out.markets[key]; ok {
			return nil, fmt.Errorf("%w: market %s", ErrDuplicate, m.MarketID)
		}
		out.markets[key] = m
	}
	return out, nil
}

// Token looks a token up by symbol, ignoring case.
func (r *Registry) Token(symbol string) (types.AssetRef, error) {
	t, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return types.AssetRef{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return t, nil
}

// TokenByAddress looks a token up by denom or contract address.
func (r *Registry) TokenByAddress(address string) (types.AssetRef, bool) {
	t, ok := r.byAddress[address]
	return t, ok
}

// Tokens returns the tokens in registry order.
func (r *Registry) Tokens() []types.AssetRef {
	return append([]types.AssetRef(nil), r.tokens...)
}

// Pool finds the pool trading base against quote in either orientation.
func (r *Registry) Pool(base, quote string) (types.Pool, error) {
	if p, ok := r.pools[strings.ToUpper(types.VenueID(base, quote))]; ok {
		return p, nil
	}
	if p, ok := r.pools[strings.ToUpper(types.VenueID(quote, base))]; ok {
		return p, nil
	}
	return types.Pool{}, fmt.Errorf("%w: no pool for %s-%s", ErrUnknownMarket, base, quote)
}

func (r *Registry) Pools() []types.Pool {
	out := make([]types.Pool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Market looks a market up by "BASE-QUOTE" id, ignoring case.
func (r *Registry) Market(id string) (types.Market, error) {
	m, ok := r.markets[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return types.Market{}, fmt.Errorf("%w: %s", ErrUnknownMarket, id)
	}
	return m, nil
}

func (r *Registry) Markets() []types.Market {
	out := make([]types.Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}
