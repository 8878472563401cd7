package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sdkmath "cosmossdk.io/math"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/cwgateway/internal/types"
	"github.com/elys-network/cwgateway/internal/utils"
)

// balanceQueryLimit bounds concurrent CW20 balance queries.
const balanceQueryLimit = 8

// fallbackDecimals is assumed for denoms the token list does not carry.
const fallbackDecimals = 6

// Poll looks a transaction up by hash. Unknown hashes are not an error; they
// report txStatus 0 and the current block.
func (e *Executor) Poll(ctx context.Context, req types.PollRequest) (*types.PollResponse, error) {
	start := e.now()
	hash := strings.TrimSpace(req.TxHash)
	if hash == "" {
		return nil, fmt.Errorf("%w: txHash is required", ErrInvalidRequest)
	}
	height, err := e.client.GetHeight(ctx)
	if err != nil {
		return nil, err
	}
	st, err := e.client.GetTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &types.TransactionStatus{TxHash: hash}
	}
	st.CurrentBlock = height
	return &types.PollResponse{Envelope: e.envelope(start), TransactionStatus: *st}, nil
}

type cw20BalanceQuery struct {
	Balance struct {
		Address string `json:"address"`
	} `json:"balance"`
}

type cw20BalanceResponse struct {
	Balance sdkmath.Int `json:"balance"`
}

// Balances reports bank balances, resolving IBC denoms through their trace,
// and CW20 balances of registry tokens. With symbols given, exactly those are
// reported and missing ones read "0.0".
func (e *Executor) Balances(ctx context.Context, req types.BalanceRequest) (*types.BalanceResponse, error) {
	start := e.now()
	if strings.TrimSpace(req.Address) == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidRequest)
	}
	wanted := map[string]bool{}
	for _, s := range req.TokenSymbols {
		wanted[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	include := func(symbol string) bool {
		return len(wanted) == 0 || wanted[strings.ToUpper(symbol)]
	}

	var (
		mu       sync.Mutex
		balances = map[string]string{}
	)
	put := func(symbol string, amount sdkmath.Int, decimals int) error {
		human, err := utils.FormatBaseUnits(amount, decimals)
		if err != nil {
			return err
		}
		mu.Lock()
		balances[symbol] = human
		mu.Unlock()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceQueryLimit)

	g.Go(func() error {
		coins, err := e.client.GetAllBalances(gctx, req.Address)
		if err != nil {
			return fmt.Errorf("bank balances: %w", err)
		}
		for _, c := range coins {
			symbol, decimals := e.bankSymbol(gctx, c.Denom)
			if !include(symbol) {
				continue
			}
			if err := put(symbol, c.Amount, decimals); err != nil {
				return err
			}
		}
		return nil
	})

	for _, t := range e.registry.Tokens() {
		if t.Kind != types.AssetKindContractToken || !include(t.Symbol) {
			continue
		}
		g.Go(func() error {
			var q cw20BalanceQuery
			q.Balance.Address = req.Address
			var res cw20BalanceResponse
			if err := e.client.QueryContractSmart(gctx, t.Address, q, &res); err != nil {
				return fmt.Errorf("%s balance: %w", t.Symbol, err)
			}
			if res.Balance.IsNil() || res.Balance.IsZero() {
				return nil
			}
			return put(t.Symbol, res.Balance, int(t.Decimals))
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for symbol := range wanted {
		if _, ok := balances[symbol]; ok {
			continue
		}
		if t, err := e.registry.Token(symbol); err == nil {
			if _, ok := balances[t.Symbol]; ok {
				continue
			}
			symbol = t.Symbol
		}
		balances[symbol] = "0.0"
	}
	return &types.BalanceResponse{Envelope: e.envelope(start), Balances: balances}, nil
}

// bankSymbol names a bank denom. Registry denoms use their symbol; an unknown
// IBC denom is traced to its base denom, which is matched against the
// registry again before being reported as-is.
func (e *Executor) bankSymbol(ctx context.Context, denom string) (string, int) {
	if t, ok := e.registry.TokenByAddress(denom); ok {
		return t.Symbol, int(t.Decimals)
	}
	name := denom
	if strings.HasPrefix(denom, "ibc/") {
		base, err := e.client.DenomTrace(ctx, denom)
		switch t, ok := e.registry.TokenByAddress(base); {
		case err != nil:
			e.logger.Warn().Err(err).Str("denom", denom).Msg("Failed to resolve denom trace")
		case ok:
			return t.Symbol, int(t.Decimals)
		default:
			name = base
		}
	}
	e.logger.Warn().
		Str("denom", denom).
		Str("symbol", name).
		Int("decimals", fallbackDecimals).
		Msg("Denom missing from token list, assuming default decimals")
	return name, fallbackDecimals
}
