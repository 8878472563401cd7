package metrics

import (
	"context"
	"errors"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/types"
)

// CountingClient counts every call it forwards to the wrapped client.
type CountingClient struct {
	next    chain.Client
	metrics *Metrics
}

func NewCountingClient(next chain.Client, m *Metrics) *CountingClient {
	return &CountingClient{next: next, metrics: m}
}

func (c *CountingClient) QueryContractSmart(ctx context.Context, contract string, q any, out any) error {
	err := c.next.QueryContractSmart(ctx, contract, q, out)
	c.metrics.chainRequest("query_contract_smart", err)
	return err
}

func (c *CountingClient) Simulate(ctx context.Context, w *chain.Wallet, in []types.TradeInstruction) (*types.GasEstimate, error) {
	res, err := c.next.Simulate(ctx, w, in)
	c.metrics.chainRequest("simulate", err)
	return res, err
}

func (c *CountingClient) SignAndBroadcast(ctx context.Context, w *chain.Wallet, in []types.TradeInstruction) (*types.BroadcastResult, error) {
	res, err := c.next.SignAndBroadcast(ctx, w, in)
	c.metrics.chainRequest("sign_and_broadcast", err)

	result := "committed"
	switch {
	case err == nil:
	case errors.Is(err, chain.ErrBroadcastTimeout):
		result = "timeout"
	case errors.Is(err, chain.ErrSlippageExceeded):
		result = "slippage"
	case errors.Is(err, chain.ErrTxRejected):
		result = "rejected"
	default:
		result = "error"
	}
	c.metrics.Broadcasts.WithLabelValues(result).Inc()
	return res, err
}

func (c *CountingClient) GetTransaction(ctx context.Context, hash string) (*types.TransactionStatus, error) {
	res, err := c.next.GetTransaction(ctx, hash)
	c.metrics.chainRequest("get_transaction", err)
	return res, err
}

func (c *CountingClient) GetHeight(ctx context.Context) (int64, error) {
	h, err := c.next.GetHeight(ctx)
	c.metrics.chainRequest("get_height", err)
	return h, err
}

func (c *CountingClient) GetAllBalances(ctx context.Context, address string) ([]types.Coin, error) {
	res, err := c.next.GetAllBalances(ctx, address)
	c.metrics.chainRequest("get_all_balances", err)
	return res, err
}

func (c *CountingClient) DenomTrace(ctx context.Context, denom string) (string, error) {
	res, err := c.next.DenomTrace(ctx, denom)
	c.metrics.chainRequest("denom_trace", err)
	return res, err
}

var _ chain.Client = (*CountingClient)(nil)
