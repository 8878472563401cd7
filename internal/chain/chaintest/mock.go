// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/types"
)

// QueryHandler answers a smart query. Returning a value marshals it as the
// contract's JSON reply.
type QueryHandler func(contract string, query map[string]json.RawMessage) (any, error)

// Mock is a scriptable chain.Client. Unset hooks return zero values.
type Mock struct {
	mu sync.Mutex

	Query        QueryHandler
	SimulateFn   func(w *chain.Wallet, in []types.TradeInstruction) (*types.GasEstimate, error)
	BroadcastFn  func(w *chain.Wallet, in []types.TradeInstruction) (*types.BroadcastResult, error)
	Transactions map[string]*types.TransactionStatus
	Height       int64
	Balances     map[string][]types.Coin
	DenomTraces  map[string]string

	Queries    []RecordedQuery
	Simulated  [][]types.TradeInstruction
	Broadcasts [][]types.TradeInstruction
}

type RecordedQuery struct {
	Contract string
	Query    map[string]json.RawMessage
}

// QueryNames returns the top-level variant of every recorded query, in order.
func (m *Mock) QueryNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.Queries))
	for _, q := range m.Queries {
		for k := range q.Query {
			names = append(names, k)
		}
	}
	return names
}

func (m *Mock) QueryContractSmart(_ context.Context, contract string, q any, out any) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	m.mu.Lock()
	m.Queries = append(m.Queries, RecordedQuery{Contract: contract, Query: decoded})
	handler := m.Query
	m.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("%w: no query handler", chain.ErrQueryFailed)
	}
	reply, err := handler(contract, decoded)
	if err != nil {
		return err
	}
	var data []byte
	switch v := reply.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		if data, err = json.Marshal(reply); err != nil {
			return err
		}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (m *Mock) Simulate(_ context.Context, w *chain.Wallet, in []types.TradeInstruction) (*types.GasEstimate, error) {
	m.mu.Lock()
	m.Simulated = append(m.Simulated, in)
	fn := m.SimulateFn
	m.mu.Unlock()
	if fn != nil {
		return fn(w, in)
	}
	return &types.GasEstimate{
		GasUsed:   100000,
		GasLimit:  160000,
		GasPrice:  "0.025uaura",
		FeeAmount: sdkmath.NewInt(4000),
		FeeDenom:  "uaura",
	}, nil
}

func (m *Mock) SignAndBroadcast(_ context.Context, w *chain.Wallet, in []types.TradeInstruction) (*types.BroadcastResult, error) {
	m.mu.Lock()
	m.Broadcasts = append(m.Broadcasts, in)
	fn := m.BroadcastFn
	m.mu.Unlock()
	if fn != nil {
		return fn(w, in)
	}
	return &types.BroadcastResult{TxHash: "ABCDEF", Height: 100, GasUsed: 100000, GasWanted: 160000}, nil
}

func (m *Mock) GetTransaction(_ context.Context, txHash string) (*types.TransactionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Transactions[txHash]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *Mock) GetHeight(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Height, nil
}

func (m *Mock) GetAllBalances(_ context.Context, address string) ([]types.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Coin(nil), m.Balances[address]...), nil
}

func (m *Mock) DenomTrace(_ context.Context, ibcDenom string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base, ok := m.DenomTraces[ibcDenom]
	if !ok {
		return "", fmt.Errorf("%w: no trace for %s", chain.ErrQueryFailed, ibcDenom)
	}
	return base, nil
}

var _ chain.Client = (*Mock)(nil)
