package chain

import (
	"context"

	"github.com/elys-network/cwgateway/internal/types"
)

// Client is everything the pricing and execution layers need from a node.
// SigningClient is the gRPC/RPC implementation; tests use chaintest.Mock.
type Client interface {
	// QueryContractSmart runs a JSON smart query and decodes the reply into out.
	QueryContractSmart(ctx context.Context, contract string, query any, out any) error
	// Simulate estimates gas for the instructions signed by w.
	Simulate(ctx context.Context, w *Wallet, instructions []types.TradeInstruction) (*types.GasEstimate, error)
	// SignAndBroadcast submits one transaction and waits for it to be committed.
	// A wait that runs out returns *BroadcastTimeoutError with the hash.
	SignAndBroadcast(ctx context.Context, w *Wallet, instructions []types.TradeInstruction) (*types.BroadcastResult, error)
	// GetTransaction returns nil, nil if the node does not know the hash.
	GetTransaction(ctx context.Context, txHash string) (*types.TransactionStatus, error)
	GetHeight(ctx context.Context) (int64, error)
	GetAllBalances(ctx context.Context, address string) ([]types.Coin, error)
	// DenomTrace resolves the base denom of an "ibc/<hash>" denom.
	DenomTrace(ctx context.Context, ibcDenom string) (string, error)
}
