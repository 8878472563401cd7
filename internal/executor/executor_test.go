package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/chain/chaintest"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/pricing"
	"github.com/elys-network/cwgateway/internal/registry"
	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/types"
)

const (
	passphrase  = "correct horse battery staple"
	testAddress = "aura1znd5zwx4dghvlvggsx5muw2dnuepnpdjekl4eh"
)

var (
	testKey = bytes.Repeat([]byte{0x42}, 32)

	aura = types.AssetRef{Symbol: "AURA", Name: "Aura", Address: "uaura", Kind: types.AssetKindNative, Decimals: 6}
	atom = types.AssetRef{Symbol: "ATOM", Name: "Cosmos Hub", Address: "ibc/ATOM", Kind: types.AssetKindIBC, Decimals: 6}
	usdc = types.AssetRef{Symbol: "USDC", Name: "USD Coin", Address: "aura1usdc", Kind: types.AssetKindContractToken, Decimals: 6}
)

type memRecorder struct {
	mu       sync.Mutex
	receipts []types.Receipt
	err      error
}

func (m *memRecorder) RecordReceipt(_ context.Context, r types.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.receipts = append(m.receipts, r)
	return nil
}

type fixture struct {
	exec     *Executor
	mock     *chaintest.Mock
	store    *keystore.FileStore
	recorder *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg, err := registry.New(
		[]types.AssetRef{aura, atom, usdc},
		[]types.Pool{{ID: "ATOM-USDC", AssetA: atom, AssetB: usdc, ContractAddress: "aura1pool"}},
	)
	require.NoError(t, err)
	reg, err = reg.WithMarkets([]types.Market{{
		MarketID:         "ATOM-USDC",
		BaseAsset:        atom,
		QuoteAsset:       usdc,
		ContractAddress:  "aura1book",
		MinimumOrderSize: sdkmath.LegacyMustNewDecFromStr("0.000001"),
	}})
	require.NoError(t, err)

	store, err := keystore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	record, err := keystore.EncryptPrivateKey(testKey, passphrase)
	require.NoError(t, err)
	require.NoError(t, store.Save("aura", testAddress, record))

	orders, err := trade.NewOrderBuilder(trade.DefaultDecimalScale)
	require.NoError(t, err)

	mock := &chaintest.Mock{Height: 120}
	rec := &memRecorder{}
	exec, err := NewExecutor(Config{
		Network:         "aura",
		Bech32Prefix:    "aura",
		Client:          mock,
		Registry:        reg,
		AMM:             pricing.NewAMM(mock, "aura1router", "halo_swap"),
		CLOB:            pricing.NewCLOB(mock),
		Orders:          orders,
		Wallets:         store,
		Passphrase:      keystore.StaticPassphrase(passphrase),
		Recorder:        rec,
		DefaultSlippage: "1%",
		Gas:             GasSettings{Limit: 200000, PriceAmount: "0.025", PriceDenom: "uaura"},
	})
	require.NoError(t, err)
	return &fixture{exec: exec, mock: mock, store: store, recorder: rec}
}

// router answers forward and reverse simulations with fixed amounts.
func router(forward, reverse string) chaintest.QueryHandler {
	return func(contract string, q map[string]json.RawMessage) (any, error) {
		switch {
		case q["simulate_swap_operations"] != nil:
			return map[string]string{"amount": forward}, nil
		case q["reverse_simulate_swap_operations"] != nil:
			return map[string]string{"amount": reverse}, nil
		}
		return nil, errors.New("unexpected query")
	}
}

type swapMsg struct {
	ExecuteSwapOperations struct {
		MinimumReceive string `json:"minimum_receive"`
	} `json:"execute_swap_operations"`
}

func TestTradeSell(t *testing.T) {
	f := newFixture(t)
	f.mock.Query = router("60000000", "")

	res, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address:         testAddress,
		Base:            "ATOM",
		Quote:           "USDC",
		Amount:          "10",
		Side:            types.SideSell,
		AllowedSlippage: "1/100",
	})
	require.NoError(t, err)

	assert.Equal(t, "ABCDEF", res.TxHash)
	assert.Equal(t, "10000000", res.RawAmount)
	assert.Equal(t, "60.0", res.ExpectedAmount)
	assert.Equal(t, "59.4", res.MinimumOut)
	assert.Equal(t, "6.0", res.Price)
	assert.Empty(t, res.MaximumIn)
	assert.Equal(t, "aura", res.Network)

	require.Len(t, f.mock.Broadcasts, 1)
	require.Len(t, f.mock.Broadcasts[0], 1)
	ins := f.mock.Broadcasts[0][0]
	assert.Equal(t, "aura1router", ins.ContractAddress)
	require.Len(t, ins.Funds, 1)
	assert.Equal(t, "ibc/ATOM", ins.Funds[0].Denom)
	assert.Equal(t, int64(10_000_000), ins.Funds[0].Amount.Int64())

	var msg swapMsg
	require.NoError(t, json.Unmarshal(ins.Msg, &msg))
	assert.Equal(t, "59400000", msg.ExecuteSwapOperations.MinimumReceive)

	require.Len(t, f.recorder.receipts, 1)
	rec := f.recorder.receipts[0]
	assert.Equal(t, "ABCDEF", rec.TxHash)
	assert.Equal(t, types.ReceiptSwap, rec.Kind)
	assert.Equal(t, "ATOM-USDC", rec.Venue)
	assert.NotEmpty(t, rec.ID)
}

func TestTradeBuyReverseThenForward(t *testing.T) {
	f := newFixture(t)
	f.mock.Query = router("1010000", "6100000")

	res, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address:         testAddress,
		Base:            "atom",
		Quote:           "usdc",
		Amount:          "1",
		Side:            types.SideBuy,
		AllowedSlippage: "2%",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"reverse_simulate_swap_operations", "simulate_swap_operations"}, f.mock.QueryNames())
	assert.Equal(t, "6.1", res.ExpectedIn)
	assert.Equal(t, "6.1", res.ExpectedAmount)
	assert.Equal(t, "6.222", res.MaximumIn)
	assert.Equal(t, "0.9898", res.MinimumOut)
	assert.Equal(t, "6.1", res.Price)

	// the forward pass is priced on the reverse result
	var fwd struct {
		SimulateSwapOperations struct {
			OfferAmount string `json:"offer_amount"`
		} `json:"simulate_swap_operations"`
	}
	raw, err := json.Marshal(f.mock.Queries[1].Query)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fwd))
	assert.Equal(t, "6100000", fwd.SimulateSwapOperations.OfferAmount)

	// USDC is a cw20, so the router is reached through a send on the token
	require.Len(t, f.mock.Broadcasts, 1)
	ins := f.mock.Broadcasts[0][0]
	assert.Equal(t, "aura1usdc", ins.ContractAddress)
	assert.Empty(t, ins.Funds)

	var send struct {
		Send struct {
			Contract string `json:"contract"`
			Amount   string `json:"amount"`
			Msg      string `json:"msg"`
		} `json:"send"`
	}
	require.NoError(t, json.Unmarshal(ins.Msg, &send))
	assert.Equal(t, "aura1router", send.Send.Contract)
	assert.Equal(t, "6100000", send.Send.Amount)
	inner, err := base64.StdEncoding.DecodeString(send.Send.Msg)
	require.NoError(t, err)
	var msg swapMsg
	require.NoError(t, json.Unmarshal(inner, &msg))
	assert.Equal(t, "989800", msg.ExecuteSwapOperations.MinimumReceive)
}

func TestEstimateGas(t *testing.T) {
	f := newFixture(t)

	static, err := f.exec.EstimateGas(context.Background(), types.TradeRequest{})
	require.NoError(t, err)
	assert.False(t, static.Simulated)
	assert.Equal(t, uint64(200000), static.GasLimit)
	assert.Equal(t, "0.025", static.GasPrice)
	assert.Equal(t, "AURA", static.GasPriceToken)
	assert.Equal(t, "0.005", static.GasCost)
	assert.Empty(t, f.mock.Simulated)

	f.mock.Query = router("60000000", "")
	sim, err := f.exec.EstimateGas(context.Background(), types.TradeRequest{
		Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	require.NoError(t, err)
	assert.True(t, sim.Simulated)
	assert.Equal(t, uint64(160000), sim.GasLimit)
	assert.Equal(t, "0.004", sim.GasCost)
	assert.Len(t, f.mock.Simulated, 1)
	assert.Empty(t, f.mock.Broadcasts, "simulation never broadcasts")
	assert.Empty(t, f.recorder.receipts)
}

func TestTradeWrongPassphrase(t *testing.T) {
	f := newFixture(t)
	f.exec.passphrase = keystore.StaticPassphrase("wrong")
	f.mock.Query = router("60000000", "")

	_, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	require.ErrorIs(t, err, keystore.ErrAuthentication)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageUnlocking, stageErr.Stage)
	assert.Empty(t, f.mock.Queries, "nothing is priced before the wallet unlocks")
}

func TestTradeWalletMismatch(t *testing.T) {
	f := newFixture(t)
	other, err := keystore.EncryptPrivateKey(bytes.Repeat([]byte{0x43}, 32), passphrase)
	require.NoError(t, err)
	require.NoError(t, f.store.Save("aura", testAddress, other))

	_, err = f.exec.Trade(context.Background(), types.TradeRequest{
		Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	assert.ErrorIs(t, err, ErrWalletMismatch)
	assert.ErrorIs(t, err, keystore.ErrAuthentication)
}

func TestTradeUnknownWallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address: "aura1nobody", Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	assert.ErrorIs(t, err, keystore.ErrRecordNotFound)
}

func TestTradeBroadcastTimeout(t *testing.T) {
	f := newFixture(t)
	f.mock.Query = router("60000000", "")
	f.mock.BroadcastFn = func(*chain.Wallet, []types.TradeInstruction) (*types.BroadcastResult, error) {
		return nil, &chain.BroadcastTimeoutError{TxHash: "PENDING", Timeout: 8 * time.Second}
	}

	_, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	require.ErrorIs(t, err, chain.ErrBroadcastTimeout)
	var timeout *chain.BroadcastTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "PENDING", timeout.TxHash)
	assert.Empty(t, f.recorder.receipts)
}

func TestJournalFailureDoesNotFailTrade(t *testing.T) {
	f := newFixture(t)
	f.mock.Query = router("60000000", "")
	f.recorder.err = errors.New("db down")

	res, err := f.exec.Trade(context.Background(), types.TradeRequest{
		Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "10", Side: types.SideSell,
	})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", res.TxHash)
}

func TestTradeRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		req  types.TradeRequest
		want error
	}{
		{types.TradeRequest{Address: testAddress, Base: "DOGE", Quote: "USDC", Amount: "1", Side: types.SideSell}, registry.ErrUnknownAsset},
		{types.TradeRequest{Address: testAddress, Base: "AURA", Quote: "USDC", Amount: "1", Side: types.SideSell}, registry.ErrUnknownMarket},
		{types.TradeRequest{Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "abc", Side: types.SideSell}, ErrInvalidRequest},
		{types.TradeRequest{Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "0.0000001", Side: types.SideSell}, ErrInvalidRequest},
		{types.TradeRequest{Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "1"}, ErrInvalidRequest},
		{types.TradeRequest{Address: testAddress, Base: "ATOM", Quote: "USDC", Amount: "1", Side: types.SideSell, AllowedSlippage: "150%"}, trade.ErrInvalidSlippage},
	}
	for _, tc := range cases {
		_, err := f.exec.Trade(context.Background(), tc.req)
		assert.ErrorIs(t, err, tc.want, "%+v", tc.req)
	}
	assert.Empty(t, f.mock.Broadcasts)
}

func TestPrice(t *testing.T) {
	f := newFixture(t)
	f.mock.Query = func(contract string, q map[string]json.RawMessage) (any, error) {
		require.Equal(t, "aura1pool", contract)
		return map[string]any{"assets": []types.Asset{
			{Info: types.NativeAssetInfo("ibc/ATOM"), Amount: sdkmath.NewInt(1_000_000_000)},
			{Info: types.TokenAssetInfo("aura1usdc"), Amount: sdkmath.NewInt(6_000_000_000)},
		}}, nil
	}

	for _, side := range []types.Side{types.SideSell, types.SideBuy} {
		res, err := f.exec.Price(context.Background(), types.PriceRequest{Base: "ATOM", Quote: "USDC", Amount: "10", Side: side})
		require.NoError(t, err)
		assert.Equal(t, "6.0", res.Price)
		assert.Equal(t, "60.0", res.ExpectedAmount, "both sides report the price-derived amount")
		assert.Equal(t, "10000000", res.RawAmount)
		assert.Equal(t, "0.005", res.GasCost)
	}

	// the pool is found whichever way round the pair is named
	res, err := f.exec.Price(context.Background(), types.PriceRequest{Base: "USDC", Quote: "ATOM", Amount: "6", Side: types.SideSell})
	require.NoError(t, err)
	assert.Equal(t, "0.166666666666666666", res.Price)
}
