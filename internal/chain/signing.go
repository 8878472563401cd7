package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/query"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authsigning "github.com/cosmos/cosmos-sdk/x/auth/signing"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	transfertypes "github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"

	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/types"
)

var chainLogger = logger.GetForComponent("chain_client")

// gasBuffer is added on top of the adjusted simulation result.
const gasBuffer = 10000

// Options are the chain parameters the signing client needs.
type Options struct {
	ChainID          string
	Bech32Prefix     string
	DefaultGasLimit  uint64
	GasAdjustment    float64
	GasPriceAmount   string
	GasPriceDenom    string
	Memo             string
	QueryTimeout     time.Duration
	BroadcastTimeout time.Duration
	PollInterval     time.Duration
}

// OptionsFromConfig copies the chain settings out of the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChainID:          cfg.ChainID,
		Bech32Prefix:     cfg.Bech32Prefix,
		DefaultGasLimit:  cfg.DefaultGasLimit,
		GasAdjustment:    cfg.GasAdjustment,
		GasPriceAmount:   cfg.GasPriceAmount,
		GasPriceDenom:    cfg.GasPriceDenom,
		Memo:             cfg.Memo,
		QueryTimeout:     cfg.QueryTimeout,
		BroadcastTimeout: cfg.BroadcastTimeout,
		PollInterval:     cfg.BroadcastPollInterval,
	}
}

// Validate validates all chain option parameters
func (o Options) Validate() error {
	if o.ChainID == "" {
		return errors.New("chain ID cannot be empty")
	}
	if o.Bech32Prefix == "" {
		return errors.New("bech32 prefix cannot be empty")
	}
	if o.DefaultGasLimit == 0 {
		return errors.New("default gas limit cannot be zero")
	}
	if math.IsNaN(o.GasAdjustment) || math.IsInf(o.GasAdjustment, 0) {
		return errors.New("gas adjustment is not finite")
	}
	if o.GasAdjustment <= 0 || o.GasAdjustment > 10 {
		return errors.New("gas adjustment must be between 0 and 10")
	}
	if o.GasPriceAmount == "" {
		return errors.New("gas price amount cannot be empty")
	}
	if _, err := sdkmath.LegacyNewDecFromStr(o.GasPriceAmount); err != nil {
		return fmt.Errorf("gas price amount is not a decimal: %w", err)
	}
	if o.GasPriceDenom == "" {
		return errors.New("gas price denomination cannot be empty")
	}
	if o.QueryTimeout <= 0 || o.BroadcastTimeout <= 0 || o.PollInterval <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func (o Options) gasPrice() string {
	return o.GasPriceAmount + o.GasPriceDenom
}

// SigningClient talks to one chain over gRPC (queries, simulation, tx lookup)
// and CometBFT RPC (broadcast, height). It holds no key material; every
// transaction is signed by the Wallet passed in.
type SigningClient struct {
	opts        Options
	encoding    EncodingConfig
	clientCtx   client.Context
	grpcConn    *grpc.ClientConn
	rpcClient   *rpchttp.HTTP
	broadcaster txBroadcaster
}

// txBroadcaster is the CometBFT call used to submit signed bytes.
type txBroadcaster interface {
	BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*coretypes.ResultBroadcastTx, error)
}

// NewSigningClient creates a new signing client with comprehensive validation
func NewSigningClient(opts Options, grpcConn *grpc.ClientConn, rpcEndpoint string) (*SigningClient, error) {
	if grpcConn == nil {
		return nil, errors.Join(ErrGRPCConnectionInvalid, errors.New("gRPC connection cannot be nil"))
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := configureSDK(opts.Bech32Prefix); err != nil {
		return nil, errors.Join(ErrSDKConfigFailed, err)
	}

	rpcClient, err := rpchttp.New(rpcEndpoint, "/websocket")
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, fmt.Errorf("failed to create RPC client: %w", err))
	}

	encoding, err := MakeEncodingConfig(opts.Bech32Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoding config: %w", err)
	}

	clientCtx := client.Context{}.
		WithCodec(encoding.Codec).
		WithInterfaceRegistry(encoding.InterfaceRegistry).
		WithTxConfig(encoding.TxConfig).
		WithLegacyAmino(encoding.Amino).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync).
		WithChainID(opts.ChainID).
		WithGRPCClient(grpcConn).
		WithClient(rpcClient)

	chainLogger.Info().
		Str("chainID", opts.ChainID).
		Str("rpcEndpoint", rpcEndpoint).
		Str("gasPrice", opts.gasPrice()).
		Msg("Chain client initialized")

	return &SigningClient{
		opts:        opts,
		encoding:    encoding,
		clientCtx:   clientCtx,
		grpcConn:    grpcConn,
		rpcClient:   rpcClient,
		broadcaster: rpcClient,
	}, nil
}

// Close closes the gRPC connection safely
func (s *SigningClient) Close() error {
	if s.grpcConn != nil {
		if err := s.grpcConn.Close(); err != nil {
			chainLogger.Error().Err(err).Msg("Failed to close gRPC connection")
			return fmt.Errorf("failed to close gRPC connection: %w", err)
		}
	}
	return nil
}

func (s *SigningClient) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}

// QueryContractSmart runs a smart query against a CosmWasm contract.
func (s *SigningClient) QueryContractSmart(ctx context.Context, contract string, q any, out any) error {
	queryData, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	res, err := wasmtypes.NewQueryClient(s.grpcConn).SmartContractState(qctx, &wasmtypes.QuerySmartContractStateRequest{
		Address:   contract,
		QueryData: queryData,
	})
	if err != nil {
		return errors.Join(ErrQueryFailed, fmt.Errorf("smart query %s on %s: %w", string(queryData), contract, err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("failed to decode smart query response from %s: %w", contract, err)
	}
	return nil
}

// buildTx builds an unsigned transaction for the wallet with the given gas limit.
func (s *SigningClient) buildTx(ctx context.Context, w *Wallet, msgs []sdk.Msg, gas uint64) (client.TxBuilder, tx.Factory, error) {
	account, err := s.clientCtx.AccountRetriever.GetAccount(s.clientCtx.WithCmdContext(ctx), w.AccAddress())
	if err != nil {
		return nil, tx.Factory{}, errors.Join(ErrAccountRetrieval, fmt.Errorf("failed to get account info: %w", err))
	}
	if account == nil {
		return nil, tx.Factory{}, errors.Join(ErrAccountRetrieval, errors.New("account is nil"))
	}

	txFactory := tx.Factory{}.
		WithChainID(s.opts.ChainID).
		WithTxConfig(s.clientCtx.TxConfig).
		WithAccountRetriever(s.clientCtx.AccountRetriever).
		WithAccountNumber(account.GetAccountNumber()).
		WithSequence(account.GetSequence()).
		WithGas(gas).
		WithGasAdjustment(s.opts.GasAdjustment).
		WithGasPrices(s.opts.gasPrice()).
		WithMemo(s.opts.Memo).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT)

	txBuilder, err := txFactory.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, tx.Factory{}, errors.Join(ErrTxBuildFailed, fmt.Errorf("failed to build unsigned tx: %w", err))
	}
	return txBuilder, txFactory, nil
}

// Simulate estimates gas for the instructions. The returned limit applies the
// configured adjustment plus a fixed buffer.
func (s *SigningClient) Simulate(ctx context.Context, w *Wallet, instructions []types.TradeInstruction) (*types.GasEstimate, error) {
	msgs, err := InstructionsToMessages(w.Address(), instructions)
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}

	gasUsed, err := s.simulateMsgs(ctx, w, msgs)
	if err != nil {
		return nil, err
	}
	limit := s.adjustGas(gasUsed)

	return &types.GasEstimate{
		GasUsed:   gasUsed,
		GasLimit:  limit,
		GasPrice:  s.opts.gasPrice(),
		FeeAmount: s.fee(limit),
		FeeDenom:  s.opts.GasPriceDenom,
	}, nil
}

func (s *SigningClient) simulateMsgs(ctx context.Context, w *Wallet, msgs []sdk.Msg) (uint64, error) {
	txBuilder, txFactory, err := s.buildTx(ctx, w, msgs, s.opts.DefaultGasLimit)
	if err != nil {
		return 0, err
	}

	// Simulation needs the real public key but no signature.
	sig := signing.SignatureV2{
		PubKey:   w.PubKey(),
		Data:     &signing.SingleSignatureData{SignMode: txFactory.SignMode()},
		Sequence: txFactory.Sequence(),
	}
	if err := txBuilder.SetSignatures(sig); err != nil {
		return 0, errors.Join(ErrTxBuildFailed, err)
	}
	txBytes, err := s.clientCtx.TxConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		return 0, errors.Join(ErrTxBuildFailed, fmt.Errorf("failed to encode simulation tx: %w", err))
	}

	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	simRes, err := txtypes.NewServiceClient(s.grpcConn).Simulate(qctx, &txtypes.SimulateRequest{TxBytes: txBytes})
	if err != nil {
		if isSlippageLog(err.Error()) {
			return 0, errors.Join(ErrSlippageExceeded, ErrGasSimulationFailed, err)
		}
		return 0, errors.Join(ErrGasSimulationFailed, err)
	}
	if simRes == nil || simRes.GasInfo == nil {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("gas info is nil in simulation response"))
	}
	if simRes.GasInfo.GasUsed == 0 {
		return 0, errors.Join(ErrGasSimulationFailed, errors.New("simulated gas usage is zero"))
	}

	chainLogger.Debug().
		Uint64("simulatedGas", simRes.GasInfo.GasUsed).
		Int("messageCount", len(msgs)).
		Msg("Gas simulation completed")

	return simRes.GasInfo.GasUsed, nil
}

func (s *SigningClient) adjustGas(simulated uint64) uint64 {
	return uint64(s.opts.GasAdjustment*float64(simulated)) + gasBuffer
}

// fee is ceil(gasPrice * gasLimit) in base units.
func (s *SigningClient) fee(gasLimit uint64) sdkmath.Int {
	price, err := sdkmath.LegacyNewDecFromStr(s.opts.GasPriceAmount)
	if err != nil {
		return sdkmath.ZeroInt()
	}
	return price.MulInt(sdkmath.NewIntFromUint64(gasLimit)).Ceil().TruncateInt()
}

// SignAndBroadcast signs the instructions as one transaction, broadcasts it
// in sync mode and waits for it to land in a block.
func (s *SigningClient) SignAndBroadcast(ctx context.Context, w *Wallet, instructions []types.TradeInstruction) (*types.BroadcastResult, error) {
	chainLogger.Info().
		Int("messageCount", len(instructions)).
		Str("sender", w.Address()).
		Msg("SignAndBroadcast: Starting transaction signing and broadcasting")

	msgs, err := InstructionsToMessages(w.Address(), instructions)
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}

	gasLimit := s.opts.DefaultGasLimit
	simulated, err := s.simulateMsgs(ctx, w, msgs)
	switch {
	case errors.Is(err, ErrSlippageExceeded):
		return nil, err
	case err != nil:
		chainLogger.Warn().Err(err).Uint64("defaultGasLimit", gasLimit).Msg("SignAndBroadcast: Gas estimation failed, using default gas limit")
	default:
		gasLimit = s.adjustGas(simulated)
	}

	txBuilder, txFactory, err := s.buildTx(ctx, w, msgs, gasLimit)
	if err != nil {
		return nil, err
	}

	signerData := authsigning.SignerData{
		Address:       w.Address(),
		ChainID:       txFactory.ChainID(),
		AccountNumber: txFactory.AccountNumber(),
		Sequence:      txFactory.Sequence(),
		PubKey:        w.PubKey(),
	}
	// SIGN_MODE_DIRECT signs over the signer infos, so the empty signature
	// has to be set before the sign bytes are computed.
	empty := signing.SignatureV2{
		PubKey:   w.PubKey(),
		Data:     &signing.SingleSignatureData{SignMode: txFactory.SignMode()},
		Sequence: txFactory.Sequence(),
	}
	if err := txBuilder.SetSignatures(empty); err != nil {
		return nil, errors.Join(ErrTxSignFailed, err)
	}
	sig, err := tx.SignWithPrivKey(ctx, txFactory.SignMode(), signerData, txBuilder, w.priv, s.clientCtx.TxConfig, txFactory.Sequence())
	if err != nil {
		return nil, errors.Join(ErrTxSignFailed, fmt.Errorf("failed to sign transaction: %w", err))
	}
	if err := txBuilder.SetSignatures(sig); err != nil {
		return nil, errors.Join(ErrTxSignFailed, err)
	}

	txBytes, err := s.clientCtx.TxConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, fmt.Errorf("failed to encode transaction: %w", err))
	}

	res, err := s.broadcast(ctx, txBytes)
	if err != nil {
		return nil, err
	}
	if res.Code != 0 {
		chainLogger.Error().Str("txHash", res.TxHash).Uint32("code", res.Code).Str("rawLog", res.RawLog).Msg("SignAndBroadcast: CheckTx rejected transaction")
		return nil, classifyRejection(res.Code, res.RawLog)
	}

	chainLogger.Info().
		Str("txHash", res.TxHash).
		Uint64("gasLimit", gasLimit).
		Msg("SignAndBroadcast: Transaction accepted into mempool, waiting for commit")

	committed, err := s.waitForTx(ctx, res.TxHash)
	if err != nil {
		return nil, err
	}
	if committed.Code != 0 {
		chainLogger.Error().Str("txHash", res.TxHash).Uint32("code", committed.Code).Str("rawLog", committed.RawLog).Msg("SignAndBroadcast: Transaction failed in block")
		return nil, fmt.Errorf("tx %s: %w", res.TxHash, classifyRejection(committed.Code, committed.RawLog))
	}

	result := &types.BroadcastResult{
		TxHash:    committed.TxHash,
		Height:    committed.Height,
		GasUsed:   committed.GasUsed,
		GasWanted: committed.GasWanted,
		Events:    flattenEvents(committed),
		Fee:       []types.Coin{{Denom: s.opts.GasPriceDenom, Amount: s.fee(gasLimit)}},
	}

	chainLogger.Info().
		Str("txHash", result.TxHash).
		Int64("height", result.Height).
		Int64("gasUsed", result.GasUsed).
		Msg("SignAndBroadcast: Transaction committed")

	return result, nil
}

// broadcast submits signed bytes in sync mode. The call is bounded by the
// broadcast timeout.
func (s *SigningClient) broadcast(ctx context.Context, txBytes []byte) (*sdk.TxResponse, error) {
	bctx, cancel := context.WithTimeout(ctx, s.opts.BroadcastTimeout)
	defer cancel()

	raw, err := s.broadcaster.BroadcastTxSync(bctx, txBytes)
	if errRes := client.CheckCometError(err, txBytes); errRes != nil {
		return errRes, nil
	}
	if err != nil {
		return nil, errors.Join(ErrTxBroadcastFailed, fmt.Errorf("failed to broadcast transaction: %w", err))
	}
	res := sdk.NewResponseFormatBroadcastTx(raw)
	if res == nil || res.TxHash == "" {
		return nil, errors.Join(ErrTxBroadcastFailed, errors.New("transaction response has no hash"))
	}
	return res, nil
}

// waitForTx polls GetTx until the transaction is found or the broadcast
// timeout elapses. The timeout also bounds each GetTx call.
func (s *SigningClient) waitForTx(ctx context.Context, txHash string) (*sdk.TxResponse, error) {
	wctx, cancel := context.WithTimeout(ctx, s.opts.BroadcastTimeout)
	defer cancel()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	svc := txtypes.NewServiceClient(s.grpcConn)
	for {
		select {
		case <-wctx.Done():
			timeout := &BroadcastTimeoutError{TxHash: txHash, Timeout: s.opts.BroadcastTimeout}
			if err := ctx.Err(); err != nil {
				return nil, errors.Join(timeout, err)
			}
			return nil, timeout
		case <-ticker.C:
			res, err := svc.GetTx(wctx, &txtypes.GetTxRequest{Hash: txHash})
			if isNotFound(err) {
				continue
			}
			if err != nil {
				chainLogger.Debug().Err(err).Str("txHash", txHash).Msg("Polling transaction failed, retrying")
				continue
			}
			if res.TxResponse != nil {
				return res.TxResponse, nil
			}
		}
	}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.NotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func flattenEvents(res *sdk.TxResponse) []types.TxEvent {
	events := make([]types.TxEvent, 0, len(res.Events))
	for _, e := range res.Events {
		attrs := make(map[string]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Key] = a.Value
		}
		events = append(events, types.TxEvent{Type: e.Type, Attributes: attrs})
	}
	return events
}

// GetTransaction looks up a transaction by hash.
func (s *SigningClient) GetTransaction(ctx context.Context, txHash string) (*types.TransactionStatus, error) {
	if txHash == "" {
		return nil, errors.New("transaction hash cannot be empty")
	}
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	res, err := txtypes.NewServiceClient(s.grpcConn).GetTx(qctx, &txtypes.GetTxRequest{Hash: txHash})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, fmt.Errorf("failed to query transaction %s: %w", txHash, err))
	}
	if res.TxResponse == nil {
		return nil, nil
	}
	r := res.TxResponse
	st := &types.TransactionStatus{
		TxHash:    r.TxHash,
		TxBlock:   r.Height,
		GasUsed:   r.GasUsed,
		GasWanted: r.GasWanted,
		Code:      r.Code,
		RawLog:    r.RawLog,
	}
	switch {
	case r.Height == 0:
		st.TxStatus = 0
	case r.Code == 0:
		st.TxStatus = 1
	default:
		st.TxStatus = -1
	}
	return st, nil
}

// GetHeight returns the latest block height reported by the node.
func (s *SigningClient) GetHeight(ctx context.Context) (int64, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	st, err := s.rpcClient.Status(qctx)
	if err != nil {
		return 0, errors.Join(ErrQueryFailed, fmt.Errorf("failed to get node status: %w", err))
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

// GetAllBalances returns every bank balance of an address, following pagination.
func (s *SigningClient) GetAllBalances(ctx context.Context, address string) ([]types.Coin, error) {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	bank := banktypes.NewQueryClient(s.grpcConn)
	var (
		coins   []types.Coin
		nextKey []byte
	)
	for {
		res, err := bank.AllBalances(qctx, &banktypes.QueryAllBalancesRequest{
			Address:    address,
			Pagination: &query.PageRequest{Key: nextKey},
		})
		if err != nil {
			return nil, errors.Join(ErrQueryFailed, fmt.Errorf("failed to query balances of %s: %w", address, err))
		}
		for _, c := range res.Balances {
			coins = append(coins, types.Coin{Denom: c.Denom, Amount: c.Amount})
		}
		if res.Pagination == nil || len(res.Pagination.NextKey) == 0 {
			return coins, nil
		}
		nextKey = res.Pagination.NextKey
	}
}

// DenomTrace resolves "ibc/<hash>" to its base denom through the transfer module.
func (s *SigningClient) DenomTrace(ctx context.Context, ibcDenom string) (string, error) {
	hash := strings.TrimPrefix(ibcDenom, "ibc/")
	if hash == "" || hash == ibcDenom {
		return "", fmt.Errorf("%s is not an IBC denom", ibcDenom)
	}
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	res, err := transfertypes.NewQueryClient(s.grpcConn).DenomTrace(qctx, &transfertypes.QueryDenomTraceRequest{Hash: hash})
	if err != nil {
		return "", errors.Join(ErrQueryFailed, fmt.Errorf("failed to resolve denom trace %s: %w", ibcDenom, err))
	}
	if res.DenomTrace == nil {
		return "", fmt.Errorf("denom trace for %s is empty", ibcDenom)
	}
	return res.DenomTrace.BaseDenom, nil
}

var _ Client = (*SigningClient)(nil)
