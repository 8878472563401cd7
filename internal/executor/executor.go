// Package executor coordinates a request from pricing through signing to a
// receipt. Every trade runs the stages Unlocking, Estimating, Building and
// then Simulating or Broadcasting, ending in Done or Failed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/pricing"
	"github.com/elys-network/cwgateway/internal/registry"
	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/types"
)

var (
	// ErrInvalidRequest covers malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrWalletMismatch means a record decrypted to a key for another address.
	ErrWalletMismatch = errors.New("wallet record does not match address")
)

// WalletStore persists encrypted key records per chain and address.
type WalletStore interface {
	Save(chain, address string, record *keystore.EncryptedKeyRecord) error
	Load(chain, address string) (*keystore.EncryptedKeyRecord, error)
	List(chain string) ([]string, error)
	Chains() ([]string, error)
}

// Recorder journals receipts of committed transactions.
type Recorder interface {
	RecordReceipt(ctx context.Context, r types.Receipt) error
}

// GasSettings are the static gas parameters reported when nothing is simulated.
type GasSettings struct {
	Limit       uint64
	PriceAmount string
	PriceDenom  string
}

// Config holds the dependencies of an Executor.
type Config struct {
	Network         string
	Bech32Prefix    string
	Client          chain.Client
	Registry        *registry.Registry
	AMM             *pricing.AMM
	CLOB            *pricing.CLOB
	Orders          *trade.OrderBuilder
	Wallets         WalletStore
	Passphrase      keystore.PassphraseSource
	Recorder        Recorder // optional
	DefaultSlippage string
	Gas             GasSettings
}

// Executor serves every gateway operation for one chain.
type Executor struct {
	logger          zerolog.Logger
	network         string
	prefix          string
	client          chain.Client
	registry        *registry.Registry
	amm             *pricing.AMM
	clob            *pricing.CLOB
	orders          *trade.OrderBuilder
	wallets         WalletStore
	passphrase      keystore.PassphraseSource
	recorder        Recorder
	defaultSlippage sdkmath.LegacyDec
	gas             GasSettings
	gasPrice        sdkmath.LegacyDec
	now             func() time.Time
}

func NewExecutor(cfg Config) (*Executor, error) {
	if err := validateExecutorConfig(cfg); err != nil {
		return nil, fmt.Errorf("executor configuration validation failed: %w", err)
	}
	slippage, err := trade.ParseSlippage(cfg.DefaultSlippage)
	if err != nil {
		return nil, fmt.Errorf("default slippage: %w", err)
	}
	gasPrice, err := sdkmath.LegacyNewDecFromStr(cfg.Gas.PriceAmount)
	if err != nil {
		return nil, fmt.Errorf("gas price amount: %w", err)
	}

	e := &Executor{
		logger:          logger.GetForComponent("executor"),
		network:         cfg.Network,
		prefix:          cfg.Bech32Prefix,
		client:          cfg.Client,
		registry:        cfg.Registry,
		amm:             cfg.AMM,
		clob:            cfg.CLOB,
		orders:          cfg.Orders,
		wallets:         cfg.Wallets,
		passphrase:      cfg.Passphrase,
		recorder:        cfg.Recorder,
		defaultSlippage: slippage,
		gas:             cfg.Gas,
		gasPrice:        gasPrice,
		now:             time.Now,
	}

	e.logger.Info().
		Str("network", e.network).
		Int("tokens", len(e.registry.Tokens())).
		Int("pools", len(e.registry.Pools())).
		Int("markets", len(e.registry.Markets())).
		Bool("journal", e.recorder != nil).
		Msg("Executor created")
	return e, nil
}

func validateExecutorConfig(cfg Config) error {
	switch {
	case cfg.Network == "":
		return errors.New("network cannot be empty")
	case cfg.Bech32Prefix == "":
		return errors.New("bech32 prefix cannot be empty")
	case cfg.Client == nil:
		return errors.New("chain client cannot be nil")
	case cfg.Registry == nil:
		return errors.New("registry cannot be nil")
	case cfg.AMM == nil || cfg.CLOB == nil:
		return errors.New("venue pricers cannot be nil")
	case cfg.Orders == nil:
		return errors.New("order builder cannot be nil")
	case cfg.Wallets == nil:
		return errors.New("wallet store cannot be nil")
	case cfg.Passphrase == nil:
		return errors.New("passphrase source cannot be nil")
	case cfg.Gas.Limit == 0 || cfg.Gas.PriceDenom == "":
		return errors.New("gas settings are incomplete")
	}
	return nil
}

// Network is the chain name responses report.
func (e *Executor) Network() string { return e.network }

// Registry exposes the loaded venues.
func (e *Executor) Registry() *registry.Registry { return e.registry }

func (e *Executor) envelope(start time.Time) types.Envelope {
	return types.Envelope{
		Network:   e.network,
		Timestamp: start.UnixMilli(),
		Latency:   e.now().Sub(start).Seconds(),
	}
}

func (e *Executor) record(ctx context.Context, log zerolog.Logger, r types.Receipt) {
	if e.recorder == nil {
		return
	}
	r.ID = uuid.NewString()
	r.Network = e.network
	r.CreatedAt = e.now().UTC()
	if err := e.recorder.RecordReceipt(ctx, r); err != nil {
		log.Error().Err(err).Str("txHash", r.TxHash).Msg("Failed to journal receipt")
		return
	}
	log.Debug().Str("receiptID", r.ID).Msg("Receipt journaled")
}
