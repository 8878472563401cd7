package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/elys-network/cwgateway/internal/chain"
	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/executor"
	"github.com/elys-network/cwgateway/internal/keystore"
	"github.com/elys-network/cwgateway/internal/logger"
	"github.com/elys-network/cwgateway/internal/metrics"
	"github.com/elys-network/cwgateway/internal/pricing"
	"github.com/elys-network/cwgateway/internal/registry"
	"github.com/elys-network/cwgateway/internal/state"
	"github.com/elys-network/cwgateway/internal/trade"
	"github.com/elys-network/cwgateway/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gateway",
		Short:         "HTTP trading gateway for CosmWasm AMM and order book venues",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(serveCmd(), walletCmd(), journalCmd())
	return root
}

// loadConfig reads the environment and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func passphraseSource(cfg *config.Config) keystore.PassphraseSource {
	if cfg.PassphraseFile != "" {
		return keystore.FilePassphrase(cfg.PassphraseFile)
	}
	return keystore.EnvPassphrase(cfg.PassphraseEnv)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("chain", cfg.ChainName).Str("chain_id", cfg.ChainID).Msg("Gateway starting")

	grpcEndpoint := cfg.Endpoints.NodeGRPC
	var creds grpc.DialOption
	if strings.Contains(grpcEndpoint, ":443") {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	grpcConn, err := grpc.NewClient(grpcEndpoint, creds)
	if err != nil {
		return fmt.Errorf("gRPC connection error: %w", err)
	}
	log.Info().Str("endpoint", grpcEndpoint).Msg("gRPC connected")

	signer, err := chain.NewSigningClient(chain.OptionsFromConfig(cfg), grpcConn, cfg.Endpoints.NodeRPC)
	if err != nil {
		grpcConn.Close()
		return fmt.Errorf("failed to create signing client: %w", err)
	}
	// Close also closes grpcConn.
	defer signer.Close()

	m := metrics.New(cfg.ChainName)
	client := metrics.NewCountingClient(signer, m)
	go m.Report(ctx, metrics.DefaultReportInterval)

	reg, err := registry.Load(ctx, cfg.TokenListSource, cfg.TokenListType)
	if err != nil {
		return fmt.Errorf("failed to load token list: %w", err)
	}
	if cfg.Venues.OrderBookAddress != "" {
		markets, err := registry.FetchMarkets(ctx, client, reg, cfg.Venues.OrderBookAddress)
		if err != nil {
			return fmt.Errorf("failed to fetch order book markets: %w", err)
		}
		if reg, err = reg.WithMarkets(markets); err != nil {
			return fmt.Errorf("failed to register markets: %w", err)
		}
	}

	wallets, err := keystore.NewFileStore(cfg.WalletDir)
	if err != nil {
		return err
	}

	var journal *state.Journal
	var recorder executor.Recorder
	var lister web.ReceiptLister
	if cfg.DB != nil {
		journal, err = state.Open(ctx, *cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to open receipt journal: %w", err)
		}
		defer journal.Close()
		if err := journal.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}
		recorder, lister = journal, journal
	} else {
		log.Warn().Msg("DB_HOST not set, receipts will not be journaled")
	}

	exec, err := newExecutor(cfg, client, reg, wallets, recorder)
	if err != nil {
		return err
	}

	server := web.NewWebServer(web.Config{
		Port:    cfg.WebPort,
		Gateway: exec,
		Metrics: m,
		Journal: lister,
	})
	return server.Start(ctx)
}

// newExecutor wires the venue pricers and order builder around client.
func newExecutor(cfg *config.Config, client chain.Client, reg *registry.Registry, wallets executor.WalletStore, recorder executor.Recorder) (*executor.Executor, error) {
	orders, err := trade.NewOrderBuilder(cfg.Venues.ClobDecimalScale)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOB_DECIMAL_SCALE: %w", err)
	}
	return executor.NewExecutor(executor.Config{
		Network:         cfg.ChainName,
		Bech32Prefix:    cfg.Bech32Prefix,
		Client:          client,
		Registry:        reg,
		AMM:             pricing.NewAMM(client, cfg.Venues.RouterAddress, cfg.Venues.SwapOperationKey),
		CLOB:            pricing.NewCLOB(client),
		Orders:          orders,
		Wallets:         wallets,
		Passphrase:      passphraseSource(cfg),
		Recorder:        recorder,
		DefaultSlippage: cfg.AllowedSlippage,
		Gas: executor.GasSettings{
			Limit:       cfg.DefaultGasLimit,
			PriceAmount: cfg.GasPriceAmount,
			PriceDenom:  cfg.GasPriceDenom,
		},
	})
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage encrypted wallet records",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Encrypt a private key read from stdin and store it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := keystore.NewFileStore(cfg.WalletDir)
			if err != nil {
				return err
			}
			key, err := readKey(cmd)
			if err != nil {
				return err
			}
			address, err := executor.ImportWallet(store, passphraseSource(cfg), cfg.ChainName, cfg.Bech32Prefix, key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), address)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored wallet addresses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := keystore.NewFileStore(cfg.WalletDir)
			if err != nil {
				return err
			}
			entries, err := executor.StoredWallets(store)
			if err != nil {
				return err
			}
			for _, e := range entries {
				for _, a := range e.Addresses {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Chain, a)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// readKey reads one line from stdin so the key never appears in argv.
func readKey(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("expected a private key on stdin")
	}
	return strings.TrimSpace(line), nil
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Maintain the receipt journal",
	}
	var confirm bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the receipt table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to reset without --yes")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DB == nil {
				return errors.New("DB_HOST is not set")
			}
			log.Info().
				Str("host", cfg.DB.Host).
				Int("port", cfg.DB.Port).
				Str("dbname", cfg.DB.DBName).
				Msg("Connecting to database")
			journal, err := state.Open(cmd.Context(), *cfg.DB)
			if err != nil {
				return err
			}
			defer journal.Close()
			if err := journal.Reset(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("Receipt journal reset")
			return nil
		},
	}
	reset.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all receipts")
	cmd.AddCommand(reset)
	return cmd
}
