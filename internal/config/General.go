package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenListType says where the token/pool registry is read from.
type TokenListType string

const (
	TokenListFile TokenListType = "FILE"
	TokenListURL  TokenListType = "URL"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// ChainName is the wallet sub-directory and the name reported in responses (e.g. "aura").
	ChainName string
	// ChainID is the chain ID of the target network.
	ChainID string
	// Bech32Prefix is the account address prefix (e.g. "aura", "orai").
	Bech32Prefix string
	// NativeTokenSymbol is the symbol gas is paid in.
	NativeTokenSymbol string

	Endpoints Endpoints
	Venues    Venues

	// TokenListSource is a path or URL, depending on TokenListType.
	TokenListSource string
	TokenListType   TokenListType

	// WalletDir is the root directory of encrypted key records.
	WalletDir string
	// PassphraseEnv names the environment variable holding the wallet passphrase.
	PassphraseEnv string
	// PassphraseFile, when set, is read instead of PassphraseEnv.
	PassphraseFile string

	// DefaultGasLimit is the fallback gas limit if estimation fails.
	DefaultGasLimit uint64
	// GasAdjustment is the multiplier for simulated gas to ensure sufficient fees.
	GasAdjustment float64
	// GasPriceAmount is the amount of the gas fee denomination per unit of gas.
	GasPriceAmount string
	// GasPriceDenom is the denomination for gas fees.
	GasPriceDenom string
	// Memo is attached to every transaction the gateway signs.
	Memo string

	// AllowedSlippage is the default slippage, "1/100" or "1%".
	AllowedSlippage string

	QueryTimeout          time.Duration
	BroadcastTimeout      time.Duration
	BroadcastPollInterval time.Duration

	WebPort   string
	LogLevel  string
	LogFormat string

	// DB is nil when no receipt journal is configured.
	DB *DBConfig
}

// DBConfig holds the receipt journal connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LoadConfig loads configuration from environment variables.
// Chain identity and endpoints are required, everything else has a default.
func LoadConfig() (*Config, error) {
	log.Info().Msg("Loading application configuration from environment variables...")

	cfg := &Config{}
	var err error

	if cfg.ChainName, err = getEnv("CHAIN_NAME"); err != nil {
		return nil, err
	}
	if cfg.ChainID, err = getEnv("CHAIN_ID"); err != nil {
		return nil, err
	}
	if cfg.Bech32Prefix, err = getEnv("BECH32_PREFIX"); err != nil {
		return nil, err
	}
	if cfg.TokenListSource, err = getEnv("TOKEN_LIST_SOURCE"); err != nil {
		return nil, err
	}
	cfg.NativeTokenSymbol = getEnvOrDefault("NATIVE_TOKEN_SYMBOL", strings.ToUpper(cfg.ChainName))
	cfg.TokenListType = TokenListType(strings.ToUpper(getEnvOrDefault("TOKEN_LIST_TYPE", string(TokenListFile))))

	if err := loadEndpointConfig(&cfg.Endpoints); err != nil {
		return nil, err
	}
	if err := loadVenueConfig(&cfg.Venues); err != nil {
		return nil, err
	}

	cfg.WalletDir = getEnvOrDefault("WALLET_DIR", "conf/wallets")
	cfg.PassphraseEnv = getEnvOrDefault("PASSPHRASE_ENV", "GATEWAY_PASSPHRASE")
	cfg.PassphraseFile = os.Getenv("GATEWAY_PASSPHRASE_FILE")

	if cfg.DefaultGasLimit, err = getEnvAsUint64OrDefault("GAS_DEFAULT_LIMIT", 500000); err != nil {
		return nil, err
	}
	if cfg.GasAdjustment, err = getEnvAsFloat64OrDefault("GAS_ADJUSTMENT", 1.5); err != nil {
		return nil, err
	}
	cfg.GasPriceAmount = getEnvOrDefault("GAS_PRICE_AMOUNT", "0.025")
	cfg.GasPriceDenom = getEnvOrDefault("GAS_PRICE_DENOM", "u"+strings.ToLower(cfg.ChainName))
	cfg.Memo = getEnvOrDefault("TX_MEMO", "swap from cwgateway")
	cfg.AllowedSlippage = getEnvOrDefault("ALLOWED_SLIPPAGE", "1/100")

	if cfg.QueryTimeout, err = getEnvAsDurationOrDefault("QUERY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.BroadcastTimeout, err = getEnvAsDurationOrDefault("BROADCAST_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.BroadcastPollInterval, err = getEnvAsDurationOrDefault("BROADCAST_POLL_INTERVAL", 300*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.WebPort = getEnvOrDefault("WEB_PORT", "15888")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", "console")

	if host := os.Getenv("DB_HOST"); host != "" {
		port, err := getEnvAsIntOrDefault("DB_PORT", 5432)
		if err != nil {
			return nil, err
		}
		cfg.DB = &DBConfig{
			Host:     host,
			Port:     port,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		}
	}

	// Expand the tilde (~) in the wallet directory path to the user's home directory.
	if strings.HasPrefix(cfg.WalletDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.WalletDir = filepath.Join(home, cfg.WalletDir[2:])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("ChainName", cfg.ChainName).
		Str("ChainID", cfg.ChainID).
		Str("TokenListSource", cfg.TokenListSource).
		Msg("Configuration loaded successfully.")

	return cfg, nil
}

// Validate checks the values that LoadConfig cannot default.
func (c *Config) Validate() error {
	switch c.TokenListType {
	case TokenListFile, TokenListURL:
	default:
		return errors.New("TOKEN_LIST_TYPE must be FILE or URL, got: " + string(c.TokenListType))
	}
	if c.DefaultGasLimit == 0 {
		return errors.New("GAS_DEFAULT_LIMIT cannot be zero")
	}
	if c.GasAdjustment <= 0 || c.GasAdjustment > 10 {
		return errors.New("GAS_ADJUSTMENT must be between 0 and 10")
	}
	if c.Venues.ClobDecimalScale < 0 || c.Venues.ClobDecimalScale > 18 {
		return errors.New("CLOB_DECIMAL_SCALE must be between 0 and 18")
	}
	if c.QueryTimeout <= 0 || c.BroadcastTimeout <= 0 || c.BroadcastPollInterval <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.BroadcastPollInterval >= c.BroadcastTimeout {
		return errors.New("BROADCAST_POLL_INTERVAL must be shorter than BROADCAST_TIMEOUT")
	}
	return nil
}

// GasPrice returns the gas price in the "0.025uaura" form the tx factory expects.
func (c *Config) GasPrice() string {
	return c.GasPriceAmount + c.GasPriceDenom
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsUint64OrDefault(key string, defaultValue uint64) (uint64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsFloat64OrDefault(key string, defaultValue float64) (float64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
