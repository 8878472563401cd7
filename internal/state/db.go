// Package state is the optional Postgres journal of broadcast receipts.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/elys-network/cwgateway/internal/config"
	"github.com/elys-network/cwgateway/internal/logger"
)

var stateLogger = logger.GetForComponent("state")

// Journal stores receipts in the trade_receipts table.
type Journal struct {
	db *sql.DB
}

// DSN renders the libpq connection string for cfg.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// Open connects to Postgres and pings it.
func Open(ctx context.Context, cfg config.DBConfig) (*Journal, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	stateLogger.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to the receipt journal")
	return &Journal{db: db}, nil
}

// NewJournal wraps an existing pool.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	stateLogger.Info().Msg("Closing database connection...")
	return j.db.Close()
}

// EnsureSchema creates the receipt table and its indexes if missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if j == nil || j.db == nil {
		return errors.New("database not initialized")
	}
	schemaSQL := `
		CREATE TABLE IF NOT EXISTS trade_receipts (
			receipt_id UUID PRIMARY KEY,
			tx_hash VARCHAR(64) NOT NULL,
			network VARCHAR(64) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			address VARCHAR(128) NOT NULL,
			venue VARCHAR(128) NOT NULL DEFAULT '',
			side VARCHAR(4) NOT NULL DEFAULT '',
			input_amount NUMERIC(78, 0) NOT NULL DEFAULT 0,
			expected_output NUMERIC(78, 0) NOT NULL DEFAULT 0,
			height BIGINT NOT NULL,
			gas_used BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_trade_receipts_network_tx UNIQUE (network, tx_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_trade_receipts_address_created ON trade_receipts(address, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_trade_receipts_created ON trade_receipts(created_at DESC);
	`
	if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	stateLogger.Info().Msg("Receipt journal schema ensured")
	return nil
}

// Reset drops the receipt table and recreates it empty.
func (j *Journal) Reset(ctx context.Context) error {
	if j == nil || j.db == nil {
		return errors.New("database not initialized")
	}
	stateLogger.Warn().Msg("Dropping trade_receipts table")
	if _, err := j.db.ExecContext(ctx, `DROP TABLE IF EXISTS trade_receipts CASCADE;`); err != nil {
		return fmt.Errorf("failed to drop trade_receipts: %w", err)
	}
	return j.EnsureSchema(ctx)
}

// Ping checks the connection with a short timeout.
func (j *Journal) Ping(ctx context.Context) error {
	if j == nil || j.db == nil {
		return errors.New("database connection is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := j.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
