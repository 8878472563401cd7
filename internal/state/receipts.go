package state

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/lib/pq"

	"github.com/elys-network/cwgateway/internal/types"
)

// ErrDuplicateReceipt means the transaction is already journaled.
var ErrDuplicateReceipt = errors.New("receipt already recorded")

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// MaxListLimit caps RecentReceipts.
const MaxListLimit = 100

// RecordReceipt inserts one receipt.
func (j *Journal) RecordReceipt(ctx context.Context, r types.Receipt) error {
	if j == nil || j.db == nil {
		return errors.New("database not initialized")
	}
	query := `
		INSERT INTO trade_receipts (
			receipt_id, tx_hash, network, kind, address, venue, side,
			input_amount, expected_output, height, gas_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := j.db.ExecContext(ctx, query,
		r.ID, r.TxHash, r.Network, string(r.Kind), r.Address, r.Venue, string(r.Side),
		intString(r.InputAmount), intString(r.ExpectedOutput), r.Height, r.GasUsed, r.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateReceipt, r.TxHash)
	}
	if err != nil {
		return fmt.Errorf("failed to insert receipt %s: %w", r.TxHash, err)
	}
	stateLogger.Debug().Str("txHash", r.TxHash).Str("kind", string(r.Kind)).Msg("Receipt recorded")
	return nil
}

// RecentReceipts lists the newest receipts, optionally for one address.
func (j *Journal) RecentReceipts(ctx context.Context, address string, limit int) ([]types.Receipt, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = 20
	}

	query := `
		SELECT receipt_id, tx_hash, network, kind, address, venue, side,
			input_amount::TEXT, expected_output::TEXT, height, gas_used, created_at
		FROM trade_receipts
		WHERE ($1 = '' OR address = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := j.db.QueryContext(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []types.Receipt{}
	for rows.Next() {
		var (
			r             types.Receipt
			kind, side    string
			input, output string
		)
		if err := rows.Scan(&r.ID, &r.TxHash, &r.Network, &kind, &r.Address, &r.Venue, &side,
			&input, &output, &r.Height, &r.GasUsed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		r.Kind = types.ReceiptKind(kind)
		r.Side = types.Side(side)
		if r.InputAmount, err = parseInt(input); err != nil {
			return nil, err
		}
		if r.ExpectedOutput, err = parseInt(output); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

func intString(i sdkmath.Int) string {
	if i.IsNil() {
		return "0"
	}
	return i.String()
}

func parseInt(s string) (sdkmath.Int, error) {
	i, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid stored amount %q", s)
	}
	return i, nil
}
