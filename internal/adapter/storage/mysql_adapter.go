package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

const createAdjustmentsTable = `
	CREATE TABLE IF NOT EXISTS stock_adjustments (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		session    INT          NOT NULL,
		blood_type VARCHAR(3)   NOT NULL,
		direction  VARCHAR(8)   NOT NULL,
		amount     DOUBLE       NOT NULL,
		balance    DOUBLE       NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		INDEX idx_created_at (created_at)
	)`

// MySQLAdapter journals applied adjustments. It never holds the live
// quantities.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createAdjustmentsTable); err != nil {
		return fmt.Errorf("create stock_adjustments: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) RecordAdjustment(ctx context.Context, adj domain.Adjustment) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_adjustments (id, session, blood_type, direction, amount, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		adj.ID, adj.Session, adj.Type.String(), string(adj.Direction), adj.Amount, adj.Balance, adj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) RecentAdjustments(ctx context.Context, limit int) ([]domain.Adjustment, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, session, blood_type, direction, amount, balance, created_at
		FROM stock_adjustments
		ORDER BY created_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var out []domain.Adjustment
	for rows.Next() {
		var (
			adj       domain.Adjustment
			code      string
			direction string
		)
		if err := rows.Scan(&adj.ID, &adj.Session, &code, &direction, &adj.Amount, &adj.Balance, &adj.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		t, err := domain.ParseBloodType(code)
		if err != nil {
			return nil, err
		}
		adj.Type = t
		adj.Direction = domain.Direction(direction)
		out = append(out, adj)
	}
	return out, rows.Err()
}
