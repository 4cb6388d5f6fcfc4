package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/settlement"
)

// Compile-time check that we implement the interface
var _ settlement.Repository = (*SettlementRepository)(nil)

// SettlementRepository implements settlement.Repository using sqlx
type SettlementRepository struct {
	db DBTX
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db DBTX) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// CreateExecution appends an execution record. Records are never updated.
func (r *SettlementRepository) CreateExecution(ctx context.Context, e *settlement.Execution) error {
	query := `
		INSERT INTO executions (
			id, trigger_id, user_id, symbol, side, amount, amount_out,
			tx_hash, metrics_snapshot, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.TriggerID, e.UserID, e.Symbol, e.Side, e.Amount, e.AmountOut,
		e.TxHash, e.MetricsSnapshot, e.CreatedAt,
	)

	return err
}

// CreateTransaction appends a transaction record
func (r *SettlementRepository) CreateTransaction(ctx context.Context, tx *settlement.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, trigger_id, token_in, token_out, amount_in, amount_out,
			tx_hash, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.TriggerID, tx.TokenIn, tx.TokenOut, tx.AmountIn, tx.AmountOut,
		tx.TxHash, tx.Status, tx.CreatedAt,
	)

	return err
}

// ListExecutionsByTrigger returns all execution records for a trigger
func (r *SettlementRepository) ListExecutionsByTrigger(ctx context.Context, triggerID uuid.UUID) ([]*settlement.Execution, error) {
	var execs []*settlement.Execution

	query := `
		SELECT id, trigger_id, user_id, symbol, side, amount, amount_out,
			   tx_hash, metrics_snapshot, created_at
		FROM executions
		WHERE trigger_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &execs, query, triggerID); err != nil {
		return nil, err
	}

	return execs, nil
}
