package postgres

import (
	"database/sql"

	"context"

	"github.com/google/uuid"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// Compile-time check that we implement the interface
var _ trigger.Repository = (*TriggerRepository)(nil)

// TriggerRepository implements trigger.Repository using sqlx
type TriggerRepository struct {
	db DBTX
}

// NewTriggerRepository creates a new trigger repository
func NewTriggerRepository(db DBTX) *TriggerRepository {
	return &TriggerRepository{db: db}
}

// Create inserts a new trigger
func (r *TriggerRepository) Create(ctx context.Context, t *trigger.Trigger) error {
	query := `
		INSERT INTO triggers (
			id, user_id, symbol, side, condition, target_price, amount,
			slippage_percent, smart_conditions, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Symbol, t.Side, t.Condition, t.TargetPrice, t.Amount,
		t.SlippagePercent, t.SmartConditionsRaw, t.Status, t.CreatedAt, t.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trigger by ID
func (r *TriggerRepository) GetByID(ctx context.Context, id uuid.UUID) (*trigger.Trigger, error) {
	var t trigger.Trigger

	query := `
		SELECT id, user_id, symbol, side, condition, target_price, amount,
			   slippage_percent, smart_conditions, status, created_at, updated_at
		FROM triggers
		WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "trigger not found")
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// GetActiveWithOwner loads every ACTIVE trigger joined with its owner's
// profile, oldest first so earlier intents are evaluated first
func (r *TriggerRepository) GetActiveWithOwner(ctx context.Context) ([]*trigger.WithOwner, error) {
	query := `
		SELECT t.id, t.user_id, t.symbol, t.side, t.condition, t.target_price, t.amount,
			   t.slippage_percent, t.smart_conditions, t.status, t.created_at, t.updated_at,
			   u.id AS owner_id, u.email, u.wallet_address, u.telegram_chat_id,
			   u.created_at AS owner_created_at, u.updated_at AS owner_updated_at
		FROM triggers t
		JOIN users u ON u.id = t.user_id
		WHERE t.status = $1
		ORDER BY t.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, trigger.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*trigger.WithOwner
	for rows.Next() {
		var w trigger.WithOwner
		err := rows.Scan(
			&w.ID, &w.UserID, &w.Symbol, &w.Side, &w.Condition, &w.TargetPrice, &w.Amount,
			&w.SlippagePercent, &w.SmartConditionsRaw, &w.Status, &w.CreatedAt, &w.UpdatedAt,
			&w.Owner.ID, &w.Owner.Email, &w.Owner.WalletAddress, &w.Owner.TelegramChatID,
			&w.Owner.CreatedAt, &w.Owner.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, &w)
	}

	return result, rows.Err()
}

// UpdateStatusFrom performs the compare-and-set status transition.
// The WHERE clause is what keeps terminal statuses terminal: a row that
// already left `from` is simply not matched.
func (r *TriggerRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to trigger.Status) (bool, error) {
	query := `
		UPDATE triggers SET
			status = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Cancel transitions an ACTIVE trigger to CANCELLED for its owner
func (r *TriggerRepository) Cancel(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE triggers SET
			status = $3,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, id, userID, trigger.StatusCancelled, trigger.StatusActive)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
