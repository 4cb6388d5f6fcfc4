package settlement

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// Execution is the append-only audit record of one settled trigger.
// Immutable once created.
type Execution struct {
	ID        uuid.UUID `db:"id"`
	TriggerID uuid.UUID `db:"trigger_id"`
	UserID    uuid.UUID `db:"user_id"`

	Symbol string          `db:"symbol"`
	Side   trigger.Side    `db:"side"`
	Amount decimal.Decimal `db:"amount"`

	// AmountOut is the realized output credited by the ledger
	AmountOut decimal.Decimal `db:"amount_out"`
	TxHash    string          `db:"tx_hash"`

	// MetricsSnapshot captures the values that justified execution
	MetricsSnapshot []byte `db:"metrics_snapshot"`

	CreatedAt time.Time `db:"created_at"`
}

// SetMetricsSnapshot serializes the evaluated metric values onto the record
func (e *Execution) SetMetricsSnapshot(values map[string]decimal.Decimal) error {
	if len(values) == 0 {
		e.MetricsSnapshot = nil
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to marshal metrics snapshot")
	}
	e.MetricsSnapshot = raw
	return nil
}

// TxStatus defines the on-chain transaction outcome recorded with a settlement
type TxStatus string

const (
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// Transaction mirrors one ledger swap leg pair for accounting
type Transaction struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TriggerID *uuid.UUID `db:"trigger_id"`

	TokenIn   string          `db:"token_in"`
	TokenOut  string          `db:"token_out"`
	AmountIn  decimal.Decimal `db:"amount_in"`
	AmountOut decimal.Decimal `db:"amount_out"`

	TxHash string   `db:"tx_hash"`
	Status TxStatus `db:"status"`

	CreatedAt time.Time `db:"created_at"`
}
