package settlement

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for settlement record access
type Repository interface {
	CreateExecution(ctx context.Context, e *Execution) error
	CreateTransaction(ctx context.Context, tx *Transaction) error
	ListExecutionsByTrigger(ctx context.Context, triggerID uuid.UUID) ([]*Execution, error)
}
