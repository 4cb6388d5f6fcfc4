package trigger

import (
	"context"

	"github.com/google/uuid"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/user"
)

// WithOwner pairs a trigger with its owning user's profile, loaded in one
// query so the scan cycle never does per-trigger user lookups
type WithOwner struct {
	Trigger
	Owner user.User
}

// Repository defines the interface for trigger data access
type Repository interface {
	Create(ctx context.Context, t *Trigger) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trigger, error)
	GetActiveWithOwner(ctx context.Context) ([]*WithOwner, error)

	// UpdateStatusFrom performs a compare-and-set transition and reports
	// whether a row actually moved. Terminal statuses can never be left.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// Cancel is the user-initiated ACTIVE -> CANCELLED transition,
	// owned by the API layer but kept with the rest of the status logic
	Cancel(ctx context.Context, id uuid.UUID, userID uuid.UUID) (bool, error)
}
