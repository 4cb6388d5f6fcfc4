package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/user"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// Compile-time check that we implement the interface
var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository using sqlx
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User

	query := `
		SELECT id, email, wallet_address, telegram_chat_id, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.GetContext(ctx, &u, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// GetByWallet retrieves a user by wallet address
func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*user.User, error) {
	var u user.User

	query := `
		SELECT id, email, wallet_address, telegram_chat_id, created_at, updated_at
		FROM users
		WHERE wallet_address = $1`

	err := r.db.GetContext(ctx, &u, query, wallet)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}
