package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the owner profile the engine needs: where funds live and where
// settlement notices go. Registration and auth live in the API service.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	WalletAddress  string    `db:"wallet_address"`
	TelegramChatID *int64    `db:"telegram_chat_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
