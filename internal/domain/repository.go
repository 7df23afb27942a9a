package domain

import "context"

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// HistoryRepository persists generation history per user.
type HistoryRepository interface {
	Append(ctx context.Context, record *HistoryRecord) error
	List(ctx context.Context, userID string, limit, offset int) (*HistoryPage, error)
	Delete(ctx context.Context, userID, id string) error
	Clear(ctx context.Context, userID string) error
}
