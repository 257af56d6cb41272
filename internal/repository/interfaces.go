package repository

import (
	"context"
	"time"

	"minibank/internal/model"
)

// AccountStore reads accounts and commits balance updates. Balance writes
// are expected to be serialized per account by the caller.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Account, error)
	// GetByAccountNumber returns ErrAccountNotFound when no account carries
	// the given number.
	GetByAccountNumber(ctx context.Context, number string) (*model.Account, error)
	UpdateBalance(ctx context.Context, id int64, newBalance int64) error
}

// LedgerStore appends and queries the append-only transaction ledger.
// Delete exists solely for compensation: removing an entry written earlier
// in the same failed operation.
type LedgerStore interface {
	Append(ctx context.Context, entry *model.Transaction) error
	Delete(ctx context.Context, id int64) error
	// ListByAccountAndRange returns the entries for one account whose
	// creation time falls within [start, end], ordered by update time
	// ascending.
	ListByAccountAndRange(ctx context.Context, accountID int64, start, end time.Time) ([]*model.Transaction, error)
}

// UserStore manages login credentials.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// OutboxStore buffers transaction events for asynchronous publishing.
type OutboxStore interface {
	Append(ctx context.Context, msg *model.OutboxMessage) error
	ListPending(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}
