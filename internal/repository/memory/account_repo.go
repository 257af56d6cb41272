package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"minibank/internal/model"
	"minibank/internal/repository"
)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[int64]*model.Account
	nextID   int64

	// FailUpdateBalanceFor makes UpdateBalance fail for the given account
	// ids. Used by tests to exercise compensation paths.
	FailUpdateBalanceFor map[int64]bool
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:             make(map[int64]*model.Account),
		nextID:               1,
		FailUpdateBalanceFor: make(map[int64]bool),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.AccountNumber == account.AccountNumber {
			return &repository.DuplicateKeyError{Entity: "account"}
		}
		if existing.UserID == account.UserID {
			return &repository.DuplicateKeyError{Entity: "account"}
		}
	}

	account.ID = r.nextID
	r.nextID++
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt

	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.UserID == userID {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, number string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.AccountNumber == number {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpdateBalanceFor[id] {
		return errors.New("injected balance update failure")
	}
	if newBalance < 0 {
		return errors.New("balance must not be negative")
	}

	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = time.Now()
	return nil
}
