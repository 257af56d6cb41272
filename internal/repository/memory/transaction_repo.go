package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"minibank/internal/model"
	"minibank/internal/repository"
)

type TransactionRepository struct {
	mu      sync.RWMutex
	entries map[int64]*model.Transaction
	nextID  int64

	// FailAppendForAccount makes Append fail for the given account ids.
	FailAppendForAccount map[int64]bool
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		entries:              make(map[int64]*model.Transaction),
		nextID:               1,
		FailAppendForAccount: make(map[int64]bool),
	}
}

func (r *TransactionRepository) Append(ctx context.Context, entry *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAppendForAccount[entry.AccountID] {
		return errors.New("injected ledger append failure")
	}

	entry.ID = r.nextID
	r.nextID++
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}

	copied := *entry
	r.entries[entry.ID] = &copied
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return repository.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *TransactionRepository) ListByAccountAndRange(ctx context.Context, accountID int64, start, end time.Time) ([]*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Transaction
	for _, entry := range r.entries {
		if entry.AccountID != accountID {
			continue
		}
		if entry.CreatedAt.Before(start) || entry.CreatedAt.After(end) {
			continue
		}
		copied := *entry
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

// CountForAccount is a test helper reporting how many ledger entries exist
// for an account.
func (r *TransactionRepository) CountForAccount(accountID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.entries {
		if entry.AccountID == accountID {
			count++
		}
	}
	return count
}
