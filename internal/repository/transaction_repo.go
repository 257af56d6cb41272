package repository

import (
	"context"
	"time"

	"minibank/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Append(ctx context.Context, entry *model.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Delete removes a ledger entry. Only the transaction service may call
// this, and only to compensate an entry it appended in the same failed
// operation.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Transaction{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *TransactionRepository) ListByAccountAndRange(ctx context.Context, accountID int64, start, end time.Time) ([]*model.Transaction, error) {
	var entries []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND created_at >= ? AND created_at <= ?", accountID, start, end).
		Order("updated_at ASC").
		Find(&entries).Error
	return entries, err
}
