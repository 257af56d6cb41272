package model

import (
	"time"
)

// ============================================================================
// Transaction kinds
// ============================================================================

const (
	KindTopUp    = "TOPUP"
	KindWithdraw = "WITHDRAW"
	KindTransfer = "TRANSFER"
)

// ValidKind reports whether k is one of the three transaction kinds.
func ValidKind(k string) bool {
	return k == KindTopUp || k == KindWithdraw || k == KindTransfer
}

// ============================================================================
// Ledger entry
// ============================================================================

// Transaction is one ledger entry against a single account.
//
// Ledger rules:
//  1. Append only. Rows are never updated; a row is deleted only when the
//     same operation that created it fails before committing its balance
//     update (compensation), never afterwards.
//  2. BalanceBefore records the account balance at the moment the entry was
//     written, so every committed entry satisfies
//     balance_after = balance_before +/- amount.
//  3. A transfer produces two rows: a TRANSFER debit on the source account
//     and a TOPUP credit on the destination account, same amount.
type Transaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_no"`
	AccountID     int64     `gorm:"index;not null" json:"account_id"`
	Kind          string    `gorm:"type:varchar(20);not null" json:"kind"`
	Description   string    `gorm:"type:varchar(255);not null" json:"description"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	Amount        int64     `gorm:"not null" json:"amount"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "account_transaction"
}
