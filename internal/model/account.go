package model

import (
	"time"
)

// Account is a customer account. Balance is kept in the smallest currency
// unit and is only ever mutated by the transaction service; it must never
// go negative.
type Account struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName     string    `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName      string    `gorm:"type:varchar(50);not null" json:"last_name"`
	BankName      string    `gorm:"type:varchar(255);not null" json:"bank_name"`
	AccountNumber string    `gorm:"type:varchar(15);uniqueIndex;not null" json:"account_number"` // external identifier, 8-15 digits
	Balance       int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
