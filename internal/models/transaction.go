package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionType is the direction of money movement relative to the account.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// DefaultCategory is assigned to transactions nobody has categorized yet.
const DefaultCategory = "other"

// Transaction is a single posted ledger entry against an account.
type Transaction struct {
	Base
	AccountID    string          `gorm:"type:uuid;not null;index" json:"account_id"`
	ExternalID   string          `gorm:"uniqueIndex;not null" json:"external_id"`
	Date         time.Time       `gorm:"not null;index" json:"date"`
	Amount       decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Type         TransactionType `gorm:"not null" json:"type"`
	Category     string          `gorm:"not null;default:'other'" json:"category"`
	Description  string          `json:"description"`
	Metadata     datatypes.JSON  `json:"metadata,omitempty"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(15,2)" json:"balance_after"`

	// Relationships
	Account *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
