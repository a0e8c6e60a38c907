package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCurrent    AccountType = "current"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeWallet     AccountType = "wallet"
	AccountTypeCash       AccountType = "cash"
)

// AccountProvider records how an account came to exist.
type AccountProvider string

const (
	AccountProviderManual        AccountProvider = "manual"
	AccountProviderMessageParser AccountProvider = "message_parser"
)

// AccountStatus represents the linking state of an account.
type AccountStatus string

const (
	AccountStatusPending AccountStatus = "pending"
	AccountStatusLinked  AccountStatus = "linked"
	AccountStatusError   AccountStatus = "error"
)

// Account represents a financial account owned by a family
type Account struct {
	Base
	FamilyID string          `gorm:"type:uuid;not null;index:idx_account_family_last4" json:"family_id"`
	OwnerID  string          `gorm:"type:uuid;not null" json:"owner_id"`
	Name     string          `gorm:"not null" json:"name"`
	Type     AccountType     `gorm:"not null" json:"type"`
	Provider AccountProvider `gorm:"not null;default:'manual'" json:"provider"`
	Status   AccountStatus   `gorm:"not null;default:'pending'" json:"status"`
	Last4    *string         `gorm:"column:last_4;size:4;index:idx_account_family_last4" json:"last_4,omitempty"`
	Balance  decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"balance"`
	Currency string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	IsActive bool            `gorm:"default:true" json:"is_active"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}

// BeforeCreate fills in defaults that depend on how the account was created.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if err := a.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if a.Provider == "" {
		a.Provider = AccountProviderManual
	}
	if a.Status == "" {
		a.Status = AccountStatusPending
		if a.Provider == AccountProviderMessageParser {
			a.Status = AccountStatusLinked
		}
	}
	return nil
}
