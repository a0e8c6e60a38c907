package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/parser"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// FamilyServicer defines the contract for family membership and authorization.
type FamilyServicer interface {
	CreateFamily(userID, name, currency string) (*models.Family, error)
	GetUserFamilies(userID string) ([]models.Family, error)
	GetActiveMembership(userID, familyID string) (*models.FamilyMember, error)
	GetDefaultFamilyID(userID string) (string, error)
}

// AccountServicer defines the contract for account-related business logic.
// Methods taking a *gorm.DB run inside the caller's unit of work.
type AccountServicer interface {
	FindActiveByLast4(tx *gorm.DB, familyID, last4 string) (*models.Account, error)
	CreateAccount(tx *gorm.DB, account *models.Account) error
	ApplyBalanceDelta(tx *gorm.DB, account *models.Account, polarity parser.Polarity, amount decimal.Decimal) error
	GetFamilyAccounts(userID, familyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
}

// AccountUpdateFields holds the optional fields a user may change on an
// account. Nil fields are left untouched.
type AccountUpdateFields struct {
	Name     *string
	IsActive *bool
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
}

// ManualTransaction is a ledger entry typed in by a user rather than parsed
// from a message. A zero Date means now and an empty Category means "other".
type ManualTransaction struct {
	Type        models.TransactionType
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        time.Time
}

// TransactionServicer defines the contract for transaction-related business
// logic.
type TransactionServicer interface {
	CreateTransaction(userID, accountID string, input ManualTransaction) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
}

// MessageResult is the outcome of reconciling one forwarded message.
type MessageResult struct {
	Account     *models.Account
	Transaction *models.Transaction
	// AccountCreated is true when no account matched and one was created.
	AccountCreated bool
}

// MessageServicer turns forwarded bank messages into ledger entries.
type MessageServicer interface {
	ParseMessage(userID string, familyID *string, text, clientIP string) (*MessageResult, error)
	Reconcile(tx *gorm.DB, userID, familyID string, extraction *parser.Extraction, raw string) (*MessageResult, error)
}

// DashboardServicer defines the contract for family-level balance summaries.
type DashboardServicer interface {
	GetFamilyDashboard(userID string, familyID *string) (*FamilyDashboard, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
