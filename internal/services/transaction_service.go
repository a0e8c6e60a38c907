package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/parser"
)

const manualSource = "manual"

// transactionService handles manual entries and reads of posted transactions.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer) TransactionServicer {
	return &transactionService{db: db, accountService: accountService}
}

// CreateTransaction records a manual entry against an account the user can see
// and moves the account balance by the same rules as a parsed message.
func (s *transactionService) CreateTransaction(userID, accountID string, input ManualTransaction) (*models.Transaction, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	polarity, err := polarityOf(input.Type)
	if err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}
	if input.Category == "" {
		input.Category = models.DefaultCategory
	}

	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	var result *models.Transaction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.createTransactionWithDB(tx, userID, accountID, polarity, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createTransactionWithDB re-reads the account inside tx so the balance moves
// from its committed value.
func (s *transactionService) createTransactionWithDB(tx *gorm.DB, userID, accountID string, polarity parser.Polarity, input ManualTransaction) (*models.Transaction, error) {
	var account models.Account
	if err := tx.Where("id = ? AND is_active = ?", accountID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.accountService.ApplyBalanceDelta(tx, &account, polarity, input.Amount); err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]string{
		"source":     manualSource,
		"created_by": userID,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction := &models.Transaction{
		AccountID:    account.ID,
		ExternalID:   manualSource + "_" + uuid.NewString(),
		Date:         input.Date,
		Amount:       input.Amount,
		Type:         input.Type,
		Category:     input.Category,
		Description:  input.Description,
		Metadata:     datatypes.JSON(metadata),
		BalanceAfter: account.Balance,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	transaction.Account = &account

	return transaction, nil
}

// GetAccountTransactions retrieves a paginated, filtered list of transactions
// for an account, newest first.
func (s *transactionService) GetAccountTransactions(userID, accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	// First verify the user can see the account
	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("account_id = ?", accountID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID retrieves a transaction whose account the user can see.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account, err := s.accountService.GetAccountByID(userID, transaction.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	transaction.Account = account

	return &transaction, nil
}

// DeleteTransaction soft-deletes a transaction and reverses its effect on the
// account balance. The external ID stays reserved, so a deleted parsed message
// is still rejected as a duplicate.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	polarity, err := polarityOf(transaction.Type)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("id = ?", transaction.AccountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(&models.Transaction{}, "id = ?", transaction.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return s.accountService.ApplyBalanceDelta(tx, &account, reverse(polarity), transaction.Amount)
	})
}

func polarityOf(t models.TransactionType) (parser.Polarity, error) {
	switch t {
	case models.TransactionTypeDebit:
		return parser.Debit, nil
	case models.TransactionTypeCredit:
		return parser.Credit, nil
	default:
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be debit or credit")
	}
}

func reverse(p parser.Polarity) parser.Polarity {
	if p == parser.Credit {
		return parser.Debit
	}
	return parser.Credit
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	return q
}
