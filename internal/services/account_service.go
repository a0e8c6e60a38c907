package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/parser"
)

// accountService handles account-related business logic.
type accountService struct {
	db       *gorm.DB
	families FamilyServicer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, families FamilyServicer) AccountServicer {
	return &accountService{db: db, families: families}
}

// FindActiveByLast4 returns the active account in the family whose last four
// digits match. It returns (nil, nil) when there is none.
func (s *accountService) FindActiveByLast4(tx *gorm.DB, familyID, last4 string) (*models.Account, error) {
	var account models.Account
	err := tx.
		Where("family_id = ? AND last_4 = ? AND is_active = ?", familyID, last4, true).
		Order("created_at ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// CreateAccount inserts account within tx.
func (s *accountService) CreateAccount(tx *gorm.DB, account *models.Account) error {
	if account.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if err := tx.Create(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ApplyBalanceDelta moves the balance by amount: credits add, debits subtract.
// The sign convention is the same for every account type.
func (s *accountService) ApplyBalanceDelta(tx *gorm.DB, account *models.Account, polarity parser.Polarity, amount decimal.Decimal) error {
	switch polarity {
	case parser.Credit:
		account.Balance = account.Balance.Add(amount)
	case parser.Debit:
		account.Balance = account.Balance.Sub(amount)
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown transaction type")
	}

	if err := tx.Model(account).Update("balance", account.Balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetFamilyAccounts retrieves a paginated list of a family's active accounts.
func (s *accountService) GetFamilyAccounts(userID, familyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	if _, err := s.families.GetActiveMembership(userID, familyID); err != nil {
		return nil, err
	}
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("family_id = ? AND is_active = ?", familyID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account the user can see through an active
// family membership. Accounts in other families read as not found.
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND is_active = ?", accountID, true).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if _, err := s.families.GetActiveMembership(userID, account.FamilyID); err != nil {
		if errors.Is(err, apperrors.ErrFamilyAccessDenied) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, err
	}

	return &account, nil
}

// UpdateAccount changes the name or active flag of an account the user can
// see. A deactivated account drops out of reads and message matching.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
		}
		updates["name"] = name
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}
