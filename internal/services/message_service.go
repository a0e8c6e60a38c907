package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/parser"
)

const (
	messageSource          = "message_parser"
	maxStoredMessageLength = 500
	messageHashModulus     = 1000000
)

// messageService parses forwarded bank messages and posts them to the family
// ledger.
type messageService struct {
	db              *gorm.DB
	parser          *parser.Parser
	accountService  AccountServicer
	familyService   FamilyServicer
	auditService    AuditServicer
	now             func() time.Time
	defaultCurrency string
}

// MessageOption configures a MessageServicer.
type MessageOption func(*messageService)

// WithClock overrides the clock used for undated messages, generated account
// names and idempotency keys.
func WithClock(now func() time.Time) MessageOption {
	return func(s *messageService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultCurrency sets the currency of accounts created from messages.
func WithDefaultCurrency(currency string) MessageOption {
	return func(s *messageService) {
		if currency != "" {
			s.defaultCurrency = currency
		}
	}
}

// NewMessageService creates a new MessageServicer. auditService may be nil.
func NewMessageService(db *gorm.DB, accountService AccountServicer, familyService FamilyServicer, auditService AuditServicer, opts ...MessageOption) MessageServicer {
	s := &messageService{
		db:              db,
		accountService:  accountService,
		familyService:   familyService,
		auditService:    auditService,
		now:             time.Now,
		defaultCurrency: "INR",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = parser.New(s.now)
	return s
}

// ParseMessage extracts a transaction from text and records it in the user's
// family. When familyID is nil the user's first active family is used.
//
// Nothing is written unless the message parses and the user is an active
// member of the target family. Account creation, the balance change and the
// transaction insert commit or roll back together.
func (s *messageService) ParseMessage(userID string, familyID *string, text, clientIP string) (*MessageResult, error) {
	extraction, err := s.parser.Parse(text)
	if err != nil {
		if errors.Is(err, parser.ErrNoAmount) {
			return nil, apperrors.Wrap(apperrors.ErrAmountNotFound, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	targetFamily, err := s.resolveFamily(userID, familyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.familyService.GetActiveMembership(userID, targetFamily); err != nil {
		return nil, err
	}

	var result *MessageResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.Reconcile(tx, userID, targetFamily, extraction, text)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if s.auditService != nil {
		s.auditService.Log(userID, AuditActionParseMessage, "transaction", result.Transaction.ID, clientIP, map[string]any{
			"account_id":      result.Account.ID,
			"amount":          result.Transaction.Amount.StringFixed(2),
			"type":            result.Transaction.Type,
			"account_created": result.AccountCreated,
		})
	}

	return result, nil
}

// Reconcile matches or creates the account named by extraction, moves its
// balance and inserts the transaction. It must run inside tx.
func (s *messageService) Reconcile(tx *gorm.DB, userID, familyID string, extraction *parser.Extraction, raw string) (*MessageResult, error) {
	log := logger.Named("reconciler")

	var account *models.Account
	if extraction.AccountLast4 != nil {
		found, err := s.accountService.FindActiveByLast4(tx, familyID, *extraction.AccountLast4)
		if err != nil {
			return nil, err
		}
		account = found
	}

	now := s.now()
	created := false
	if account == nil {
		account = s.newAccount(userID, familyID, extraction.AccountLast4, raw, now)
		if err := s.accountService.CreateAccount(tx, account); err != nil {
			return nil, err
		}
		created = true
		log.Infow("account created from message",
			"account_id", account.ID,
			"family_id", familyID,
			"type", account.Type,
		)
	}

	externalID := idempotencyKey(now, account.ID, raw)
	var existing int64
	if err := tx.Unscoped().Model(&models.Transaction{}).Where("external_id = ?", externalID).Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateMessage
	}

	if err := s.accountService.ApplyBalanceDelta(tx, account, extraction.Polarity, extraction.Amount); err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]string{
		"source":           messageSource,
		"original_message": truncateRunes(raw, maxStoredMessageLength),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction := &models.Transaction{
		AccountID:    account.ID,
		ExternalID:   externalID,
		Date:         extraction.OccurredAt,
		Amount:       extraction.Amount.Abs(),
		Type:         models.TransactionType(extraction.Polarity),
		Category:     models.DefaultCategory,
		Description:  extraction.Description,
		Metadata:     datatypes.JSON(metadata),
		BalanceAfter: account.Balance,
	}
	if err := tx.Create(transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateMessage
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log.Infow("transaction posted from message",
		"transaction_id", transaction.ID,
		"account_id", account.ID,
		"type", transaction.Type,
		"balance_after", account.Balance.StringFixed(2),
	)

	return &MessageResult{
		Account:        account,
		Transaction:    transaction,
		AccountCreated: created,
	}, nil
}

func (s *messageService) resolveFamily(userID string, familyID *string) (string, error) {
	if familyID != nil && *familyID != "" {
		return *familyID, nil
	}
	return s.familyService.GetDefaultFamilyID(userID)
}

func (s *messageService) newAccount(userID, familyID string, last4 *string, raw string, now time.Time) *models.Account {
	accountType := models.AccountTypeSavings
	if parser.LooksLikeCreditCard(raw) {
		accountType = models.AccountTypeCreditCard
	}

	return &models.Account{
		FamilyID: familyID,
		OwnerID:  userID,
		Name:     accountName(raw, last4, now),
		Type:     accountType,
		Provider: models.AccountProviderMessageParser,
		Status:   models.AccountStatusLinked,
		Last4:    last4,
		Balance:  decimal.Zero,
		Currency: s.defaultCurrency,
		IsActive: true,
	}
}

// accountName prefers "<Bank> <last4>", then "Account <last4>", then
// "<Bank> Account", then a dated generic name.
func accountName(raw string, last4 *string, now time.Time) string {
	bank, hasBank := parser.DetectBankName(raw)
	switch {
	case hasBank && last4 != nil:
		return bank + " " + *last4
	case last4 != nil:
		return "Account " + *last4
	case hasBank:
		return bank + " Account"
	default:
		return "Account " + now.Format("20060102")
	}
}

// idempotencyKey derives msg_<unix seconds>_<account id>_<hash>. The same text
// posted to the same account within one second yields the same key.
func idempotencyKey(now time.Time, accountID, raw string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(raw))
	return fmt.Sprintf("msg_%d_%s_%d", now.Unix(), accountID, h.Sum32()%messageHashModulus)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
