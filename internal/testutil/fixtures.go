package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"famledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestFamily creates a family with the given user as its active owner.
func CreateTestFamily(t *testing.T, db *gorm.DB, ownerID string) *models.Family {
	t.Helper()

	family := &models.Family{
		Name:      fmt.Sprintf("Test Family %d", nextID()),
		CreatedBy: ownerID,
		Currency:  "INR",
		IsActive:  true,
	}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}
	AddTestMember(t, db, family.ID, ownerID, models.FamilyRoleOwner)
	return family
}

// AddTestMember adds an active membership for the user.
func AddTestMember(t *testing.T, db *gorm.DB, familyID, userID string, role models.FamilyRole) *models.FamilyMember {
	t.Helper()

	member := &models.FamilyMember{
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test family member: %v", err)
	}
	return member
}

// CreateTestAccount creates a manual savings account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, familyID, ownerID string, last4 *string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, familyID, ownerID, last4, decimal.Zero)
}

// CreateTestAccountWithBalance creates a savings account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, familyID, ownerID string, last4 *string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		FamilyID: familyID,
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeSavings,
		Last4:    last4,
		Balance:  balance,
		Currency: "INR",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestTransaction posts a transaction without touching the account balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID string, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		AccountID:  accountID,
		ExternalID: fmt.Sprintf("test_%d", nextID()),
		Date:       date,
		Amount:     amount,
		Type:       txType,
		Category:   models.DefaultCategory,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
