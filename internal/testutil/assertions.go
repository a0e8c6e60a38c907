package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertBalance reloads the account and compares its stored balance with want,
// given as a decimal string such as "-1250.50".
func AssertBalance(t *testing.T, db *gorm.DB, accountID, want string) {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", accountID).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", accountID, err)
	}
	expected := decimal.RequireFromString(want)
	if !account.Balance.Equal(expected) {
		t.Errorf("account %s balance = %s, want %s", accountID, account.Balance.StringFixed(2), expected.StringFixed(2))
	}
}
