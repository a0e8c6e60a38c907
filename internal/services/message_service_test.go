package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/testutil"
)

// stepClock returns a clock frozen at start that moves only when advanced.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time            { return c.now }
func (c *stepClock) Advance(d time.Duration)    { c.now = c.now.Add(d) }
func newStepClock() *stepClock                  { return &stepClock{now: time.Date(2024, time.June, 1, 10, 30, 0, 0, time.UTC)} }

func newTestMessageService(db *gorm.DB, clock *stepClock) MessageServicer {
	families := NewFamilyService(db, "INR")
	accounts := NewAccountService(db, families)
	return NewMessageService(db, accounts, families, NewAuditService(db), WithClock(clock.Now))
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func reloadAccount(t *testing.T, db *gorm.DB, id string) models.Account {
	t.Helper()
	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	return account
}

func TestParseMessage_CreatesAccountAndTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	clock := newStepClock()
	svc := newTestMessageService(db, clock)

	user := testutil.CreateTestUser(t, db)
	family := testutil.CreateTestFamily(t, db, user.ID)

	msg := "HDFC Bank: Rs. 1,250.50 debited from your account ending 4321 on 05-01-2024 at SWIGGY"
	result, err := svc.ParseMessage(user.ID, &family.ID, msg, "10.0.0.1")
	testutil.AssertNoError(t, err)

	if !result.AccountCreated {
		t.Error("expected a new account")
	}
	account := result.Account
	if account.Name != "HDFC 4321" {
		t.Errorf("account name = %q, want HDFC 4321", account.Name)
	}
	if account.Type != models.AccountTypeSavings {
		t.Errorf("account type = %s, want savings", account.Type)
	}
	if account.Provider != models.AccountProviderMessageParser || account.Status != models.AccountStatusLinked {
		t.Errorf("provider/status = %s/%s", account.Provider, account.Status)
	}
	if account.Last4 == nil || *account.Last4 != "4321" {
		t.Errorf("last4 = %v, want 4321", account.Last4)
	}
	if account.FamilyID != family.ID || account.OwnerID != user.ID {
		t.Error("account not attached to family and owner")
	}

	txn := result.Transaction
	if !txn.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("amount = %s, want 1250.50", txn.Amount)
	}
	if txn.Type != models.TransactionTypeDebit {
		t.Errorf("type = %s, want debit", txn.Type)
	}
	if want := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC); !txn.Date.Equal(want) {
		t.Errorf("date = %v, want %v", txn.Date, want)
	}
	if txn.Description != "SWIGGY" {
		t.Errorf("description = %q, want SWIGGY", txn.Description)
	}
	if txn.Category != models.DefaultCategory {
		t.Errorf("category = %q, want other", txn.Category)
	}
	wantPrefix := "msg_1717237800_" + account.ID + "_"
	if !strings.HasPrefix(txn.ExternalID, wantPrefix) {
		t.Errorf("external id = %q, want prefix %q", txn.ExternalID, wantPrefix)
	}

	var meta map[string]string
	if err := json.Unmarshal(txn.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["source"] != "message_parser" || meta["original_message"] != msg {
		t.Errorf("unexpected metadata %v", meta)
	}

	stored := reloadAccount(t, db, account.ID)
	if !stored.Balance.Equal(decimal.RequireFromString("-1250.50")) {
		t.Errorf("balance = %s, want -1250.50", stored.Balance)
	}
	if !txn.BalanceAfter.Equal(stored.Balance) {
		t.Errorf("balance_after = %s, want %s", txn.BalanceAfter, stored.Balance)
	}

	var audit models.AuditLog
	if err := db.Where("action = ?", AuditActionParseMessage).First(&audit).Error; err != nil {
		t.Fatalf("expected audit entry: %v", err)
	}
	if audit.ResourceID != txn.ID || audit.IPAddress != "10.0.0.1" {
		t.Errorf("audit entry = %+v", audit)
	}
}

func TestParseMessage_ReusesAccountAcrossMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	clock := newStepClock()
	svc := newTestMessageService(db, clock)

	user := testutil.CreateTestUser(t, db)
	family := testutil.CreateTestFamily(t, db, user.ID)
	existing := testutil.CreateTestAccountWithBalance(t, db, family.ID, user.ID, strPtr("1234"), decimal.NewFromInt(1000))

	first, err := svc.ParseMessage(user.ID, &family.ID, "Rs 500 credited to account 1234", "")
	testutil.AssertNoError(t, err)
	if first.AccountCreated || first.Account.ID != existing.ID {
		t.Fatalf("expected existing account %s to be matched", existing.ID)
	}
	testutil.AssertBalance(t, db, existing.ID, "1500")

	clock.Advance(time.Second)
	second, err := svc.ParseMessage(user.ID, &family.ID, "Rs 1000 debited from account 1234", "")
	testutil.AssertNoError(t, err)
	if second.Account.ID != existing.ID {
		t.Errorf("expected same account on second message")
	}
	testutil.AssertBalance(t, db, existing.ID, "500")
	if !second.Transaction.BalanceAfter.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance_after = %s, want 500", second.Transaction.BalanceAfter)
	}

	if n := countRows(t, db, &models.Account{}); n != 1 {
		t.Errorf("expected 1 account, got %d", n)
	}
	if n := countRows(t, db, &models.Transaction{}); n != 2 {
		t.Errorf("expected 2 transactions, got %d", n)
	}
}

func TestParseMessage_SameLast4CreatedOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	clock := newStepClock()
	svc := newTestMessageService(db, clock)

	user := testutil.CreateTestUser(t, db)
	family := testutil.CreateTestFamily(t, db, user.ID)

	first, err := svc.ParseMessage(user.ID, &family.ID, "Rs 100 spent on card 9988 at Amazon", "")
	testutil.AssertNoError(t, err)
	clock.Advance(time.Second)
	second, err := svc.ParseMessage(user.ID, &family.ID, "Rs 40 spent on card 9988 at Flipkart", "")
	testutil.AssertNoError(t, err)

	if !first.AccountCreated || second.AccountCreated {
		t.Errorf("created flags = %v, %v; want true, false", first.AccountCreated, second.AccountCreated)
	}
	if first.Account.ID != second.Account.ID {
		t.Error("expected both messages to post to the same account")
	}
	if first.Account.Type != models.AccountTypeCreditCard {
		t.Errorf("type = %s, want credit_card", first.Account.Type)
	}
	if first.Account.Name != "Account 9988" {
		t.Errorf("name = %q, want Account 9988", first.Account.Name)
	}
	testutil.AssertBalance(t, db, first.Account.ID, "-140")
}

func TestParseMessage_GenericAccountWithoutLast4(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"bank_known", "ICICI: You have received Rs.2000 credited to a/c", "ICICI Account"},
		{"nothing_known", "You have received Rs.2000 credited to a/c", "Account 20240601"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			svc := newTestMessageService(db, newStepClock())

			user := testutil.CreateTestUser(t, db)
			family := testutil.CreateTestFamily(t, db, user.ID)

			result, err := svc.ParseMessage(user.ID, &family.ID, tt.message, "")
			testutil.AssertNoError(t, err)

			if !result.AccountCreated {
				t.Error("expected a new account")
			}
			if result.Account.Name != tt.want {
				t.Errorf("name = %q, want %q", result.Account.Name, tt.want)
			}
			if result.Account.Last4 != nil {
				t.Errorf("last4 = %q, want nil", *result.Account.Last4)
			}
			if result.Transaction.Type != models.TransactionTypeCredit {
				t.Errorf("type = %s, want credit", result.Transaction.Type)
			}
			if !result.Account.Balance.Equal(decimal.NewFromInt(2000)) {
				t.Errorf("balance = %s, want 2000", result.Account.Balance)
			}
		})
	}
}

func TestParseMessage_DefaultFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestMessageService(db, newStepClock())

	user := testutil.CreateTestUser(t, db)
	family := testutil.CreateTestFamily(t, db, user.ID)

	result, err := svc.ParseMessage(user.ID, nil, "Rs 10 debited from account 1111", "")
	testutil.AssertNoError(t, err)
	if result.Account.FamilyID != family.ID {
		t.Errorf("family = %s, want %s", result.Account.FamilyID, family.ID)
	}

	empty := ""
	_, err = svc.ParseMessage(user.ID, &empty, "Rs 20 debited from account 1111", "")
	testutil.AssertNoError(t, err)
}

func TestParseMessage_Failures(t *testing.T) {
	t.Run("no_amount_has_no_side_effects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestMessageService(db, newStepClock())

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)

		_, err := svc.ParseMessage(user.ID, &family.ID, "Your OTP is 482913", "")
		testutil.AssertAppError(t, err, "AMOUNT_NOT_FOUND")

		if n := countRows(t, db, &models.Account{}); n != 0 {
			t.Errorf("expected no accounts, got %d", n)
		}
	})

	t.Run("unauthorized_family_has_no_side_effects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestMessageService(db, newStepClock())

		owner := testutil.CreateTestUser(t, db)
		stranger := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, owner.ID)

		_, err := svc.ParseMessage(stranger.ID, &family.ID, "Rs 500 debited from account 1234", "")
		testutil.AssertAppError(t, err, "FAMILY_ACCESS_DENIED")

		if n := countRows(t, db, &models.Account{}); n != 0 {
			t.Errorf("expected no accounts, got %d", n)
		}
		if n := countRows(t, db, &models.Transaction{}); n != 0 {
			t.Errorf("expected no transactions, got %d", n)
		}
	})

	t.Run("no_family", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestMessageService(db, newStepClock())

		user := testutil.CreateTestUser(t, db)
		_, err := svc.ParseMessage(user.ID, nil, "Rs 500 debited from account 1234", "")
		testutil.AssertAppError(t, err, "NO_FAMILY")
	})
}

func TestParseMessage_Idempotency(t *testing.T) {
	t.Run("duplicate_in_same_second_rolls_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestMessageService(db, newStepClock())

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)
		account := testutil.CreateTestAccountWithBalance(t, db, family.ID, user.ID, strPtr("1234"), decimal.NewFromInt(1000))

		msg := "Rs 250 debited from account 1234"
		_, err := svc.ParseMessage(user.ID, &family.ID, msg, "")
		testutil.AssertNoError(t, err)

		_, err = svc.ParseMessage(user.ID, &family.ID, msg, "")
		testutil.AssertAppError(t, err, "DUPLICATE_MESSAGE")

		testutil.AssertBalance(t, db, account.ID, "750")
		if n := countRows(t, db, &models.Transaction{}); n != 1 {
			t.Errorf("expected 1 transaction, got %d", n)
		}
	})

	t.Run("later_second_is_distinct", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		clock := newStepClock()
		svc := newTestMessageService(db, clock)

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)

		msg := "Rs 250 debited from account 1234"
		first, err := svc.ParseMessage(user.ID, &family.ID, msg, "")
		testutil.AssertNoError(t, err)
		clock.Advance(time.Second)
		second, err := svc.ParseMessage(user.ID, &family.ID, msg, "")
		testutil.AssertNoError(t, err)

		if first.Transaction.ExternalID == second.Transaction.ExternalID {
			t.Errorf("expected distinct keys, both %q", first.Transaction.ExternalID)
		}
		testutil.AssertBalance(t, db, first.Account.ID, "-500")
	})
}

func TestIdempotencyKey(t *testing.T) {
	now := time.Unix(1717237800, 0)
	a := idempotencyKey(now, "acc", "Rs 10 debited")
	b := idempotencyKey(now, "acc", "Rs 10 debited")
	c := idempotencyKey(now, "acc", "Rs 11 debited")

	if a != b {
		t.Errorf("same input gave %q and %q", a, b)
	}
	if a == c {
		t.Errorf("different text gave the same key %q", a)
	}
	if !strings.HasPrefix(a, "msg_1717237800_acc_") {
		t.Errorf("unexpected key format %q", a)
	}
}

func TestAccountName(t *testing.T) {
	now := time.Date(2024, time.March, 9, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		raw   string
		last4 *string
		want  string
	}{
		{"SBI alert", strPtr("1234"), "SBI 1234"},
		{"alert", strPtr("1234"), "Account 1234"},
		{"Kotak alert", nil, "Kotak Account"},
		{"alert", nil, "Account 20240309"},
	}
	for _, tt := range tests {
		if got := accountName(tt.raw, tt.last4, now); got != tt.want {
			t.Errorf("accountName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
