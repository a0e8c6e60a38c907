package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/testutil"
)

func TestGetFamilyDashboard(t *testing.T) {
	t.Run("totals_parsed_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		messages := newTestMessageService(db, newStepClock())
		svc := NewDashboardService(db, NewFamilyService(db, "INR"))

		owner := testutil.CreateTestUser(t, db)
		spouse := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, owner.ID)
		testutil.AddTestMember(t, db, family.ID, spouse.ID, models.FamilyRoleEditor)

		posts := []struct {
			userID  string
			message string
		}{
			{owner.ID, "Rs 5,000 credited to account 1111"},
			{owner.ID, "Rs 1,200 spent on credit card 2222 at Amazon"},
			{spouse.ID, "Rs 800 credited to account 3333"},
			{owner.ID, "Rs 300 debited from account 1111"},
		}
		for _, p := range posts {
			if _, err := messages.ParseMessage(p.userID, &family.ID, p.message, ""); err != nil {
				t.Fatalf("ParseMessage(%q): %v", p.message, err)
			}
		}

		// Neither an inactive account nor another family's account counts.
		hidden := testutil.CreateTestAccountWithBalance(t, db, family.ID, owner.ID, nil, decimal.NewFromInt(9999))
		db.Model(hidden).Update("is_active", false)
		other := testutil.CreateTestFamily(t, db, spouse.ID)
		testutil.CreateTestAccountWithBalance(t, db, other.ID, spouse.ID, nil, decimal.NewFromInt(7777))

		dashboard, err := svc.GetFamilyDashboard(owner.ID, &family.ID)
		testutil.AssertNoError(t, err)

		if dashboard.FamilyID != family.ID || dashboard.Currency != "INR" {
			t.Errorf("unexpected family/currency %s/%s", dashboard.FamilyID, dashboard.Currency)
		}
		if dashboard.AccountsCount != 3 {
			t.Errorf("accounts_count = %d, want 3", dashboard.AccountsCount)
		}

		nw := dashboard.NetWorth
		if !nw.TotalAssets.Equal(decimal.NewFromInt(5500)) {
			t.Errorf("total_assets = %s, want 5500", nw.TotalAssets)
		}
		if !nw.TotalLiabilities.Equal(decimal.NewFromInt(1200)) {
			t.Errorf("total_liabilities = %s, want 1200", nw.TotalLiabilities)
		}
		if !nw.TotalNetWorth.Equal(decimal.NewFromInt(4300)) {
			t.Errorf("total_net_worth = %s, want 4300", nw.TotalNetWorth)
		}

		if len(dashboard.AssetAllocation) != 2 {
			t.Fatalf("expected 2 allocation rows, got %+v", dashboard.AssetAllocation)
		}
		savings := dashboard.AssetAllocation[0]
		if savings.AccountType != models.AccountTypeSavings || !savings.Amount.Equal(decimal.NewFromInt(5500)) || savings.Accounts != 2 || savings.Percentage != 100 {
			t.Errorf("unexpected savings row %+v", savings)
		}
		card := dashboard.AssetAllocation[1]
		if card.AccountType != models.AccountTypeCreditCard || !card.Amount.IsZero() || card.Accounts != 1 || card.Percentage != 0 {
			t.Errorf("unexpected credit card row %+v", card)
		}

		if len(dashboard.MemberNetWorth) != 2 {
			t.Fatalf("expected 2 members, got %+v", dashboard.MemberNetWorth)
		}
		byUser := map[string]MemberNetWorth{}
		for _, m := range dashboard.MemberNetWorth {
			byUser[m.UserID] = m
		}
		if m := byUser[owner.ID]; !m.NetWorth.Equal(decimal.NewFromInt(3500)) || m.Accounts != 2 || m.UserName != owner.Email {
			t.Errorf("unexpected owner row %+v", m)
		}
		if m := byUser[spouse.ID]; !m.NetWorth.Equal(decimal.NewFromInt(800)) || m.Accounts != 1 {
			t.Errorf("unexpected spouse row %+v", m)
		}
	})

	t.Run("default_family", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewDashboardService(db, NewFamilyService(db, "INR"))

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)
		testutil.CreateTestAccountWithBalance(t, db, family.ID, user.ID, nil, decimal.RequireFromString("250.50"))

		dashboard, err := svc.GetFamilyDashboard(user.ID, nil)
		testutil.AssertNoError(t, err)
		if dashboard.FamilyID != family.ID {
			t.Errorf("family = %s, want %s", dashboard.FamilyID, family.ID)
		}
		if !dashboard.NetWorth.TotalNetWorth.Equal(decimal.RequireFromString("250.50")) {
			t.Errorf("net worth = %s, want 250.50", dashboard.NetWorth.TotalNetWorth)
		}
	})

	t.Run("empty_family", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewDashboardService(db, NewFamilyService(db, "INR"))

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)

		dashboard, err := svc.GetFamilyDashboard(user.ID, &family.ID)
		testutil.AssertNoError(t, err)
		if !dashboard.NetWorth.TotalNetWorth.IsZero() || len(dashboard.AssetAllocation) != 0 {
			t.Errorf("expected an empty dashboard, got %+v", dashboard)
		}
		if len(dashboard.MemberNetWorth) != 1 || !dashboard.MemberNetWorth[0].NetWorth.IsZero() {
			t.Errorf("expected one member with zero net worth, got %+v", dashboard.MemberNetWorth)
		}
	})

	t.Run("non_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewDashboardService(db, NewFamilyService(db, "INR"))

		owner := testutil.CreateTestUser(t, db)
		stranger := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, owner.ID)

		_, err := svc.GetFamilyDashboard(stranger.ID, &family.ID)
		testutil.AssertAppError(t, err, "FAMILY_ACCESS_DENIED")
	})

	t.Run("no_family", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewDashboardService(db, NewFamilyService(db, "INR"))

		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetFamilyDashboard(user.ID, nil)
		testutil.AssertAppError(t, err, "NO_FAMILY")
	})
}
