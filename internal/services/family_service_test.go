package services

import (
	"testing"
	"time"

	"famledger/internal/models"
	"famledger/internal/testutil"
)

func TestCreateFamily(t *testing.T) {
	t.Run("creates_owner_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		family, err := svc.CreateFamily(user.ID, "  Sharma Household ", "")
		testutil.AssertNoError(t, err)

		if family.Name != "Sharma Household" {
			t.Errorf("expected trimmed name, got %q", family.Name)
		}
		if family.Currency != "INR" {
			t.Errorf("expected default currency INR, got %s", family.Currency)
		}

		member, err := svc.GetActiveMembership(user.ID, family.ID)
		testutil.AssertNoError(t, err)
		if member.Role != models.FamilyRoleOwner {
			t.Errorf("expected owner role, got %s", member.Role)
		}
	})

	t.Run("explicit_currency_uppercased", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		family, err := svc.CreateFamily(user.ID, "Expats", "usd")
		testutil.AssertNoError(t, err)
		if family.Currency != "USD" {
			t.Errorf("expected USD, got %s", family.Currency)
		}
	})

	t.Run("unknown_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateFamily(user.ID, "Home", "abc")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateFamily(user.ID, "   ", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserFamilies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewFamilyService(db, "INR")

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	mine := testutil.CreateTestFamily(t, db, user.ID)
	testutil.CreateTestFamily(t, db, other.ID)

	shared := testutil.CreateTestFamily(t, db, other.ID)
	testutil.AddTestMember(t, db, shared.ID, user.ID, models.FamilyRoleViewer)

	left := testutil.CreateTestFamily(t, db, other.ID)
	m := testutil.AddTestMember(t, db, left.ID, user.ID, models.FamilyRoleEditor)
	db.Model(m).Update("is_active", false)

	families, err := svc.GetUserFamilies(user.ID)
	testutil.AssertNoError(t, err)

	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
	if families[0].ID != mine.ID || families[1].ID != shared.ID {
		t.Errorf("unexpected families or order: %s, %s", families[0].ID, families[1].ID)
	}
}

func TestGetActiveMembership(t *testing.T) {
	t.Run("non_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		owner := testutil.CreateTestUser(t, db)
		stranger := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, owner.ID)

		_, err := svc.GetActiveMembership(stranger.ID, family.ID)
		testutil.AssertAppError(t, err, "FAMILY_ACCESS_DENIED")
	})

	t.Run("inactive_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		owner := testutil.CreateTestUser(t, db)
		former := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, owner.ID)
		m := testutil.AddTestMember(t, db, family.ID, former.ID, models.FamilyRoleEditor)
		db.Model(m).Update("is_active", false)

		_, err := svc.GetActiveMembership(former.ID, family.ID)
		testutil.AssertAppError(t, err, "FAMILY_ACCESS_DENIED")
	})
}

func TestGetDefaultFamilyID(t *testing.T) {
	t.Run("first_joined", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		first := testutil.CreateTestFamily(t, db, user.ID)
		second := testutil.CreateTestFamily(t, db, user.ID)
		db.Model(&models.FamilyMember{}).Where("family_id = ?", second.ID).
			Update("joined_at", time.Now().Add(24*time.Hour))

		id, err := svc.GetDefaultFamilyID(user.ID)
		testutil.AssertNoError(t, err)
		if id != first.ID {
			t.Errorf("expected family %s, got %s", first.ID, id)
		}
	})

	t.Run("no_family", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFamilyService(db, "INR")

		user := testutil.CreateTestUser(t, db)
		_, err := svc.GetDefaultFamilyID(user.ID)
		testutil.AssertAppError(t, err, "NO_FAMILY")
	})
}
