package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/services"
)

type mockDashboardService struct {
	getFamilyDashboardFn func(userID string, familyID *string) (*services.FamilyDashboard, error)
}

func (m *mockDashboardService) GetFamilyDashboard(userID string, familyID *string) (*services.FamilyDashboard, error) {
	if m.getFamilyDashboardFn != nil {
		return m.getFamilyDashboardFn(userID, familyID)
	}
	return &services.FamilyDashboard{}, nil
}

func setupDashboardRouter(handler *DashboardHandler) *gin.Engine {
	r := gin.New()
	r.Use(injectUserID(testUserID))
	r.GET("/dashboard", handler.GetDashboard)
	return r
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	t.Run("returns 200 for the requested family", func(t *testing.T) {
		var gotUser string
		var gotFamily *string
		svc := &mockDashboardService{
			getFamilyDashboardFn: func(userID string, familyID *string) (*services.FamilyDashboard, error) {
				gotUser = userID
				gotFamily = familyID
				return &services.FamilyDashboard{
					FamilyID: *familyID,
					Currency: "INR",
					NetWorth: services.NetWorth{
						TotalNetWorth:    decimal.NewFromInt(1500),
						TotalAssets:      decimal.NewFromInt(2000),
						TotalLiabilities: decimal.NewFromInt(500),
					},
					AssetAllocation: []services.AllocationItem{
						{AccountType: models.AccountTypeSavings, Amount: decimal.NewFromInt(2000), Percentage: 100, Accounts: 1},
					},
					MemberNetWorth: []services.MemberNetWorth{},
					AccountsCount:  2,
				}, nil
			},
		}
		r := setupDashboardRouter(NewDashboardHandler(svc))

		rec := doRequest(r, "GET", "/dashboard?family_id="+testFamilyID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUser != testUserID {
			t.Errorf("expected user %s, got %s", testUserID, gotUser)
		}
		if gotFamily == nil || *gotFamily != testFamilyID {
			t.Errorf("expected family %s, got %v", testFamilyID, gotFamily)
		}
		result := parseJSON(t, rec)
		netWorth := result["net_worth"].(map[string]interface{})
		if netWorth["total_net_worth"] != "1500" {
			t.Errorf("expected net worth 1500, got %v", netWorth["total_net_worth"])
		}
		if result["accounts_count"] != float64(2) {
			t.Errorf("expected 2 accounts, got %v", result["accounts_count"])
		}
	})

	t.Run("omitting family_id lets the service pick the default", func(t *testing.T) {
		called := false
		svc := &mockDashboardService{
			getFamilyDashboardFn: func(_ string, familyID *string) (*services.FamilyDashboard, error) {
				called = true
				if familyID != nil {
					t.Errorf("expected nil family, got %q", *familyID)
				}
				return &services.FamilyDashboard{}, nil
			},
		}
		r := setupDashboardRouter(NewDashboardHandler(svc))

		rec := doRequest(r, "GET", "/dashboard", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !called {
			t.Error("expected service to be called")
		}
	})

	t.Run("returns 400 on invalid family id", func(t *testing.T) {
		r := setupDashboardRouter(NewDashboardHandler(&mockDashboardService{}))

		rec := doRequest(r, "GET", "/dashboard?family_id=abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 403 when not a member", func(t *testing.T) {
		svc := &mockDashboardService{
			getFamilyDashboardFn: func(_ string, _ *string) (*services.FamilyDashboard, error) {
				return nil, apperrors.ErrFamilyAccessDenied
			},
		}
		r := setupDashboardRouter(NewDashboardHandler(svc))

		rec := doRequest(r, "GET", "/dashboard?family_id="+testFamilyID, "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FAMILY_ACCESS_DENIED")
	})

	t.Run("returns 400 when the user has no family", func(t *testing.T) {
		svc := &mockDashboardService{
			getFamilyDashboardFn: func(_ string, _ *string) (*services.FamilyDashboard, error) {
				return nil, apperrors.ErrNoFamily
			},
		}
		r := setupDashboardRouter(NewDashboardHandler(svc))

		rec := doRequest(r, "GET", "/dashboard", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_FAMILY")
	})
}
