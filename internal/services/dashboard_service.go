package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

// NetWorth splits a family's balances into what it owns and what it owes.
type NetWorth struct {
	TotalNetWorth    decimal.Decimal `json:"total_net_worth" swaggertype:"string"`
	TotalAssets      decimal.Decimal `json:"total_assets" swaggertype:"string"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities" swaggertype:"string"`
}

// AllocationItem is the positive balance held in one account type.
type AllocationItem struct {
	AccountType models.AccountType `json:"account_type"`
	Amount      decimal.Decimal    `json:"amount" swaggertype:"string"`
	Percentage  float64            `json:"percentage"`
	Accounts    int                `json:"accounts_count"`
}

// MemberNetWorth is the sum of balances of the accounts a member owns.
type MemberNetWorth struct {
	UserID   string          `json:"user_id"`
	UserName string          `json:"user_name"`
	NetWorth decimal.Decimal `json:"net_worth" swaggertype:"string"`
	Accounts int             `json:"accounts_count"`
}

// FamilyDashboard is the summary shown on a family's landing page.
type FamilyDashboard struct {
	FamilyID        string           `json:"family_id"`
	Currency        string           `json:"currency"`
	NetWorth        NetWorth         `json:"net_worth"`
	AssetAllocation []AllocationItem `json:"asset_allocation"`
	MemberNetWorth  []MemberNetWorth `json:"member_net_worth"`
	AccountsCount   int              `json:"accounts_count"`
}

// dashboardService aggregates account balances for a family.
type dashboardService struct {
	db       *gorm.DB
	families FamilyServicer
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB, families FamilyServicer) DashboardServicer {
	return &dashboardService{db: db, families: families}
}

// GetFamilyDashboard totals the active accounts of a family the user belongs
// to. When familyID is nil the user's first active family is used.
//
// Credit card and loan balances count as liabilities by magnitude. Asset
// allocation only counts positive balances. Member net worth is the plain sum
// of the balances each member owns.
func (s *dashboardService) GetFamilyDashboard(userID string, familyID *string) (*FamilyDashboard, error) {
	targetFamily, err := s.resolveFamily(userID, familyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.families.GetActiveMembership(userID, targetFamily); err != nil {
		return nil, err
	}

	var family models.Family
	if err := s.db.Where("id = ?", targetFamily).First(&family).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyAccessDenied
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := s.db.
		Where("family_id = ? AND is_active = ? AND status IN ?", targetFamily, true,
			[]string{string(models.AccountStatusLinked), string(models.AccountStatusPending)}).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	members, err := s.activeMembers(targetFamily)
	if err != nil {
		return nil, err
	}

	dashboard := &FamilyDashboard{
		FamilyID:        family.ID,
		Currency:        family.Currency,
		NetWorth:        netWorth(accounts),
		AssetAllocation: assetAllocation(accounts),
		MemberNetWorth:  memberNetWorth(accounts, members),
		AccountsCount:   len(accounts),
	}
	return dashboard, nil
}

func (s *dashboardService) resolveFamily(userID string, familyID *string) (string, error) {
	if familyID != nil && *familyID != "" {
		return *familyID, nil
	}
	return s.families.GetDefaultFamilyID(userID)
}

// activeMembers returns the family's active members with display names, in
// join order.
func (s *dashboardService) activeMembers(familyID string) ([]MemberNetWorth, error) {
	var memberships []models.FamilyMember
	if err := s.db.
		Where("family_id = ? AND is_active = ?", familyID, true).
		Order("joined_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = displayName(u)
	}

	members := make([]MemberNetWorth, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, MemberNetWorth{
			UserID:   m.UserID,
			UserName: names[m.UserID],
			NetWorth: decimal.Zero,
		})
	}
	return members, nil
}

func displayName(u models.User) string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Email
}

func isLiability(t models.AccountType) bool {
	return t == models.AccountTypeCreditCard || t == models.AccountTypeLoan
}

func netWorth(accounts []models.Account) NetWorth {
	assets, liabilities := decimal.Zero, decimal.Zero
	for _, a := range accounts {
		if isLiability(a.Type) {
			liabilities = liabilities.Add(a.Balance.Abs())
		} else {
			assets = assets.Add(a.Balance)
		}
	}
	return NetWorth{
		TotalNetWorth:    assets.Sub(liabilities),
		TotalAssets:      assets,
		TotalLiabilities: liabilities,
	}
}

// assetAllocation groups positive balances by account type, largest first.
func assetAllocation(accounts []models.Account) []AllocationItem {
	byType := make(map[models.AccountType]*AllocationItem)
	total := decimal.Zero
	for _, a := range accounts {
		item, ok := byType[a.Type]
		if !ok {
			item = &AllocationItem{AccountType: a.Type, Amount: decimal.Zero}
			byType[a.Type] = item
		}
		item.Accounts++
		if a.Balance.IsPositive() {
			item.Amount = item.Amount.Add(a.Balance)
			total = total.Add(a.Balance)
		}
	}

	items := make([]AllocationItem, 0, len(byType))
	for _, item := range byType {
		if total.IsPositive() {
			item.Percentage = item.Amount.Div(total).Mul(hundred).Round(2).InexactFloat64()
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].Amount.Cmp(items[j].Amount); c != 0 {
			return c > 0
		}
		return items[i].AccountType < items[j].AccountType
	})
	return items
}

// memberNetWorth adds each account balance to its owner. Accounts owned by
// someone no longer in the family are left out of the member list.
func memberNetWorth(accounts []models.Account, members []MemberNetWorth) []MemberNetWorth {
	index := make(map[string]int, len(members))
	for i, m := range members {
		index[m.UserID] = i
	}
	for _, a := range accounts {
		i, ok := index[a.OwnerID]
		if !ok {
			continue
		}
		members[i].NetWorth = members[i].NetWorth.Add(a.Balance)
		members[i].Accounts++
	}
	if members == nil {
		return []MemberNetWorth{}
	}
	return members
}
