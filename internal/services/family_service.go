package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/validator"
)

// familyService handles family creation and membership checks.
type familyService struct {
	db              *gorm.DB
	defaultCurrency string
}

// NewFamilyService creates a new FamilyServicer. Families created without an
// explicit currency use defaultCurrency.
func NewFamilyService(db *gorm.DB, defaultCurrency string) FamilyServicer {
	return &familyService{db: db, defaultCurrency: defaultCurrency}
}

// CreateFamily creates a family and makes the user its owner.
func (s *familyService) CreateFamily(userID, name, currency string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "family name is required")
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	currency = strings.ToUpper(currency)
	if !validator.IsCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown currency "+currency)
	}

	family := &models.Family{
		Name:      name,
		CreatedBy: userID,
		Currency:  currency,
		IsActive:  true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(family).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.FamilyMember{
			FamilyID: family.ID,
			UserID:   userID,
			Role:     models.FamilyRoleOwner,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return family, nil
}

// GetUserFamilies lists the active families the user is an active member of.
func (s *familyService) GetUserFamilies(userID string) ([]models.Family, error) {
	var families []models.Family
	err := s.db.
		Joins("JOIN family_members ON family_members.family_id = families.id AND family_members.deleted_at IS NULL").
		Where("family_members.user_id = ? AND family_members.is_active = ? AND families.is_active = ?", userID, true, true).
		Order("family_members.joined_at ASC").
		Find(&families).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if families == nil {
		families = []models.Family{}
	}
	return families, nil
}

// GetActiveMembership returns the user's active membership in the family.
func (s *familyService) GetActiveMembership(userID, familyID string) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := s.db.
		Where("user_id = ? AND family_id = ? AND is_active = ?", userID, familyID, true).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFamilyAccessDenied
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// GetDefaultFamilyID returns the family of the user's earliest active membership.
func (s *familyService) GetDefaultFamilyID(userID string) (string, error) {
	var member models.FamilyMember
	err := s.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("joined_at ASC").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrNoFamily
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member.FamilyID, nil
}
