package models

import "time"

// FamilyRole is a member's role within a family ledger.
type FamilyRole string

const (
	FamilyRoleOwner   FamilyRole = "owner"
	FamilyRoleEditor  FamilyRole = "editor"
	FamilyRoleViewer  FamilyRole = "viewer"
	FamilyRoleAdvisor FamilyRole = "advisor"
)

// Family is the shared ledger that owns accounts.
type Family struct {
	Base
	Name      string         `gorm:"not null" json:"name"`
	CreatedBy string         `gorm:"type:uuid;not null" json:"created_by"`
	Currency  string         `gorm:"size:3;not null;default:'INR'" json:"currency"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	Members   []FamilyMember `gorm:"foreignKey:FamilyID" json:"members,omitempty"`
}

// FamilyMember links a user to a family. A user may only act on a family's
// accounts while their membership is active.
type FamilyMember struct {
	Base
	FamilyID string     `gorm:"type:uuid;not null;uniqueIndex:idx_family_member" json:"family_id"`
	UserID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_family_member;index" json:"user_id"`
	Role     FamilyRole `gorm:"not null;default:'viewer'" json:"role"`
	IsActive bool       `gorm:"default:true" json:"is_active"`
	JoinedAt time.Time  `json:"joined_at"`
	Family   *Family    `gorm:"foreignKey:FamilyID" json:"family,omitempty"`
}
