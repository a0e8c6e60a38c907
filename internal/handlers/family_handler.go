package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/services"
)

// FamilyHandler handles family-related requests.
type FamilyHandler struct {
	familyService services.FamilyServicer
	auditService  services.AuditServicer
}

// NewFamilyHandler creates a new FamilyHandler.
func NewFamilyHandler(familyService services.FamilyServicer, auditService services.AuditServicer) *FamilyHandler {
	return &FamilyHandler{familyService: familyService, auditService: auditService}
}

// CreateFamilyRequest represents the request payload for creating a family.
type CreateFamilyRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Currency string `json:"currency" binding:"omitempty,iso4217"`
}

// CreateFamily handles the creation of a new family
// @Summary     Create a family
// @Description Create a family ledger owned by the authenticated user
// @Tags        families
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateFamilyRequest true "Family details"
// @Success     201 {object} models.Family "Family created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families [post]
func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	family, err := h.familyService.CreateFamily(userID, req.Name, req.Currency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionCreateFamily, "family", family.ID, c.ClientIP(),
		map[string]any{"name": family.Name, "currency": family.Currency})

	c.JSON(http.StatusCreated, gin.H{"family": family})
}

// GetUserFamilies lists the families the user belongs to
// @Summary     List families
// @Description List the families the authenticated user is an active member of
// @Tags        families
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Family "Families"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /families [get]
func (h *FamilyHandler) GetUserFamilies(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	families, err := h.familyService.GetUserFamilies(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"families": families})
}
