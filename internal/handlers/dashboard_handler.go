package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/services"
)

// DashboardHandler serves family balance summaries.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// DashboardQuery holds the optional family selector.
type DashboardQuery struct {
	FamilyID string `form:"family_id" binding:"omitempty,uuid"`
}

// GetDashboard handles the retrieval of a family dashboard
// @Summary     Get family dashboard
// @Description Net worth, asset allocation by account type and net worth per member for one family. Defaults to the user's first family.
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       family_id query string false "Family ID"
// @Success     200 {object} services.FamilyDashboard "Dashboard"
// @Failure     400 {object} ErrorResponse "Invalid input or no family"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member of this family"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid family_id"))
		return
	}

	var familyID *string
	if query.FamilyID != "" {
		familyID = &query.FamilyID
	}

	dashboard, err := h.dashboardService.GetFamilyDashboard(userID, familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
