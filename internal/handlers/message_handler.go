package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/services"
)

// MessageHandler turns forwarded bank messages into ledger entries.
type MessageHandler struct {
	messageService services.MessageServicer
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.MessageServicer) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// ParseMessageRequest is the body of POST /messages/parse. An empty message
// is reported as an unparsable message rather than a binding error.
type ParseMessageRequest struct {
	Message  string  `json:"message" binding:"max=5000"`
	FamilyID *string `json:"family_id" binding:"omitempty,uuid_or_empty"`
}

// InternalParseMessageRequest is the body of the gateway endpoint, which acts
// on behalf of UserID.
type InternalParseMessageRequest struct {
	UserID   string  `json:"user_id" binding:"required,uuid"`
	Message  string  `json:"message" binding:"max=5000"`
	FamilyID *string `json:"family_id" binding:"omitempty,uuid_or_empty"`
}

// ParsedTransaction summarizes the posted transaction.
type ParsedTransaction struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// ParsedAccount summarizes the account the transaction was posted to.
type ParsedAccount struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Last4   *string `json:"last_4"`
	Balance float64 `json:"balance"`
	Created bool    `json:"created"`
}

// ParseMessageResponse is returned by both parse endpoints.
type ParseMessageResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Transaction ParsedTransaction `json:"transaction"`
	Account     ParsedAccount     `json:"account"`
}

// NewParseMessageResponse builds the response body for a reconciled message.
func NewParseMessageResponse(result *services.MessageResult) ParseMessageResponse {
	return ParseMessageResponse{
		Success: true,
		Message: "Transaction created successfully",
		Transaction: ParsedTransaction{
			ID:          result.Transaction.ID,
			Amount:      result.Transaction.Amount.InexactFloat64(),
			Type:        string(result.Transaction.Type),
			Date:        result.Transaction.Date,
			Description: result.Transaction.Description,
		},
		Account: ParsedAccount{
			ID:      result.Account.ID,
			Name:    result.Account.Name,
			Last4:   result.Account.Last4,
			Balance: result.Account.Balance.InexactFloat64(),
			Created: result.AccountCreated,
		},
	}
}

// ParseMessage records a transaction from a forwarded SMS or email
// @Summary     Parse a bank message
// @Description Extract a transaction from forwarded SMS/email text and post it to the family ledger. The account is matched by its last four digits or created.
// @Tags        messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ParseMessageRequest true "Message text and optional family"
// @Success     201 {object} ParseMessageResponse "Transaction recorded"
// @Failure     400 {object} ErrorResponse "No amount found or no family"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member of this family"
// @Failure     409 {object} ErrorResponse "Message already recorded"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /messages/parse [post]
func (h *MessageHandler) ParseMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ParseMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	h.reconcile(c, userID, req.FamilyID, req.Message)
}

// ParseMessageInternal records a transaction on behalf of a user
// @Summary     Parse a bank message (gateway)
// @Description Same as /messages/parse for trusted SMS forwarders authenticated by API key.
// @Tags        messages
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body InternalParseMessageRequest true "User, message text and optional family"
// @Success     201 {object} ParseMessageResponse "Transaction recorded"
// @Failure     400 {object} ErrorResponse "No amount found or no family"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     403 {object} ErrorResponse "Not a member of this family"
// @Failure     409 {object} ErrorResponse "Message already recorded"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /internal/messages/parse [post]
func (h *MessageHandler) ParseMessageInternal(c *gin.Context) {
	var req InternalParseMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	h.reconcile(c, req.UserID, req.FamilyID, req.Message)
}

func (h *MessageHandler) reconcile(c *gin.Context, userID string, familyID *string, message string) {
	result, err := h.messageService.ParseMessage(userID, familyID, message, c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewParseMessageResponse(result))
}
