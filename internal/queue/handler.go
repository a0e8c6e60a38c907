package queue

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
	"famledger/internal/services"
)

// ForwardedMessage is the JSON body published by SMS and email forwarders.
type ForwardedMessage struct {
	UserID   string  `json:"user_id"`
	Message  string  `json:"message"`
	FamilyID *string `json:"family_id,omitempty"`
	Source   string  `json:"source,omitempty"`
}

// Handler adapts deliveries to the message service.
type Handler struct {
	messageService services.MessageServicer
}

// NewHandler creates a new Handler.
func NewHandler(messageService services.MessageServicer) *Handler {
	return &Handler{messageService: messageService}
}

// HandleDelivery parses and records one forwarded message. Malformed payloads
// and client errors are acknowledged so they are not redelivered; only
// server-side failures ask for a retry.
func (h *Handler) HandleDelivery(body []byte) bool {
	log := logger.Named("queue")

	var msg ForwardedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Warnw("dropping malformed delivery", "error", err.Error())
		return true
	}
	if _, err := uuid.Parse(msg.UserID); err != nil {
		log.Warnw("dropping delivery without a valid user_id")
		return true
	}
	if msg.FamilyID != nil && *msg.FamilyID != "" {
		if _, err := uuid.Parse(*msg.FamilyID); err != nil {
			log.Warnw("dropping delivery with invalid family_id", "user_id", msg.UserID)
			return true
		}
	}

	result, err := h.messageService.ParseMessage(msg.UserID, msg.FamilyID, msg.Message, "")
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
			log.Infow("forwarded message rejected",
				"user_id", msg.UserID,
				"source", msg.Source,
				"code", appErr.Code,
			)
			return true
		}
		log.Errorw("forwarded message failed",
			"user_id", msg.UserID,
			"source", msg.Source,
			"error", err.Error(),
		)
		return false
	}

	log.Infow("forwarded message recorded",
		"user_id", msg.UserID,
		"source", msg.Source,
		"transaction_id", result.Transaction.ID,
		"account_created", result.AccountCreated,
	)
	return true
}
