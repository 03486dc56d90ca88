// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/app/services"
	businessflow "github.com/kairan-app/kairan/business_flow"
	"github.com/kairan-app/kairan/utils"
)

// WebhookHandlerInterface defines the contract for the inbound webhook
type WebhookHandlerInterface interface {
	Inbound(c fiber.Ctx) error
}

// WebhookHandler receives inbound messages from the SMS provider. It
// acknowledges immediately and processes asynchronously so the provider's
// request is never blocked on delivery completion.
type WebhookHandler struct {
	flow      businessflow.InboundFlow
	gateway   services.SMSGatewayService
	validator *validator.Validate
	logger    *log.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(flow businessflow.InboundFlow, gateway services.SMSGatewayService, logger *log.Logger) *WebhookHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookHandler{
		flow:      flow,
		gateway:   gateway,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *WebhookHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// Inbound handles an inbound message webhook. The 200 reply only
// acknowledges receipt; any reply to the sender goes out through the
// gateway once processing finishes.
func (h *WebhookHandler) Inbound(c fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}

	go h.process(&req, metadata)

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Message accepted",
		Data:    dto.InboundMessageResponse{Accepted: true},
	})
}

// process runs the inbound flow detached from the webhook request and
// sends any reply back to the sender through the gateway
func (h *WebhookHandler) process(req *dto.InboundMessageRequest, metadata *businessflow.ClientMetadata) {
	ctx := context.WithValue(context.Background(), utils.RequestIDKey, metadata.RequestID)

	reply := h.flow.HandleInbound(ctx, req, metadata)
	if reply == "" {
		return
	}

	recipient := utils.NormalizePhone(req.From)
	if _, err := h.gateway.Send(ctx, recipient, reply); err != nil {
		h.logger.Printf("webhook: failed to send reply to %s: %v", recipient, err)
	}
}
