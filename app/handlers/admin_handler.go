// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/app/services"
	businessflow "github.com/kairan-app/kairan/business_flow"
	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/repository"
	"github.com/kairan-app/kairan/utils"
)

// AdminHandlerInterface defines the contract for the admin API
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
	ForceSummary(c fiber.Ctx) error
	DeliveryReport(c fiber.Ctx) error
	ListMembers(c fiber.Ctx) error
}

// AdminHandler serves the admin HTTP API
type AdminHandler struct {
	memberRepo   repository.MemberRepository
	summaries    businessflow.SummaryFlow
	reports      businessflow.ReportFlow
	tokenService services.TokenService
	adminCfg     *config.AdminConfig
	jwtCfg       *config.JWTConfig
	validator    *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	memberRepo repository.MemberRepository,
	summaries businessflow.SummaryFlow,
	reports businessflow.ReportFlow,
	tokenService services.TokenService,
	adminCfg *config.AdminConfig,
	jwtCfg *config.JWTConfig,
) *AdminHandler {
	return &AdminHandler{
		memberRepo:   memberRepo,
		summaries:    summaries,
		reports:      reports,
		tokenService: tokenService,
		adminCfg:     adminCfg,
		jwtCfg:       jwtCfg,
		validator:    validator.New(),
	}
}

func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Login exchanges the shared admin secret for a JWT. The phone must belong
// to an active admin member.
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
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

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.adminCfg.APISecret)) != 1 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
	}

	ctx := h.createRequestContext(c, "/api/v1/admin/login")
	member, err := h.memberRepo.ByPhone(ctx, utils.NormalizePhone(req.Phone))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up member", "MEMBER_LOOKUP_FAILED", nil)
	}
	if member == nil || !member.IsAdmin || !utils.IsTrue(member.IsActive) {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
	}

	token, err := h.tokenService.GenerateAdminToken(member.ID)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue token", "TOKEN_ISSUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", dto.AdminLoginResponse{
		Token:     token,
		ExpiresAt: utils.UTCNow().Add(h.jwtCfg.TokenTTL),
	})
}

// ForceSummary triggers an immediate reaction digest
func (h *AdminHandler) ForceSummary(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/admin/summary")
	result, err := h.summaries.RunSummary(ctx)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Summary run failed", "SUMMARY_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Summary run completed", dto.ForceSummaryResponse{
		Sent:            result.Sent,
		ReactionCount:   result.ReactionCount,
		MessagesCovered: result.MessagesCovered,
	})
}

// DeliveryReport streams an XLSX workbook of broadcasts and per-recipient
// delivery outcomes
func (h *AdminHandler) DeliveryReport(c fiber.Ctx) error {
	var start, end *time.Time
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid start time", "INVALID_TIME_RANGE", err.Error())
		}
		start = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid end time", "INVALID_TIME_RANGE", err.Error())
		}
		end = &t
	}

	ctx := h.createRequestContextWithTimeout(c, "/api/v1/admin/reports/deliveries", 2*time.Minute)
	filename, data, err := h.reports.DeliveryReportXLSX(ctx, start, end)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Report generation failed", "REPORT_FAILED", err.Error())
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// ListMembers returns the full roster for the admin UI
func (h *AdminHandler) ListMembers(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/admin/members")
	members, err := h.memberRepo.ByFilter(ctx, models.MemberFilter{}, "id ASC", 0, 0)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list members", "MEMBER_LOOKUP_FAILED", nil)
	}

	out := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, dto.MemberResponse{
			ID:           m.ID,
			UUID:         m.UUID.String(),
			Phone:        m.Phone,
			Name:         m.Name,
			IsAdmin:      m.IsAdmin,
			IsActive:     utils.IsTrue(m.IsActive),
			MessageCount: m.MessageCount,
			LastActiveAt: m.LastActiveAt,
		})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Members listed", out)
}

func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AdminHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
