package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdulkaderkhouja/elpazar/internal/infra/security"
	"github.com/abdulkaderkhouja/elpazar/internal/transport/http/middleware"
	"github.com/abdulkaderkhouja/elpazar/internal/usecase"
)

// resetAcceptedMessage is sent for every reset request, known username or
// not, so the response cannot confirm account existence.
const resetAcceptedMessage = "if the account exists, a reset token has been issued"

// PasswordHandler exposes password change and reset endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	isDev     bool
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService, isDev bool) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, isDev: isDev}
}

// RegisterRoutes binds the password routes, applying optional middleware ahead of the reset endpoints.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares ...gin.HandlerFunc) {
	r.POST("/change", h.ChangePassword)

	resetGroup := r.Group("/reset")
	if len(resetMiddlewares) > 0 {
		resetGroup.Use(resetMiddlewares...)
	}
	resetGroup.POST("/request", h.RequestReset)
	resetGroup.POST("/confirm", h.ConfirmReset)
}

// ChangePassword godoc
// @Summary Change an account password
// @Description Replaces the password after verifying the current one. Enforces complexity and reuse policy.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/change [post]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	err := h.passwords.ChangePassword(c.Request.Context(), req.AccountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondPasswordError(c, err, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// RequestReset godoc
// @Summary Request a password reset token
// @Description Issues a single-use reset token. The response is identical for known and unknown usernames.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset request payload"
// @Success 202 {object} PasswordResetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/request [post]
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset request payload"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username is required"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	var ip *string
	if reqCtx.IP != "" {
		ip = &reqCtx.IP
	}

	token, err := h.passwords.RequestReset(c.Request.Context(), req.Username, ip)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process reset request"))
		return
	}

	resp := PasswordResetResponse{Message: resetAcceptedMessage}
	if h.isDev && token != "" {
		resp.DevToken = &token
	}

	c.JSON(http.StatusAccepted, resp)
}

// ConfirmReset godoc
// @Summary Consume a password reset token
// @Description Sets a new password for the account holding the token. Tokens are single use.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Reset confirmation payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/confirm [post]
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset confirmation payload"))
		return
	}

	err := h.passwords.ConfirmReset(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		respondPasswordError(c, err, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

func respondPasswordError(c *gin.Context, err error, fallback string) {
	var validationErr *security.PasswordValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, validationErr.Message))
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrInvalidResetToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired reset token"))
	case errors.Is(err, usecase.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
	case errors.Is(err, usecase.ErrPasswordReused):
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "password was used recently"))
	case errors.Is(err, usecase.ErrPasswordRequired):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password is required"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallback))
	}
}
