package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
	"github.com/abdulkaderkhouja/elpazar/internal/infra/security"
	"github.com/abdulkaderkhouja/elpazar/internal/usecase"
)

const (
	actorIDHeader   = "X-Actor-ID"
	actorNameHeader = "X-Actor-Name"

	defaultListLimit = 50
	maxListLimit     = 200

	defaultAttemptLimit = 20
	maxAttemptLimit     = 100
)

// AccountHandler exposes the administrative account lifecycle endpoints.
// Authentication of the administrator happens at the gateway; the acting
// identity arrives via trusted headers for audit attribution.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds the account lifecycle routes.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Create)
	r.GET("", h.List)
	r.GET("/:id", h.Get)
	r.POST("/:id/suspend", h.Suspend)
	r.POST("/:id/reactivate", h.Reactivate)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/lockout/clear", h.ClearLockout)
	r.GET("/:id/attempts", h.RecentAttempts)
}

// Create godoc
// @Summary Provision a new account
// @Description Creates an active account with the supplied credentials.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account creation payload"
// @Success 201 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	account, err := h.accounts.Create(c.Request.Context(), usecase.CreateAccountInput{
		UserID:   req.UserID,
		Username: req.Username,
		Password: req.Password,
		Actor:    actorFromRequest(c),
	})
	if err != nil {
		var validationErr *security.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, validationErr.Message))
		case errors.Is(err, usecase.ErrUsernameTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username already taken"))
		case errors.Is(err, usecase.ErrUsernameRequired), errors.Is(err, usecase.ErrPasswordRequired):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create account"))
		}
		return
	}

	c.JSON(http.StatusCreated, newAccountSummary(account))
}

// Get godoc
// @Summary Fetch one account
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		respondAccountError(c, err, "failed to fetch account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// List godoc
// @Summary List accounts
// @Description Returns a page of accounts optionally filtered by status.
// @Tags Accounts
// @Produce json
// @Param status query string false "Account status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} AccountListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	filter := port.AccountFilter{
		Limit:  queryInt(c, "limit", defaultListLimit, maxListLimit),
		Offset: queryInt(c, "offset", 0, 0),
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		parsed := domain.AccountStatus(status)
		if !parsed.Valid() {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown account status"))
			return
		}
		filter.Status = parsed
	}

	accounts, total, err := h.accounts.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		summaries = append(summaries, newAccountSummary(&accounts[i]))
	}

	c.JSON(http.StatusOK, AccountListResponse{
		Accounts: summaries,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// Suspend godoc
// @Summary Suspend an account
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/suspend [post]
func (h *AccountHandler) Suspend(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.Suspend(c.Request.Context(), id, actorFromRequest(c)); err != nil {
		respondAccountError(c, err, "failed to suspend account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account suspended"})
}

// Reactivate godoc
// @Summary Reactivate a suspended account
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/reactivate [post]
func (h *AccountHandler) Reactivate(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.Reactivate(c.Request.Context(), id, actorFromRequest(c)); err != nil {
		respondAccountError(c, err, "failed to reactivate account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account reactivated"})
}

// Delete godoc
// @Summary Soft delete an account
// @Description Marks the account deleted; the audit history is retained.
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 204 {string} string ""
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.SoftDelete(c.Request.Context(), id, actorFromRequest(c)); err != nil {
		respondAccountError(c, err, "failed to delete account")
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearLockout godoc
// @Summary Clear an active lockout
// @Description Removes the lockout window ahead of its natural expiry.
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/lockout/clear [post]
func (h *AccountHandler) ClearLockout(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.ClearLockout(c.Request.Context(), id, actorFromRequest(c)); err != nil {
		respondAccountError(c, err, "failed to clear lockout")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "lockout cleared"})
}

// RecentAttempts godoc
// @Summary List recent failed login attempts
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} FailedAttemptListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/accounts/{id}/attempts [get]
func (h *AccountHandler) RecentAttempts(c *gin.Context) {
	id, ok := accountIDParam(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", defaultAttemptLimit, maxAttemptLimit)

	attempts, err := h.accounts.RecentAttempts(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list attempts"))
		return
	}

	views := make([]FailedAttemptView, 0, len(attempts))
	for _, attempt := range attempts {
		views = append(views, FailedAttemptView{
			ID:          attempt.ID,
			Reason:      string(attempt.Reason),
			IPAddress:   attempt.IPAddress,
			UserAgent:   attempt.UserAgent,
			AttemptedAt: attempt.AttemptedAt,
		})
	}

	c.JSON(http.StatusOK, FailedAttemptListResponse{Attempts: views})
}

func respondAccountError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
	case errors.Is(err, usecase.ErrAccountDeleted):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "account is deleted"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallback))
	}
}

func accountIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account id"))
		return 0, false
	}
	return id, true
}

func actorFromRequest(c *gin.Context) usecase.Actor {
	actor := usecase.Actor{Name: strings.TrimSpace(c.GetHeader(actorNameHeader))}
	if id, err := strconv.ParseInt(c.GetHeader(actorIDHeader), 10, 64); err == nil && id > 0 {
		actor.ID = id
	}
	if actor.Name == "" {
		actor.Name = "system"
	}
	return actor
}

func queryInt(c *gin.Context, name string, fallback, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	if max > 0 && value > max {
		return max
	}
	return value
}
