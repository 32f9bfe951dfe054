package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/transport/http/middleware"
	"github.com/abdulkaderkhouja/elpazar/internal/usecase"
)

// loginRejectedMessage is returned for every rejected login regardless of
// the internal reason, so responses cannot be used to probe which
// usernames exist or which accounts are locked.
const loginRejectedMessage = "invalid username or password"

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	login *usecase.LoginService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.Login)
	r.POST("/login", chain...)
}

// Login godoc
// @Summary Evaluate a login attempt
// @Description Verifies the supplied credentials against the account lockout policy.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} LoginResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	input := usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}
	if reqCtx.IP != "" {
		input.IPAddress = &reqCtx.IP
	}
	if reqCtx.UserAgent != "" {
		input.UserAgent = &reqCtx.UserAgent
	}

	result, err := h.login.AttemptLogin(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, usecase.ErrUsernameRequired) || errors.Is(err, usecase.ErrPasswordRequired) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
			return
		}
		// A storage failure must read as a rejection without confirming or
		// denying the credentials.
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "unable to process login"))
		return
	}

	if result.Accepted {
		c.JSON(http.StatusOK, LoginResponse{
			Authenticated: true,
			AccountID:     result.AccountID,
		})
		return
	}

	resp := LoginResponse{Message: loginRejectedMessage}

	switch result.Reason {
	case domain.FailureAccountLocked:
		seconds := int(math.Ceil(result.RetryAfter.Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		resp.RetryAfterSeconds = &seconds
		c.Header("Retry-After", strconv.Itoa(seconds))
	case domain.FailureBadPassword:
		remaining := result.RemainingAttempts
		resp.RemainingAttempts = &remaining
	}

	c.JSON(http.StatusUnauthorized, resp)
}
