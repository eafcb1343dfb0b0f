package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vendra/identity-core/internal/application"
	"github.com/vendra/identity-core/internal/domain/entity"
	"github.com/vendra/identity-core/pkg/helpers"
	"github.com/vendra/identity-core/pkg/response"
	"github.com/vendra/identity-core/pkg/token"
	"github.com/vendra/identity-core/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,pwd"`
	AccountType string `json:"account_type" binding:"required,accounttype"`
}

type loginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	AccountType string `json:"account_type" binding:"required,accounttype"`
}

type forgotPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	AccountType string `json:"account_type" binding:"required,accounttype"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

type validateTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	accountType, err := entity.ParseAccountType(req.AccountType)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid account type", nil)
		return
	}

	identity, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password, accountType)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, err.Error(), nil)
		case errors.Is(err, entity.ErrInvalidEmail), errors.Is(err, entity.ErrInvalidPassword):
			response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("register failed")
			response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"id":           identity.ID,
		"email":        identity.Email,
		"account_type": identity.AccountType.String(),
	}, "account registered", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	accountType, err := entity.ParseAccountType(req.AccountType)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid account type", nil)
		return
	}

	pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, accountType)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAccountLocked):
			response.Error[any](c, http.StatusLocked, "account is temporarily locked, try again later", nil)
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, "login successful", map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", map[string]any{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie("access_token")
	if raw == "" {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if raw == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), raw); err != nil {
		h.Cookies.Clear(c)
		response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// ForgotPassword POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	accountType, err := entity.ParseAccountType(req.AccountType)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid account type", nil)
		return
	}

	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, accountType); err != nil {
		var rle *application.RateLimitExceededError
		if errors.As(err, &rle) {
			response.Error[any](c, http.StatusTooManyRequests, rle.Error(), map[string]any{
				"minutes_until_reset": rle.MinutesUntilReset,
			})
			return
		}
		h.Logger.WithError(err).Error("forgot password failed")
		response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		return
	}
	// Identical whether or not the email is registered.
	response.Success[any](c, http.StatusOK, nil, application.ForgotPasswordMessage, nil)
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Svc.UpdatePassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidPassword):
			response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		case isTokenError(err),
			errors.Is(err, application.ErrInvalidResetToken),
			errors.Is(err, application.ErrIdentityNotFound):
			// One generic message; which check failed stays hidden.
			response.Error[any](c, http.StatusBadRequest, "invalid or expired reset token", nil)
		default:
			h.Logger.WithError(err).Error("reset password failed")
			response.Error[any](c, http.StatusInternalServerError, "request failed", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}

// ValidateToken POST /api/auth/validate
// Always answers 200; the body carries the verdict.
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req validateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Success(c, http.StatusOK, gin.H{"valid": false}, "token validated", nil)
		return
	}
	valid := h.Svc.ValidateToken(c.Request.Context(), req.Token)
	response.Success(c, http.StatusOK, gin.H{"valid": valid}, "token validated", nil)
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrBlacklisted) ||
		errors.Is(err, token.ErrInvalidSignature) ||
		errors.Is(err, token.ErrExpired) ||
		errors.Is(err, token.ErrNotYetValid) ||
		errors.Is(err, token.ErrWrongPurpose) ||
		errors.Is(err, token.ErrMalformed)
}
