package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendra/identity-core/internal/container"
	handlers "github.com/vendra/identity-core/internal/interface/http"
	"github.com/vendra/identity-core/internal/interface/middleware"
	"github.com/vendra/identity-core/pkg/token"
)

// AuthModule wires the identity endpoints.
// Public: register, login, refresh, forgot-password, reset-password, validate.
// Protected: logout (requires a live access token).
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  *token.Service
}

func NewAuthModule(h *handlers.AuthHandler, tokens *token.Service) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	// Transport-level per-IP throttles; the per-email reset window is
	// enforced inside the application flow.
	registerLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	forgotLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	validateLimiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/refresh", refreshLimiter, m.Handler.Refresh)
	rg.POST("/auth/forgot-password", forgotLimiter, m.Handler.ForgotPassword)
	rg.POST("/auth/reset-password", resetLimiter, m.Handler.ResetPassword)
	rg.POST("/auth/validate", validateLimiter, m.Handler.ValidateToken)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Tokens))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIdentity(), nil))
	{
		auth.POST("/auth/logout", m.Handler.Logout)
	}
}
