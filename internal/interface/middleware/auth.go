package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vendra/identity-core/pkg/response"
	"github.com/vendra/identity-core/pkg/token"
)

const (
	CtxAuthIdentityIDKey = "authIdentityID"
	CtxTenantIDKey       = "tenantID"
	CtxEmailKey          = "userEmail"
)

// Auth validates the access token from the access_token cookie or the
// Authorization bearer header. Revoked tokens are rejected here because the
// token service consults the blacklist before trusting signature and expiry.
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := tokens.Verify(c.Request.Context(), raw)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}
		c.Set(CtxAuthIdentityIDKey, claims.AuthIdentityID)
		c.Set(CtxTenantIDKey, claims.TenantID)
		c.Set(CtxEmailKey, claims.Email)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
