package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ctxWithRealIP(ip string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/auth/validate", nil)
	c.Set("real_ip", ip)
	return c
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()

	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "172.16.0.9", "192.168.1.40"} {
		assert.True(t, allow(ctxWithRealIP(ip)), "ip %s should bypass the limit", ip)
	}
	for _, ip := range []string{"203.0.113.7", "8.8.8.8", "2001:db8::1"} {
		assert.False(t, allow(ctxWithRealIP(ip)), "ip %s must be limited", ip)
	}
	assert.False(t, allow(ctxWithRealIP("not-an-ip")))
}
