// Package middleware file: internal/transport/http/middleware/auth.go
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"GridAegis/internal/service/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RequireBearer 要求请求携带有效的 Bearer 令牌。认证器未启用时直接放行。
func RequireBearer(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要认证"})
			return
		}
		claims, err := a.ParseToken(tokenString)
		if err != nil {
			msg := "Token无效或解析错误"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token已过期"
			}
			slog.Info("认证失败", "reason", msg, "path", c.Request.URL.Path, "ip", c.ClientIP(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Request = c.Request.WithContext(auth.ContextWithClaim(c.Request.Context(), claims))
		c.Next()
	}
}
