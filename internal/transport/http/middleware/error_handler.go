// Package middleware file: internal/transport/http/middleware/error_handler.go
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"GridAegis/internal/core/port"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorHandlingMiddleware 是一个Gin中间件，用于集中处理错误。
// 处理器通过 c.Error(err) 附加错误后直接返回，由这里决定状态码。
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// 只处理最后一个错误，它通常是根本原因
		err := c.Errors.Last().Err
		status, body := classify(err)
		body["request_id"] = RequestIDFrom(c)

		if status >= http.StatusInternalServerError {
			slog.Error("请求处理失败", "path", c.FullPath(), "request_id", body["request_id"], "error", err)
		} else {
			slog.Debug("请求被拒绝", "path", c.FullPath(), "status", status, "error", err)
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// classify 把错误映射为状态码与响应体
func classify(err error) (int, gin.H) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, gin.H{"error": "请求参数验证失败", "details": ve.Error()}
	}

	switch {
	case errors.Is(err, port.ErrInvalidArgument):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, port.ErrGridNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, port.ErrColumnNotAllowed):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, port.ErrResultUnavailable):
		return http.StatusUnprocessableEntity, gin.H{"error": "结果不可用"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, gin.H{"error": "查询超时"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "服务器内部错误"}
	}
}
