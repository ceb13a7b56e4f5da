// file: internal/transport/http/middleware/middleware_test.go

package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GridAegis/internal/core/domain"
	"GridAegis/internal/core/port"
	"GridAegis/internal/service/auth"
	"GridAegis/internal/transport/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorHandlingMiddleware_StatusMapping(t *testing.T) {
	type target struct {
		Name string `validate:"required"`
	}
	validationErr := validator.New().Struct(target{})
	require.Error(t, validationErr)

	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", port.ErrInvalidArgument), http.StatusBadRequest},
		{validationErr, http.StatusBadRequest},
		{fmt.Errorf("%w: 'x'", port.ErrGridNotFound), http.StatusNotFound},
		{port.ErrColumnNotAllowed, http.StatusForbidden},
		{port.ErrResultUnavailable, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestID(), middleware.ErrorHandlingMiddleware())
			r.GET("/", func(c *gin.Context) { _ = c.Error(tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), `"request_id"`)
		})
	}
}

func TestErrorHandlingMiddleware_NoErrorUntouched(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandlingMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, middleware.RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(middleware.RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(middleware.RequestIDHeader), "非法的请求 ID 会被替换")
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(domain.IPLimitSetting{RateLimitPerMinute: 1, BurstSize: 2})
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"), "超出峰值后应被限制")
	assert.Equal(t, http.StatusOK, do("10.0.0.2"), "其他 IP 不受影响")
}

func TestIPRateLimiter_Unlimited(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(domain.IPLimitSetting{})
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequireBearer(t *testing.T) {
	a := auth.NewAuthenticator("secret", "GridAegis")
	r := gin.New()
	r.Use(middleware.RequireBearer(a))
	r.GET("/", func(c *gin.Context) {
		claims := auth.ClaimFrom(c.Request.Context())
		c.String(http.StatusOK, claims.Subject)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	expired, err := a.GenToken("alice", "viewer", -time.Minute)
	require.NoError(t, err)
	w := do("Bearer " + expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token已过期")

	token, err := a.GenToken("alice", "viewer", time.Hour)
	require.NoError(t, err)
	w = do("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestRequireBearer_DisabledPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequireBearer(auth.NewAuthenticator("", "")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
