// file: internal/transport/http/router/router.go
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"GridAegis/internal/aegobserve"
	"GridAegis/internal/core/domain"
	"GridAegis/internal/core/port"
	"GridAegis/internal/service/auth"
	"GridAegis/internal/service/grid"
	"GridAegis/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// GridService 是路由器依赖的表格服务
type GridService interface {
	Definitions() []domain.GridDefinition
	Page(ctx context.Context, req grid.PageRequest) (*grid.PageResult, error)
	Count(ctx context.Context, gridName string, filters []grid.Filter) (int64, error)
	Suggest(ctx context.Context, req grid.SuggestRequest) ([]string, error)
}

// Pinger 用于健康检查，通常是 *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies 结构体用于将所有依赖项注入到路由器中
type Dependencies struct {
	Grids       GridService
	DB          Pinger
	Auth        *auth.Authenticator
	RateLimiter *middleware.IPRateLimiter
}

// New 创建并配置基于 Gin 的 HTTP 路由器 (V1 版本)
func New(deps Dependencies) http.Handler {
	router := gin.New()

	// --- 配置全局中间件 ---
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(aegobserve.PrometheusMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandlingMiddleware())

	router.GET("/healthz", healthHandler(deps.DB))
	router.GET("/metrics", gin.WrapH(aegobserve.Handler()))

	v1 := router.Group("/api/v1")
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	v1.Use(middleware.RequireBearer(deps.Auth))
	{
		v1.GET("/grids", gridsHandlerV1(deps.Grids))

		gridGroup := v1.Group("/grids/:grid")
		{
			gridGroup.GET("/rows", rowsHandlerV1(deps.Grids))
			gridGroup.GET("/count", countHandlerV1(deps.Grids))
			gridGroup.GET("/suggest", suggestHandlerV1(deps.Grids))
		}
	}

	return router
}

// bindQuery 绑定查询参数，非校验类的绑定错误归为参数错误
func bindQuery(c *gin.Context, obj any) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return err
		}
		return fmt.Errorf("%w: %v", port.ErrInvalidArgument, err)
	}
	return nil
}

func parseFilters(exprs []string) ([]grid.Filter, error) {
	filters := make([]grid.Filter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := grid.ParseFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// healthHandler 检查数据库连接
func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// gridsHandlerV1 返回所有已配置的表格定义
func gridsHandlerV1(svc GridService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": svc.Definitions()})
	}
}

// rowsHandlerV1 返回一页数据，以及总数和聚合结果
func rowsHandlerV1(svc GridService) gin.HandlerFunc {
	type rowsQuery struct {
		Offset int      `form:"offset" binding:"gte=0"`
		Limit  int      `form:"limit" binding:"gte=0"`
		Sort   []string `form:"sort"`
		Filter []string `form:"filter"`
	}

	return func(c *gin.Context) {
		var q rowsQuery
		if err := bindQuery(c, &q); err != nil {
			_ = c.Error(err)
			return
		}
		filters, err := parseFilters(q.Filter)
		if err != nil {
			_ = c.Error(err)
			return
		}
		sorts := make([]port.SortDirective, 0, len(q.Sort))
		for _, expr := range q.Sort {
			sd, err := grid.ParseSort(expr)
			if err != nil {
				_ = c.Error(err)
				return
			}
			sorts = append(sorts, sd)
		}

		result, err := svc.Page(c.Request.Context(), grid.PageRequest{
			Grid:    c.Param("grid"),
			Offset:  q.Offset,
			Limit:   q.Limit,
			Sorts:   sorts,
			Filters: filters,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

// countHandlerV1 返回过滤后的总行数
func countHandlerV1(svc GridService) gin.HandlerFunc {
	type countQuery struct {
		Filter []string `form:"filter"`
	}

	return func(c *gin.Context) {
		var q countQuery
		if err := bindQuery(c, &q); err != nil {
			_ = c.Error(err)
			return
		}
		filters, err := parseFilters(q.Filter)
		if err != nil {
			_ = c.Error(err)
			return
		}
		total, err := svc.Count(c.Request.Context(), c.Param("grid"), filters)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"total": total}})
	}
}

// suggestHandlerV1 返回指定列的建议值
func suggestHandlerV1(svc GridService) gin.HandlerFunc {
	type suggestQuery struct {
		Column string   `form:"column" binding:"required"`
		Term   string   `form:"q"`
		Limit  int      `form:"limit" binding:"gte=0"`
		Filter []string `form:"filter"`
	}

	return func(c *gin.Context) {
		var q suggestQuery
		if err := bindQuery(c, &q); err != nil {
			_ = c.Error(err)
			return
		}
		filters, err := parseFilters(q.Filter)
		if err != nil {
			_ = c.Error(err)
			return
		}
		items, err := svc.Suggest(c.Request.Context(), grid.SuggestRequest{
			Grid:    c.Param("grid"),
			Column:  q.Column,
			Term:    q.Term,
			Limit:   q.Limit,
			Filters: filters,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}
