// file: cmd/gridaegis/serve.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"GridAegis/internal/aegobserve"
	"GridAegis/internal/config"
	"GridAegis/internal/service/auth"
	"GridAegis/internal/service/grid"
	"GridAegis/internal/transport/http/middleware"
	"GridAegis/internal/transport/http/router"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("GridAegis 正在启动", "version", version)

	db, dialect, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("正在关闭数据库连接...")
		if err := db.Close(); err != nil {
			slog.Error("关闭数据库时发生错误", "error", err)
		}
	}()

	gridService, err := grid.NewService(db, dialect, cfg.Grids, grid.Options{
		SuggestCacheSize:    cfg.Suggest.CacheSize,
		SuggestCacheTTL:     cfg.Suggest.CacheTTL,
		DefaultSuggestLimit: cfg.Suggest.DefaultLimit,
		MaxSuggestLimit:     cfg.Suggest.MaxLimit,
	})
	if err != nil {
		return err
	}
	slog.Info("服务层: GridService 初始化完成")
	if err := gridService.CheckSchema(ctx); err != nil {
		slog.Warn("表格定义与数据库结构不一致", "error", err)
	}

	// 只热加载表格定义，其他配置项需要重启生效
	config.Watch(v, func(next *config.Config) {
		gridService.ReplaceDefinitions(next.Grids)
		if err := gridService.CheckSchema(ctx); err != nil {
			slog.Warn("重新加载的表格定义与数据库结构不一致", "error", err)
		}
	})

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !authenticator.Enabled() {
		slog.Warn("未配置 JWT 密钥，API 不需要认证")
	}

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	aegobserve.Register()
	if cfg.Server.PprofAddr != "" {
		aegobserve.EnablePprof(cfg.Server.PprofAddr)
	}

	httpRouter := router.New(router.Dependencies{
		Grids:       gridService,
		DB:          db,
		Auth:        authenticator,
		RateLimiter: middleware.NewIPRateLimiter(cfg.RateLimit),
	})
	slog.Info("传输层: HTTP 路由器创建完成。")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: httpRouter}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("开始监听HTTP请求...", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP服务启动失败: %w", err)
		}
	case <-ctx.Done():
		slog.Info("收到停机信号，准备优雅关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP服务优雅关闭失败: %w", err)
	}
	slog.Info("HTTP服务已成功关闭。")
	return nil
}
