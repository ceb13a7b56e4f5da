// file: cmd/gridaegis/main.go

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"GridAegis/internal/adapter/fluent/sqlbuilder"
	"GridAegis/internal/aegobserve"
	"GridAegis/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const version = "v0.3.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "gridaegis",
	Short:         "GridAegis 表格数据服务",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.yaml", "配置文件路径")
	rootCmd.AddCommand(serveCmd, inspectCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取配置并初始化日志
func loadConfig() (*viper.Viper, *config.Config, error) {
	v := config.New(configFile)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	aegobserve.InitLogger(cfg.Server.LogLevel)
	slog.Info("配置加载并解析成功", "path", configFile, "grids", len(cfg.Grids))
	return v, cfg, nil
}

// openDB 按配置的驱动打开数据库连接并检查连通性
func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, sqlbuilder.Dialect, error) {
	dialect, err := sqlbuilder.DialectFor(cfg.Driver)
	if err != nil {
		return nil, sqlbuilder.Dialect{}, err
	}
	db, err := sql.Open(dialect.Name, cfg.DSN)
	if err != nil {
		return nil, sqlbuilder.Dialect{}, fmt.Errorf("打开数据库失败: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, sqlbuilder.Dialect{}, fmt.Errorf("连接数据库 (Ping) 失败: %w", err)
	}
	slog.Info("数据库连接成功", "driver", dialect.Name)
	return db, dialect, nil
}
