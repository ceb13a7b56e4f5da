// Package config 负责读取、校验并监听 GridAegis 的配置文件。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"GridAegis/internal/core/domain"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 GRIDAEGIS_SERVER_PORT
const EnvPrefix = "GRIDAEGIS"

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	LogLevel        string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	PprofAddr       string        `mapstructure:"pprof_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=sqlite sqlite3 pgx postgres postgresql"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

type AuthConfig struct {
	// JWTSecret 为空时不启用认证
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type SuggestConfig struct {
	CacheSize    int           `mapstructure:"cache_size" validate:"gte=0"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	DefaultLimit int           `mapstructure:"default_limit" validate:"gte=0"`
	MaxLimit     int           `mapstructure:"max_limit" validate:"gte=0"`
}

// Config 是整个服务的配置
type Config struct {
	Server    ServerConfig            `mapstructure:"server"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Auth      AuthConfig              `mapstructure:"auth"`
	RateLimit domain.IPLimitSetting   `mapstructure:"rate_limit"`
	Suggest   SuggestConfig           `mapstructure:"suggest"`
	Grids     []domain.GridDefinition `mapstructure:"grids" validate:"dive"`
}

var validate = validator.New()

// setDefaults 设置所有配置项的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.pprof_addr", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "GridAegis")
	v.SetDefault("rate_limit.rate_limit_per_minute", 600)
	v.SetDefault("rate_limit.burst_size", 50)
	v.SetDefault("suggest.cache_size", 1000)
	v.SetDefault("suggest.cache_ttl", time.Minute)
	v.SetDefault("suggest.default_limit", 10)
	v.SetDefault("suggest.max_limit", 100)
}

// New 创建一个读取 path 的 viper 实例，允许环境变量覆盖
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 读取并解析配置文件
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		slog.Warn("未找到配置文件，使用默认值与环境变量")
	}
	return Decode(v)
}

// Decode 把 viper 中的当前配置解码为 Config 并校验
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置到结构体失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置，包括表格名称唯一
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Grids))
	for _, g := range c.Grids {
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("配置校验失败: 表格名称 '%s' 重复", g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

// Watch 监听配置文件变化，重新解析成功后调用 onChange。
// 解析失败时保留旧配置，只记录日志。
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			slog.Error("配置文件已变化但解析失败，保留旧配置", "file", e.Name, "error", err)
			return
		}
		slog.Info("配置文件已重新加载", "file", e.Name, "grids", len(cfg.Grids))
		onChange(cfg)
	})
	v.WatchConfig()
}
