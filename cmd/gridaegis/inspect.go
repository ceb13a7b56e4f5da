// file: cmd/gridaegis/inspect.go

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GridAegis/internal/core/port"
	"GridAegis/internal/service/auth"
	"GridAegis/internal/service/grid"

	"github.com/spf13/cobra"
)

var inspectFilters []string

var inspectCmd = &cobra.Command{
	Use:   "inspect <grid>",
	Short: "打印表格的总行数与聚合结果",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := make([]grid.Filter, 0, len(inspectFilters))
		for _, expr := range inspectFilters {
			f, err := grid.ParseFilter(expr)
			if err != nil {
				return err
			}
			filters = append(filters, f)
		}

		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, dialect, err := openDB(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := grid.NewService(db, dialect, cfg.Grids, grid.Options{})
		if err != nil {
			return err
		}

		report := map[string]any{"grid": args[0]}
		total, err := svc.Count(cmd.Context(), args[0], filters)
		switch {
		case errors.Is(err, port.ErrResultUnavailable):
			report["total"] = nil
		case err != nil:
			return err
		default:
			report["total"] = total
		}
		aggregates, err := svc.Aggregates(cmd.Context(), args[0], filters)
		switch {
		case errors.Is(err, port.ErrResultUnavailable):
			report["aggregates"] = nil
		case err != nil:
			return err
		default:
			report["aggregates"] = aggregates
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "使用配置中的密钥签发访问令牌",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).GenToken(args[0], tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	inspectCmd.Flags().StringArrayVarP(&inspectFilters, "filter", "f", nil, "过滤条件 column:op:value，可重复")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "viewer", "令牌角色")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "令牌有效期")
}
