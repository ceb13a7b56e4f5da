// Package sqlbuilder file: internal/adapter/fluent/sqlbuilder/schema.go
package sqlbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProbeColumns 返回 table 的物理列名，顺序与数据库一致。
// 通过执行一条不返回行的查询读取结果列，不依赖具体数据库的系统表。
func ProbeColumns(ctx context.Context, db Querier, d Dialect, table string) ([]string, error) {
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("表名不能为空 (ProbeColumns)")
	}
	query := "SELECT * FROM " + d.QuoteIdent(table) + " WHERE 1 = 0"
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("探测表 '%s' 的列失败: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("读取表 '%s' 的列失败: %w", table, err)
	}
	return columns, rows.Err()
}
