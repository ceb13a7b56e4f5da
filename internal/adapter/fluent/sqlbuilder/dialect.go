// Package sqlbuilder file: internal/adapter/fluent/sqlbuilder/dialect.go
package sqlbuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect 描述不同数据库在占位符、标识符引用和分页上的差异。
type Dialect struct {
	// Name 同时也是 database/sql 注册的驱动名
	Name string

	// numbered 为 true 时使用 $1, $2 ... 形式的占位符
	numbered bool

	// offsetNeedsLimit 为 true 时，只有 OFFSET 没有 LIMIT 的查询需要补一个 "LIMIT -1"
	offsetNeedsLimit bool
}

var (
	SQLite   = Dialect{Name: "sqlite", offsetNeedsLimit: true}
	Postgres = Dialect{Name: "pgx", numbered: true}
)

// DialectFor 根据驱动名返回方言
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("不支持的数据库驱动: %q", driver)
	}
}

// Placeholder 返回第 n 个参数的占位符，n 从 1 开始。
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent 引用标识符，支持 schema.table 形式，"*" 原样保留。
func (d Dialect) QuoteIdent(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "*" {
			parts[i] = p
			continue
		}
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
