// Package sqlbuilder 提供 port.Fluent 的 database/sql 实现。
// file: internal/adapter/fluent/sqlbuilder/fluent.go
package sqlbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"GridAegis/internal/core/port"
)

// 断言 *Fluent 实现 port.Fluent 接口，编译期校验
var _ port.Fluent = (*Fluent)(nil)

const (
	DefaultLeftBracket  = "["
	DefaultRightBracket = "]"
)

// Querier 是 *sql.DB、*sql.Tx 与 *sql.Conn 共有的查询能力。
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type predicate struct {
	template string
	args     []any
}

// Fluent 是一条可增量构建的 SELECT 语句。
// 它不是并发安全的：修改 (Where/OrderBy/ReplaceSelect/ClearOrderBy) 必须由调用方串行化。
type Fluent struct {
	db      Querier
	dialect Dialect
	left    string
	right   string

	table   string
	selects []string
	where   []predicate
	orderBy []port.OrderTerm
}

// New 创建一个查询句柄。未指定列时查询全部列。
func New(db Querier, dialect Dialect, table string, columns ...string) *Fluent {
	f := &Fluent{
		db:      db,
		dialect: dialect,
		left:    DefaultLeftBracket,
		right:   DefaultRightBracket,
		table:   table,
	}
	if len(columns) == 0 {
		f.selects = []string{"*"}
	} else {
		for _, c := range columns {
			f.selects = append(f.selects, f.left+c+f.right)
		}
	}
	return f
}

// WithBrackets 修改标识符括号对，必须与数据源使用的括号对一致。
// 已经包裹过的 SELECT 列会改用新的括号对。
func (f *Fluent) WithBrackets(left, right string) *Fluent {
	if left == "" || right == "" {
		return f
	}
	for i, s := range f.selects {
		if len(s) > len(f.left)+len(f.right) && strings.HasPrefix(s, f.left) && strings.HasSuffix(s, f.right) {
			f.selects[i] = left + s[len(f.left):len(s)-len(f.right)] + right
		}
	}
	f.left, f.right = left, right
	return f
}

// Clone 返回一个与原句柄不共享可变状态的副本
func (f *Fluent) Clone() port.Fluent {
	return f.clone()
}

func (f *Fluent) clone() *Fluent {
	c := *f
	c.selects = append([]string(nil), f.selects...)
	c.orderBy = append([]port.OrderTerm(nil), f.orderBy...)
	c.where = make([]predicate, len(f.where))
	for i, p := range f.where {
		c.where[i] = predicate{template: p.template, args: append([]any(nil), p.args...)}
	}
	return &c
}

// Where 追加一个谓词。parts[0] 为模板，其余为占位符参数，数量必须一致。
func (f *Fluent) Where(parts ...any) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: Where 至少需要一个模板参数", port.ErrInvalidArgument)
	}
	tmpl, ok := parts[0].(string)
	if !ok || strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("%w: Where 的第一个参数必须是非空模板字符串, 实际为 %T", port.ErrInvalidArgument, parts[0])
	}
	_, n, err := renderTemplate(tmpl, f.left, f.right, f.dialect, nil)
	if err != nil {
		return err
	}
	args := parts[1:]
	if n != len(args) {
		return fmt.Errorf("%w: 模板 %q 需要 %d 个参数, 实际 %d 个", port.ErrInvalidArgument, tmpl, n, len(args))
	}
	f.where = append(f.where, predicate{template: tmpl, args: append([]any(nil), args...)})
	return nil
}

// OrderBy 追加一个排序子句
func (f *Fluent) OrderBy(term port.OrderTerm) error {
	if strings.TrimSpace(term.Column) == "" {
		return fmt.Errorf("%w: 排序列不能为空", port.ErrInvalidArgument)
	}
	if term.Direction != port.SortAsc && term.Direction != port.SortDesc {
		return fmt.Errorf("%w: 无效的排序方向 %q", port.ErrInvalidArgument, term.Direction)
	}
	f.orderBy = append(f.orderBy, term)
	return nil
}

// ReplaceSelect 覆盖 SELECT 列表
func (f *Fluent) ReplaceSelect(exprs ...string) {
	f.selects = append([]string(nil), exprs...)
}

// ClearOrderBy 移除全部排序子句
func (f *Fluent) ClearOrderBy() {
	f.orderBy = nil
}

// Build 生成最终的 SQL 与参数。offset/limit 为 nil 时对应子句被省略。
func (f *Fluent) Build(offset, limit *int) (string, []any, error) {
	if strings.TrimSpace(f.table) == "" {
		return "", nil, errors.New("表名不能为空 (Build)")
	}

	var args []any
	next := func() int { return len(args) + 1 }

	selectSQL, _, err := renderTemplate(strings.Join(f.selects, ", "), f.left, f.right, f.dialect, nil)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectSQL)
	sb.WriteString(" FROM ")
	sb.WriteString(f.dialect.QuoteIdent(f.table))

	if len(f.where) > 0 {
		clauses := make([]string, 0, len(f.where))
		for _, p := range f.where {
			// 每个占位符都紧跟着追加对应的参数，以保证编号连续
			argIdx := 0
			rendered, _, err := renderTemplate(p.template, f.left, f.right, f.dialect, func() int {
				n := next()
				args = append(args, p.args[argIdx])
				argIdx++
				return n
			})
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, "("+rendered+")")
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if len(f.orderBy) > 0 {
		terms := make([]string, 0, len(f.orderBy))
		for _, t := range f.orderBy {
			col, _, err := renderTemplate(wrapIdent(t.Column, f.left, f.right), f.left, f.right, f.dialect, nil)
			if err != nil {
				return "", nil, err
			}
			term := col + " " + string(t.Direction)
			if t.NullsLast {
				term += " NULLS LAST"
			}
			terms = append(terms, term)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	switch {
	case limit != nil:
		sb.WriteString(" LIMIT " + f.dialect.Placeholder(next()))
		args = append(args, *limit)
	case offset != nil && f.dialect.offsetNeedsLimit:
		sb.WriteString(" LIMIT -1")
	}
	if offset != nil {
		sb.WriteString(" OFFSET " + f.dialect.Placeholder(next()))
		args = append(args, *offset)
	}

	return sb.String(), args, nil
}

// FetchAll 执行查询并读取全部结果行
func (f *Fluent) FetchAll(ctx context.Context, offset, limit *int) ([]port.Row, error) {
	query, args, err := f.Build(offset, limit)
	if err != nil {
		return nil, err
	}
	if f.db == nil {
		return nil, errors.New("查询句柄未绑定数据库连接")
	}
	slog.Debug("执行表格查询", "sql", query, "args", args)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("执行查询失败: %w", err)
	}
	defer rows.Close()
	return readRows(rows)
}

// String 返回不带分页的 SQL，便于日志与调试
func (f *Fluent) String() string {
	query, _, err := f.Build(nil, nil)
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return query
}

func wrapIdent(col, left, right string) string {
	if strings.Contains(col, left) || strings.Contains(col, "(") {
		return col
	}
	return left + col + right
}
