// Package port file: internal/core/port/condition.go
package port

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator 是谓词模板中列之后的部分，`?` 为参数占位符。
type Operator string

const (
	OpEqual          Operator = "= ?"
	OpNotEqual       Operator = "<> ?"
	OpLess           Operator = "< ?"
	OpLessOrEqual    Operator = "<= ?"
	OpGreater        Operator = "> ?"
	OpGreaterOrEqual Operator = ">= ?"
	OpLike           Operator = "LIKE ?"
	OpNotLike        Operator = "NOT LIKE ?"
	// OpLikeEscaped 与 EscapeLike 配合使用，反斜杠为转义字符。
	OpLikeEscaped Operator = `LIKE ? ESCAPE '\'`
	OpIn          Operator = "IN ?"
	OpNotIn       Operator = "NOT IN ?"
	OpBetween     Operator = "BETWEEN ? AND ?"
	OpIsNull      Operator = "IS NULL"
	OpIsNotNull   Operator = "IS NOT NULL"
)

// ConditionCallback 直接对查询句柄施加无法用模板表达的谓词。
type ConditionCallback func(value any, q Fluent) error

// Condition 描述一个过滤谓词。
// 设置了 Callback 时，Columns 与 Operator 被忽略，由回调自行修改句柄。
// 多个列之间以 OR 连接，例如 (name LIKE ? OR email LIKE ?)。
type Condition struct {
	Columns  []string
	Operator Operator
	Value    any
	Callback ConditionCallback
}

// NewCondition 创建单列条件
func NewCondition(column string, op Operator, value any) Condition {
	return Condition{Columns: []string{column}, Operator: op, Value: value}
}

// NewCallbackCondition 创建回调条件
func NewCallbackCondition(value any, fn ConditionCallback) Condition {
	return Condition{Value: value, Callback: fn}
}

// Or 返回一个追加了列的新条件，原条件不变。
func (c Condition) Or(columns ...string) Condition {
	merged := make([]string, 0, len(c.Columns)+len(columns))
	merged = append(merged, c.Columns...)
	merged = append(merged, columns...)
	c.Columns = merged
	return c
}

// Parts 把条件转换为 Fluent.Where 可以直接消费的形式: [模板, 参数...]。
// 列名用 left/right 包裹，由查询句柄负责翻译为方言的标识符引用。
func (c Condition) Parts(left, right string) ([]any, error) {
	if c.Callback != nil {
		return nil, fmt.Errorf("%w: 回调条件不能转换为谓词模板", ErrInvalidArgument)
	}
	if len(c.Columns) == 0 {
		return nil, fmt.Errorf("%w: 条件缺少列", ErrInvalidArgument)
	}
	tmpl, args, err := c.operatorTemplate()
	if err != nil {
		return nil, err
	}

	exprs := make([]string, 0, len(c.Columns))
	allArgs := make([]any, 0, len(args)*len(c.Columns))
	for _, col := range c.Columns {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, fmt.Errorf("%w: 条件包含空列名", ErrInvalidArgument)
		}
		exprs = append(exprs, wrapColumn(col, left, right)+" "+tmpl)
		allArgs = append(allArgs, args...)
	}

	expr := exprs[0]
	if len(exprs) > 1 {
		expr = "(" + strings.Join(exprs, " OR ") + ")"
	}
	return append([]any{expr}, allArgs...), nil
}

// operatorTemplate 校验占位符数量与值的形状是否一致，并展开 IN 列表。
func (c Condition) operatorTemplate() (string, []any, error) {
	op := strings.TrimSpace(string(c.Operator))
	if op == "" {
		return "", nil, fmt.Errorf("%w: 条件缺少操作符", ErrInvalidArgument)
	}
	n := strings.Count(op, "?")

	if isListOperator(op) {
		values, ok := flatten(c.Value)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("%w: %s 需要非空列表", ErrInvalidArgument, op)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return strings.TrimSuffix(op, "?") + "(" + placeholders + ")", values, nil
	}

	switch n {
	case 0:
		return op, nil, nil
	case 1:
		return op, []any{c.Value}, nil
	default:
		values, ok := flatten(c.Value)
		if !ok || len(values) != n {
			return "", nil, fmt.Errorf("%w: 操作符 %q 需要 %d 个值", ErrInvalidArgument, op, n)
		}
		return op, values, nil
	}
}

func isListOperator(op string) bool {
	upper := strings.ToUpper(op)
	return strings.HasSuffix(upper, "IN ?") && strings.Count(op, "?") == 1
}

// flatten 把任意切片展开为 []any，[]byte 视为标量。
func flatten(v any) ([]any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case []any:
		return vv, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// wrapColumn 用括号对包裹列名。已包含括号对或函数调用的表达式原样保留。
func wrapColumn(col, left, right string) string {
	if strings.Contains(col, left) || strings.Contains(col, "(") {
		return col
	}
	return left + col + right
}

// EscapeLike 转义 LIKE 模式中的通配符，需配合 OpLikeEscaped 使用。
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
