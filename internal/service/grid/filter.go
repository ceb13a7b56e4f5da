// Package grid file: internal/service/grid/filter.go
package grid

import (
	"fmt"
	"strings"

	"GridAegis/internal/core/port"
)

// Filter 是面向 API 的过滤条件，Op 为短名称，Value 为原始文本。
type Filter struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  string `json:"value,omitempty"`
}

// listSeparator 分隔 in/nin/between 的多个值
const listSeparator = ","

// ParseFilter 解析 "column:op:value" 形式的过滤表达式，null/notnull 可以省略值。
func ParseFilter(expr string) (Filter, error) {
	parts := strings.SplitN(expr, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return Filter{}, fmt.Errorf("%w: 过滤表达式 %q 应为 column:op:value", port.ErrInvalidArgument, expr)
	}
	f := Filter{Column: strings.TrimSpace(parts[0]), Op: strings.ToLower(strings.TrimSpace(parts[1]))}
	if len(parts) == 3 {
		f.Value = parts[2]
	} else if f.Op != "null" && f.Op != "notnull" {
		return Filter{}, fmt.Errorf("%w: 过滤表达式 %q 缺少值", port.ErrInvalidArgument, expr)
	}
	return f, nil
}

// ParseSort 解析 "column:dir" 形式的排序表达式，方向缺省为 asc。
func ParseSort(expr string) (port.SortDirective, error) {
	column, dir, found := strings.Cut(expr, ":")
	column = strings.TrimSpace(column)
	if column == "" {
		return port.SortDirective{}, fmt.Errorf("%w: 排序表达式 %q 缺少列名", port.ErrInvalidArgument, expr)
	}
	if !found || strings.TrimSpace(dir) == "" {
		dir = string(port.SortAsc)
	}
	d, err := port.ParseSortDirection(strings.TrimSpace(dir))
	if err != nil {
		return port.SortDirective{}, err
	}
	return port.SortDirective{Column: column, Direction: d}, nil
}

// Condition 把过滤条件转换为数据源条件
func (f Filter) Condition() (port.Condition, error) {
	var (
		op    port.Operator
		value any = f.Value
	)
	switch f.Op {
	case "eq":
		op = port.OpEqual
	case "ne":
		op = port.OpNotEqual
	case "lt":
		op = port.OpLess
	case "le":
		op = port.OpLessOrEqual
	case "gt":
		op = port.OpGreater
	case "ge":
		op = port.OpGreaterOrEqual
	case "like":
		op = port.OpLike
	case "contains":
		op, value = port.OpLikeEscaped, "%"+port.EscapeLike(f.Value)+"%"
	case "prefix":
		op, value = port.OpLikeEscaped, port.EscapeLike(f.Value)+"%"
	case "in", "nin":
		op = port.OpIn
		if f.Op == "nin" {
			op = port.OpNotIn
		}
		value = splitList(f.Value)
	case "between":
		bounds := splitList(f.Value)
		if len(bounds) != 2 {
			return port.Condition{}, fmt.Errorf("%w: between 需要两个以逗号分隔的值", port.ErrInvalidArgument)
		}
		op, value = port.OpBetween, bounds
	case "null":
		op, value = port.OpIsNull, nil
	case "notnull":
		op, value = port.OpIsNotNull, nil
	default:
		return port.Condition{}, fmt.Errorf("%w: 未知的过滤操作符 %q", port.ErrInvalidArgument, f.Op)
	}
	return port.NewCondition(f.Column, op, value), nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, listSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
