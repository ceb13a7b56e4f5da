// Package port file: internal/core/port/sort.go
package port

import (
	"fmt"
	"strings"
)

// SortDirection 排序方向
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ParseSortDirection 解析排序方向，不区分大小写。
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC":
		return SortAsc, nil
	case "DESC":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: 无效的排序方向 %q", ErrInvalidArgument, s)
	}
}

// SortDirective 是表格请求的单个排序指令，按切片顺序决定优先级。
type SortDirective struct {
	Column    string
	Direction SortDirection
}

// OrderTerm 是追加到查询句柄上的 ORDER BY 子句。
type OrderTerm struct {
	Column    string
	Direction SortDirection
	NullsLast bool
}
