// Package port file: internal/core/port/datasource.go
package port

import (
	"context"
	"errors"
)

// Standard errors
var (
	// ErrInvalidArgument 调用方传入了结构上非法的参数（条件、排序方向、聚合函数或建议列选择器）。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResultUnavailable 派生的 COUNT/聚合查询没有恰好返回一行，结果不可用。
	ErrResultUnavailable = errors.New("derived query result unavailable")
	ErrGridNotFound      = errors.New("指定的表格未找到")
	ErrColumnNotAllowed  = errors.New("当前表格配置不允许对该列执行此操作")
)

// Fluent 是数据源所依赖的查询构建句柄。
// 它代表一条尚未执行的 SELECT 语句，可以增量地添加条件、排序并替换投影。
// Clone 返回的副本与原句柄不共享任何可变状态。
type Fluent interface {
	Clone() Fluent

	// Where 以 AND 方式追加一个谓词。parts[0] 是模板，其余为参数。
	Where(parts ...any) error

	// OrderBy 追加一个排序子句。
	OrderBy(term OrderTerm) error

	// ReplaceSelect 覆盖 SELECT 列表。
	ReplaceSelect(exprs ...string)

	// ClearOrderBy 移除全部 ORDER BY 子句。
	ClearOrderBy()

	// FetchAll 执行查询。offset/limit 为 nil 表示不分页。
	FetchAll(ctx context.Context, offset, limit *int) ([]Row, error)
}

// GridDataSource 是表格组件消费的统一数据源接口。
type GridDataSource interface {
	// Filter 依次应用过滤条件，所有条件以 AND 组合。
	Filter(conditions []Condition) error

	// Sort 依次追加排序，NULL 值始终排在最后。
	Sort(directives []SortDirective) error

	// Limit 设置分页窗口，覆盖之前的设置。
	Limit(offset, limit int)

	// GetData 返回当前分页窗口内的数据。
	GetData(ctx context.Context) ([]Row, error)

	// GetCount 返回忽略分页后的总行数。ok 为 false 表示结果不可用。
	GetCount(ctx context.Context) (count int64, ok bool, err error)

	// GetAggregates 返回各列的聚合值。ok 为 false 表示结果不可用。
	GetAggregates(ctx context.Context, columns []Column) (aggregates Row, ok bool, err error)

	// Suggest 返回去重后的建议值，保持首次出现的顺序。
	Suggest(ctx context.Context, selector ColumnSelector, conditions []Condition, limit int) ([]string, error)
}
