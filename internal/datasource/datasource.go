// Package datasource 把一个可变的查询句柄适配为表格组件使用的统一数据源接口。
//
// QueryDataSource 不做任何内部同步：Filter/Sort/Limit 会修改被包装的句柄，
// 同一实例上的修改必须由调用方串行化。只读操作 (GetData/GetCount/GetAggregates/Suggest)
// 只读取句柄状态，派生查询都在克隆上进行，不会修改原句柄。
package datasource

import (
	"log/slog"

	"GridAegis/internal/core/port"
)

// 断言 *QueryDataSource 实现 port.GridDataSource 接口，编译期校验
var _ port.GridDataSource = (*QueryDataSource)(nil)

const (
	defaultLeftBracket  = "["
	defaultRightBracket = "]"
)

// Option 配置 QueryDataSource
type Option func(*QueryDataSource)

// WithBrackets 设置条件转换时包裹列名的括号对，必须与查询句柄的括号对一致。
func WithBrackets(left, right string) Option {
	return func(ds *QueryDataSource) {
		if left != "" && right != "" {
			ds.left, ds.right = left, right
		}
	}
}

// WithLogger 设置 logger，默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(ds *QueryDataSource) {
		if logger != nil {
			ds.logger = logger
		}
	}
}

// QueryDataSource 包装一个查询句柄，对外提供过滤、排序、分页、计数、聚合和建议能力。
type QueryDataSource struct {
	fluent port.Fluent

	offset    int
	limit     int
	windowSet bool

	left   string
	right  string
	logger *slog.Logger
}

// New 创建数据源。fluent 的所有权转移给数据源。
func New(fluent port.Fluent, opts ...Option) *QueryDataSource {
	ds := &QueryDataSource{
		fluent: fluent,
		left:   defaultLeftBracket,
		right:  defaultRightBracket,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ds)
	}
	return ds
}

// Fluent 返回被包装的查询句柄
func (ds *QueryDataSource) Fluent() port.Fluent {
	return ds.fluent
}

// Window 返回当前分页窗口。ok 为 false 表示尚未调用 Limit。
func (ds *QueryDataSource) Window() (offset, limit int, ok bool) {
	return ds.offset, ds.limit, ds.windowSet
}

// Limit 设置分页窗口，完整覆盖之前的设置。这里不做任何范围校验。
func (ds *QueryDataSource) Limit(offset, limit int) {
	ds.offset = offset
	ds.limit = limit
	ds.windowSet = true
}
