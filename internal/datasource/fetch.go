// Package datasource file: internal/datasource/fetch.go
package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GridAegis/internal/aegobserve"
	"GridAegis/internal/core/port"

	"github.com/spf13/cast"
)

// GetData 使用当前分页窗口执行查询。未设置窗口时不分页。
func (ds *QueryDataSource) GetData(ctx context.Context) (rows []port.Row, err error) {
	defer func(start time.Time) { aegobserve.ObserveOp("data", start, err) }(time.Now())

	var offset, limit *int
	if ds.windowSet {
		o, l := ds.offset, ds.limit
		offset, limit = &o, &l
	}
	rows, err = ds.fluent.FetchAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("获取表格数据失败: %w", err)
	}
	return rows, nil
}

// GetCount 返回忽略分页与投影、但保留全部过滤条件的总行数。
// 派生查询没有恰好返回一行时 ok 为 false，这既不是错误也不是 0。
func (ds *QueryDataSource) GetCount(ctx context.Context) (count int64, ok bool, err error) {
	defer func(start time.Time) { aegobserve.ObserveOp("count", start, err) }(time.Now())

	row, ok, err := ds.fetchSingleRow(ctx, "count", []string{"COUNT(*)"})
	if err != nil || !ok {
		return 0, false, err
	}
	v, _ := row.At(0)
	count, err = cast.ToInt64E(v)
	if err != nil {
		return 0, false, fmt.Errorf("COUNT 结果无法转换为整数: %w", err)
	}
	return count, true, nil
}

// GetAggregates 对带聚合函数的列计算 FUNC(column) AS column，返回唯一的聚合结果行。
// 没有任何聚合列时仍会执行投影为空的派生查询，由执行层报告错误。
func (ds *QueryDataSource) GetAggregates(ctx context.Context, columns []port.Column) (aggregates port.Row, ok bool, err error) {
	defer func(start time.Time) { aegobserve.ObserveOp("aggregates", start, err) }(time.Now())

	exprs := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Aggregate == port.AggNone {
			continue
		}
		fn, err := c.Aggregate.SQL()
		if err != nil {
			return port.Row{}, false, err
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return port.Row{}, false, fmt.Errorf("%w: 聚合列名不能为空", port.ErrInvalidArgument)
		}
		col := ds.left + name + ds.right
		exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s", fn, col, col))
	}
	return ds.fetchSingleRow(ctx, "aggregates", exprs)
}

// derive 克隆句柄，替换投影并去掉排序。
func (ds *QueryDataSource) derive(exprs []string) port.Fluent {
	q := ds.fluent.Clone()
	q.ReplaceSelect(exprs...)
	q.ClearOrderBy()
	return q
}

// fetchSingleRow 不分页地执行派生查询，并要求结果恰好一行。
func (ds *QueryDataSource) fetchSingleRow(ctx context.Context, op string, exprs []string) (port.Row, bool, error) {
	rows, err := ds.derive(exprs).FetchAll(ctx, nil, nil)
	if err != nil {
		return port.Row{}, false, fmt.Errorf("执行派生 %s 查询失败: %w", op, err)
	}
	if len(rows) != 1 {
		ds.logger.Warn("派生查询未返回唯一结果行，结果不可用", "op", op, "rows", len(rows))
		aegobserve.UnavailableResults.WithLabelValues(op).Inc()
		return port.Row{}, false, nil
	}
	return rows[0], true, nil
}
