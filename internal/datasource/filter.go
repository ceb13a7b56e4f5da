// Package datasource file: internal/datasource/filter.go
package datasource

import (
	"fmt"

	"GridAegis/internal/core/port"
)

// makeWhere 把一个条件施加到 target 上，target 为 nil 时使用数据源自身的句柄。
// 带回调的条件直接调用回调，否则转换为模板形式后交给 Where。
func (ds *QueryDataSource) makeWhere(cond port.Condition, target port.Fluent) error {
	if target == nil {
		target = ds.fluent
	}
	if cond.Callback != nil {
		return cond.Callback(cond.Value, target)
	}
	parts, err := cond.Parts(ds.left, ds.right)
	if err != nil {
		return err
	}
	return target.Where(parts...)
}

// Filter 按顺序应用条件，谓词之间为 AND 关系。
// 出错时返回，之前已成功应用的谓词保留在句柄上。
func (ds *QueryDataSource) Filter(conditions []port.Condition) error {
	for i, cond := range conditions {
		if err := ds.makeWhere(cond, nil); err != nil {
			return fmt.Errorf("应用第 %d 个过滤条件失败: %w", i+1, err)
		}
	}
	return nil
}

// Sort 按顺序追加排序子句，无论升序还是降序 NULL 都排在最后。
func (ds *QueryDataSource) Sort(directives []port.SortDirective) error {
	for _, d := range directives {
		dir, err := port.ParseSortDirection(string(d.Direction))
		if err != nil {
			return err
		}
		term := port.OrderTerm{Column: d.Column, Direction: dir, NullsLast: true}
		if err := ds.fluent.OrderBy(term); err != nil {
			return fmt.Errorf("追加排序 %q 失败: %w", d.Column, err)
		}
	}
	return nil
}
