// Package datasource file: internal/datasource/suggest.go
package datasource

import (
	"context"
	"fmt"
	"time"

	"GridAegis/internal/aegobserve"
	"GridAegis/internal/core/port"

	"github.com/spf13/cast"
)

// Suggest 在句柄的克隆上叠加 conditions，从第 0 行起最多取 limit 行，
// 把每行的值转换为文本后去重，保持首次出现的顺序。
func (ds *QueryDataSource) Suggest(ctx context.Context, selector port.ColumnSelector, conditions []port.Condition, limit int) (items []string, err error) {
	defer func(start time.Time) { aegobserve.ObserveOp("suggest", start, err) }(time.Now())

	if err := selector.Validate(); err != nil {
		return nil, err
	}

	q := ds.fluent.Clone()
	for i, cond := range conditions {
		if err := ds.makeWhere(cond, q); err != nil {
			return nil, fmt.Errorf("应用第 %d 个建议条件失败: %w", i+1, err)
		}
	}

	offset := 0
	rows, err := q.FetchAll(ctx, &offset, &limit)
	if err != nil {
		return nil, fmt.Errorf("获取建议数据失败: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	items = make([]string, 0, len(rows))
	for _, row := range rows {
		v, err := selector.Value(row)
		if err != nil {
			return nil, err
		}
		text := toText(v)
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		items = append(items, text)
	}
	return items, nil
}

// toText 把任意值转换为文本，NULL 转换为空字符串。
func toText(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
