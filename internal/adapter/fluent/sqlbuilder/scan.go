// Package sqlbuilder file: internal/adapter/fluent/sqlbuilder/scan.go
package sqlbuilder

import (
	"database/sql"
	"fmt"

	"GridAegis/internal/core/port"
)

// readRows 读取全部结果行，[]byte 统一转换为 string。
func readRows(rows *sql.Rows) ([]port.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("获取结果列失败: %w", err)
	}

	results := make([]port.Row, 0)
	for rows.Next() {
		scanDest := make([]any, len(columns))
		scanDestPtrs := make([]any, len(columns))
		for i := range scanDest {
			scanDestPtrs[i] = &scanDest[i]
		}
		if err := rows.Scan(scanDestPtrs...); err != nil {
			return nil, fmt.Errorf("扫描行数据失败: %w", err)
		}
		for i, v := range scanDest {
			if b, ok := v.([]byte); ok {
				scanDest[i] = string(b)
			}
		}
		results = append(results, port.NewRow(columns, scanDest))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("迭代结果行时发生错误: %w", err)
	}
	return results, nil
}
