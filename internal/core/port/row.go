// Package port file: internal/core/port/row.go
package port

import "encoding/json"

// Row 是查询结果中的一行。既可以按列名取值，也可以按列序取值。
type Row struct {
	Columns []string
	Values  []any
}

// NewRow 创建一行结果，columns 与 values 必须等长。
func NewRow(columns []string, values []any) Row {
	return Row{Columns: columns, Values: values}
}

// Len 返回列数
func (r Row) Len() int { return len(r.Columns) }

// Get 按列名取值。存在同名列时返回第一个。
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// At 按列序取值
func (r Row) At(i int) (any, bool) {
	if i < 0 || i >= len(r.Values) {
		return nil, false
	}
	return r.Values[i], true
}

// Map 把行转换为 map，便于序列化给前端。
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
