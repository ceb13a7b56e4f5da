// Package port file: internal/core/port/column.go
package port

import (
	"fmt"
	"strings"
)

// AggregateFunc 聚合函数名
type AggregateFunc string

const (
	AggNone  AggregateFunc = ""
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
	AggCount AggregateFunc = "count"
)

var knownAggregates = map[AggregateFunc]struct{}{
	AggSum:   {},
	AggAvg:   {},
	AggMin:   {},
	AggMax:   {},
	AggCount: {},
}

// SQL 返回大写的 SQL 函数名，未知函数返回 ErrInvalidArgument。
func (f AggregateFunc) SQL() (string, error) {
	normalized := AggregateFunc(strings.ToLower(strings.TrimSpace(string(f))))
	if _, ok := knownAggregates[normalized]; !ok {
		return "", fmt.Errorf("%w: 不支持的聚合函数 %q", ErrInvalidArgument, f)
	}
	return strings.ToUpper(string(normalized)), nil
}

// Column 描述表格中的一列。Aggregate 为空的列不参与聚合计算。
type Column struct {
	Name      string
	Aggregate AggregateFunc
}

type selectorKind int

const (
	selectorInvalid selectorKind = iota
	selectorColumn
	selectorExtractor
)

// Extractor 从一行结果中提取建议值
type Extractor func(row Row) any

// ColumnSelector 指定建议值的来源: 列名或逐行提取函数，二者取其一。
// 零值不指向任何来源，传给 Suggest 会得到 ErrInvalidArgument。
type ColumnSelector struct {
	kind    selectorKind
	column  string
	extract Extractor
}

// ByColumn 以列名作为建议值来源
func ByColumn(name string) ColumnSelector {
	return ColumnSelector{kind: selectorColumn, column: name}
}

// ByExtractor 以提取函数作为建议值来源
func ByExtractor(fn Extractor) ColumnSelector {
	return ColumnSelector{kind: selectorExtractor, extract: fn}
}

// Value 对一行结果求值
func (s ColumnSelector) Value(row Row) (any, error) {
	switch s.kind {
	case selectorColumn:
		if s.column == "" {
			break
		}
		v, ok := row.Get(s.column)
		if !ok {
			return nil, fmt.Errorf("%w: 结果中不存在建议列 %q", ErrInvalidArgument, s.column)
		}
		return v, nil
	case selectorExtractor:
		if s.extract == nil {
			break
		}
		return s.extract(row), nil
	}
	return nil, fmt.Errorf("%w: column of suggestion must be string or callback", ErrInvalidArgument)
}

// Validate 在执行查询前检查选择器是否有效
func (s ColumnSelector) Validate() error {
	switch {
	case s.kind == selectorColumn && s.column != "":
		return nil
	case s.kind == selectorExtractor && s.extract != nil:
		return nil
	}
	return fmt.Errorf("%w: column of suggestion must be string or callback", ErrInvalidArgument)
}
