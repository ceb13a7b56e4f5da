// Package domain file: internal/core/domain/config_models.go
package domain

import "GridAegis/internal/core/port"

// GridDefinition 定义了一个可通过 API 访问的表格，来自配置文件的 grids 段
type GridDefinition struct {
	Name        string       `mapstructure:"name" json:"name" validate:"required"`
	Table       string       `mapstructure:"table" json:"table" validate:"required"`
	Columns     []GridColumn `mapstructure:"columns" json:"columns" validate:"required,min=1,dive"`
	DefaultSort []GridSort   `mapstructure:"default_sort" json:"default_sort,omitempty" validate:"dive"`
	PageSize    int          `mapstructure:"page_size" json:"page_size" validate:"gte=0"`
	MaxPageSize int          `mapstructure:"max_page_size" json:"max_page_size" validate:"gte=0"`
}

// GridColumn 定义了表格中单列的访问权限和聚合方式
type GridColumn struct {
	Name        string             `mapstructure:"name" json:"name" validate:"required"`
	Label       string             `mapstructure:"label" json:"label,omitempty"`
	Aggregate   port.AggregateFunc `mapstructure:"aggregate" json:"aggregate,omitempty" validate:"omitempty,oneof=sum avg min max count"`
	Sortable    bool               `mapstructure:"sortable" json:"sortable"`
	Filterable  bool               `mapstructure:"filterable" json:"filterable"`
	Suggestible bool               `mapstructure:"suggestible" json:"suggestible"`
}

// GridSort 定义了默认排序
type GridSort struct {
	Column    string `mapstructure:"column" json:"column" validate:"required"`
	Direction string `mapstructure:"direction" json:"direction" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// Column 按名称查找列定义
func (g *GridDefinition) Column(name string) (GridColumn, bool) {
	for _, c := range g.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return GridColumn{}, false
}

// ColumnNames 返回全部列名，保持定义顺序
func (g *GridDefinition) ColumnNames() []string {
	names := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		names[i] = c.Name
	}
	return names
}

// AggregateColumns 返回带聚合函数的列描述
func (g *GridDefinition) AggregateColumns() []port.Column {
	var cols []port.Column
	for _, c := range g.Columns {
		if c.Aggregate != port.AggNone {
			cols = append(cols, port.Column{Name: c.Name, Aggregate: c.Aggregate})
		}
	}
	return cols
}

// IPLimitSetting 定义了全局IP速率限制的配置
type IPLimitSetting struct {
	RateLimitPerMinute float64 `mapstructure:"rate_limit_per_minute" json:"rate_limit_per_minute" validate:"gte=0"`
	BurstSize          int     `mapstructure:"burst_size" json:"burst_size" validate:"gte=0"`
}
