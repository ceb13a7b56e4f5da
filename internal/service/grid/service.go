// Package grid 把配置中的表格定义与数据源组合起来，向传输层提供分页、计数和建议查询。
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"GridAegis/internal/adapter/fluent/sqlbuilder"
	"GridAegis/internal/aegobserve"
	"GridAegis/internal/core/domain"
	"GridAegis/internal/core/port"
	"GridAegis/internal/datasource"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize     = 50
	defaultMaxPageSize  = 1000
	defaultSuggestLimit = 10
	defaultMaxSuggest   = 100
)

// Options 配置建议缓存和数量限制
type Options struct {
	SuggestCacheSize    int
	SuggestCacheTTL     time.Duration
	DefaultSuggestLimit int
	MaxSuggestLimit     int
	Logger              *slog.Logger
}

// PageRequest 是一次分页查询
type PageRequest struct {
	Grid    string
	Offset  int
	Limit   int
	Sorts   []port.SortDirective
	Filters []Filter
}

// PageResult 是分页查询结果。Total 为 nil 表示计数不可用。
type PageResult struct {
	Grid       string         `json:"grid"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
	Rows       []port.Row     `json:"rows"`
	Total      *int64         `json:"total"`
	Aggregates map[string]any `json:"aggregates,omitempty"`
}

// SuggestRequest 是一次建议查询，Term 非空时按包含匹配。
type SuggestRequest struct {
	Grid    string
	Column  string
	Term    string
	Limit   int
	Filters []Filter
}

// Service 管理表格定义并为每个请求创建独立的数据源
type Service struct {
	db      sqlbuilder.Querier
	dialect sqlbuilder.Dialect
	opts    Options
	logger  *slog.Logger

	mu    sync.RWMutex
	defs  map[string]domain.GridDefinition
	order []string

	suggestCache *lru.LRU[string, []string]
}

// NewService 创建表格服务
func NewService(db sqlbuilder.Querier, dialect sqlbuilder.Dialect, defs []domain.GridDefinition, opts Options) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("GridService 初始化失败: 数据库连接不能为 nil")
	}
	if opts.SuggestCacheSize <= 0 {
		opts.SuggestCacheSize = 1000
	}
	if opts.SuggestCacheTTL <= 0 {
		opts.SuggestCacheTTL = time.Minute
	}
	if opts.DefaultSuggestLimit <= 0 {
		opts.DefaultSuggestLimit = defaultSuggestLimit
	}
	if opts.MaxSuggestLimit <= 0 {
		opts.MaxSuggestLimit = defaultMaxSuggest
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{
		db:           db,
		dialect:      dialect,
		opts:         opts,
		logger:       opts.Logger.With("component", "grid_service"),
		suggestCache: lru.NewLRU[string, []string](opts.SuggestCacheSize, nil, opts.SuggestCacheTTL),
	}
	s.ReplaceDefinitions(defs)
	return s, nil
}

// ReplaceDefinitions 整体替换表格定义并清空建议缓存
func (s *Service) ReplaceDefinitions(defs []domain.GridDefinition) {
	m := make(map[string]domain.GridDefinition, len(defs))
	order := make([]string, 0, len(defs))
	for _, d := range defs {
		if _, dup := m[d.Name]; !dup {
			order = append(order, d.Name)
		}
		m[d.Name] = d
	}

	s.mu.Lock()
	s.defs, s.order = m, order
	s.mu.Unlock()

	s.suggestCache.Purge()
	s.logger.Info("表格定义已更新，建议缓存已清空", "grids", order)
}

// Definitions 按配置顺序返回全部表格定义
func (s *Service) Definitions() []domain.GridDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GridDefinition, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.defs[name])
	}
	return out
}

// Definition 返回指定表格的定义
func (s *Service) Definition(name string) (domain.GridDefinition, error) {
	s.mu.RLock()
	def, ok := s.defs[name]
	s.mu.RUnlock()
	if !ok {
		return domain.GridDefinition{}, fmt.Errorf("%w: '%s'", port.ErrGridNotFound, name)
	}
	return def, nil
}

// CheckSchema 核对每个表格定义的表和列在数据库中是否存在，返回全部问题。
func (s *Service) CheckSchema(ctx context.Context) error {
	var problems []error
	for _, def := range s.Definitions() {
		physical, err := sqlbuilder.ProbeColumns(ctx, s.db, s.dialect, def.Table)
		if err != nil {
			problems = append(problems, fmt.Errorf("表格 '%s': %w", def.Name, err))
			continue
		}
		present := make(map[string]struct{}, len(physical))
		for _, c := range physical {
			present[c] = struct{}{}
		}
		for _, c := range def.Columns {
			if _, ok := present[c.Name]; !ok {
				problems = append(problems, fmt.Errorf("表格 '%s': 表 '%s' 中不存在列 '%s'", def.Name, def.Table, c.Name))
			}
		}
	}
	return errors.Join(problems...)
}

// newDataSource 为 def 创建新的查询句柄并应用过滤条件
func (s *Service) newDataSource(def domain.GridDefinition, columns []string, filters []Filter) (*datasource.QueryDataSource, error) {
	conds, err := conditionsFor(def, filters)
	if err != nil {
		return nil, err
	}
	fluent := sqlbuilder.New(s.db, s.dialect, def.Table, columns...)
	ds := datasource.New(fluent, datasource.WithLogger(s.logger.With("grid", def.Name)))
	if err := ds.Filter(conds); err != nil {
		return nil, err
	}
	return ds, nil
}

func conditionsFor(def domain.GridDefinition, filters []Filter) ([]port.Condition, error) {
	conds := make([]port.Condition, 0, len(filters))
	for _, f := range filters {
		col, ok := def.Column(f.Column)
		if !ok || !col.Filterable {
			return nil, fmt.Errorf("%w: 列 '%s' 不可过滤", port.ErrColumnNotAllowed, f.Column)
		}
		cond, err := f.Condition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func sortsFor(def domain.GridDefinition, sorts []port.SortDirective) ([]port.SortDirective, error) {
	if len(sorts) == 0 {
		for _, d := range def.DefaultSort {
			dir := d.Direction
			if dir == "" {
				dir = string(port.SortAsc)
			}
			sorts = append(sorts, port.SortDirective{Column: d.Column, Direction: port.SortDirection(dir)})
		}
		return sorts, nil
	}
	for _, sd := range sorts {
		col, ok := def.Column(sd.Column)
		if !ok || !col.Sortable {
			return nil, fmt.Errorf("%w: 列 '%s' 不可排序", port.ErrColumnNotAllowed, sd.Column)
		}
	}
	return sorts, nil
}

func window(def domain.GridDefinition, offset, limit int) (int, int, error) {
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset 不能为负数", port.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = def.PageSize
		if limit <= 0 {
			limit = defaultPageSize
		}
	}
	maxSize := def.MaxPageSize
	if maxSize <= 0 {
		maxSize = defaultMaxPageSize
	}
	if limit > maxSize {
		return 0, 0, fmt.Errorf("%w: limit %d 超过表格允许的最大值 %d", port.ErrInvalidArgument, limit, maxSize)
	}
	return offset, limit, nil
}

// Page 执行分页查询。数据、计数和聚合并发执行，计数或聚合不可用时对应字段为空。
func (s *Service) Page(ctx context.Context, req PageRequest) (*PageResult, error) {
	def, err := s.Definition(req.Grid)
	if err != nil {
		return nil, err
	}
	sorts, err := sortsFor(def, req.Sorts)
	if err != nil {
		return nil, err
	}
	offset, limit, err := window(def, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	ds, err := s.newDataSource(def, def.ColumnNames(), req.Filters)
	if err != nil {
		return nil, err
	}
	if err := ds.Sort(sorts); err != nil {
		return nil, err
	}
	ds.Limit(offset, limit)

	result := &PageResult{Grid: def.Name, Offset: offset, Limit: limit}

	// 以下三个操作都只读取句柄，可以并发执行
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := ds.GetData(gctx)
		result.Rows = rows
		return err
	})
	g.Go(func() error {
		total, ok, err := ds.GetCount(gctx)
		if ok {
			result.Total = &total
		}
		return err
	})
	if aggCols := def.AggregateColumns(); len(aggCols) > 0 {
		g.Go(func() error {
			agg, ok, err := ds.GetAggregates(gctx, aggCols)
			if ok {
				result.Aggregates = agg.Map()
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if result.Rows == nil {
		result.Rows = []port.Row{}
	}
	return result, nil
}

// Count 返回过滤后的总行数，不可用时返回 port.ErrResultUnavailable。
func (s *Service) Count(ctx context.Context, grid string, filters []Filter) (int64, error) {
	def, err := s.Definition(grid)
	if err != nil {
		return 0, err
	}
	ds, err := s.newDataSource(def, def.ColumnNames(), filters)
	if err != nil {
		return 0, err
	}
	total, ok, err := ds.GetCount(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: 表格 '%s' 的计数", port.ErrResultUnavailable, grid)
	}
	return total, nil
}

// Aggregates 返回过滤后的聚合结果，不可用时返回 port.ErrResultUnavailable。
func (s *Service) Aggregates(ctx context.Context, grid string, filters []Filter) (map[string]any, error) {
	def, err := s.Definition(grid)
	if err != nil {
		return nil, err
	}
	aggCols := def.AggregateColumns()
	if len(aggCols) == 0 {
		return map[string]any{}, nil
	}
	ds, err := s.newDataSource(def, def.ColumnNames(), filters)
	if err != nil {
		return nil, err
	}
	agg, ok, err := ds.GetAggregates(ctx, aggCols)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: 表格 '%s' 的聚合", port.ErrResultUnavailable, grid)
	}
	return agg.Map(), nil
}

// Suggest 返回指定列去重后的候选值，结果按请求参数缓存。
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) ([]string, error) {
	def, err := s.Definition(req.Grid)
	if err != nil {
		return nil, err
	}
	col, ok := def.Column(req.Column)
	if !ok || !col.Suggestible {
		return nil, fmt.Errorf("%w: 列 '%s' 不支持建议", port.ErrColumnNotAllowed, req.Column)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.DefaultSuggestLimit
	}
	if limit > s.opts.MaxSuggestLimit {
		limit = s.opts.MaxSuggestLimit
	}

	key := suggestKey(req, limit)
	if items, hit := s.suggestCache.Get(key); hit {
		aegobserve.SuggestCacheHits.Inc()
		return items, nil
	}

	ds, err := s.newDataSource(def, []string{col.Name}, req.Filters)
	if err != nil {
		return nil, err
	}
	var conds []port.Condition
	if req.Term != "" {
		conds = append(conds, port.NewCondition(col.Name, port.OpLikeEscaped, "%"+port.EscapeLike(req.Term)+"%"))
	}
	if err := ds.Sort([]port.SortDirective{{Column: col.Name, Direction: port.SortAsc}}); err != nil {
		return nil, err
	}
	items, err := ds.Suggest(ctx, port.ByColumn(col.Name), conds, limit)
	if err != nil {
		return nil, err
	}
	s.suggestCache.Add(key, items)
	return items, nil
}

func suggestKey(req SuggestRequest, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\x00%s\x00%s\x00%d", req.Grid, req.Column, req.Term, limit)
	for _, f := range req.Filters {
		fmt.Fprintf(&sb, "\x00%s:%s:%s", f.Column, f.Op, f.Value)
	}
	return sb.String()
}
