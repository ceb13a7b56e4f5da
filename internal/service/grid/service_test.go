// file: internal/service/grid/service_test.go
package grid

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"GridAegis/internal/adapter/fluent/sqlbuilder"
	"GridAegis/internal/core/domain"
	"GridAegis/internal/core/port"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func ordersGrid() domain.GridDefinition {
	return domain.GridDefinition{
		Name:        "orders",
		Table:       "orders",
		PageSize:    2,
		MaxPageSize: 3,
		DefaultSort: []domain.GridSort{{Column: "id", Direction: "desc"}},
		Columns: []domain.GridColumn{
			{Name: "id", Sortable: true},
			{Name: "customer", Filterable: true, Suggestible: true, Sortable: true},
			{Name: "city", Filterable: true, Suggestible: true},
			{Name: "amount", Aggregate: port.AggSum, Sortable: true, Filterable: true},
		},
	}
}

// setupService 在独立的内存库上创建服务
func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, city TEXT, amount INTEGER)`,
		`INSERT INTO orders VALUES
			(1, 'alice', 'NY', 10),
			(2, 'bob',   'LA', 20),
			(3, 'alice', 'NY', 30),
			(4, 'carol', 'SF', 40),
			(5, 'dan_x', NULL, 50)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	svc, err := NewService(db, sqlbuilder.SQLite, []domain.GridDefinition{ordersGrid()}, Options{})
	require.NoError(t, err)
	return svc, db
}

func ids(t *testing.T, rows []port.Row) []int64 {
	t.Helper()
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Get("id")
		require.True(t, ok)
		out = append(out, v.(int64))
	}
	return out
}

func TestNewService_NilDB(t *testing.T) {
	_, err := NewService(nil, sqlbuilder.SQLite, nil, Options{})
	assert.Error(t, err)
}

func TestPage_DefaultsAndTotals(t *testing.T) {
	svc, _ := setupService(t)

	res, err := svc.Page(context.Background(), PageRequest{Grid: "orders"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Offset)
	assert.Equal(t, 2, res.Limit, "未指定时使用表格的 page_size")
	assert.Equal(t, []int64{5, 4}, ids(t, res.Rows), "未指定排序时使用默认排序")
	require.NotNil(t, res.Total)
	assert.EqualValues(t, 5, *res.Total)
	assert.EqualValues(t, 150, res.Aggregates["amount"])
}

func TestPage_FiltersSortsAndWindow(t *testing.T) {
	svc, _ := setupService(t)

	res, err := svc.Page(context.Background(), PageRequest{
		Grid:    "orders",
		Offset:  1,
		Limit:   3,
		Sorts:   []port.SortDirective{{Column: "amount", Direction: port.SortAsc}},
		Filters: []Filter{{Column: "amount", Op: "ge", Value: "20"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, ids(t, res.Rows))
	require.NotNil(t, res.Total)
	assert.EqualValues(t, 4, *res.Total)
	assert.EqualValues(t, 140, res.Aggregates["amount"])
}

func TestPage_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Page(ctx, PageRequest{Grid: "missing"})
	assert.ErrorIs(t, err, port.ErrGridNotFound)

	_, err = svc.Page(ctx, PageRequest{Grid: "orders", Limit: 4})
	assert.ErrorIs(t, err, port.ErrInvalidArgument, "超过 max_page_size")

	_, err = svc.Page(ctx, PageRequest{Grid: "orders", Offset: -1})
	assert.ErrorIs(t, err, port.ErrInvalidArgument)

	_, err = svc.Page(ctx, PageRequest{Grid: "orders", Sorts: []port.SortDirective{{Column: "city", Direction: port.SortAsc}}})
	assert.ErrorIs(t, err, port.ErrColumnNotAllowed)

	_, err = svc.Page(ctx, PageRequest{Grid: "orders", Filters: []Filter{{Column: "id", Op: "eq", Value: "1"}}})
	assert.ErrorIs(t, err, port.ErrColumnNotAllowed)

	_, err = svc.Page(ctx, PageRequest{Grid: "orders", Filters: []Filter{{Column: "city", Op: "regex", Value: "x"}}})
	assert.ErrorIs(t, err, port.ErrInvalidArgument)
}

func TestCount(t *testing.T) {
	svc, _ := setupService(t)

	n, err := svc.Count(context.Background(), "orders", []Filter{{Column: "customer", Op: "eq", Value: "alice"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCount_UnavailableIsSentinel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}))

	svc, err := NewService(db, sqlbuilder.SQLite, []domain.GridDefinition{ordersGrid()}, Options{})
	require.NoError(t, err)

	_, err = svc.Count(context.Background(), "orders", nil)
	assert.ErrorIs(t, err, port.ErrResultUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPage_UnavailableTotalIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT "id", "customer", "city", "amount" FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(1)).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT SUM\("amount"\) AS "amount" FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}))

	svc, err := NewService(db, sqlbuilder.SQLite, []domain.GridDefinition{ordersGrid()}, Options{})
	require.NoError(t, err)

	res, err := svc.Page(context.Background(), PageRequest{Grid: "orders"})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Nil(t, res.Total)
	assert.Nil(t, res.Aggregates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregates(t *testing.T) {
	svc, _ := setupService(t)
	agg, err := svc.Aggregates(context.Background(), "orders", []Filter{{Column: "city", Op: "in", Value: "NY,SF"}})
	require.NoError(t, err)
	assert.EqualValues(t, 80, agg["amount"])
}

func TestSuggest_TermFiltersAndCache(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	items, err := svc.Suggest(ctx, SuggestRequest{Grid: "orders", Column: "customer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol", "dan_x"}, items)

	items, err = svc.Suggest(ctx, SuggestRequest{Grid: "orders", Column: "customer", Term: "_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dan_x"}, items, "通配符应被转义")

	items, err = svc.Suggest(ctx, SuggestRequest{
		Grid: "orders", Column: "city",
		Filters: []Filter{{Column: "customer", Op: "eq", Value: "alice"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"NY"}, items)

	// 修改数据后，相同请求命中缓存
	_, err = db.Exec(`INSERT INTO orders VALUES (6, 'aaron', 'LA', 1)`)
	require.NoError(t, err)
	items, err = svc.Suggest(ctx, SuggestRequest{Grid: "orders", Column: "customer"})
	require.NoError(t, err)
	assert.NotContains(t, items, "aaron")

	// 重新加载定义会清空缓存
	svc.ReplaceDefinitions([]domain.GridDefinition{ordersGrid()})
	items, err = svc.Suggest(ctx, SuggestRequest{Grid: "orders", Column: "customer", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"aaron", "alice"}, items)
}

func TestSuggest_ColumnNotSuggestible(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.Suggest(context.Background(), SuggestRequest{Grid: "orders", Column: "amount"})
	assert.ErrorIs(t, err, port.ErrColumnNotAllowed)
}

func TestReplaceDefinitions_Order(t *testing.T) {
	svc, _ := setupService(t)
	customers := domain.GridDefinition{Name: "customers", Table: "customers", Columns: []domain.GridColumn{{Name: "id"}}}
	svc.ReplaceDefinitions([]domain.GridDefinition{customers, ordersGrid()})

	defs := svc.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "customers", defs[0].Name)
	assert.Equal(t, "orders", defs[1].Name)

	svc.ReplaceDefinitions(nil)
	_, err := svc.Definition("orders")
	assert.ErrorIs(t, err, port.ErrGridNotFound)
}

func TestCheckSchema(t *testing.T) {
	svc, _ := setupService(t)
	require.NoError(t, svc.CheckSchema(context.Background()))

	broken := ordersGrid()
	broken.Columns = append(broken.Columns, domain.GridColumn{Name: "ghost"})
	svc.ReplaceDefinitions([]domain.GridDefinition{
		broken,
		{Name: "nowhere", Table: "no_such_table", Columns: []domain.GridColumn{{Name: "id"}}},
	})

	err := svc.CheckSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "nowhere")
}
