// file: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"GridAegis/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
  log_level: debug
database:
  driver: sqlite
  dsn: "file:grid.db"
suggest:
  cache_ttl: 30s
grids:
  - name: orders
    table: orders
    page_size: 25
    max_page_size: 200
    default_sort:
      - column: id
        direction: desc
    columns:
      - name: id
        sortable: true
      - name: city
        filterable: true
        suggestible: true
      - name: amount
        aggregate: sum
        sortable: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(New(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Suggest.CacheTTL)
	assert.Equal(t, 1000, cfg.Suggest.CacheSize)

	require.Len(t, cfg.Grids, 1)
	g := cfg.Grids[0]
	assert.Equal(t, "orders", g.Name)
	assert.Equal(t, 25, g.PageSize)
	assert.Equal(t, []string{"id", "city", "amount"}, g.ColumnNames())
	assert.Equal(t, []port.Column{{Name: "amount", Aggregate: port.AggSum}}, g.AggregateColumns())
	city, ok := g.Column("city")
	require.True(t, ok)
	assert.True(t, city.Suggestible)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GRIDAEGIS_SERVER_PORT", "7070")
	t.Setenv("GRIDAEGIS_DATABASE_DSN", "file:other.db")

	cfg, err := Load(New(writeConfig(t, sampleConfig)))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "file:other.db", cfg.Database.DSN)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("GRIDAEGIS_DATABASE_DSN", "file::memory:")

	cfg, err := Load(New(filepath.Join(t.TempDir(), "absent.yaml")))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Empty(t, cfg.Grids)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown aggregate": `
database: {dsn: "x"}
grids:
  - name: g
    table: t
    columns: [{name: a, aggregate: median}]
`,
		"duplicate grid": `
database: {dsn: "x"}
grids:
  - {name: g, table: t, columns: [{name: a}]}
  - {name: g, table: u, columns: [{name: b}]}
`,
		"no columns": `
database: {dsn: "x"}
grids:
  - {name: g, table: t}
`,
		"bad driver": `
database: {driver: oracle, dsn: "x"}
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(New(writeConfig(t, content)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "配置校验失败")
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	v := New(path)
	_, err := Load(v)
	require.NoError(t, err)

	var grids atomic.Int32
	Watch(v, func(cfg *Config) { grids.Store(int32(len(cfg.Grids))) })

	updated := sampleConfig + `
  - name: customers
    table: customers
    columns:
      - name: id
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	assert.Eventually(t, func() bool { return grids.Load() == 2 }, 5*time.Second, 50*time.Millisecond)
}
