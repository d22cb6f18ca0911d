package sqlsnap

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/ristretto"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	_ "modernc.org/sqlite"
)

type book struct {
	name  string
	pages int64
	isbn  sql.NullString
}

const booksQuery = `
	-- @cache-ttl 60
	-- @cache-max-rows 10
	SELECT name, pages, isbn FROM books WHERE pages > ? ORDER BY name`

func queryBooks(assert *require.Assertions, db *sql.DB) []book {
	rows, err := db.QueryContext(context.Background(), booksQuery, 100)
	assert.NoError(err)
	defer rows.Close()

	var books []book
	for rows.Next() {
		var b book
		assert.NoError(rows.Scan(&b.name, &b.pages, &b.isbn))
		books = append(books, b)
	}
	assert.NoError(rows.Err())
	return books
}

func openSQLite(t *testing.T, ic *Interceptor) *sql.DB {
	assert := require.New(t)

	// borrow the registered driver to wrap it
	raw, err := sql.Open("sqlite", ":memory:")
	assert.NoError(err)
	drv := raw.Driver()
	assert.NoError(raw.Close())

	driverName := fmt.Sprintf("sqlite-sqlsnap:%s", t.Name())
	sql.Register(driverName, ic.Driver(drv))

	db, err := sql.Open(driverName, filepath.Join(t.TempDir(), "books.db"))
	assert.NoError(err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(assert *require.Assertions, rm metricdata.ResourceMetrics, name string) int64 {
	m := findMetric(rm, name)
	assert.NotNil(m, name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	assert.True(ok, "%s is %T", name, m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestSQLiteCaptureReplay(t *testing.T) {
	assert := require.New(t)

	store, err := NewRistretto(&ristretto.Config{
		NumCounters:        1000,
		MaxCost:            100,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	assert.NoError(err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ic, err := NewInterceptor(&Config{
		Cache:  store,
		Logger: logger,
		Meter:  mp.Meter("test"),
	})
	assert.NoError(err)

	db := openSQLite(t, ic)
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE books (name TEXT NOT NULL, pages INTEGER NOT NULL, isbn TEXT)`)
	assert.NoError(err)
	_, err = db.ExecContext(ctx, `INSERT INTO books (name, pages, isbn) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)`,
		"Dune", 412, "978-0441013593",
		"Neuromancer", 271, nil,
		"Pamphlet", 12, nil,
	)
	assert.NoError(err)
	invalidations := ic.Stats().Invalidations

	want := []book{
		{name: "Dune", pages: 412, isbn: sql.NullString{String: "978-0441013593", Valid: true}},
		{name: "Neuromancer", pages: 271},
	}

	// miss: executed, captured and stored
	assert.Equal(want, queryBooks(assert, db))
	store.Wait()
	assert.Equal(uint64(1), ic.Stats().Misses)

	// hit: replayed from the snapshot
	assert.Equal(want, queryBooks(assert, db))
	assert.Equal(uint64(1), ic.Stats().Hits)

	// a write to books drops the entry
	_, err = db.ExecContext(ctx, `INSERT INTO books (name, pages) VALUES (?, ?)`, "Anathem", 937)
	assert.NoError(err)
	assert.Equal(invalidations+1, ic.Stats().Invalidations)

	got := queryBooks(assert, db)
	assert.Len(got, 3)
	assert.Equal("Anathem", got[0].name)
	assert.Equal(uint64(2), ic.Stats().Misses)
	assert.Equal(uint64(1), ic.Stats().Hits)
	assert.Equal(uint64(0), ic.Stats().Errors)

	var rm metricdata.ResourceMetrics
	assert.NoError(reader.Collect(ctx, &rm))
	assert.Equal(int64(1), counterValue(assert, rm, "sqlsnap.cache.hits"))
	assert.Equal(int64(2), counterValue(assert, rm, "sqlsnap.cache.misses"))

	rows := findMetric(rm, "sqlsnap.snapshot.rows")
	assert.NotNil(rows)
	hist, ok := rows.Data.(metricdata.Histogram[int64])
	assert.True(ok)
	assert.Len(hist.DataPoints, 1)
	assert.Equal(uint64(2), hist.DataPoints[0].Count)
	assert.Equal(int64(5), hist.DataPoints[0].Sum)

	var assembled int
	for _, e := range hook.AllEntries() {
		if e.Message == "cache key assembled" {
			assembled++
			assert.Equal([]string{"books"}, e.Data["dependencies"])
		}
	}
	assert.Equal(3, assembled)
}

func TestSQLiteColumnTypes(t *testing.T) {
	assert := require.New(t)

	store, err := NewRistretto(&ristretto.Config{
		NumCounters:        1000,
		MaxCost:            100,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	assert.NoError(err)

	ic, err := NewInterceptor(&Config{Cache: store})
	assert.NoError(err)

	db := openSQLite(t, ic)
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE blobs (id INTEGER, data BLOB, ratio REAL)`)
	assert.NoError(err)
	_, err = db.ExecContext(ctx, `INSERT INTO blobs VALUES (1, x'0AFF', 0.5)`)
	assert.NoError(err)

	query := `-- @cache-ttl 60
		-- @cache-max-rows 10
		SELECT id, data, ratio FROM blobs`

	for i := 0; i < 2; i++ {
		rows, err := db.QueryContext(ctx, query)
		assert.NoError(err)

		types, err := rows.ColumnTypes()
		assert.NoError(err)
		assert.Equal("INTEGER", types[0].DatabaseTypeName())
		assert.Equal("BLOB", types[1].DatabaseTypeName())
		assert.Equal("REAL", types[2].DatabaseTypeName())

		assert.True(rows.Next())
		var (
			id    int64
			data  []byte
			ratio float64
		)
		assert.NoError(rows.Scan(&id, &data, &ratio))
		assert.Equal(int64(1), id)
		assert.Equal([]byte{0x0A, 0xFF}, data)
		assert.Equal(0.5, ratio)
		assert.False(rows.Next())
		assert.NoError(rows.Close())

		store.Wait()
	}
	assert.Equal(uint64(1), ic.Stats().Hits)
}
