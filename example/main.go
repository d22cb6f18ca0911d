package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/prashanthpai/sqlsnap"
	"github.com/prashanthpai/sqlsnap/cache"

	"github.com/dgraph-io/ristretto"
	redis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRowsToCache = 100
)

func newRistrettoCache(maxRowsToCache int64) (cache.Cacher, error) {
	return sqlsnap.NewRistretto(&ristretto.Config{
		NumCounters:        10 * maxRowsToCache,
		MaxCost:            maxRowsToCache,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
}

func newRedisCache() (cache.Cacher, error) {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"127.0.0.1:6379"},
	})

	if _, err := r.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}

	return sqlsnap.NewRedis(r, "sqs:", true), nil
}

func main() {

	cache, err := newRistrettoCache(defaultMaxRowsToCache)
	if err != nil {
		log.Fatalf("newRistrettoCache() failed: %v", err)
	}

	/*
		cache, err := newRedisCache()
		if err != nil {
			log.Fatalf("newRedisCache() failed: %v", err)
		}
	*/

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	interceptor, err := sqlsnap.NewInterceptor(&sqlsnap.Config{
		Cache:  cache, // pick a Cacher interface implementation of your choice (redis, ristretto or badger)
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("sqlsnap.NewInterceptor() failed: %v", err)
	}

	defer func() {
		fmt.Printf("\nInterceptor metrics: %+v\n", interceptor.Stats())
	}()

	// install the wrapper which wraps pgx driver
	sql.Register("pgx-sqlsnap", interceptor.Driver(stdlib.GetDefaultDriver()))

	if err := run(); err != nil {
		log.Fatalf("run() failed: %v", err)
	}
}

func run() error {

	db, err := sql.Open("pgx-sqlsnap",
		"host=127.0.0.1 port=5432 user=postgres dbname=postgres sslmode=disable")
	if err != nil {
		return err
	}
	defer db.Close()

	if err = db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("db.PingContext() failed: %w", err)
	}

	for i := 0; i < 15; i++ {
		start := time.Now()
		if err := doQuery(db); err != nil {
			return fmt.Errorf("doQuery() failed: %w", err)
		}
		fmt.Printf("i=%d; t=%s\n", i, time.Since(start))

		// every fifth round a write drops the cached result
		if i%5 == 4 {
			if _, err := db.ExecContext(context.TODO(),
				`UPDATE books SET pages = pages WHERE pages > $1`, 10); err != nil {
				return fmt.Errorf("db.ExecContext() failed: %w", err)
			}
		}
		time.Sleep(1 * time.Second)
	}

	return nil
}

func doQuery(db *sql.DB) error {

	rows, err := db.QueryContext(context.TODO(), `
		-- @cache-ttl 5
		-- @cache-max-rows 10
		SELECT name, pages FROM books WHERE pages > $1`, 10)
	if err != nil {
		return fmt.Errorf("db.QueryContext() failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var pages int
		if err := rows.Scan(&name, &pages); err != nil {
			return fmt.Errorf("rows.Scan() failed: %w", err)
		}
	}

	return rows.Err()
}
