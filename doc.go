// Package sqlsnap provides a caching middleware for database/sql users. Query
// results are captured as immutable snapshots, keyed by the query text and its
// bound parameters, and tagged with the tables the query reads. Writes going
// through the same driver invalidate every snapshot tagged with a table they
// touch. Your program will perceive the database client/driver as a
// read-through cache.
//
// Usage:
//
//	import (
//		"database/sql"
//
//		"github.com/go-redis/redis/v8"
//		"github.com/jackc/pgx/v4/stdlib"
//		"github.com/prashanthpai/sqlsnap"
//	)
//
//	func main() {
//		...
//		rc := redis.NewUniversalClient(&redis.UniversalOptions{
//			Addrs: []string{"127.0.0.1:6379"},
//		})
//
//		// create a sqlsnap.Interceptor instance with the desired backend
//		interceptor, err := sqlsnap.NewInterceptor(&sqlsnap.Config{
//			Cache: sqlsnap.NewRedis(rc, "sqs:", true),
//		})
//		...
//
//		// wrap pgx driver with the interceptor and register it
//		sql.Register("pgx-with-cache", interceptor.Driver(stdlib.GetDefaultDriver()))
//
//		// open the database using the wrapped driver
//		db, err := sql.Open("pgx-with-cache", dsn)
//		...
//	}
//
// Caching is controlled using cache attributes which are SQL comments starting
// with `@cache-` prefix. Only queries with both @cache-ttl (seconds) and
// @cache-max-rows are cached. @cache-salt separates otherwise identical
// queries and @cache-deps names the tables a query depends on when they
// cannot be read off the query text, for example for views, as a comma
// separated list. Attributes may sit in -- or /* */ comments, on their own
// lines or inline, and are removed before the key is computed.
//
// Example query:
//
//	rows, err := db.QueryContext(context.TODO(), `
//		-- @cache-ttl 30
//		-- @cache-max-rows 10
//		SELECT name, pages FROM books WHERE pages > $1`, 100)
//
// Results whose tables cannot be determined are not cached unless
// Config.UntaggedTTL is set, as nothing would ever invalidate them.
package sqlsnap
