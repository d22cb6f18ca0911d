package sqlsnap

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/ngrok/sqlmw"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/prashanthpai/sqlsnap/cache"
	"github.com/prashanthpai/sqlsnap/cachekey"
)

// Config is the configuration passed to NewInterceptor for creating new
// Interceptor instances.
type Config struct {
	// Cache must be set to a type that implements the cache.Cacher interface
	// which abstracts the backend cache implementation. This is a required
	// field and cannot be nil.
	Cache cache.Cacher
	// OnError is called whenever methods of cache.Cacher interface return
	// an error. Cache failures never fail the query; use this hook to alert
	// or to Disable the interceptor.
	OnError func(error)
	// Logger receives key assembly and cache decisions. Defaults to a
	// logger that discards everything.
	Logger logrus.FieldLogger
	// Meter is used to create the sqlsnap.* instruments. Defaults to a
	// no-op meter.
	Meter metric.Meter
	// Salt is mixed into every key. Queries may add their own salt with
	// the @cache-salt attribute.
	Salt string
	// UntaggedTTL caps the lifetime of results whose tables could not be
	// determined. Such results cannot be invalidated by writes and are not
	// cached at all when UntaggedTTL is zero.
	UntaggedTTL time.Duration
}

// Interceptor is a ngrok/sqlmw interceptor that caches SQL query results
// as snapshots and invalidates them when the tables they read are written.
type Interceptor struct {
	c           cache.Cacher
	onErr       func(error)
	log         logrus.FieldLogger
	keys        *cachekey.Assembler
	metrics     *metrics
	salt        string
	untaggedTTL time.Duration
	stats       Stats
	disabled    atomic.Bool
	sqlmw.NullInterceptor
}

// NewInterceptor returns a new instance of sqlsnap interceptor initialised
// with the provided config.
func NewInterceptor(config *Config) (*Interceptor, error) {
	if config == nil {
		return nil, fmt.Errorf("config can't be nil")
	}

	if config.Cache == nil {
		return nil, fmt.Errorf("cache must be set in Config")
	}

	log := config.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	m, err := newMetrics(config.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &Interceptor{
		c:           config.Cache,
		onErr:       config.OnError,
		log:         log,
		keys:        cachekey.NewAssembler(log),
		metrics:     m,
		salt:        config.Salt,
		untaggedTTL: config.UntaggedTTL,
	}, nil
}

// Driver returns d wrapped with the interceptor. Register the result with
// sql.Register to get a caching driver.
func (i *Interceptor) Driver(d driver.Driver) driver.Driver {
	return sqlmw.Driver(d, i)
}

// Enable enables the interceptor. Interceptor instance is enabled by default
// on creation.
func (i *Interceptor) Enable() {
	i.disabled.Store(false)
}

// Disable disables the interceptor resulting in cache bypass. All queries
// would go directly to the SQL backend. Writes still invalidate.
func (i *Interceptor) Disable() {
	i.disabled.Store(true)
}

// StmtQueryContext intecepts database/sql's stmt.QueryContext calls from a prepared statement.
func (i *Interceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.query(ctx, query, args, func() (driver.Rows, error) {
		return conn.QueryContext(ctx, args)
	})
}

// ConnQueryContext intecepts database/sql's DB.QueryContext Conn.QueryContext calls.
func (i *Interceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.query(ctx, query, args, func() (driver.Rows, error) {
		return conn.QueryContext(ctx, query, args)
	})
}

// StmtExecContext intecepts database/sql's stmt.ExecContext calls and
// invalidates the tables the statement writes.
func (i *Interceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := conn.ExecContext(ctx, args)
	if err != nil {
		return res, err
	}
	i.invalidate(ctx, query)
	return res, nil
}

// ConnExecContext intecepts database/sql's DB.ExecContext Conn.ExecContext
// calls and invalidates the tables the statement writes.
func (i *Interceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := conn.ExecContext(ctx, query, args)
	if err != nil {
		return res, err
	}
	i.invalidate(ctx, query)
	return res, nil
}

func (i *Interceptor) query(ctx context.Context, query string, args []driver.NamedValue, exec func() (driver.Rows, error)) (driver.Rows, error) {
	attrs := getAttrs(query)
	if attrs == nil || i.disabled.Load() {
		rows, err := exec()
		if err == nil && isWrite(query) {
			// INSERT ... RETURNING and friends
			i.invalidate(ctx, query)
		}
		return rows, err
	}

	d := i.keys.Assemble(stripAttrs(query), cachekey.ParamsFromNamed(args), policy(i.salt, attrs))

	if cached := i.checkCache(ctx, d.KeyHash); cached != nil {
		return cached, nil
	}

	rows, err := exec()
	if err != nil {
		return rows, err
	}

	return i.record(ctx, d, attrs, rows)
}

func policy(salt string, attrs *attributes) cachekey.Policy {
	if attrs.salt != "" {
		salt += "\x00" + attrs.salt
	}
	return cachekey.Policy{Salt: salt, Dependencies: attrs.deps}
}

// Describe returns the descriptor an Interceptor configured with salt
// would look query and args up with. It returns false when query carries
// no cache attributes and would not be cached at all.
func Describe(query string, args []driver.NamedValue, salt string) (cachekey.Descriptor, bool) {
	attrs := getAttrs(query)
	if attrs == nil {
		return cachekey.Descriptor{}, false
	}
	return describer.Assemble(stripAttrs(query), cachekey.ParamsFromNamed(args), policy(salt, attrs)), true
}

var describer = cachekey.NewAssembler(nil)

func (i *Interceptor) checkCache(ctx context.Context, key string) driver.Rows {
	snap, ok, err := i.c.Get(ctx, key)
	if err != nil {
		i.fail(ctx, "get", fmt.Errorf("Cache.Get failed: %w", err))
		return nil
	}

	if !ok || snap == nil {
		atomic.AddUint64(&i.stats.Misses, 1)
		i.metrics.miss(ctx)
		return nil
	}
	atomic.AddUint64(&i.stats.Hits, 1)
	i.metrics.hit(ctx)

	return newRowsCached(snap)
}

// entryTTL returns the lifetime of a new entry and whether it may be stored.
func (i *Interceptor) entryTTL(d cachekey.Descriptor, attrs *attributes) (time.Duration, bool) {
	ttl := time.Duration(attrs.ttl) * time.Second
	if d.Cacheable() {
		return ttl, true
	}
	if i.untaggedTTL <= 0 {
		return 0, false
	}
	if ttl == 0 || ttl > i.untaggedTTL {
		ttl = i.untaggedTTL
	}
	return ttl, true
}

func (i *Interceptor) invalidate(ctx context.Context, query string) {
	tags := cachekey.Dependencies(stripAttrs(query), cachekey.Policy{Dependencies: getDepsAttr(query)})
	if len(tags) == 0 {
		return
	}

	if err := i.c.Invalidate(ctx, tags...); err != nil {
		i.fail(ctx, "invalidate", fmt.Errorf("Cache.Invalidate failed: %w", err))
		return
	}

	atomic.AddUint64(&i.stats.Invalidations, uint64(len(tags)))
	i.metrics.invalidated(ctx, tags)
	i.log.WithField("tags", tags).Debug("cache invalidated")
}

func (i *Interceptor) fail(ctx context.Context, op string, err error) {
	atomic.AddUint64(&i.stats.Errors, 1)
	i.metrics.failed(ctx, op)
	i.log.WithError(err).Warn("cache backend failure")
	if i.onErr != nil {
		i.onErr(err)
	}
}

var writeVerbs = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"REPLACE": true, "TRUNCATE": true,
}

// isWrite reports whether query starts with a data modifying verb, ignoring
// leading comments. A WITH statement is a write when any of its words is a
// write verb other than the UPDATE of a locking FOR UPDATE.
func isWrite(query string) bool {
	q := stripAttrs(query)
	for strings.HasPrefix(q, "--") || strings.HasPrefix(q, "/*") {
		var rest string
		var found bool
		if strings.HasPrefix(q, "--") {
			_, rest, found = strings.Cut(q, "\n")
		} else {
			_, rest, found = strings.Cut(q, "*/")
		}
		if !found {
			return false
		}
		q = strings.TrimSpace(rest)
	}

	words := strings.FieldsFunc(strings.ToUpper(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) == 0 {
		return false
	}
	if words[0] != "WITH" {
		return writeVerbs[words[0]]
	}
	for n, w := range words[1:] {
		if writeVerbs[w] && !(w == "UPDATE" && words[n] == "FOR") {
			return true
		}
	}
	return false
}

// Stats contains sqlsnap statistics.
type Stats struct {
	Hits   uint64
	Misses uint64
	Errors uint64
	// Skipped counts results that were served but not stored: too many
	// rows, no known tables or duplicate column names.
	Skipped uint64
	// Invalidations counts tags invalidated by writes.
	Invalidations uint64
}

// Stats returns sqlsnap stats.
func (i *Interceptor) Stats() *Stats {
	return &Stats{
		Hits:          atomic.LoadUint64(&i.stats.Hits),
		Misses:        atomic.LoadUint64(&i.stats.Misses),
		Errors:        atomic.LoadUint64(&i.stats.Errors),
		Skipped:       atomic.LoadUint64(&i.stats.Skipped),
		Invalidations: atomic.LoadUint64(&i.stats.Invalidations),
	}
}
