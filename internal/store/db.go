package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// timeLayout is fixed width so TEXT columns sort chronologically on both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type DB struct {
	Pool   *sql.DB
	driver Driver
}

// Open connects with driver "sqlite" (dsn is a file path) or "postgres"
// (dsn is a lib/pq connection string or URL).
func Open(driver, dsn string) (*DB, error) {
	var (
		pool *sql.DB
		err  error
	)
	switch Driver(driver) {
	case DriverSQLite, "":
		// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
		pool, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dsn))
		if err != nil {
			return nil, err
		}
		// sqlite typically wants 1 writer
		pool.SetMaxOpenConns(1)
		driver = string(DriverSQLite)
	case DriverPostgres:
		pool, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		pool.SetMaxOpenConns(10)
		pool.SetMaxIdleConns(5)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &DB{Pool: pool, driver: Driver(driver)}, nil
}

func (d *DB) Driver() Driver { return d.driver }

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *DB) rebind(q string) string {
	if d.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
