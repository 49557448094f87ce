// Package sqlite implements the repository interfaces on top of SQLite.
//
// It uses modernc.org/sqlite, a pure Go translation of SQLite, so the binary
// builds without a C toolchain. One *DB is opened per process and shared by
// every service; database/sql pools the connections.
//
// Storage conventions:
//   - every timestamp is an INTEGER holding UTC unix milliseconds and is read
//     back as a UTC time.Time
//   - uniqueness (users.email, users.token, progress(user_id, lesson_id),
//     quizzes.lesson_id) is enforced by constraints, never by read-then-write
//   - foreign keys are on, and deleting a lesson or user cascades to the rows
//     it owns
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// busyTimeoutMillis is how long a connection waits on a locked database
// before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// New opens the database at dbPath and applies any pending migrations.
//
// dbPath examples:
//   - "data/codewizard.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open connects to dbPath without touching the schema.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// CONNECTION POOL:
	// sql.DB is a pool, not a single connection. For a file database the
	// pool grows as needed and busy_timeout makes writers queue on the lock
	// instead of failing with SQLITE_BUSY.
	if isMemory(dbPath) {
		// Each connection to ":memory:" is a separate database. Pin the pool
		// to one connection so every query sees the same schema.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. The setting is
	// persistent in the file, so one Exec is enough.
	if !isMemory(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// dsn appends per-connection pragmas. foreign_keys and busy_timeout are
// connection-scoped in SQLite, so they must ride on the DSN rather than a
// one-off Exec that would only reach one pooled connection.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", dbPath, sep, busyTimeoutMillis)
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.HasPrefix(dbPath, ":memory:?") || strings.Contains(dbPath, "mode=memory")
}

// toMillis converts t to UTC unix milliseconds for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// fromMillis converts stored UTC unix milliseconds back to a UTC time.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// timestamp returns the current time truncated to the stored precision, so
// values handed back to callers equal what a later read returns.
func (db *DB) timestamp() time.Time {
	return fromMillis(toMillis(db.now()))
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
