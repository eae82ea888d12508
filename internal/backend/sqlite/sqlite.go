// Package sqlite is the local backend: one SQLite file with the same tables as the
// hosted database. Every committed write is published as a realtime.Event.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"parrillas/internal/backend"
	"parrillas/internal/realtime"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Publisher interface {
	Publish(e realtime.Event)
}

type DB struct {
	db    *sql.DB
	pub   Publisher
	now   func() time.Time
	newID func() string
}

type Option func(*DB)

func WithPublisher(p Publisher) Option { return func(d *DB) { d.pub = p } }

func WithClock(now func() time.Time) Option { return func(d *DB) { d.now = now } }

var _ backend.Backend = (*DB)(nil)

func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps PRAGMA data_version meaningful and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	d := &DB{db: db, now: time.Now, newID: func() string { return uuid.NewString() }}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

// DataVersion changes whenever another connection (usually another process) commits.
func (d *DB) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := d.db.QueryRowContext(ctx, "PRAGMA data_version;").Scan(&v)
	return v, err
}

func (d *DB) stamp() (time.Time, string) {
	t := d.now().UTC()
	return t, t.Format(timeLayout)
}

func (d *DB) publish(table string, typ realtime.EventType, newRow, oldRow any) {
	if d.pub == nil {
		return
	}
	e := realtime.Event{Table: table, Type: typ, CommitTimestamp: d.now().UTC()}
	if newRow != nil {
		e.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		e.Old, _ = json.Marshal(oldRow)
	}
	d.pub.Publish(e)
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func readRows[T any](ctx context.Context, db *sql.DB, query string, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func null(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return *s
}

func affected(res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return backend.NotFoundError{Table: table, ID: id}
	}
	return nil
}
