// Package querylog records the SQL statements an application executes so
// that error reports can include them in their database section.
//
// Wrap each *sql.DB with a Registry and run statements through the returned
// *DB. The Registry implements er2.QuerySource.
//
//	reg := querylog.NewRegistry()
//	db := reg.Wrap("main", sqlDB)
//	rows, err := db.QueryContext(ctx, "SELECT ...")
//	snap := &er2.Snapshot{Queries: reg}
package querylog

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLimit keeps only the most recent n statements per connection.
// Zero or a negative n keeps everything.
func WithLimit(n int) RegistryOption {
	return func(r *Registry) {
		r.limit = n
	}
}

// Registry holds executed statements keyed by connection name, in
// execution order. It is safe for concurrent use.
type Registry struct {
	limit int

	mu      sync.Mutex
	queries map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{queries: make(map[string][]string)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends query to conn's history.
func (r *Registry) Record(conn, query string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.queries[conn], query)
	if r.limit > 0 && len(list) > r.limit {
		list = append([]string(nil), list[len(list)-r.limit:]...)
	}
	r.queries[conn] = list
}

// ExecutedQueries returns a copy of every connection's history.
func (r *Registry) ExecutedQueries() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]string, len(r.queries))
	for conn, list := range r.queries {
		out[conn] = append([]string(nil), list...)
	}
	return out
}

// Reset forgets every recorded statement, e.g. at the end of a request.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = make(map[string][]string)
}

// Wrap returns a recording handle for db under the connection name.
func (r *Registry) Wrap(name string, db *sql.DB) *DB {
	return &DB{db: db, name: name, registry: r}
}

// DB records every statement before handing it to the wrapped *sql.DB.
// Statements are recorded even when they fail.
type DB struct {
	db       *sql.DB
	name     string
	registry *Registry
}

// Name is the connection name statements are recorded under.
func (d *DB) Name() string { return d.name }

// Unwrap returns the underlying handle. Statements run on it are not recorded.
func (d *DB) Unwrap() *sql.DB { return d.db }

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.registry.Record(d.name, query)
	return d.db.ExecContext(ctx, query, args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.registry.Record(d.name, query)
	return d.db.QueryContext(ctx, query, args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	d.registry.Record(d.name, query)
	return d.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction whose statements are recorded under the
// same connection name.
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "beginning transaction on '%s'", d.name)
	}
	return &Tx{tx: tx, name: d.name, registry: d.registry}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Tx is a recording transaction.
type Tx struct {
	tx       *sql.Tx
	name     string
	registry *Registry
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.registry.Record(t.name, query)
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	t.registry.Record(t.name, query)
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	t.registry.Record(t.name, query)
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
