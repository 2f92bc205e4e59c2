package repo

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"contentstudio/internal/infra"
)

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// tableRows serves canned column values to pgxscan.
type tableRows struct {
	testRowsBase
	columns []string
	data    [][]any
	pos     int
}

func newTableRows(columns []string, data ...[]any) *tableRows {
	return &tableRows{columns: columns, data: data, pos: -1}
}

func (r *tableRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

func (r *tableRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *tableRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *tableRows) Err() error { return nil }

func (r *tableRows) Close() {}

type execCall struct {
	query string
	args  []any
}

// fakeStore routes queries by their leading marker to canned rows.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]func(args []any) pgx.Rows
	execs   []execCall
	txCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]func(args []any) pgx.Rows)}
}

func (f *fakeStore) on(query string, fn func(args []any) pgx.Rows) {
	f.rows[firstLine(query)] = fn
}

func (f *fakeStore) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, execCall{query: firstLine(query), args: args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeStore) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("QueryRow not expected")
}

func (f *fakeStore) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	fn, ok := f.rows[firstLine(query)]
	if !ok {
		return newTableRows(nil), nil
	}
	return fn(args), nil
}

func (f *fakeStore) InTx(_ context.Context, fn func(infra.SQLExecutor) error) error {
	f.mu.Lock()
	f.txCount++
	f.mu.Unlock()
	return fn(f)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
