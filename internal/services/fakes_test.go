package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
)

type fakeCommandTag struct {
	rowsAffected int64
}

func (f fakeCommandTag) RowsAffected() int64 { return f.rowsAffected }

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scanFunc == nil {
		return pgx.ErrNoRows
	}
	return r.scanFunc(dest...)
}

func rowFromValues(values ...any) fakeRow {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

func errRow(err error) fakeRow {
	return fakeRow{scanFunc: func(dest ...any) error { return err }}
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return errors.New("scan called without row")
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return r.err }

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, errors.New("begin not configured")
	}
	return f.BeginFunc(ctx)
}

type fakeTx struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	committed  bool
	rolledBack bool
	execSQL    []string
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	if f.ExecFunc == nil {
		return fakeCommandTag{rowsAffected: 1}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc != nil {
		if err := f.CommitFunc(ctx); err != nil {
			return err
		}
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	if f.RollbackFunc != nil {
		return f.RollbackFunc(ctx)
	}
	return nil
}

func dbWithTx(tx *fakeTx) *fakeDB {
	return &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil }}
}

type fakeRedis struct {
	setKey     string
	setValue   any
	setTTL     time.Duration
	setErr     error
	exists     map[string]bool
	existsErr  error
	published  []publishedMessage
	publishErr error
}

type publishedMessage struct {
	channel string
	message any
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	f.setKey = key
	f.setValue = value
	f.setTTL = expiration
	return f.setErr
}

func (f *fakeRedis) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists[key], nil
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) error {
	f.published = append(f.published, publishedMessage{channel: channel, message: message})
	return f.publishErr
}

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(values), len(dest))
	}
	for i, d := range dest {
		if err := assignValue(d, values[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assignValue(dest any, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	target := dv.Elem()

	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target.Type()) {
		target.Set(v)
		return nil
	}
	if target.Kind() == reflect.Pointer && v.Type().AssignableTo(target.Type().Elem()) {
		ptr := reflect.New(target.Type().Elem())
		ptr.Elem().Set(v)
		target.Set(ptr)
		return nil
	}
	if v.Kind() == target.Kind() && v.Type().ConvertibleTo(target.Type()) {
		target.Set(v.Convert(target.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, target.Type())
}
