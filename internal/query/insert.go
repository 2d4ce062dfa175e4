package query

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// BatchError reports the record that stopped a bulk insert.
type BatchError struct {
	Index    int // position of the failing record
	Inserted int // records stored before the failure
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("record %d (%d inserted before failure): %v", e.Index, e.Inserted, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// insertPlan is the statement shape and arguments for one record.
type insertPlan struct {
	sql       string
	args      []any
	generated bool // the store assigns an integer key
	key       any  // locally generated key to write back, if any
	pk        *schema.Column
}

// planInsert decides how rec is inserted. An unset integer key is left to the
// store; an unset string key gets a UUIDv7; anything else inserts every column
// as given.
func (e *Engine) planInsert(t *schema.Table, rv reflect.Value) (insertPlan, error) {
	pk, hasKey := t.PrimaryKey()
	if hasKey && !pk.IsSet(rv) && pk.Kind == schema.Integer {
		cols := t.NonKeyColumns()
		args, err := values(cols, rv)
		if err != nil {
			return insertPlan{}, err
		}
		return insertPlan{
			sql:       e.insertSQL(t, cols, e.returning()),
			args:      args,
			generated: true,
			pk:        pk,
		}, nil
	}

	cols := t.AllColumns()
	args, err := values(cols, rv)
	if err != nil {
		return insertPlan{}, err
	}
	p := insertPlan{sql: e.insertSQL(t, cols, false), args: args, pk: pk}
	if hasKey && !pk.IsSet(rv) && pk.Kind == schema.Text {
		id, err := uuid.NewV7()
		if err != nil {
			return insertPlan{}, errors.Wrap(err, "generate key")
		}
		p.key = id.String()
		for i, c := range cols {
			if c == pk {
				p.args[i] = p.key
			}
		}
	}
	return p, nil
}

// values reads cols from rv as statement arguments.
func values(cols []*schema.Column, rv reflect.Value) ([]any, error) {
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := c.Get(rv)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// writeKey stores a key in rv when the caller passed a pointer.
func writeKey(pk *schema.Column, rv reflect.Value, key any) error {
	if !rv.CanAddr() {
		return nil
	}
	return errors.Wrap(pk.Set(rv, key), "write back key")
}

// inserter runs insert plans, optionally through prepared statements that are
// reused across records of the same shape.
type inserter struct {
	e       *Engine
	x       Executor
	table   string
	op      string
	prepare bool
	stmts   map[string]*sql.Stmt
}

func (in *inserter) stmt(ctx context.Context, q string) (*sql.Stmt, error) {
	if s, ok := in.stmts[q]; ok {
		return s, nil
	}
	s, err := in.x.PrepareContext(ctx, in.e.rebind(q))
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert")
	}
	if in.stmts == nil {
		in.stmts = make(map[string]*sql.Stmt)
	}
	in.stmts[q] = s
	return s, nil
}

func (in *inserter) close() error {
	var err error
	for _, s := range in.stmts {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// run executes p and writes any key back into rv. It returns rows affected.
func (in *inserter) run(ctx context.Context, p insertPlan, rv reflect.Value) (int64, error) {
	if p.generated && in.e.returning() {
		var id int64
		if err := in.queryRow(ctx, p).Scan(&id); err != nil {
			return 0, errors.Wrap(err, "insert")
		}
		return 1, writeKey(p.pk, rv, id)
	}

	res, err := in.exec(ctx, p)
	if err != nil {
		return 0, errors.Wrap(err, "insert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	switch {
	case p.generated:
		id, err := res.LastInsertId()
		if err != nil {
			return n, errors.Wrap(err, "read generated key")
		}
		return n, writeKey(p.pk, rv, id)
	case p.key != nil:
		return n, writeKey(p.pk, rv, p.key)
	}
	return n, nil
}

func (in *inserter) exec(ctx context.Context, p insertPlan) (sql.Result, error) {
	if !in.prepare {
		return in.e.exec(ctx, in.x, in.op, in.table, p.sql, p.args...)
	}
	s, err := in.stmt(ctx, p.sql)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.ExecContext(ctx, p.args...)
	in.e.observe(in.op, in.table, p.sql, len(p.args), start, err)
	return res, err
}

// rowScanner is satisfied by *sql.Row and by rowResult.
type rowScanner interface {
	Scan(dest ...any) error
}

func (in *inserter) queryRow(ctx context.Context, p insertPlan) rowScanner {
	if in.prepare {
		s, err := in.stmt(ctx, p.sql)
		if err != nil {
			return rowResult{err: err}
		}
		start := time.Now()
		row := s.QueryRowContext(ctx, p.args...)
		in.e.observe(in.op, in.table, p.sql, len(p.args), start, row.Err())
		return row
	}
	rows, err := in.e.query(ctx, in.x, in.op, in.table, p.sql, p.args...)
	if err != nil {
		return rowResult{err: err}
	}
	return rowResult{rows: rows}
}

// rowResult adapts *sql.Rows to a single-row scan.
type rowResult struct {
	rows *sql.Rows
	err  error
}

func (r rowResult) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := r.rows.Scan(dest...); err != nil {
		return err
	}
	return r.rows.Close()
}

// Insert stores rec and returns rows affected. Keys assigned during the
// insert are written back when rec is a pointer.
func (e *Engine) Insert(ctx context.Context, x Executor, t *schema.Table, rec any) (int64, error) {
	rv, err := t.Indirect(rec)
	if err != nil {
		return 0, err
	}
	p, err := e.planInsert(t, rv)
	if err != nil {
		return 0, err
	}
	in := &inserter{e: e, x: x, table: t.Name, op: types.OpInsert}
	return in.run(ctx, p, rv)
}

// BulkInsert stores recs in order on x, reusing one prepared statement per
// statement shape. Each record is one statement execution so its key can be
// written back. The first failure stops the batch and is returned as a
// *BatchError; records stored before it stay stored.
func (e *Engine) BulkInsert(ctx context.Context, x Executor, t *schema.Table, recs []any) (err error) {
	if len(recs) == 0 {
		return nil
	}
	in := &inserter{e: e, x: x, table: t.Name, op: types.OpInsertAll, prepare: true}
	defer func() {
		err = multierr.Append(err, in.close())
	}()

	for i, rec := range recs {
		if err := e.insertAt(ctx, in, t, rec); err != nil {
			return &BatchError{Index: i, Inserted: i, Err: err}
		}
	}
	return nil
}

func (e *Engine) insertAt(ctx context.Context, in *inserter, t *schema.Table, rec any) error {
	rv, err := t.Indirect(rec)
	if err != nil {
		return err
	}
	p, err := e.planInsert(t, rv)
	if err != nil {
		return err
	}
	_, err = in.run(ctx, p, rv)
	return err
}
