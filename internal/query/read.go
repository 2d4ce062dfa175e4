package query

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// RecordError reports the position of the record an operation failed on.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Get loads the record whose key is id. A missing row returns ok == false and
// no error.
func (e *Engine) Get(ctx context.Context, x Executor, t *schema.Table, id any) (reflect.Value, bool, error) {
	if _, err := t.RequireKey(); err != nil {
		return reflect.Value{}, false, err
	}
	recs, err := e.selectWhere(ctx, x, types.OpGet, t, whereEq([]string{types.PrimaryKeyColumn}), id)
	if err != nil || len(recs) == 0 {
		return reflect.Value{}, false, err
	}
	return recs[0], true, nil
}

// All loads every row of t in store order.
func (e *Engine) All(ctx context.Context, x Executor, t *schema.Table) ([]reflect.Value, error) {
	return e.selectWhere(ctx, x, types.OpAll, t, "")
}

// Find loads the rows of target that equal every field set in filter. filter
// is a record described by ft; fields at their zero value, and nil pointers,
// do not constrain the result. A filter without set fields matches every row.
func (e *Engine) Find(ctx context.Context, x Executor, target, ft *schema.Table, filter any) ([]reflect.Value, error) {
	fv, err := ft.Indirect(filter)
	if err != nil {
		return nil, err
	}
	var cols []string
	var args []any
	for i := range ft.Columns {
		c := &ft.Columns[i]
		if !c.IsSet(fv) {
			continue
		}
		if _, ok := target.Column(c.Name); !ok {
			return nil, errors.Wrapf(types.ErrUnknownColumn, "filter field %s has no column in %s", c.Field, target.Name)
		}
		v, err := c.Get(fv)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}
	where := ""
	if len(cols) > 0 {
		where = whereEq(cols)
	}
	return e.selectWhere(ctx, x, types.OpFind, target, where, args...)
}

// Refresh reloads recs by key and returns the stored versions in input order.
// Records with no stored row, including those whose key is unset, leave an
// invalid Value in their slot and add a not-found error to the returned
// error. A nil record fails the whole call with a *RecordError.
func (e *Engine) Refresh(ctx context.Context, x Executor, t *schema.Table, recs []any) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(recs))
	if len(recs) == 0 {
		return out, nil
	}
	pk, err := t.RequireKey()
	if err != nil {
		return nil, err
	}

	positions := make(map[any][]int, len(recs))
	var keys []any
	for i, rec := range recs {
		rv, err := t.Indirect(rec)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		if !pk.IsSet(rv) {
			continue
		}
		match, err := pk.Value(rv)
		if err != nil {
			return nil, &RecordError{Index: i, Err: err}
		}
		if _, seen := positions[match]; !seen {
			arg, err := pk.Get(rv)
			if err != nil {
				return nil, &RecordError{Index: i, Err: err}
			}
			keys = append(keys, arg)
		}
		positions[match] = append(positions[match], i)
	}

	if len(keys) > 0 {
		q, args, err := sqlx.In(selectSQL(t)+" WHERE "+types.PrimaryKeyColumn+" IN (?)", keys)
		if err != nil {
			return nil, errors.Wrap(err, "expand keys")
		}
		rows, err := e.query(ctx, x, types.OpRefresh, t.Name, q, args...)
		if err != nil {
			return nil, errors.Wrap(err, "select")
		}
		found, err := scanRows(rows, t)
		if err != nil {
			return nil, err
		}
		for _, rec := range found {
			match, err := pk.Value(rec.Elem())
			if err != nil {
				return nil, err
			}
			for n, i := range positions[match] {
				if n == 0 {
					out[i] = rec
					continue
				}
				dup := t.New()
				dup.Elem().Set(rec.Elem())
				out[i] = dup
			}
		}
	}

	var misses error
	for i := range out {
		if !out[i].IsValid() {
			misses = multierr.Append(misses, &RecordError{Index: i, Err: types.ErrNotFound})
		}
	}
	return out, misses
}

// selectWhere runs selectSQL(t) followed by where and hydrates the result.
func (e *Engine) selectWhere(ctx context.Context, x Executor, op string, t *schema.Table, where string, args ...any) ([]reflect.Value, error) {
	rows, err := e.query(ctx, x, op, t.Name, selectSQL(t)+where, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select")
	}
	return scanRows(rows, t)
}
