package yorm

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// tableOf resolves the descriptor for T, which must be a struct type.
func tableOf[T any](d *DB) (*schema.Table, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, errors.Wrapf(types.ErrNotStruct, "type parameter %s", rt)
	}
	return d.cache.GetOrBuild(rt)
}

func collect[T any](vals []reflect.Value) []*T {
	out := make([]*T, len(vals))
	for i, v := range vals {
		if v.IsValid() {
			out[i] = v.Interface().(*T)
		}
	}
	return out
}

// InsertAll inserts recs in order with one prepared statement per statement
// shape. Generated keys are written into recs. The first failure stops the
// batch; its *types.Error carries the record's Index and the number of
// records Inserted before it, which stay stored. An empty slice does nothing.
func InsertAll[T any](ctx context.Context, d *DB, recs []T) error {
	t, err := tableOf[T](d)
	if err != nil {
		return d.fail(types.OpInsertAll, "", err)
	}
	if len(recs) == 0 {
		return nil
	}
	in := make([]any, len(recs))
	for i := range recs {
		in[i] = &recs[i]
	}
	return d.fail(types.OpInsertAll, t.Name, d.engine.BulkInsert(ctx, d.x, t, in))
}

// Get loads the T whose key is id. A missing row returns ok == false and a
// nil error.
func Get[T any](ctx context.Context, d *DB, id any) (rec *T, ok bool, err error) {
	t, err := tableOf[T](d)
	if err != nil {
		return nil, false, d.fail(types.OpGet, "", err)
	}
	v, ok, err := d.engine.Get(ctx, d.x, t, id)
	if err != nil || !ok {
		return nil, false, d.fail(types.OpGet, t.Name, err)
	}
	return v.Interface().(*T), true, nil
}

// All loads every stored T, in no particular order.
func All[T any](ctx context.Context, d *DB) ([]*T, error) {
	t, err := tableOf[T](d)
	if err != nil {
		return nil, d.fail(types.OpAll, "", err)
	}
	vals, err := d.engine.All(ctx, d.x, t)
	if err != nil {
		return nil, d.fail(types.OpAll, t.Name, err)
	}
	return collect[T](vals), nil
}

// Find loads every stored T equal to filter on each field filter has set.
// filter may be a value or pointer of any struct type; each of its set
// fields must name a column of T. Zero fields and nil pointers are ignored,
// so an empty filter matches everything.
func Find[T any](ctx context.Context, d *DB, filter any) ([]*T, error) {
	t, err := tableOf[T](d)
	if err != nil {
		return nil, d.fail(types.OpFind, "", err)
	}
	ft, err := d.table(filter)
	if err != nil {
		return nil, d.fail(types.OpFind, t.Name, errors.Wrap(err, "filter"))
	}
	vals, err := d.engine.Find(ctx, d.x, t, ft, filter)
	if err != nil {
		return nil, d.fail(types.OpFind, t.Name, err)
	}
	return collect[T](vals), nil
}

// Refresh reloads recs from the store in one query. The result has one slot
// per input, in input order; records without a stored row, or without a key,
// leave a nil slot and add a record-not-found cause to the returned error.
// Results and error are returned together. A nil record fails the call.
func Refresh[T any](ctx context.Context, d *DB, recs []*T) ([]*T, error) {
	t, err := tableOf[T](d)
	if err != nil {
		return nil, d.fail(types.OpRefresh, "", err)
	}
	in := make([]any, len(recs))
	for i, r := range recs {
		in[i] = r
	}
	vals, err := d.engine.Refresh(ctx, d.x, t, in)
	if vals == nil {
		return nil, d.fail(types.OpRefresh, t.Name, err)
	}
	out := collect[T](vals)
	if err != nil {
		d.log.Debug("refresh misses", zap.String("table", t.Name), zap.Error(err))
		return out, types.NewError(types.OpRefresh, t.Name, err)
	}
	return out, nil
}

// Delete removes the T whose key is id. Deleting a missing row succeeds.
func Delete[T any](ctx context.Context, d *DB, id any) error {
	t, err := tableOf[T](d)
	if err != nil {
		return d.fail(types.OpDelete, "", err)
	}
	return d.fail(types.OpDelete, t.Name, d.engine.Delete(ctx, d.x, t, id))
}
