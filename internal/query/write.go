package query

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Update writes every non-key column of rec to the row with rec's key and
// returns rows affected. No matching row is not an error.
func (e *Engine) Update(ctx context.Context, x Executor, t *schema.Table, rec any) (int64, error) {
	rv, err := t.Indirect(rec)
	if err != nil {
		return 0, err
	}
	pk, err := t.RequireKey()
	if err != nil {
		return 0, err
	}
	if !pk.IsSet(rv) {
		return 0, errors.Wrapf(types.ErrKeyUnset, "table %s", t.Name)
	}
	cols := t.NonKeyColumns()
	if len(cols) == 0 {
		return 0, nil
	}
	args, err := values(append(cols, pk), rv)
	if err != nil {
		return 0, err
	}
	res, err := e.exec(ctx, x, types.OpUpdate, t.Name, updateSQL(t, cols), args...)
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "rows affected")
}

// Save inserts rec when its key is unset, or the table has no key, and
// updates it otherwise.
func (e *Engine) Save(ctx context.Context, x Executor, t *schema.Table, rec any) (int64, error) {
	rv, err := t.Indirect(rec)
	if err != nil {
		return 0, err
	}
	if pk, ok := t.PrimaryKey(); !ok || !pk.IsSet(rv) {
		return e.Insert(ctx, x, t, rec)
	}
	return e.Update(ctx, x, t, rec)
}

// Delete removes the row whose key is id. Deleting a missing row succeeds.
func (e *Engine) Delete(ctx context.Context, x Executor, t *schema.Table, id any) error {
	if _, err := t.RequireKey(); err != nil {
		return err
	}
	_, err := e.exec(ctx, x, types.OpDelete, t.Name, deleteSQL(t), id)
	return errors.Wrap(err, "delete")
}

// CreateTable creates t if it does not exist.
func (e *Engine) CreateTable(ctx context.Context, x Executor, t *schema.Table) error {
	_, err := e.exec(ctx, x, types.OpCreateTable, t.Name, schema.CreateTableSQL(t, e.driver))
	return errors.Wrap(err, "create table")
}
