package query

import (
	"database/sql"
	"reflect"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/internal/schema"
)

// scanRows hydrates every row of a selectSQL result into a fresh *T, returned
// as reflect.Values holding pointers. rows is closed.
func scanRows(rows *sql.Rows, t *schema.Table) (out []reflect.Value, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close rows")
		}
	}()

	raw := make([]any, len(t.Columns))
	dest := make([]any, len(t.Columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		rec, err := hydrate(t, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}

// hydrate builds a new record from one row of driver values in column order.
func hydrate(t *schema.Table, raw []any) (reflect.Value, error) {
	ptr := t.New()
	rv := ptr.Elem()
	for i := range t.Columns {
		if err := t.Columns[i].Set(rv, raw[i]); err != nil {
			return reflect.Value{}, errors.Wrapf(err, "hydrate %s", t.Name)
		}
	}
	return ptr, nil
}
