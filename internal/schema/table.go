// Package schema derives table descriptors from Go struct types and caches
// them per type name.
package schema

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Table describes how a struct type maps to a SQL table. A Table is immutable
// once Build returns it.
type Table struct {
	Name    string       // lower-cased type name
	Type    reflect.Type // struct type
	Columns []Column     // declaration order

	pk int // index into Columns, -1 without a primary key
}

// PrimaryKey returns the primary key column, if the table has one.
func (t *Table) PrimaryKey() (*Column, bool) {
	if t.pk < 0 {
		return nil, false
	}
	return &t.Columns[t.pk], true
}

// RequireKey returns the primary key column or a descriptive error.
func (t *Table) RequireKey() (*Column, error) {
	pk, ok := t.PrimaryKey()
	if !ok {
		return nil, errors.Wrapf(types.ErrNoPrimaryKey, "table %s has no %q column", t.Name, types.PrimaryKeyColumn)
	}
	return pk, nil
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames lists the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// NonKeyColumns returns every column except the primary key, in order.
func (t *Table) NonKeyColumns() []*Column {
	cols := make([]*Column, 0, len(t.Columns))
	for i := range t.Columns {
		if i != t.pk {
			cols = append(cols, &t.Columns[i])
		}
	}
	return cols
}

// AllColumns returns pointers to every column, in order.
func (t *Table) AllColumns() []*Column {
	cols := make([]*Column, len(t.Columns))
	for i := range t.Columns {
		cols[i] = &t.Columns[i]
	}
	return cols
}

// New allocates a zero record and returns a pointer to it.
func (t *Table) New() reflect.Value {
	return reflect.New(t.Type)
}

// Indirect returns the struct value held by rec, which may be a struct or a
// pointer to one. The result is addressable only when rec is a pointer.
func (t *Table) Indirect(rec any) (reflect.Value, error) {
	rv := reflect.ValueOf(rec)
	if !rv.IsValid() {
		return reflect.Value{}, types.ErrNilRecord
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, types.ErrNilRecord
		}
		rv = rv.Elem()
	}
	if rv.Type() != t.Type {
		return reflect.Value{}, errors.Wrapf(types.ErrTypeMismatch, "%s is not %s", rv.Type(), t.Type)
	}
	return rv, nil
}
