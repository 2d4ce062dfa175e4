package schema

import (
	"reflect"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// tagName is the struct tag consulted for field options. Only "-" is
// recognized; it excludes the field. Unexported fields must carry it.
const tagName = "db"

// Build derives the Table for a struct type or a pointer to one. It never
// returns a partially built Table.
func Build(t reflect.Type) (*Table, error) {
	if t == nil {
		return nil, types.ErrNotStruct
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(types.ErrNotStruct, "%s", t)
	}
	if t.Name() == "" {
		return nil, errors.Wrapf(types.ErrUnnamedType, "%s", t)
	}

	tbl := &Table{
		Name: lowerName(t.Name()),
		Type: t,
		pk:   -1,
	}
	seen := make(map[string]string)
	// Index prefixes of embedded fields mapped as a single column; their
	// promoted fields are not columns.
	var opaque [][]int

	for _, f := range reflect.VisibleFields(t) {
		if underAny(f.Index, opaque) {
			continue
		}
		if f.Tag.Get(tagName) == "-" {
			if f.Anonymous {
				opaque = append(opaque, f.Index)
			}
			continue
		}
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct {
				return nil, errors.Wrapf(types.ErrUnsupportedField, "embedded pointer %s in %s", f.Name, t)
			}
			if _, _, ok := classify(ft); !ok && ft.Kind() == reflect.Struct {
				// Promoted fields follow in VisibleFields.
				continue
			}
			opaque = append(opaque, f.Index)
		}
		if !f.IsExported() {
			return nil, errors.Wrapf(types.ErrUnsupportedField, "build %s: field %s is unexported", t, f.Name)
		}

		col, err := bindColumn(f)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s", t)
		}
		if prev, dup := seen[col.Name]; dup {
			return nil, errors.Wrapf(types.ErrDuplicateColumn, "%s: fields %s and %s both map to %q", t, prev, f.Name, col.Name)
		}
		seen[col.Name] = f.Name
		if col.Name == types.PrimaryKeyColumn {
			tbl.pk = len(tbl.Columns)
		}
		tbl.Columns = append(tbl.Columns, col)
	}

	if len(tbl.Columns) == 0 {
		return nil, errors.Wrapf(types.ErrNoColumns, "%s", t)
	}
	return tbl, nil
}

// underAny reports whether index lies strictly inside one of the prefixes.
func underAny(index []int, prefixes [][]int) bool {
	for _, p := range prefixes {
		if len(index) > len(p) && slices.Equal(index[:len(p)], p) {
			return true
		}
	}
	return false
}

func lowerName(s string) string {
	return strings.ToLower(s)
}
