package schema

import (
	"database/sql"
	"database/sql/driver"
	"math"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Kind is the semantic type of a column.
type Kind int

// Column kinds.
const (
	Integer Kind = iota + 1
	Real
	Text
	Boolean
	Blob
	Timestamp
	Custom
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Blob:
		return "blob"
	case Timestamp:
		return "timestamp"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	scannerType = reflect.TypeFor[sql.Scanner]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
)

// Column maps one struct field to one SQL column.
type Column struct {
	Name     string // lower-cased field name
	Field    string // Go field name
	Kind     Kind
	Nullable bool  // field is a pointer; nil stores NULL
	Index    []int // field index path for reflect.Value.FieldByIndex

	typ reflect.Type // declared field type
}

// bindColumn derives the column for field f, failing when the field type has
// no column kind.
func bindColumn(f reflect.StructField) (Column, error) {
	kind, nullable, ok := classify(f.Type)
	if !ok {
		return Column{}, errors.Wrapf(types.ErrUnsupportedField, "field %s has type %s", f.Name, f.Type)
	}
	return Column{
		Name:     lowerName(f.Name),
		Field:    f.Name,
		Kind:     kind,
		Nullable: nullable,
		Index:    append([]int(nil), f.Index...),
		typ:      f.Type,
	}, nil
}

// classify reports the column kind of a field type. A pointer to a supported
// type is a nullable column of the pointed-to kind.
func classify(t reflect.Type) (Kind, bool, bool) {
	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	if t.Implements(valuerType) && reflect.PointerTo(t).Implements(scannerType) {
		return Custom, nullable, true
	}
	if t == timeType {
		return Timestamp, nullable, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer, nullable, true
	case reflect.Float32, reflect.Float64:
		return Real, nullable, true
	case reflect.String:
		return Text, nullable, true
	case reflect.Bool:
		return Boolean, nullable, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Blob, nullable, true
		}
	}
	return 0, false, false
}

// field returns the column's field within the struct value rec.
func (c *Column) field(rec reflect.Value) reflect.Value {
	return rec.FieldByIndex(c.Index)
}

// IsSet reports whether the column holds a value in rec: a non-nil pointer
// for nullable columns, a non-zero value otherwise.
func (c *Column) IsSet(rec reflect.Value) bool {
	fv := c.field(rec)
	if c.Nullable {
		return !fv.IsNil()
	}
	return !fv.IsZero()
}

// Get returns the column value of rec as a statement argument. Nil pointers
// yield nil.
func (c *Column) Get(rec reflect.Value) (any, error) {
	fv := c.field(rec)
	if c.Nullable {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	switch c.Kind {
	case Integer:
		if fv.CanInt() {
			return fv.Int(), nil
		}
		u := fv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Wrapf(types.ErrValueRange, "column %s: %d overflows int64", c.Name, u)
		}
		return int64(u), nil
	case Real:
		return fv.Float(), nil
	case Text:
		return fv.String(), nil
	case Boolean:
		return fv.Bool(), nil
	case Blob:
		return fv.Bytes(), nil
	case Timestamp:
		return fv.Interface().(time.Time), nil
	case Custom:
		return fv.Interface(), nil
	}
	return nil, errors.Wrapf(types.ErrUnsupportedField, "column %s has kind %s", c.Name, c.Kind)
}

// Set coerces src to the column's kind and stores it in rec, which must be
// addressable. A nil src stores the zero value, or nil for nullable columns.
func (c *Column) Set(rec reflect.Value, src any) error {
	fv := c.field(rec)
	if !fv.CanSet() {
		return errors.Errorf("column %s: field %s is not settable", c.Name, c.Field)
	}
	if src == nil && (c.Nullable || c.Kind != Custom) {
		fv.SetZero()
		return nil
	}

	target := fv
	var ptr reflect.Value
	if c.Nullable {
		ptr = reflect.New(c.typ.Elem())
		target = ptr.Elem()
	}
	if err := assign(target, c.Kind, src); err != nil {
		return errors.Wrapf(err, "column %s", c.Name)
	}
	if c.Nullable {
		fv.Set(ptr)
	}
	return nil
}

// Value returns a comparable form of the column value in rec, used to match
// rows back to the records that requested them.
func (c *Column) Value(rec reflect.Value) (any, error) {
	v, err := c.Get(rec)
	if err != nil {
		return nil, err
	}
	return matchKey(v)
}

func matchKey(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, errors.Wrap(err, "read custom value")
		}
		v = dv
	}
	switch x := v.(type) {
	case []byte:
		return string(x), nil
	case time.Time:
		return x.UnixNano(), nil
	}
	return v, nil
}
