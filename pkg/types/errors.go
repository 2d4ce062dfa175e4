package types

import (
	"errors"
	"fmt"
	"strings"
)

// Operation names carried by Error.Op.
const (
	OpSave        = "save"
	OpInsert      = "insert"
	OpInsertAll   = "insert all"
	OpUpdate      = "update"
	OpGet         = "get"
	OpAll         = "all"
	OpFind        = "find"
	OpRefresh     = "refresh"
	OpDelete      = "delete"
	OpCreateTable = "create table"
	OpDescribe    = "describe"
)

// Schema errors.
var (
	ErrNotStruct        = errors.New("record type is not a struct")
	ErrUnnamedType      = errors.New("record type has no name")
	ErrNoColumns        = errors.New("record type has no usable fields")
	ErrUnsupportedField = errors.New("unsupported field type")
	ErrDuplicateColumn  = errors.New("duplicate column name")
	ErrTypeCollision    = errors.New("table name is bound to another type")
)

// Record and query errors.
var (
	ErrNilDB         = errors.New("nil database handle")
	ErrNilRecord     = errors.New("nil record")
	ErrTypeMismatch  = errors.New("record type does not match table")
	ErrNoPrimaryKey  = errors.New("table has no primary key column")
	ErrKeyUnset      = errors.New("primary key value is unset")
	ErrUnknownColumn = errors.New("column does not exist in target table")
	ErrValueRange    = errors.New("value out of range")
	ErrCoerce        = errors.New("cannot convert column value")
	ErrNotFound      = errors.New("record not found")
)

// Error is the single error kind returned by yorm operations. Err holds the
// underlying cause, reachable with errors.Is and errors.As.
type Error struct {
	Op    string // operation, one of the Op constants
	Table string // table name, empty when it could not be resolved

	// Index is the position of the failing record in a list input, or -1.
	Index int
	// Inserted counts records written before a bulk insert failed.
	Inserted int

	Err error
}

// NewError returns an Error for op on table that is not tied to a list
// position.
func NewError(op, table string, err error) *Error {
	return &Error{Op: op, Table: table, Index: -1, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("yorm: ")
	b.WriteString(e.Op)
	if e.Table != "" {
		b.WriteString(" ")
		b.WriteString(e.Table)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Index)
		if e.Op == OpInsertAll {
			fmt.Fprintf(&b, " (%d inserted before failure)", e.Inserted)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
