package types

// Record is any named Go struct type, passed by value or by pointer. Its
// exported fields become table columns in declaration order, lower-cased; the
// struct name, lower-cased, becomes the table name. A field named ID (column
// "id") is the primary key.
//
// Supported field types are integers, floats, string, bool, []byte,
// time.Time, pointers to those (nullable columns), and types whose pointer
// implements sql.Scanner and whose value implements driver.Valuer. A field
// tagged `db:"-"` is ignored.
//
// Pass a pointer when the caller needs generated primary keys written back.
type Record = any

// PrimaryKeyColumn is the column name that designates a table's primary key.
const PrimaryKeyColumn = "id"
