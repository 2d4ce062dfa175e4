package types

import "context"

// Store is the record-level interface of a yorm database. Type-parameterized
// reads (Get, All, Find, Refresh, Delete, InsertAll) are package functions in
// pkg/yorm and take the concrete *yorm.DB.
type Store interface {
	// Save inserts rec when its key is unset, or its type has no key, and
	// updates the stored row otherwise. It returns rows affected.
	Save(ctx context.Context, rec Record) (int64, error)

	// Insert stores rec as a new row and returns rows affected.
	Insert(ctx context.Context, rec Record) (int64, error)

	// Update writes rec over the row with the same key. Zero rows affected is
	// not an error.
	Update(ctx context.Context, rec Record) (int64, error)

	// CreateTable creates the table for rec's type if it does not exist.
	CreateTable(ctx context.Context, rec Record) error

	// TableName returns the table rec's type maps to.
	TableName(rec Record) (string, error)

	// Close releases the connection pool when the Store owns it.
	Close() error
}
