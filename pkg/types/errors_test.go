package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "operation and table",
			err:  NewError(OpGet, "user", ErrNoPrimaryKey),
			want: "yorm: get user: table has no primary key column",
		},
		{
			name: "unresolved table",
			err:  NewError(OpInsert, "", ErrNotStruct),
			want: "yorm: insert: record type is not a struct",
		},
		{
			name: "bulk failure reports position and progress",
			err:  &Error{Op: OpInsertAll, Table: "user", Index: 3, Inserted: 3, Err: ErrNilRecord},
			want: "yorm: insert all user: record 3 (3 inserted before failure): nil record",
		},
		{
			name: "list position outside bulk insert",
			err:  &Error{Op: OpRefresh, Table: "user", Index: 1, Err: ErrNilRecord},
			want: "yorm: refresh user: record 1: nil record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("column age: %w", ErrCoerce)
	err := error(NewError(OpFind, "user", cause))

	assert.True(t, errors.Is(err, ErrCoerce))

	var yerr *Error
	assert.True(t, errors.As(err, &yerr))
	assert.Equal(t, "user", yerr.Table)
	assert.Equal(t, -1, yerr.Index)
}
