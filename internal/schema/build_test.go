package schema

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

type User struct {
	ID     int64
	Name   string
	Age    int
	Email  *string
	Active bool
	Joined time.Time
	Avatar []byte
	Score  float64
	Skip   string `db:"-"`
	note   string `db:"-"`
}

type base struct {
	ID      int64
	Created time.Time
}

type Post struct {
	base
	Title string
}

type Tagged struct {
	Code  string
	Label sql.NullString
}

type Empty struct {
	hidden int `db:"-"`
}

type Secret struct {
	ID    int64
	Name  string
	token string
}

type WithMap struct {
	ID    int64
	Attrs map[string]string
}

type Dup struct {
	ID int64
	Id int64
}

type Linked struct {
	*base
	Title string
}

var cmpTable = cmp.Options{
	cmpopts.IgnoreUnexported(Table{}, Column{}),
	cmpopts.IgnoreFields(Table{}, "Type"),
}

func TestBuild(t *testing.T) {
	tbl, err := Build(reflect.TypeFor[User]())
	require.NoError(t, err)

	assert.Equal(t, "user", tbl.Name)
	assert.Equal(t, reflect.TypeFor[User](), tbl.Type)
	assert.Equal(t, []string{"id", "name", "age", "email", "active", "joined", "avatar", "score"}, tbl.ColumnNames())

	kinds := make([]Kind, len(tbl.Columns))
	for i, c := range tbl.Columns {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []Kind{Integer, Text, Integer, Text, Boolean, Timestamp, Blob, Real}, kinds)

	email, ok := tbl.Column("email")
	require.True(t, ok)
	assert.True(t, email.Nullable)
	assert.Equal(t, "Email", email.Field)

	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)
	assert.Len(t, tbl.NonKeyColumns(), 7)
}

func TestBuild_PointerType(t *testing.T) {
	fromValue, err := Build(reflect.TypeFor[User]())
	require.NoError(t, err)
	fromPointer, err := Build(reflect.TypeFor[*User]())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(fromValue, fromPointer, cmpTable))
	assert.Equal(t, fromValue.Type, fromPointer.Type)
}

func TestBuild_IsDeterministic(t *testing.T) {
	first, err := Build(reflect.TypeFor[User]())
	require.NoError(t, err)

	for range 5 {
		again, err := Build(reflect.TypeFor[User]())
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(first, again, cmpTable))

		pk, _ := again.PrimaryKey()
		assert.Equal(t, "id", pk.Name)
	}
}

func TestBuild_EmbeddedStruct(t *testing.T) {
	tbl, err := Build(reflect.TypeFor[Post]())
	require.NoError(t, err)

	assert.Equal(t, "post", tbl.Name)
	assert.Equal(t, []string{"id", "created", "title"}, tbl.ColumnNames())
	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, pk.Index)
}

func TestBuild_CustomColumn(t *testing.T) {
	tbl, err := Build(reflect.TypeFor[Tagged]())
	require.NoError(t, err)

	label, ok := tbl.Column("label")
	require.True(t, ok)
	assert.Equal(t, Custom, label.Kind)

	_, ok = tbl.PrimaryKey()
	assert.False(t, ok, "Tagged has no id column")
	_, err = tbl.RequireKey()
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		typ     reflect.Type
		wantErr error
	}{
		{"nil type", nil, types.ErrNotStruct},
		{"not a struct", reflect.TypeFor[int](), types.ErrNotStruct},
		{"pointer to non-struct", reflect.TypeFor[*string](), types.ErrNotStruct},
		{"anonymous struct", reflect.TypeOf(struct{ ID int }{}), types.ErrUnnamedType},
		{"no mapped fields", reflect.TypeFor[Empty](), types.ErrNoColumns},
		{"unexported field", reflect.TypeFor[Secret](), types.ErrUnsupportedField},
		{"unsupported field type", reflect.TypeFor[WithMap](), types.ErrUnsupportedField},
		{"case-insensitive duplicate", reflect.TypeFor[Dup](), types.ErrDuplicateColumn},
		{"embedded pointer", reflect.TypeFor[Linked](), types.ErrUnsupportedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Build(tt.typ)
			assert.Nil(t, tbl)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTableIndirect(t *testing.T) {
	tbl, err := Build(reflect.TypeFor[User]())
	require.NoError(t, err)

	rv, err := tbl.Indirect(User{Name: "a"})
	require.NoError(t, err)
	assert.False(t, rv.CanAddr())

	rv, err = tbl.Indirect(&User{Name: "a"})
	require.NoError(t, err)
	assert.True(t, rv.CanAddr())

	_, err = tbl.Indirect((*User)(nil))
	assert.ErrorIs(t, err, types.ErrNilRecord)

	_, err = tbl.Indirect(nil)
	assert.ErrorIs(t, err, types.ErrNilRecord)

	_, err = tbl.Indirect(&Post{})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}
