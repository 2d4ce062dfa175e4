package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	tbl := table[Person](t, f)

	a := &Person{Name: "a"}
	b := &Person{Name: "b"}
	for _, p := range []*Person{a, b} {
		_, err := f.engine.Insert(f.ctx, f.db, tbl, p)
		require.NoError(t, err)
	}
	_, err := f.db.Exec("UPDATE person SET name = 'b2' WHERE id = ?", b.ID)
	require.NoError(t, err)

	got, err := f.engine.Refresh(f.ctx, f.db, tbl, []any{
		&Person{ID: b.ID},
		&Person{ID: 999},
		Person{ID: a.ID},
		&Person{},
		&Person{ID: b.ID},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)

	misses := multierr.Errors(err)
	require.Len(t, misses, 2)
	var first, second *RecordError
	require.ErrorAs(t, misses[0], &first)
	require.ErrorAs(t, misses[1], &second)
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, 3, second.Index)

	out := people(got)
	require.Len(t, out, 5)
	assert.Equal(t, "b2", out[0].Name)
	assert.Nil(t, out[1])
	assert.Equal(t, "a", out[2].Name)
	assert.Nil(t, out[3])
	assert.Equal(t, "b2", out[4].Name)
	assert.NotSame(t, out[0], out[4], "duplicate keys get their own copies")
}

func TestRefresh_Empty(t *testing.T) {
	f := newFixture(t)
	tbl := table[Person](t, f)

	got, err := f.engine.Refresh(f.ctx, f.db, tbl, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRefresh_NilRecord(t *testing.T) {
	f := newFixture(t)
	tbl := table[Person](t, f)

	_, err := f.engine.Refresh(f.ctx, f.db, tbl, []any{&Person{ID: 1}, (*Person)(nil)})
	var re *RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Index)
	assert.ErrorIs(t, err, types.ErrNilRecord)
}
