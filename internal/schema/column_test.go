package schema

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

type Sample struct {
	ID     int64
	Small  int8
	Count  uint16
	Ratio  float32
	Name   string
	Nick   *string
	Flag   bool
	At     time.Time
	Data   []byte
	Label  sql.NullString
	Maybe  *int
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Build(reflect.TypeFor[Sample]())
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, tbl *Table, name string) *Column {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return c
}

func TestColumnSet(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	nick := "ace"

	tests := []struct {
		name   string
		column string
		src    any
		check  func(t *testing.T, s *Sample)
	}{
		{"int64 from int64", "id", int64(7), func(t *testing.T, s *Sample) { assert.Equal(t, int64(7), s.ID) }},
		{"int64 from text bytes", "id", []byte("42"), func(t *testing.T, s *Sample) { assert.Equal(t, int64(42), s.ID) }},
		{"int64 from integral float", "id", float64(9), func(t *testing.T, s *Sample) { assert.Equal(t, int64(9), s.ID) }},
		{"uint16 from int64", "count", int64(65535), func(t *testing.T, s *Sample) { assert.Equal(t, uint16(65535), s.Count) }},
		{"float32 from int64", "ratio", int64(2), func(t *testing.T, s *Sample) { assert.Equal(t, float32(2), s.Ratio) }},
		{"float32 from string", "ratio", "0.5", func(t *testing.T, s *Sample) { assert.Equal(t, float32(0.5), s.Ratio) }},
		{"string from bytes", "name", []byte("bob"), func(t *testing.T, s *Sample) { assert.Equal(t, "bob", s.Name) }},
		{"nullable string from string", "nick", nick, func(t *testing.T, s *Sample) {
			require.NotNil(t, s.Nick)
			assert.Equal(t, nick, *s.Nick)
		}},
		{"nullable string from NULL", "nick", nil, func(t *testing.T, s *Sample) { assert.Nil(t, s.Nick) }},
		{"bool from sqlite integer", "flag", int64(1), func(t *testing.T, s *Sample) { assert.True(t, s.Flag) }},
		{"bool from text", "flag", "true", func(t *testing.T, s *Sample) { assert.True(t, s.Flag) }},
		{"time from time", "at", at, func(t *testing.T, s *Sample) { assert.True(t, at.Equal(s.At)) }},
		{"time from sql text", "at", "2024-01-02 03:04:05", func(t *testing.T, s *Sample) { assert.True(t, at.Equal(s.At)) }},
		{"time from RFC3339 bytes", "at", []byte("2024-01-02T03:04:05Z"), func(t *testing.T, s *Sample) { assert.True(t, at.Equal(s.At)) }},
		{"time from Go string form", "at", "2024-01-02 03:04:05 +0000 UTC m=+0.000000001", func(t *testing.T, s *Sample) {
			assert.True(t, at.Equal(s.At))
		}},
		{"time with short zone name", "at", "2020-01-02 03:04:05.000000006 +0100 X", func(t *testing.T, s *Sample) {
			want := time.Date(2020, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 3600))
			assert.True(t, want.Equal(s.At))
		}},
		{"blob from bytes", "data", []byte{1, 2}, func(t *testing.T, s *Sample) { assert.Equal(t, []byte{1, 2}, s.Data) }},
		{"custom scanner from string", "label", "x", func(t *testing.T, s *Sample) {
			assert.Equal(t, sql.NullString{String: "x", Valid: true}, s.Label)
		}},
		{"custom scanner from NULL", "label", nil, func(t *testing.T, s *Sample) { assert.False(t, s.Label.Valid) }},
		{"nullable int from int64", "maybe", int64(3), func(t *testing.T, s *Sample) {
			require.NotNil(t, s.Maybe)
			assert.Equal(t, 3, *s.Maybe)
		}},
	}

	tbl := sampleTable(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Sample
			require.NoError(t, column(t, tbl, tt.column).Set(reflect.ValueOf(&s).Elem(), tt.src))
			tt.check(t, &s)
		})
	}
}

func TestColumnSet_Errors(t *testing.T) {
	tests := []struct {
		name    string
		column  string
		src     any
		wantErr error
	}{
		{"int8 overflow", "small", int64(300), types.ErrValueRange},
		{"negative into unsigned", "count", int64(-1), types.ErrValueRange},
		{"fractional float into integer", "id", 1.5, types.ErrCoerce},
		{"garbage integer text", "id", "abc", types.ErrCoerce},
		{"time from unparseable text", "at", "yesterday", types.ErrCoerce},
		{"bool from float", "flag", 1.0, types.ErrCoerce},
	}

	tbl := sampleTable(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Sample
			err := column(t, tbl, tt.column).Set(reflect.ValueOf(&s).Elem(), tt.src)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestColumnSet_NotAddressable(t *testing.T) {
	tbl := sampleTable(t)
	err := column(t, tbl, "name").Set(reflect.ValueOf(Sample{}), "x")
	assert.Error(t, err)
}

func TestColumnGet(t *testing.T) {
	nick := "ace"
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Sample{ID: 1, Small: -3, Count: 9, Ratio: 0.25, Name: "n", Nick: &nick, Flag: true, At: at, Data: []byte("d")}
	rv := reflect.ValueOf(s)
	tbl := sampleTable(t)

	tests := []struct {
		column string
		want   any
	}{
		{"id", int64(1)},
		{"small", int64(-3)},
		{"count", int64(9)},
		{"ratio", float64(0.25)},
		{"name", "n"},
		{"nick", "ace"},
		{"flag", true},
		{"at", at},
		{"data", []byte("d")},
		{"maybe", nil},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := column(t, tbl, tt.column).Get(rv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnIsSet(t *testing.T) {
	zero := ""
	tbl := sampleTable(t)

	empty := reflect.ValueOf(Sample{})
	for _, c := range tbl.Columns {
		assert.False(t, c.IsSet(empty), "zero %s should be unset", c.Name)
	}

	withPointerToZero := reflect.ValueOf(Sample{Nick: &zero})
	assert.True(t, column(t, tbl, "nick").IsSet(withPointerToZero), "non-nil pointer is present even when it points to zero")
	assert.False(t, column(t, tbl, "name").IsSet(withPointerToZero))
}

func TestColumnValue(t *testing.T) {
	tbl := sampleTable(t)
	got, err := column(t, tbl, "data").Value(reflect.ValueOf(Sample{Data: []byte("k")}))
	require.NoError(t, err)
	assert.Equal(t, "k", got, "blob keys compare as strings")

	got, err = column(t, tbl, "label").Value(reflect.ValueOf(Sample{Label: sql.NullString{String: "v", Valid: true}}))
	require.NoError(t, err)
	assert.Equal(t, "v", got, "custom keys compare by driver value")
}
