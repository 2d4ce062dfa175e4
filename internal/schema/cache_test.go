package schema

import (
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/yorm/internal/metrics"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

func TestCacheGetOrBuild_ReturnsSameTable(t *testing.T) {
	c := NewCache(zaptest.NewLogger(t), nil)

	first, err := c.GetOrBuild(reflect.TypeFor[User]())
	require.NoError(t, err)
	second, err := c.GetOrBuild(reflect.TypeFor[*User]())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetOrBuild_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	m := metrics.New()
	c := NewCache(nil, m)

	const workers = 32
	got := make([]*Table, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl, err := c.GetOrBuild(reflect.TypeFor[Post]())
			assert.NoError(t, err)
			got[i] = tbl
		}()
	}
	wg.Wait()

	for _, tbl := range got {
		assert.Same(t, got[0], tbl)
	}
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SchemaBuilds))
}

func TestCacheGetOrBuild_NameCollision(t *testing.T) {
	c := NewCache(nil, nil)
	_, err := c.GetOrBuild(reflect.TypeFor[User]())
	require.NoError(t, err)

	type User struct {
		ID   int64
		Nick string
	}
	_, err = c.GetOrBuild(reflect.TypeFor[User]())
	assert.ErrorIs(t, err, types.ErrTypeCollision)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetOrBuild_FailuresAreNotStored(t *testing.T) {
	m := metrics.New()
	c := NewCache(nil, m)

	_, err := c.GetOrBuild(reflect.TypeFor[WithMap]())
	assert.ErrorIs(t, err, types.ErrUnsupportedField)
	_, err = c.GetOrBuild(reflect.TypeFor[WithMap]())
	assert.ErrorIs(t, err, types.ErrUnsupportedField)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SchemaBuilds))
}

func TestCacheGetOrBuild_Nil(t *testing.T) {
	_, err := NewCache(nil, nil).GetOrBuild(nil)
	assert.ErrorIs(t, err, types.ErrNilRecord)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user", Key(reflect.TypeFor[User]()))
	assert.Equal(t, "post", Key(reflect.TypeFor[*Post]()))
}
