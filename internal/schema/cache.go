package schema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/yorm/internal/metrics"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Cache maps lower-cased type names to built Tables. Entries are created on
// first use and never replaced or evicted.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]*Table
	group  singleflight.Group

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewCache returns an empty cache. log and m may be nil.
func NewCache(log *zap.Logger, m *metrics.Metrics) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		tables:  make(map[string]*Table),
		log:     log,
		metrics: m,
	}
}

// Key returns the cache key for a struct type or a pointer to one.
func Key(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}

// GetOrBuild returns the Table for t, building and storing it on first use.
// Concurrent first uses of one key share a single build. Build failures are
// returned to every waiting caller and are not stored.
func (c *Cache) GetOrBuild(t reflect.Type) (*Table, error) {
	if t == nil {
		return nil, types.ErrNilRecord
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	key := Key(t)

	if tbl, ok := c.lookup(key); ok {
		return checkType(tbl, t)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if tbl, ok := c.lookup(key); ok {
			return tbl, nil
		}
		tbl, err := Build(t)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = tbl
		c.mu.Unlock()

		c.metrics.ObserveSchemaBuild()
		c.log.Debug("built table descriptor",
			zap.String("table", tbl.Name),
			zap.String("type", t.String()),
			zap.Strings("columns", tbl.ColumnNames()),
			zap.Bool("primary_key", tbl.pk >= 0))
		return tbl, nil
	})
	if err != nil {
		return nil, err
	}
	return checkType(v.(*Table), t)
}

// Len reports the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *Cache) lookup(key string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tbl, ok := c.tables[key]
	return tbl, ok
}

// checkType rejects a cached table built from a different type that shares
// the same name.
func checkType(tbl *Table, t reflect.Type) (*Table, error) {
	if tbl.Type != t {
		return nil, errors.Wrapf(types.ErrTypeCollision, "table %s is bound to %s, not %s", tbl.Name, tbl.Type, t)
	}
	return tbl, nil
}
