// Package yorm persists plain Go structs in SQL tables. A struct type maps to
// a table named after the lower-cased type name, each exported field to a
// column named after the lower-cased field name, and the field named ID to
// the primary key.
//
// Example:
//
//	type User struct {
//	    ID    int64
//	    Name  string
//	    Email *string
//	}
//
//	db, err := yorm.Open(ctx, types.Config{Driver: types.DriverSQLite, DataDir: ".yorm"})
//	defer db.Close()
//	err = db.CreateTable(ctx, User{})
//	u := &User{Name: "Ada"}
//	_, err = db.Save(ctx, u) // u.ID now holds the generated key
//	got, ok, err := yorm.Get[User](ctx, db, u.ID)
package yorm

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/driver"
	"github.com/mesh-intelligence/yorm/internal/metrics"
	"github.com/mesh-intelligence/yorm/internal/query"
	"github.com/mesh-intelligence/yorm/internal/schema"
	"github.com/mesh-intelligence/yorm/pkg/types"
)

// Version is the library version reported by the yorm command.
const Version = "0.3.0"

var _ types.Store = (*DB)(nil)

// DB runs record operations against one connection pool, or one transaction
// for values returned by WithTx. It is safe for concurrent use.
type DB struct {
	x      query.Executor
	pool   *sqlx.DB // closed by Close when opened here
	driver string

	cache   *schema.Cache
	engine  *query.Engine
	log     *zap.Logger
	metrics *metrics.Metrics
}

type options struct {
	log *zap.Logger
	reg prometheus.Registerer
}

// Option configures a DB.
type Option func(*options)

// WithLogger sets the logger. Statements are logged at debug, failures at
// warn. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRegisterer registers statement and schema metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = r
	}
}

// New wraps an open pool. driverName selects the placeholder style and the
// column types used by CreateTable; it is the name the pool was opened with.
// The caller keeps ownership of db.
func New(db *sql.DB, driverName string, opts ...Option) (*DB, error) {
	if db == nil {
		return nil, types.ErrNilDB
	}
	return newDB(sqlx.NewDb(db, driverName), driverName, opts)
}

// Open connects to the store described by cfg. The returned DB owns the pool;
// call Close when done.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (*DB, error) {
	pool, err := driver.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d, err := newDB(pool, cfg.Driver, opts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	d.pool = pool
	return d, nil
}

func newDB(x *sqlx.DB, driverName string, opts []Option) (*DB, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var m *metrics.Metrics
	if o.reg != nil {
		m = metrics.New()
		if err := m.Register(o.reg); err != nil {
			return nil, err
		}
	}
	log := o.log.Named("yorm").With(zap.String("driver", driverName))
	return &DB{
		x:       x,
		driver:  driverName,
		cache:   schema.NewCache(log, m),
		engine:  query.New(driverName, log, m),
		log:     log,
		metrics: m,
	}, nil
}

// Close closes the pool if Open created it. It does nothing for DBs built
// with New or WithTx.
func (d *DB) Close() error {
	if d.pool == nil {
		return nil
	}
	return errors.Wrap(d.pool.Close(), "close pool")
}

// Driver returns the driver name.
func (d *DB) Driver() string {
	return d.driver
}

// WithTx returns a DB that runs every operation in tx. The schema cache is
// shared with d. The caller commits or rolls back tx.
func (d *DB) WithTx(tx *sql.Tx) *DB {
	c := *d
	c.x = tx
	c.pool = nil
	return &c
}

// table resolves the descriptor for the dynamic type of rec.
func (d *DB) table(rec any) (*schema.Table, error) {
	if rec == nil {
		return nil, types.ErrNilRecord
	}
	return d.cache.GetOrBuild(reflect.TypeOf(rec))
}

// fail normalizes err into a *types.Error for op on table.
func (d *DB) fail(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}

	e := types.NewError(op, table, err)
	var be *query.BatchError
	var re *query.RecordError
	switch {
	case errors.As(err, &be):
		e.Index, e.Inserted, e.Err = be.Index, be.Inserted, be.Err
	case errors.As(err, &re):
		e.Index, e.Err = re.Index, re.Err
	}
	d.log.Warn("operation failed",
		zap.String("op", op),
		zap.String("table", table),
		zap.Int("index", e.Index),
		zap.Error(e.Err))
	return e
}

// Save inserts rec when its key is unset, or its type has no ID field, and
// updates the stored row otherwise. It returns rows affected. Pass a pointer
// to receive generated keys.
func (d *DB) Save(ctx context.Context, rec any) (int64, error) {
	t, err := d.table(rec)
	if err != nil {
		return 0, d.fail(types.OpSave, "", err)
	}
	n, err := d.engine.Save(ctx, d.x, t, rec)
	return n, d.fail(types.OpSave, t.Name, err)
}

// Insert stores rec as a new row and returns rows affected. An unset integer
// key is assigned by the store and an unset string key gets a UUIDv7; either
// is written back when rec is a pointer.
func (d *DB) Insert(ctx context.Context, rec any) (int64, error) {
	t, err := d.table(rec)
	if err != nil {
		return 0, d.fail(types.OpInsert, "", err)
	}
	n, err := d.engine.Insert(ctx, d.x, t, rec)
	return n, d.fail(types.OpInsert, t.Name, err)
}

// Update writes rec to the row with the same key and returns rows affected.
// Zero rows affected is not an error.
func (d *DB) Update(ctx context.Context, rec any) (int64, error) {
	t, err := d.table(rec)
	if err != nil {
		return 0, d.fail(types.OpUpdate, "", err)
	}
	n, err := d.engine.Update(ctx, d.x, t, rec)
	return n, d.fail(types.OpUpdate, t.Name, err)
}

// CreateTable creates the table for rec's type if it does not exist.
func (d *DB) CreateTable(ctx context.Context, rec any) error {
	t, err := d.table(rec)
	if err != nil {
		return d.fail(types.OpCreateTable, "", err)
	}
	return d.fail(types.OpCreateTable, t.Name, d.engine.CreateTable(ctx, d.x, t))
}

// TableName returns the table rec's type maps to.
func (d *DB) TableName(rec any) (string, error) {
	t, err := d.table(rec)
	if err != nil {
		return "", d.fail(types.OpDescribe, "", err)
	}
	return t.Name, nil
}
