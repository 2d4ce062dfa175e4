// Package query executes record operations against a SQL executor using the
// table descriptors built by package schema.
package query

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/yorm/internal/metrics"
)

// Executor runs statements. *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx all
// satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Tx)(nil)
	_ Executor = (*sqlx.DB)(nil)
	_ Executor = (*sqlx.Tx)(nil)
)

// Engine builds and runs statements for one driver. It holds no connection
// state and is safe for concurrent use.
type Engine struct {
	driver  string
	bind    int
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New returns an engine for driverName. log and m may be nil.
func New(driverName string, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		driver:  driverName,
		bind:    bindType(driverName),
		log:     log,
		metrics: m,
	}
}

// bindType returns the placeholder style for driverName, defaulting to '?'.
func bindType(driverName string) int {
	if b := sqlx.BindType(driverName); b != sqlx.UNKNOWN {
		return b
	}
	return sqlx.QUESTION
}

// Driver returns the driver name the engine was built for.
func (e *Engine) Driver() string {
	return e.driver
}

// rebind rewrites '?' placeholders into the driver's bind style.
func (e *Engine) rebind(q string) string {
	return sqlx.Rebind(e.bind, q)
}

// returning reports whether generated keys come back through RETURNING
// instead of LastInsertId.
func (e *Engine) returning() bool {
	return e.bind == sqlx.DOLLAR
}

// observe records one statement in metrics and the debug log.
func (e *Engine) observe(op, table, q string, nargs int, start time.Time, err error) {
	e.metrics.ObserveStatement(op, table, start, err)
	if ce := e.log.Check(zap.DebugLevel, "statement"); ce != nil {
		ce.Write(
			zap.String("op", op),
			zap.String("table", table),
			zap.String("sql", q),
			zap.Int("args", nargs),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
}

// exec runs one statement and records it.
func (e *Engine) exec(ctx context.Context, x Executor, op, table, q string, args ...any) (sql.Result, error) {
	q = e.rebind(q)
	start := time.Now()
	res, err := x.ExecContext(ctx, q, args...)
	e.observe(op, table, q, len(args), start, err)
	return res, err
}

// query runs one row-returning statement and records it.
func (e *Engine) query(ctx context.Context, x Executor, op, table, q string, args ...any) (*sql.Rows, error) {
	q = e.rebind(q)
	start := time.Now()
	rows, err := x.QueryContext(ctx, q, args...)
	e.observe(op, table, q, len(args), start, err)
	return rows, err
}
