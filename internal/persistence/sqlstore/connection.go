package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
)

// Options configures how the connection pool is opened.
type Options struct {
	// Driver selects the SQL dialect: "sqlite" or "postgres".
	Driver string

	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string

	// MaxOpenConns caps the pool size. Zero keeps the driver default.
	MaxOpenConns int

	// BusyTimeout bounds how long SQLite waits for the write lock.
	BusyTimeout time.Duration

	// ConnMaxLifetime recycles pooled connections after this long.
	ConnMaxLifetime time.Duration

	// Tracing wraps the pool with AWS X-Ray SQL instrumentation.
	Tracing bool
}

// ConnectionPool manages pooled connections with transaction support
type ConnectionPool struct {
	db      *sqlx.DB
	dialect dialect
}

// NewConnectionPool opens and verifies a pool for the configured dialect.
func NewConnectionPool(ctx context.Context, opts Options) (*ConnectionPool, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("sqlstore: %s DSN is required", d.name())
	}

	dsn := d.prepareDSN(opts.DSN, opts)

	var raw *sql.DB
	if opts.Tracing {
		raw, err = xray.SQLContext(d.driverName(), dsn)
	} else {
		raw, err = sql.Open(d.driverName(), dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name(), err)
	}

	db := sqlx.NewDb(raw, d.driverName())
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name(), d.mapError(err))
	}

	return &ConnectionPool{db: db, dialect: d}, nil
}

// Close closes the connection pool
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	if err := cp.db.PingContext(ctx); err != nil {
		return cp.dialect.mapError(err)
	}
	return nil
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx *sqlx.Tx) error

// WithTransaction executes fn within a database transaction.
// If fn returns an error or panics the transaction is rolled back and the
// error from fn is returned unchanged; otherwise the transaction is committed.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", cp.dialect.mapError(err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone && err != nil {
			err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", cp.dialect.mapError(err))
	}
	committed = true
	return nil
}

func (cp *ConnectionPool) rebind(query string) string {
	return cp.db.Rebind(query)
}
