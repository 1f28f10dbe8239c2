package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	ConnectRetry     time.Duration // total time OpenWithRetry keeps trying
}

// DB bundles the ent SQL driver used for migrations and the query builder
// dialect with the underlying handle.
type DB struct {
	Driver  *entsql.Driver
	SQL     *stdsql.DB
	Dialect string
	pool    *pgxpool.Pool
}

// Open connects to the configured database.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	case DriverPostgres, "":
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// openPostgres creates a pgx pool and wraps it for ent.
func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", DriverPostgres, "dsn", redactDSN(cfg.DSN))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "cardscan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("failed to ping database", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{
		Driver:  entsql.OpenDB(dialect.Postgres, db),
		SQL:     db,
		Dialect: dialect.Postgres,
		pool:    pool,
	}, nil
}

// OpenSQLite opens a SQLite database through the pure-Go modernc driver. Foreign
// keys are switched on since migrations require them.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	dsn = sqliteDSN(dsn)
	logger.Info("connecting to database", "driver", DriverSQLite, "dsn", dsn)
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	return &DB{
		Driver:  entsql.OpenDB(dialect.SQLite, db),
		SQL:     db,
		Dialect: dialect.SQLite,
	}, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:cardscan?mode=memory&cache=shared"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "foreign_keys") {
		dsn += sep + "_pragma=foreign_keys(1)"
		sep = "&"
	}
	if !strings.Contains(dsn, "_time_format") {
		dsn += sep + "_time_format=sqlite"
	}
	return dsn
}

// OpenWithRetry keeps calling Open with exponential backoff until it succeeds,
// ctx ends or cfg.ConnectRetry elapses.
func OpenWithRetry(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if cfg.ConnectRetry <= 0 {
		return Open(ctx, cfg, logger)
	}
	attempt := 0
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	return backoff.Retry(ctx, func() (*DB, error) {
		attempt++
		db, err := Open(ctx, cfg, logger)
		if err != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", err)
			if errors.Is(err, ErrUnsupportedDriver) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return db, nil
	}, backoff.WithBackOff(exp), backoff.WithMaxElapsedTime(cfg.ConnectRetry))
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	if err := db.Driver.Close(); err != nil {
		logger.Error("failed to close ent driver", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if db == nil {
		return errors.New("database not configured")
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return err
		}
	} else if err := db.SQL.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.IndexByte(creds, ':'); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
