package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is the ledger handle. Pool is set only for Postgres.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Dialect string
}

// DialectOf picks the driver for a DSN: postgres:// URLs use pgx, anything
// else (optionally prefixed with sqlite:) is a SQLite file path.
func DialectOf(dsn string) (string, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn
	default:
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:")
	}
}

// Open connects to the ledger database and ensures its schema exists.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect, dsn := DialectOf(cfg.DSN)
	logger.Info("ledger.connect", "dialect", dialect)

	var db *DB
	switch dialect {
	case DialectPostgres:
		pool, err := openPool(ctx, cfg, dsn)
		if err != nil {
			logger.Error("ledger.connect.failed", "error", err)
			return nil, err
		}
		db = &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: dialect}
	default:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			logger.Error("ledger.connect.failed", "error", err)
			return nil, err
		}
		// one writer; the batch is sequential anyway
		sqldb.SetMaxOpenConns(1)
		db = &DB{SQL: sqldb, Dialect: dialect}
	}

	if err := db.migrate(ctx); err != nil {
		Close(db, logger)
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	logger.Info("ledger.connect.ok", "dialect", dialect)
	return db, nil
}

func openPool(ctx context.Context, cfg Config, dsn string) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
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
	pc.ConnConfig.RuntimeParams["application_name"] = "mocr"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if db.SQL != nil {
		if err := db.SQL.Close(); err != nil {
			logger.Error("ledger.close.failed", "error", err)
		}
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	logger.Debug("ledger.closed")
}

// HealthCheck pings the ledger within timeout.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if db.Pool != nil {
		err = db.Pool.Ping(ctx)
	} else {
		err = db.SQL.PingContext(ctx)
	}
	if err != nil {
		logger.Error("ledger.ping.failed", "error", err)
		return err
	}
	logger.Debug("ledger.ping.ok")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS document_runs (
		id            TEXT PRIMARY KEY,
		run_id        TEXT NOT NULL,
		stem          TEXT NOT NULL,
		source_path   TEXT NOT NULL,
		content_hash  TEXT NOT NULL,
		engine        TEXT NOT NULL,
		status        TEXT NOT NULL,
		pages         INTEGER NOT NULL DEFAULT 0,
		images        INTEGER NOT NULL DEFAULT 0,
		placeholders  INTEGER NOT NULL DEFAULT 0,
		unresolved    INTEGER NOT NULL DEFAULT 0,
		markdown_path TEXT NOT NULL DEFAULT '',
		error_message TEXT,
		started_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS document_runs_hash_idx ON document_runs (content_hash, status)`,
	`CREATE TABLE IF NOT EXISTS document_images (
		document_run_id TEXT NOT NULL REFERENCES document_runs (id),
		identifier      TEXT NOT NULL,
		filename        TEXT NOT NULL,
		disposition     TEXT NOT NULL,
		pool_id         TEXT NOT NULL DEFAULT '',
		bytes           INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (document_run_id, identifier)
	)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
