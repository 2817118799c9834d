// infrastructure/database.go
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vitovidale/video-notes-service/config"
)

// Dialect selects placeholder syntax; the SQL itself is kept portable between postgres and sqlite.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		user_id          TEXT NOT NULL,
		video_id         TEXT NOT NULL,
		video_url        TEXT NOT NULL DEFAULT '',
		title            TEXT NOT NULL DEFAULT '',
		channel          TEXT NOT NULL DEFAULT '',
		thumbnail_url    TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		plan_tier        TEXT NOT NULL DEFAULT 'free',
		status           TEXT NOT NULL,
		processing_type  TEXT NOT NULL DEFAULT '',
		attempt_id       TEXT NOT NULL,
		snapshot_id      TEXT,
		claim_id         TEXT,
		transcript       TEXT,
		summary          TEXT,
		error_message    TEXT,
		metadata         TEXT,
		raw_response     TEXT,
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, video_id)
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_video_status_idx ON jobs (video_id, status)`,
	`CREATE INDEX IF NOT EXISTS jobs_snapshot_idx ON jobs (snapshot_id)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_updated_idx ON jobs (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS quotas (
		user_id          TEXT NOT NULL,
		period           TEXT NOT NULL,
		plan_tier        TEXT NOT NULL,
		minutes_used     INTEGER NOT NULL DEFAULT 0,
		minutes_limit    INTEGER NOT NULL,
		videos_processed INTEGER NOT NULL DEFAULT 0,
		updated_at       TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, period)
	)`,
}

// OpenDatabase connects with the configured driver, retrying while the database comes up.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, Dialect, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := OpenSQLite(cfg.URL)
		return db, DialectSQLite, err
	case "postgres":
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var (
		db  *sql.DB
		err error
	)
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", cfg.PostgresDSN())
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				logger.Info("connected to postgres")
				return db, DialectPostgres, nil
			}
			db.Close()
		}
		logger.Warn("database not reachable, retrying in 5s", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return nil, "", fmt.Errorf("connect to postgres after 5 attempts: %w", err)
}

// OpenSQLite opens a single-connection sqlite database so writes are serialized.
func OpenSQLite(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "_pragma=busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
