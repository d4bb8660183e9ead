// Package database provides Postgres-backed persistence for harvest results.
package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extwatch/storecrawl/internal/webstore"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for harvest rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RunRecord summarizes one completed harvest run for auditing.
type RunRecord struct {
	ID         string
	Category   string
	Pages      int
	Extensions int
	State      webstore.State
	StartedAt  time.Time
	FinishedAt time.Time
	ExportURI  string
}

// Store writes extensions and run records into Postgres. The extension table
// is upserted so repeated crawls refresh listings in place.
type Store struct {
	pool  execCloser
	table string
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "extensions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "extensions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveExtensions upserts the decoded extensions keyed by store identifier.
// Rows are written one at a time; the first failure aborts and reports how
// many rows were already written.
func (s *Store) SaveExtensions(ctx context.Context, runID string, extensions []webstore.Extension) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	run_id,
	name,
	display_name,
	short_description,
	category,
	icon_link,
	downloads,
	rating,
	rating_count,
	website,
	good_record,
	featured,
	create_date,
	version,
	host_wide_permissions
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
ON CONFLICT (id) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	name = EXCLUDED.name,
	display_name = EXCLUDED.display_name,
	short_description = EXCLUDED.short_description,
	category = EXCLUDED.category,
	icon_link = EXCLUDED.icon_link,
	downloads = EXCLUDED.downloads,
	rating = EXCLUDED.rating,
	rating_count = EXCLUDED.rating_count,
	website = EXCLUDED.website,
	good_record = EXCLUDED.good_record,
	featured = EXCLUDED.featured,
	create_date = EXCLUDED.create_date,
	version = EXCLUDED.version,
	host_wide_permissions = EXCLUDED.host_wide_permissions`, s.table)

	for i, ext := range extensions {
		args := []any{
			ext.ID,
			runID,
			ext.Name,
			ext.DisplayName,
			ext.ShortDescription,
			ext.Category,
			ext.IconLink,
			ext.Downloads.String(),
			ext.Rating,
			ext.RatingCount,
			ext.Website,
			ext.GoodRecord,
			ext.Featured,
			ext.CreateDate,
			ext.Version,
			ext.HostWidePermissions,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return i, fmt.Errorf("upsert extension %q: %w", ext.ID, err)
		}
	}
	return len(extensions), nil
}

// RecordRun inserts one audit row describing a completed harvest run.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := `
INSERT INTO harvest_runs (
	id,
	category,
	pages,
	extensions,
	state,
	started_at,
	finished_at,
	export_uri
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`
	args := []any{
		rec.ID,
		rec.Category,
		rec.Pages,
		rec.Extensions,
		string(rec.State),
		rec.StartedAt,
		rec.FinishedAt,
		rec.ExportURI,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert harvest run: %w", err)
	}
	return nil
}
