// Package postgres persists evacuation routes as PostGIS LineStrings.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE TABLE IF NOT EXISTS evacuation_routes (
    city        TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL,
    cost        DOUBLE PRECISION NOT NULL,
    computed_at TIMESTAMPTZ,
    geom        geometry(LineString, 4326) NOT NULL
);`

const insertRoute = `INSERT INTO evacuation_routes (city, run_id, cost, computed_at, geom)
VALUES ($1, $2, $3, $4, ST_GeomFromText($5, 4326))`

// Store replaces the contents of the evacuation_routes table on every run.
// It implements pipeline.RouteSink and pipeline.RouteClearer.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and creates the routes table when missing.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "postgres" }

// PersistRoutes swaps the table contents for routes in one transaction, so
// readers never see a partial run.
func (s *Store) PersistRoutes(ctx context.Context, routes []domain.Route) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM evacuation_routes`); err != nil {
		return fmt.Errorf("clear routes: %w", err)
	}
	for _, r := range routes {
		args, err := routeArgs(r)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertRoute, args...); err != nil {
			return fmt.Errorf("insert route %q: %w", r.City, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ClearRoutes empties the table.
func (s *Store) ClearRoutes(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM evacuation_routes`); err != nil {
		return fmt.Errorf("clear routes: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// routeArgs returns the insert parameters for r in column order.
func routeArgs(r domain.Route) ([]any, error) {
	if len(r.Coordinates) < 2 {
		return nil, fmt.Errorf("route %q has %d points, need at least 2", r.City, len(r.Coordinates))
	}
	var computedAt any
	if !r.ComputedAt.IsZero() {
		computedAt = r.ComputedAt.UTC().Truncate(time.Microsecond)
	}
	return []any{r.City, r.RunID, r.Cost, computedAt, wkt.MarshalString(r.Coordinates)}, nil
}
