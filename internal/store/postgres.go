package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a PostgresStore over an existing pool
// (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS resolutions (
	id            UUID PRIMARY KEY,
	destination   TEXT NOT NULL,
	origin_lat    DOUBLE PRECISION NOT NULL,
	origin_lng    DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL,
	source        TEXT,
	resolved_name TEXT,
	lat           DOUBLE PRECISION,
	lng           DOUBLE PRECISION,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_resolutions_status ON resolutions(status);
CREATE INDEX IF NOT EXISTS idx_resolutions_destination ON resolutions(destination);
CREATE INDEX IF NOT EXISTS idx_resolutions_created_at ON resolutions(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateResolution(ctx context.Context, rec Resolution) (*Resolution, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO resolutions (id, destination, origin_lat, origin_lng, status, source, resolved_name, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Destination, rec.OriginLat, rec.OriginLng, rec.Status,
		nullString(rec.Source), nullString(rec.ResolvedName), nullFloat(rec.Lat), nullFloat(rec.Lng), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert resolution")
	}
	return &rec, nil
}

func (s *PostgresStore) ListResolutions(ctx context.Context, filter Filter) ([]Resolution, error) {
	query := `SELECT id, destination, origin_lat, origin_lng, status, source, resolved_name, lat, lng, created_at FROM resolutions`
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Destination != "" {
		args = append(args, filter.Destination)
		conds = append(conds, "destination = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list resolutions")
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var (
			rec      Resolution
			source   *string
			name     *string
			lat, lng *float64
		)
		if err := rows.Scan(&rec.ID, &rec.Destination, &rec.OriginLat, &rec.OriginLng,
			&rec.Status, &source, &name, &lat, &lng, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan resolution")
		}
		if source != nil {
			rec.Source = *source
		}
		if name != nil {
			rec.ResolvedName = *name
		}
		rec.Lat = lat
		rec.Lng = lng
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate resolutions")
}

