package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS resolutions (
	id            TEXT PRIMARY KEY,
	destination   TEXT NOT NULL,
	origin_lat    REAL NOT NULL,
	origin_lng    REAL NOT NULL,
	status        TEXT NOT NULL,
	source        TEXT,
	resolved_name TEXT,
	lat           REAL,
	lng           REAL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_resolutions_status ON resolutions(status);
CREATE INDEX IF NOT EXISTS idx_resolutions_destination ON resolutions(destination);
CREATE INDEX IF NOT EXISTS idx_resolutions_created_at ON resolutions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateResolution(ctx context.Context, rec Resolution) (*Resolution, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (id, destination, origin_lat, origin_lng, status, source, resolved_name, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Destination, rec.OriginLat, rec.OriginLng, rec.Status,
		nullString(rec.Source), nullString(rec.ResolvedName), nullFloat(rec.Lat), nullFloat(rec.Lng), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert resolution")
	}
	return &rec, nil
}

func (s *SQLiteStore) ListResolutions(ctx context.Context, filter Filter) ([]Resolution, error) {
	query := `SELECT id, destination, origin_lat, origin_lng, status, source, resolved_name, lat, lng, created_at FROM resolutions`
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Destination != "" {
		conds = append(conds, "destination = ?")
		args = append(args, filter.Destination)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list resolutions")
	}
	defer rows.Close() //nolint:errcheck

	var out []Resolution
	for rows.Next() {
		var (
			rec      Resolution
			source   sql.NullString
			name     sql.NullString
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Destination, &rec.OriginLat, &rec.OriginLng,
			&rec.Status, &source, &name, &lat, &lng, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resolution")
		}
		rec.Source = source.String
		rec.ResolvedName = name.String
		if lat.Valid {
			rec.Lat = &lat.Float64
		}
		if lng.Valid {
			rec.Lng = &lng.Float64
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate resolutions")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
