package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// Supported database drivers as named in configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	cutoff         TEXT NOT NULL,
	discovered     INTEGER NOT NULL,
	total          INTEGER NOT NULL,
	succeeded      INTEGER NOT NULL,
	failed         INTEGER NOT NULL,
	store_failures INTEGER NOT NULL,
	started_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	link         TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	publish_date TEXT NOT NULL,
	succeeded    BOOLEAN NOT NULL,
	error        TEXT NOT NULL,
	data         TEXT NOT NULL,
	enriched_at  TEXT NOT NULL
);`

// SQLStore persists records and runs through database/sql.
type SQLStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.RecordStore = (*SQLStore)(nil)
	_ ports.RunRecorder = (*SQLStore)(nil)
)

// OpenSQL opens driver ("sqlite" or "postgres") at dsn and creates the tables.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var sqlDriver string
	placeholder := sq.Question
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", domain.ErrConfiguration, driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: database dsn is empty", domain.ErrConfiguration)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	store := NewSQLStore(db, placeholder)
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database; tables must already exist.
func NewSQLStore(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStore {
	return &SQLStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(placeholder).RunWith(db),
	}
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Store upserts the record keyed by its link.
func (s *SQLStore) Store(ctx context.Context, rec domain.EnrichedRecord) (string, error) {
	data := "{}"
	if len(rec.Data) > 0 {
		encoded, err := json.Marshal(rec.Data)
		if err != nil {
			return "", fmt.Errorf("marshal data for %s: %w", rec.Ref.Link, err)
		}
		data = string(encoded)
	}

	_, err := s.sb.Insert("records").
		Columns("link", "title", "publish_date", "succeeded", "error", "data", "enriched_at").
		Values(rec.Ref.Link, rec.Ref.Title, rec.Ref.PublishDate(), rec.Succeeded, rec.Error, data, rec.EnrichedAt.UTC().Format(time.RFC3339Nano)).
		Suffix(`ON CONFLICT (link) DO UPDATE SET
			title = excluded.title,
			publish_date = excluded.publish_date,
			succeeded = excluded.succeeded,
			error = excluded.error,
			data = excluded.data,
			enriched_at = excluded.enriched_at`).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("upsert record %s: %w", rec.Ref.Link, err)
	}
	return "records/" + rec.Ref.Link, nil
}

// SaveRun inserts the run summary.
func (s *SQLStore) SaveRun(ctx context.Context, summary domain.Summary) error {
	_, err := s.sb.Insert("runs").
		Columns("run_id", "source", "cutoff", "discovered", "total", "succeeded", "failed", "store_failures", "started_at", "finished_at").
		Values(summary.RunID, summary.Source, summary.Cutoff.String(), summary.Discovered, summary.Total,
			summary.Succeeded, summary.Failed, summary.StoreFailures,
			summary.StartedAt.UTC().Format(time.RFC3339Nano), summary.FinishedAt.UTC().Format(time.RFC3339Nano)).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}
	return nil
}

// Records lists stored records, newest publish date first. succeededOnly filters failures out.
func (s *SQLStore) Records(ctx context.Context, succeededOnly bool) ([]domain.EnrichedRecord, error) {
	query := s.sb.Select("link", "title", "publish_date", "succeeded", "error", "data", "enriched_at").
		From("records").
		OrderBy("publish_date DESC", "link ASC")
	if succeededOnly {
		query = query.Where(sq.Eq{"succeeded": true})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []domain.EnrichedRecord
	for rows.Next() {
		var (
			doc        recordDocument
			data       string
			enrichedAt string
		)
		if err := rows.Scan(&doc.Link, &doc.Title, &doc.PublishDate, &doc.Succeeded, &doc.Error, &data, &enrichedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if data != "" && data != "{}" {
			if err := json.Unmarshal([]byte(data), &doc.Data); err != nil {
				return nil, fmt.Errorf("decode data of %s: %w", doc.Link, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, enrichedAt); err == nil {
			doc.EnrichedAt = t
		}
		out = append(out, doc.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// RunCount returns how many runs were recorded.
func (s *SQLStore) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := s.sb.Select("COUNT(*)").From("runs").QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
