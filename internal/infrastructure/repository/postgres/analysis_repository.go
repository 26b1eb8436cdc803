package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	page_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	csv_download TEXT NOT NULL DEFAULT '',
	json_download TEXT NOT NULL DEFAULT '',
	num_records BIGINT,
	preview_rows INTEGER NOT NULL DEFAULT 0,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save inserts the record, replacing an earlier copy with the same id so that
// redelivered events are harmless.
func (r *AnalysisRepository) Save(ctx context.Context, rec domain.AnalysisRecord) error {
	var numRecords sql.NullInt64
	if rec.NumRecords != nil {
		numRecords = sql.NullInt64{Int64: *rec.NumRecords, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO analyses (
	id, filename, size_bytes, page_count, status, error_message, csv_download, json_download, num_records, preview_rows, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
	filename = EXCLUDED.filename,
	size_bytes = EXCLUDED.size_bytes,
	page_count = EXCLUDED.page_count,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	csv_download = EXCLUDED.csv_download,
	json_download = EXCLUDED.json_download,
	num_records = EXCLUDED.num_records,
	preview_rows = EXCLUDED.preview_rows,
	duration_ms = EXCLUDED.duration_ms
`,
		rec.ID, rec.Filename, rec.SizeBytes, rec.PageCount, string(rec.Status), rec.Error,
		rec.CSVDownload, rec.JSONDownload, numRecords, rec.PreviewRows, rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, filename, size_bytes, page_count, status, error_message, csv_download, json_download, num_records, preview_rows, duration_ms, created_at`

// DefaultListLimit caps ListRecent when the caller passes no limit.
const DefaultListLimit = 50

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE id = $1
`, id)

	rec, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	return &rec, nil
}

// ListRecent returns the newest records first.
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnalysisRecord, 0)
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	var status string
	var numRecords sql.NullInt64

	err := row.Scan(
		&rec.ID, &rec.Filename, &rec.SizeBytes, &rec.PageCount, &status, &rec.Error,
		&rec.CSVDownload, &rec.JSONDownload, &numRecords, &rec.PreviewRows, &rec.DurationMS, &rec.CreatedAt,
	)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}

	rec.Status = domain.AnalysisStatus(status)
	if numRecords.Valid {
		n := numRecords.Int64
		rec.NumRecords = &n
	}
	return rec, nil
}
