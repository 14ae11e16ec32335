package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/readiness-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as Unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	country     TEXT,
	erp         TEXT,
	file_type   TEXT NOT NULL,
	rows_parsed INTEGER NOT NULL,
	total_rows  INTEGER NOT NULL,
	file_data   TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	upload_id      TEXT NOT NULL REFERENCES uploads(id),
	scores_overall INTEGER NOT NULL,
	report_json    TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	expires_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_expires_at ON reports(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, u *model.Upload) error {
	prepareUpload(u, s.now().UTC())

	data, err := json.Marshal(u.Records)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal upload records")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, country, erp, file_type, rows_parsed, total_rows, file_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, nullString(u.Country), nullString(u.ERP), u.FileType, u.RowsParsed, u.TotalRows,
		string(data), u.CreatedAt.UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: insert upload %s", u.ID)
}

func (s *SQLiteStore) GetUpload(ctx context.Context, id string) (*model.Upload, error) {
	var (
		u              model.Upload
		country, erp   sql.NullString
		data           string
		createdAtMilli int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, country, erp, file_type, rows_parsed, total_rows, file_data, created_at
		 FROM uploads WHERE id = ?`,
		id,
	).Scan(&u.ID, &country, &erp, &u.FileType, &u.RowsParsed, &u.TotalRows, &data, &createdAtMilli)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: upload %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get upload %s", id)
	}

	if err := json.Unmarshal([]byte(data), &u.Records); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal upload records")
	}
	u.Country = country.String
	u.ERP = erp.String
	u.CreatedAt = time.UnixMilli(createdAtMilli).UTC()
	return &u, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, uploadID string, r *model.Report, ttl time.Duration) (*model.ReportSummary, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal report")
	}

	now := s.now().UTC()
	sum := &model.ReportSummary{
		ID:           r.ReportID,
		UploadID:     uploadID,
		CreatedAt:    now.Truncate(time.Millisecond),
		OverallScore: r.Scores.Overall,
		ExpiresAt:    now.Add(ttlOrDefault(ttl)).Truncate(time.Millisecond),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, upload_id, scores_overall, report_json, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.UploadID, sum.OverallScore, string(data), sum.CreatedAt.UnixMilli(), sum.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert report %s", r.ReportID)
	}
	return sum, nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var (
		data         string
		expiresMilli int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json, expires_at FROM reports WHERE id = ?`,
		id,
	).Scan(&data, &expiresMilli)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}

	if s.now().After(time.UnixMilli(expiresMilli)) {
		return nil, eris.Wrapf(ErrExpired, "sqlite: report %s", id)
	}

	var r model.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, upload_id, scores_overall, created_at, expires_at FROM reports
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limitOrDefault(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.ReportSummary{}
	for rows.Next() {
		var (
			sum                    model.ReportSummary
			createdMilli, expMilli int64
		)
		if err := rows.Scan(&sum.ID, &sum.UploadID, &sum.OverallScore, &createdMilli, &expMilli); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report summary")
		}
		sum.CreatedAt = time.UnixMilli(createdMilli).UTC()
		sum.ExpiresAt = time.UnixMilli(expMilli).UTC()
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

func (s *SQLiteStore) DeleteExpiredReports(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE expires_at < ?`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired reports")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
