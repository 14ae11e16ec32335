package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/readiness-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	country     TEXT,
	erp         TEXT,
	file_type   TEXT NOT NULL,
	rows_parsed INTEGER NOT NULL,
	total_rows  INTEGER NOT NULL,
	file_data   JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	upload_id      TEXT NOT NULL REFERENCES uploads(id),
	scores_overall INTEGER NOT NULL,
	report_json    JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_expires_at ON reports(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, u *model.Upload) error {
	prepareUpload(u, s.now().UTC())

	data, err := json.Marshal(u.Records)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal upload records")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO uploads (id, country, erp, file_type, rows_parsed, total_rows, file_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, nullable(u.Country), nullable(u.ERP), u.FileType, u.RowsParsed, u.TotalRows, data, u.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert upload %s", u.ID)
}

func (s *PostgresStore) GetUpload(ctx context.Context, id string) (*model.Upload, error) {
	var (
		u    model.Upload
		data []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(country, ''), COALESCE(erp, ''), file_type, rows_parsed, total_rows, file_data, created_at
		 FROM uploads WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Country, &u.ERP, &u.FileType, &u.RowsParsed, &u.TotalRows, &data, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: upload %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get upload %s", id)
	}

	if err := json.Unmarshal(data, &u.Records); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal upload records")
	}
	return &u, nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, uploadID string, r *model.Report, ttl time.Duration) (*model.ReportSummary, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal report")
	}

	now := s.now().UTC()
	sum := &model.ReportSummary{
		ID:           r.ReportID,
		UploadID:     uploadID,
		CreatedAt:    now,
		OverallScore: r.Scores.Overall,
		ExpiresAt:    now.Add(ttlOrDefault(ttl)),
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, upload_id, scores_overall, report_json, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sum.ID, sum.UploadID, sum.OverallScore, data, sum.CreatedAt, sum.ExpiresAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert report %s", r.ReportID)
	}
	return sum, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var (
		data      []byte
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT report_json, expires_at FROM reports WHERE id = $1`,
		id,
	).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: report %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}

	if s.now().After(expiresAt) {
		return nil, eris.Wrapf(ErrExpired, "postgres: report %s", id)
	}

	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, upload_id, scores_overall, created_at, expires_at FROM reports
		 ORDER BY created_at DESC LIMIT $1`,
		limitOrDefault(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	out := []model.ReportSummary{}
	for rows.Next() {
		var sum model.ReportSummary
		if err := rows.Scan(&sum.ID, &sum.UploadID, &sum.OverallScore, &sum.CreatedAt, &sum.ExpiresAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report summary")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func (s *PostgresStore) DeleteExpiredReports(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired reports")
	}
	return int(tag.RowsAffected()), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
