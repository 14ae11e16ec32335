// Package store persists uploads and generated reports.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/readiness-cli/internal/model"
)

// Defaults for report retention and listing.
const (
	DefaultReportTTL = 7 * 24 * time.Hour
	DefaultListLimit = 10
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound = eris.New("not found")
	ErrExpired  = eris.New("expired")
)

// Store defines the persistence interface for uploads and reports.
type Store interface {
	// Uploads
	CreateUpload(ctx context.Context, u *model.Upload) error
	GetUpload(ctx context.Context, id string) (*model.Upload, error)

	// Reports
	SaveReport(ctx context.Context, uploadID string, r *model.Report, ttl time.Duration) (*model.ReportSummary, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, limit int) ([]model.ReportSummary, error)
	DeleteExpiredReports(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// prepareUpload fills in the id and creation time of a new upload.
func prepareUpload(u *model.Upload, now time.Time) {
	if u.ID == "" {
		u.ID = model.NewUploadID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now.Truncate(time.Millisecond)
	}
	if u.Records == nil {
		u.Records = model.RecordSet{}
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultReportTTL
	}
	return ttl
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
