package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/readiness-cli/internal/analyzer"
	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/store"
)

func TestOpenStore_SQLite(t *testing.T) {
	testConfig(t)
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
	assert.NoError(t, st.Ping(ctx))
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "mysql"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestInitStore_PostgresRequiresURL(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "postgres"

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestNewAnalyzer_RecordsDriver(t *testing.T) {
	testConfig(t)
	s, err := loadSchema()
	require.NoError(t, err)

	report, err := newAnalyzer(s, "sqlite").Analyze(context.Background(), analyzer.Input{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", report.Meta.DB)
}

func TestReportTTL(t *testing.T) {
	c := testConfig(t)
	assert.Equal(t, 7*24*time.Hour, reportTTL())
	c.Report.TTLHours = 1
	assert.Equal(t, time.Hour, reportTTL())
}

func TestCleanupLoop_DeletesExpired(t *testing.T) {
	testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	u := &model.Upload{FileType: "json"}
	require.NoError(t, st.CreateUpload(ctx, u))
	_, err = st.SaveReport(ctx, u.ID, &model.Report{ReportID: "r_expired0"}, time.Nanosecond)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		cleanupLoop(ctx, st, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := st.GetReport(ctx, "r_expired0")
		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
