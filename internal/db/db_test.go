package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banshee-data/dance.report/internal/calibration"
	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/session"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "dance.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestPragmasApplied(t *testing.T) {
	database := newTestDB(t)

	var journalMode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, database.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrations(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "nested", "m.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer database.Close()

	latest, err := LatestMigrationVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	status, err := database.MigrationStatus(MigrationsFS())
	require.NoError(t, err)
	assert.True(t, status.Pending())
	assert.Equal(t, uint(0), status.Current)

	require.NoError(t, database.MigrateUp(MigrationsFS()))
	v, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
	assert.NoError(t, database.MigrateUp(MigrationsFS()), "second run is a no-op")

	require.NoError(t, database.MigrateDown(MigrationsFS()))
	v, _, err = database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'calibrations'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, database.MigrateForce(MigrationsFS(), 1))
}

func TestMigrateLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &migrateLogger{log: zap.New(core)}
	l.Printf("Finished %d\n", 2)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Finished 2", entry.Message)
	assert.Equal(t, "migrate", entry.ContextMap()["component"])
	assert.False(t, l.Verbose())
}

func testHistory() ([]session.ScoredPose, []session.IntervalScore) {
	history := []session.ScoredPose{
		{OriginalTimestamp: 0, LiveTimestamp: 12, Score: compare.Score{Total: 80, PerAngle: map[string]float64{"left_knee": 70}}},
		{OriginalTimestamp: 100, LiveTimestamp: 115, Score: compare.Score{Total: -10, PerAngle: map[string]float64{}}},
	}
	return history, session.AggregateIntervals(history, []session.Interval{{StartMs: 0, EndMs: 100}, {StartMs: 500, EndMs: 600}})
}

func TestSessionRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	history, intervals := testHistory()

	s := &Session{Title: "Warmup", LevelPath: "levels/warmup.json", Variant: "3d", Frames: 2, MeanTotal: 35, Grade: "bad"}
	require.NoError(t, database.InsertSession(ctx, s, history, intervals))
	require.NotEmpty(t, s.ID)
	require.NotZero(t, s.CreatedAt)

	got, err := database.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	gotHistory, err := database.SessionHistory(ctx, s.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(history, gotHistory); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	gotIntervals, err := database.SessionIntervals(ctx, s.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(intervals, gotIntervals); diff != "" {
		t.Errorf("intervals mismatch (-want +got):\n%s", diff)
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UnixNano()

	for i, title := range []string{"first", "second", "third"} {
		s := &Session{Title: title, Variant: "3d", CreatedAt: base + int64(i)}
		require.NoError(t, database.InsertSession(ctx, s, nil, nil))
	}

	all, err := database.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title)

	two, err := database.ListSessions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	require.NoError(t, database.DeleteSession(ctx, all[0].ID))
	_, err = database.GetSession(ctx, all[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	assert.ErrorIs(t, database.DeleteSession(ctx, all[0].ID), ErrNotFound)

	history, err := database.SessionHistory(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCalibrations(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := database.LatestCalibration(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	s := &Session{Title: "cal", Variant: "3d"}
	require.NoError(t, database.InsertSession(ctx, s, nil, nil))

	first := FromDelay(calibration.DelayResult{MedianMs: 400, MADMs: 100, OffsetMs: 400, Used: 2, Total: 2})
	first.SessionID = s.ID
	first.CreatedAt = 1
	require.NoError(t, database.InsertCalibration(ctx, first))

	second := FromBestMatch(calibration.MatchResult{OffsetMs: -40, Matched: 4, Total: 5})
	second.CreatedAt = 2
	require.NoError(t, database.InsertCalibration(ctx, second))

	latest, err := database.LatestCalibration(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest)

	// Deleting the session keeps its calibration, detached.
	require.NoError(t, database.DeleteSession(ctx, s.ID))
	var sessionID *string
	require.NoError(t, database.QueryRow(`SELECT session_id FROM calibrations WHERE calibration_id = ?`, first.ID).Scan(&sessionID))
	assert.Nil(t, sessionID)
}

func TestInsertSessionDuplicateID(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	history, intervals := testHistory()

	s := &Session{ID: "fixed", Title: "a", Variant: "2d"}
	require.NoError(t, database.InsertSession(ctx, s, history, intervals))
	err := database.InsertSession(ctx, &Session{ID: "fixed", Title: "b", Variant: "2d"}, history, intervals)
	require.Error(t, err)

	// The failed insert rolled back completely.
	got, err := database.SessionHistory(ctx, "fixed")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	other := errors.New("some other error")
	assert.Equal(t, other, retryOnBusy(func() error { calls++; return other }))
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryOnBusy(func() error { calls++; return errors.New("SQLITE_BUSY") })
	assert.Error(t, err)
	assert.Equal(t, maxBusyRetries, calls)

	assert.False(t, isSQLiteBusy(nil))
}

func TestAttachAdminRoutes(t *testing.T) {
	database := newTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, database.AttachAdminRoutes(mux))

	for _, path := range []string{"/debug/backup", "/debug/tailsql/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		// Debug routes may refuse access depending on the caller.
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
		if path == "/debug/backup" && rec.Code == http.StatusOK {
			assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
			assert.NotZero(t, rec.Body.Len())
		}
	}
}
