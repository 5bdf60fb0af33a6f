package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func TestGormRecorder_SaveAndRecent(t *testing.T) {
	ctx := context.Background()
	rec := NewGormRecorder(openTestDB(t))
	require.NoError(t, rec.Migrate(ctx))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cause := "openrouter: completion request failed: status 500"
	require.NoError(t, rec.Save(ctx, &Record{
		SessionID: 1, Provider: "openrouter", Model: "openai/gpt-3.5-turbo",
		Status: StatusSucceeded, LatencyMS: 12, CreatedAt: base,
	}))
	require.NoError(t, rec.Save(ctx, &Record{
		SessionID: 2, Provider: "openrouter", Model: "openai/gpt-3.5-turbo",
		Status: StatusFailed, Error: &cause, LatencyMS: 30, CreatedAt: base.Add(time.Second),
	}))

	got, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, StatusFailed, got[0].Status)
	require.NotNil(t, got[0].Error)
	require.Equal(t, cause, *got[0].Error)
	require.Len(t, got[0].ID, 26)
	require.Equal(t, StatusSucceeded, got[1].Status)

	got, err = rec.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(2), got[0].SessionID)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	r, closeFn, err := Open(ctx, Options{})
	require.NoError(t, err)
	require.IsType(t, NopRecorder{}, r)
	require.NoError(t, closeFn())

	dsn := "file:" + filepath.Join(t.TempDir(), "audit.db")
	r, closeFn, err = Open(ctx, Options{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.IsType(t, &GormRecorder{}, r)
	require.NoError(t, r.Save(ctx, &Record{SessionID: 1, Provider: "p", Model: "m", Status: StatusSucceeded, CreatedAt: time.Now()}))
	require.NoError(t, closeFn())

	_, _, err = Open(ctx, Options{Driver: "cassandra"})
	require.ErrorIs(t, err, ErrInvalidDriver)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	require.NoError(t, r.Save(context.Background(), &Record{}))
	got, err := r.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, got)
}
