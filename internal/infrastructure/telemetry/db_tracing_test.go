package telemetry_test

import (
	"context"
	"testing"

	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestRegisterDBTracing_RecordsStatements(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	restore := setGlobalTracer(tp)
	defer restore()

	db := openMemoryDB(t)
	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"}))

	var n int
	require.NoError(t, db.WithContext(context.Background()).Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)

	assert.NotEmpty(t, recorder.Ended())
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	restore := setGlobalTracer(tp)
	defer restore()

	db := openMemoryDB(t)
	require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{}))

	var n int
	require.NoError(t, db.Raw("SELECT 1").Scan(&n).Error)
	assert.Empty(t, recorder.Ended())
}
