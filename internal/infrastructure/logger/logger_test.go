package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config", cfg: nil},
		{name: "console", cfg: DefaultConfig()},
		{name: "json stderr", cfg: &Config{Level: "debug", Format: "json", Output: "stderr"}},
		{name: "file output", cfg: &Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "ctl.log")}},
		{name: "unwritable file", cfg: &Config{Output: filepath.Join(t.TempDir(), "missing", "ctl.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("missing logger yields nop", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("client id is attached", func(t *testing.T) {
		ctx, _ := WithClientID(context.Background(), base, "c-1")
		FromContext(ctx).Info("swept")

		assert.Equal(t, "c-1", GetClientID(ctx))
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "c-1", entries[0].ContextMap()["client_id"])
	})

	t.Run("trace ids are attached for valid spans", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1},
			SpanID:  trace.SpanID{2},
		})
		ctx := trace.ContextWithSpanContext(WithContext(context.Background(), base), sc)
		FromContext(ctx).Info("traced")

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, sc.TraceID().String(), entries[0].ContextMap()["trace_id"])
		assert.Equal(t, sc.SpanID().String(), entries[0].ContextMap()["span_id"])
	})
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, 50*time.Millisecond)
	fc := func() (string, int64) { return "UPDATE subscriptions SET is_active = false", 1 }

	gl.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, recorded.Len(), "record not found is not logged")

	gl.Trace(context.Background(), time.Now(), fc, errors.New("connection reset"))
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 2, recorded.Len())
	assert.Equal(t, "slow sql", recorded.All()[1].Message)

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("ignored"))
	assert.Equal(t, 2, recorded.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	entries := recorded.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
