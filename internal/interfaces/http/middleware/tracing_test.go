package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func newTracedRouter(cfg TracingConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TracingWithConfig(cfg), SpanAttributes())
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/clients/:id/quota", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"exhausted": false})
	})
	router.POST("/api/v1/clients/:id/sweep", func(c *gin.Context) {
		c.Status(http.StatusServiceUnavailable)
	})
	return router
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.AsString(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	cfg := DefaultTracingConfig()
	cfg.Enabled = false

	w := httptest.NewRecorder()
	newTracedRouter(cfg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clients/abc/quota", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/abc/quota", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	newTracedRouter(DefaultTracingConfig()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)

	id, ok := attrValue(spans[0].Attributes(), "request_id")
	assert.True(t, ok)
	assert.Equal(t, "req-42", id)
	client, ok := attrValue(spans[0].Attributes(), "client_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", client)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	newTracedRouter(DefaultTracingConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/clients/abc/sweep", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_SkipsHealth(t *testing.T) {
	sr := setupTestTracer(t)

	w := httptest.NewRecorder()
	newTracedRouter(DefaultTracingConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestRequestID_Truncated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	long := make([]byte, MaxRequestIDLength+20)
	for i := range long {
		long[i] = 'a'
	}
	c.Request.Header.Set("X-Request-ID", string(long))

	assert.Len(t, requestID(c), MaxRequestIDLength)
}
