package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig holds the zap to OTLP log bridge configuration
type LogsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
}

// LogBridge exports zap entries as OpenTelemetry log records
type LogBridge struct {
	provider *sdklog.LoggerProvider
	name     string
}

// NewLogBridge creates the OTLP log exporter. A disabled config returns a
// bridge whose Attach is a no-op.
func NewLogBridge(ctx context.Context, cfg LogsConfig) (*LogBridge, error) {
	b := &LogBridge{name: cfg.ServiceName}
	if !cfg.Enabled {
		return b, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := newResource(Config{ServiceName: cfg.ServiceName})
	if err != nil {
		return nil, err
	}
	b.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	return b, nil
}

// newLogBridgeWithProvider wraps an existing provider, used by tests
func newLogBridgeWithProvider(name string, provider *sdklog.LoggerProvider) *LogBridge {
	return &LogBridge{provider: provider, name: name}
}

// Attach returns l with every entry also sent through the bridge
func (b *LogBridge) Attach(l *zap.Logger) *zap.Logger {
	if b == nil || b.provider == nil {
		return l
	}
	otelCore := otelzap.NewCore(b.name, otelzap.WithLoggerProvider(b.provider))
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	}))
}

// Shutdown flushes pending records
func (b *LogBridge) Shutdown(ctx context.Context) error {
	if b == nil || b.provider == nil {
		return nil
	}
	if err := b.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}
