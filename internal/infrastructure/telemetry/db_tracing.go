package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBTracingConfig controls the spans recorded for SQL statements
type DBTracingConfig struct {
	Enabled bool
	// DBSystem is recorded as db.name on each span, postgresql or sqlite
	DBSystem string
	// WithQueryVariables includes bound values in db.statement. Client ids
	// end up in traces when set.
	WithQueryVariables bool
}

// RegisterDBTracing installs the otelgorm plugin on db. Spans go to the
// global tracer provider, so call it after Setup.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.WithQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return db.Use(otelgorm.NewPlugin(opts...))
}
