package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/discovery/subscription-controller/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger checks a backing store
type Pinger interface {
	Ping() error
}

// ReachabilityChecker reports whether the job control service answers
type ReachabilityChecker interface {
	IsReachable(ctx context.Context) bool
}

// HealthHandler reports liveness of the store and job control
type HealthHandler struct {
	BaseHandler
	db        Pinger
	jobs      ReachabilityChecker
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, jobs ReachabilityChecker) *HealthHandler {
	return &HealthHandler{
		db:        db,
		jobs:      jobs,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	JobControl string `json:"job_control"`
	Uptime     string `json:"uptime"`
}

func upDown(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}

// Check answers 200 while the database responds. Job control is reported but
// does not fail the check; sweeps degrade to skipping halts without it.
func (h *HealthHandler) Check(c *gin.Context) {
	dbUp := h.db.Ping() == nil
	jobsUp := h.jobs == nil || h.jobs.IsReachable(c.Request.Context())

	resp := HealthResponse{
		Status:     upDown(dbUp),
		Database:   upDown(dbUp),
		JobControl: upDown(jobsUp),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
	code := http.StatusOK
	if !dbUp {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, dto.Response{Success: dbUp, Data: resp})
}
