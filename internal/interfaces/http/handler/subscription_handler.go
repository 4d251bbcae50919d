package handler

import (
	"context"
	"errors"

	appsub "github.com/discovery/subscription-controller/internal/application/subscription"
	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/discovery/subscription-controller/internal/infrastructure/scheduler"
	"github.com/discovery/subscription-controller/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuotaReporter evaluates every quota of a client
type QuotaReporter interface {
	Report(ctx context.Context, clientID string) (*appsub.QuotaReport, error)
}

// ClientSweeper settles one client on demand
type ClientSweeper interface {
	SweepOne(ctx context.Context, clientID string) (bool, *appsub.SweepOutcome, error)
}

// UsageRecorder applies a metering event
type UsageRecorder interface {
	RecordUsage(ctx context.Context, ev subscription.UsageEvent) (*appsub.RecordResult, error)
}

// SweepTrigger starts a batch sweep outside the schedule and exposes the
// summary of the last finished one.
type SweepTrigger interface {
	TriggerImmediateSweep() error
	LastSummary() *appsub.SweepSummary
}

// SubscriptionHandler exposes quota evaluation, sweeps and usage recording
type SubscriptionHandler struct {
	BaseHandler
	quota    QuotaReporter
	sweeper  ClientSweeper
	recorder UsageRecorder
	trigger  SweepTrigger
}

// NewSubscriptionHandler creates a new subscription handler. trigger may be
// nil when the batch scheduler is disabled.
func NewSubscriptionHandler(
	quota QuotaReporter,
	sweeper ClientSweeper,
	recorder UsageRecorder,
	trigger SweepTrigger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		quota:    quota,
		sweeper:  sweeper,
		recorder: recorder,
		trigger:  trigger,
	}
}

// RecordUsageRequest is one metering report. Sentences and messages are
// deltas; credits is the cumulative figure for the project.
type RecordUsageRequest struct {
	EventID   string           `json:"event_id"`
	SnetID    string           `json:"snet_id" binding:"required"`
	Sentences *int64           `json:"sentences"`
	Messages  *int64           `json:"messages"`
	Credits   *decimal.Decimal `json:"credits"`
}

func (r RecordUsageRequest) validate() error {
	if r.Sentences != nil && *r.Sentences < 0 {
		return errors.New("sentences must not be negative")
	}
	if r.Messages != nil && *r.Messages < 0 {
		return errors.New("messages must not be negative")
	}
	if r.Credits != nil && r.Credits.IsNegative() {
		return errors.New("credits must not be negative")
	}
	return nil
}

// SweepResponse is the result of an on-demand client sweep
type SweepResponse struct {
	Exhausted bool                 `json:"exhausted"`
	Outcome   *appsub.SweepOutcome `json:"outcome"`
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients/:id")
	clients.GET("/quota", h.GetQuota)
	clients.POST("/sweep", h.SweepClient)
	clients.POST("/usage", h.RecordUsage)

	sweeps := rg.Group("/sweeps")
	sweeps.POST("", h.TriggerSweep)
	sweeps.GET("/last", h.GetLastSweep)
}

// GetQuota reports the time, sentence and credit decisions for a client
func (h *SubscriptionHandler) GetQuota(c *gin.Context) {
	report, err := h.quota.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// SweepClient settles one client: halts jobs, deactivates the subscription
// and closes intervals when any quota is exhausted.
func (h *SubscriptionHandler) SweepClient(c *gin.Context) {
	exhausted, out, err := h.sweeper.SweepOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SweepResponse{Exhausted: exhausted, Outcome: out})
}

// RecordUsage applies a metering event for one project of the client
func (h *SubscriptionHandler) RecordUsage(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.HandleError(c, shared.NewDomainError(shared.ErrInvalidIdentifier.Code, "malformed client id"))
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
		return
	}

	res, err := h.recorder.RecordUsage(c.Request.Context(), subscription.UsageEvent{
		EventID:   req.EventID,
		ClientID:  clientID,
		SnetID:    req.SnetID,
		Sentences: req.Sentences,
		Messages:  req.Messages,
		Credits:   req.Credits,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// TriggerSweep starts a batch sweep in the background
func (h *SubscriptionHandler) TriggerSweep(c *gin.Context) {
	if h.trigger == nil {
		h.ErrorWithCode(c, dto.ErrCodeSchedulerStopped, "sweep scheduler is disabled")
		return
	}
	switch err := h.trigger.TriggerImmediateSweep(); {
	case errors.Is(err, scheduler.ErrSweepInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSweepInProgress, err.Error())
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.ErrorWithCode(c, dto.ErrCodeSchedulerStopped, err.Error())
	case err != nil:
		h.HandleError(c, err)
	default:
		h.Accepted(c, gin.H{"status": "accepted"})
	}
}

// GetLastSweep returns the summary of the last finished batch sweep
func (h *SubscriptionHandler) GetLastSweep(c *gin.Context) {
	var summary *appsub.SweepSummary
	if h.trigger != nil {
		summary = h.trigger.LastSummary()
	}
	if summary == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, "no sweep has finished yet")
		return
	}
	h.Success(c, summary)
}
