package subscription

import (
	"testing"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clients   *mockClientRepository
	subs      *mockSubscriptionRepository
	projects  *mockProjectRepository
	usage     *mockUsageRepository
	intervals *mockIntervalRepository
	jobs      *mockJobController

	aggregator *UsageAggregator
	evaluator  *QuotaEvaluator
	lifecycle  *SubscriptionLifecycleManager
	ledger     *UsageIntervalLedger
	sweeper    *JobSweepController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	timeout := time.Second

	f := &fixture{
		clients:   new(mockClientRepository),
		subs:      new(mockSubscriptionRepository),
		projects:  new(mockProjectRepository),
		usage:     new(mockUsageRepository),
		intervals: new(mockIntervalRepository),
		jobs:      new(mockJobController),
	}
	f.aggregator = NewUsageAggregator(f.usage, timeout)
	f.evaluator = NewQuotaEvaluator(f.subs, f.aggregator, timeout, logger, WithClock(func() time.Time { return testNow }))
	f.lifecycle = NewSubscriptionLifecycleManager(f.subs, timeout, logger)
	f.ledger = NewUsageIntervalLedger(f.lifecycle, f.projects, f.intervals, timeout, logger)
	f.ledger.now = func() time.Time { return testNow }

	cfg := DefaultSweepConfig()
	cfg.Concurrency = 2
	cfg.Timeouts = Timeouts{Store: timeout, Job: timeout}
	f.sweeper = NewJobSweepController(f.clients, f.projects, f.evaluator, f.lifecycle, f.ledger, f.jobs, cfg, logger)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.clients.AssertExpectations(t)
	f.subs.AssertExpectations(t)
	f.projects.AssertExpectations(t)
	f.usage.AssertExpectations(t)
	f.intervals.AssertExpectations(t)
	f.jobs.AssertExpectations(t)
}

func newSubscription(clientID uuid.UUID, sentences int64, credits string, end time.Time) subscription.Subscription {
	return subscription.Subscription{
		ID:             uuid.New(),
		ClientID:       clientID,
		PlanRefID:      "plan-basic",
		EndDate:        end,
		TotalSentences: sentences,
		TotalCredits:   decimal.RequireFromString(credits),
		IsActive:       true,
		CreatedAt:      testNow.AddDate(0, -1, 0),
	}
}

func newProject(clientID uuid.UUID, snetID string, mode subscription.ProjectMode) subscription.Project {
	return subscription.Project{
		ID:             uuid.New(),
		SnetID:         snetID,
		ClientID:       clientID,
		Label:          "Project " + snetID,
		QuerySignature: "query:" + snetID,
		Mode:           mode,
		IsActive:       true,
	}
}

func totals(subID uuid.UUID, sentences int64, credits string) subscription.UsageTotals {
	return subscription.UsageTotals{
		SubscriptionID: subID,
		Sentences:      sentences,
		Credits:        decimal.RequireFromString(credits),
	}
}
