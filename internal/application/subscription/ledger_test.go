package subscription

import (
	"context"
	"testing"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func openInterval(sub subscription.Subscription, p subscription.Project) subscription.UsageInterval {
	return subscription.UsageInterval{
		ID:             uuid.New(),
		ClientID:       sub.ClientID,
		SubscriptionID: sub.ID,
		SnetID:         p.SnetID,
		QuerySignature: p.QuerySignature,
		StartedAt:      testNow.AddDate(0, 0, -2),
		Status:         subscription.UsageStatusActive,
	}
}

func TestUsageIntervalLedger_CloseOpenInterval(t *testing.T) {
	clientID := uuid.New()
	sub := newSubscription(clientID, 1000, "50", testNow.AddDate(0, 1, 0))
	project := newProject(clientID, "snet-1", subscription.ProjectModeRealtime)

	t.Run("closes the single open interval", func(t *testing.T) {
		f := newFixture(t)
		iv := openInterval(sub, project)
		var order []string
		f.subs.On("FindActive", mock.Anything, clientID).Return([]subscription.Subscription{sub}, nil)
		f.projects.On("FindBySnetID", mock.Anything, clientID, "snet-1").Return(&project, nil)
		f.intervals.On("FindOpen", mock.Anything, sub.ID, "snet-1", project.QuerySignature).
			Return([]subscription.UsageInterval{iv}, nil)
		f.intervals.On("DeactivateStreamUsage", mock.Anything, sub.ID, "snet-1").Return(int64(1), nil).
			Run(func(mock.Arguments) { order = append(order, "stream_usage") })
		f.intervals.On("Close", mock.Anything, iv.ID, testNow).Return(int64(1), nil).
			Run(func(mock.Arguments) { order = append(order, "interval") })

		res, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "snet-1")
		require.NoError(t, err)
		assert.True(t, res.Closed)
		assert.True(t, res.StreamUsageUpdated)
		assert.Equal(t, 1, res.Matches)
		assert.Equal(t, []string{"stream_usage", "interval"}, order)
		f.assertExpectations(t)
	})

	t.Run("no open interval is a no-op", func(t *testing.T) {
		f := newFixture(t)
		f.subs.On("FindActive", mock.Anything, clientID).Return([]subscription.Subscription{sub}, nil)
		f.projects.On("FindBySnetID", mock.Anything, clientID, "snet-1").Return(&project, nil)
		f.intervals.On("FindOpen", mock.Anything, sub.ID, "snet-1", project.QuerySignature).
			Return([]subscription.UsageInterval{}, nil)

		res, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "snet-1")
		require.NoError(t, err)
		assert.False(t, res.Closed)
		assert.Zero(t, res.Matches)
		f.intervals.AssertNotCalled(t, "Close", mock.Anything, mock.Anything, mock.Anything)
		f.intervals.AssertNotCalled(t, "DeactivateStreamUsage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ambiguous matches are left open", func(t *testing.T) {
		f := newFixture(t)
		f.subs.On("FindActive", mock.Anything, clientID).Return([]subscription.Subscription{sub}, nil)
		f.projects.On("FindBySnetID", mock.Anything, clientID, "snet-1").Return(&project, nil)
		f.intervals.On("FindOpen", mock.Anything, sub.ID, "snet-1", project.QuerySignature).
			Return([]subscription.UsageInterval{openInterval(sub, project), openInterval(sub, project)}, nil)

		res, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "snet-1")
		require.NoError(t, err)
		assert.False(t, res.Closed)
		require.NotNil(t, res.Warning)
		assert.Equal(t, 2, res.Warning.Matches)
		assert.ErrorIs(t, res.Warning, subscription.ErrConsistency)
		f.intervals.AssertNotCalled(t, "Close", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown project is a no-op", func(t *testing.T) {
		f := newFixture(t)
		f.subs.On("FindActive", mock.Anything, clientID).Return([]subscription.Subscription{sub}, nil)
		f.projects.On("FindBySnetID", mock.Anything, clientID, "snet-9").Return(nil, shared.ErrNotFound)

		res, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "snet-9")
		require.NoError(t, err)
		assert.False(t, res.Closed)
		f.intervals.AssertNotCalled(t, "FindOpen", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("client without subscriptions", func(t *testing.T) {
		f := newFixture(t)
		f.subs.On("FindActive", mock.Anything, clientID).Return([]subscription.Subscription{}, nil)
		f.subs.On("FindLatest", mock.Anything, clientID).Return(nil, shared.ErrNotFound)

		res, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "snet-1")
		require.NoError(t, err)
		assert.False(t, res.Closed)
		f.projects.AssertNotCalled(t, "FindBySnetID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects empty project id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ledger.CloseOpenInterval(context.Background(), clientID.String(), "")
		assert.ErrorIs(t, err, shared.ErrInvalidIdentifier)
	})
}
