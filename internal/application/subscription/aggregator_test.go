package subscription

import (
	"context"
	"testing"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUsageAggregator_Aggregate(t *testing.T) {
	f := newFixture(t)
	clientID := uuid.New()
	current, previous := uuid.New(), uuid.New()
	f.usage.On("SumBySubscription", mock.Anything, clientID).Return([]subscription.UsageTotals{
		totals(current, 10, "1.25"),
		totals(previous, 500, "40"),
		totals(current, 5, "0.75"),
	}, nil)

	got, err := f.aggregator.Aggregate(context.Background(), clientID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(15), got[current].Sentences)
	assert.Equal(t, "2", got[current].Credits.String())
	assert.Equal(t, int64(500), got[previous].Sentences)
}

func TestUsageAggregator_ActiveUsage(t *testing.T) {
	clientID := uuid.New()
	sub := newSubscription(clientID, 100, "10", testNow.AddDate(0, 1, 0))

	t.Run("selects the active group", func(t *testing.T) {
		f := newFixture(t)
		f.usage.On("SumBySubscription", mock.Anything, clientID).Return([]subscription.UsageTotals{
			totals(uuid.New(), 99, "9"),
			totals(sub.ID, 3, "0.5"),
		}, nil)

		got, err := f.aggregator.ActiveUsage(context.Background(), clientID, []subscription.Subscription{sub})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(3), got.Sentences)
	})

	t.Run("nil without usage under the active subscription", func(t *testing.T) {
		f := newFixture(t)
		f.usage.On("SumBySubscription", mock.Anything, clientID).Return([]subscription.UsageTotals{}, nil)

		got, err := f.aggregator.ActiveUsage(context.Background(), clientID, []subscription.Subscription{sub})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSelectActive(t *testing.T) {
	clientID := uuid.New()
	end := testNow.AddDate(0, 1, 0)
	a := newSubscription(clientID, 1, "1", end)
	b := newSubscription(clientID, 1, "1", end)
	groups := map[uuid.UUID]subscription.UsageTotals{a.ID: totals(a.ID, 7, "1")}

	got, err := SelectActive(clientID, groups, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = SelectActive(clientID, groups, []subscription.Subscription{a})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Sentences)

	_, err = SelectActive(clientID, groups, []subscription.Subscription{a, b})
	var warning *subscription.ConsistencyWarning
	require.ErrorAs(t, err, &warning)
	assert.Equal(t, 2, warning.Matches)
}
