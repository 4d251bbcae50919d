// Package subscription holds the domain model for metered subscription
// enforcement: clients, their subscriptions and quotas, streaming projects,
// cumulative usage records and the usage intervals that track how long a
// project streamed under a subscription.
//
// State only moves toward inactive here. A subscription flips from active to
// inactive once any quota is exhausted, its projects stop streaming, and the
// open usage interval of each project is closed exactly once.
//
// Key types:
//   - Subscription: quota limits and the is_active flag
//   - Project: a data-collection job identified by its snet id
//   - UsageRecord / UsageEntry: cumulative per-project counters
//   - UsageInterval: a streaming window, open until its end is set
//   - Diagnostic: why a quota predicate evaluated the way it did
package subscription
