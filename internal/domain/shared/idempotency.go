package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed event ids so a replayed usage event is
// applied at most once within its TTL.
type IdempotencyStore interface {
	// MarkProcessed records eventID. It returns true when the id was newly
	// recorded and false when it had already been seen.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether eventID has been recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Forget removes eventID, used when applying the event failed after marking
	Forget(ctx context.Context, eventID string) error

	Close() error
}
