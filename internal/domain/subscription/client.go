package subscription

import (
	"fmt"
	"strings"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/google/uuid"
)

// Client owns subscriptions and projects. Clients are created elsewhere and
// are read-only to this system.
type Client struct {
	ID   uuid.UUID
	Name string
}

// ParseClientID validates a caller-supplied client identifier
func ParseClientID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, shared.NewDomainError(shared.ErrInvalidIdentifier.Code,
			fmt.Sprintf("client id %q is not a valid identifier", raw))
	}
	return id, nil
}

// ValidateSnetID rejects empty project identifiers
func ValidateSnetID(snetID string) error {
	if strings.TrimSpace(snetID) == "" {
		return shared.NewDomainError(shared.ErrInvalidIdentifier.Code, "project snet id must not be empty")
	}
	return nil
}
