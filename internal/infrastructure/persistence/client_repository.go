package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientRepository implements the subscription.ClientRepository interface
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// ListIDs returns every client id ordered by id
func (r *ClientRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&ClientModel{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
