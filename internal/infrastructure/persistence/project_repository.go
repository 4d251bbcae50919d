package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/shared"
	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepository implements the subscription.ProjectRepository interface
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Save persists a project
func (r *ProjectRepository) Save(ctx context.Context, p *subscription.Project) error {
	return r.db.WithContext(ctx).Create(ProjectModelFromEntity(p)).Error
}

// FindStreaming returns the client's active projects of every mode
func (r *ProjectRepository) FindStreaming(ctx context.Context, clientID uuid.UUID) ([]subscription.Project, error) {
	var models []ProjectModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND is_active = ?", clientID, true).
		Order("snet_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	projects := make([]subscription.Project, len(models))
	for i := range models {
		projects[i] = models[i].ToEntity()
	}
	return projects, nil
}

// FindBySnetID returns the client's project with the given snet id
func (r *ProjectRepository) FindBySnetID(ctx context.Context, clientID uuid.UUID, snetID string) (*subscription.Project, error) {
	var model ProjectModel
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND snet_id = ?", clientID, snetID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p := model.ToEntity()
	return &p, nil
}

// MarkInactive flips the project's is_active flag
func (r *ProjectRepository) MarkInactive(ctx context.Context, clientID uuid.UUID, snetID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ProjectModel{}).
		Where("client_id = ? AND snet_id = ? AND is_active = ?", clientID, snetID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
