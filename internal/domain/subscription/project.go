package subscription

import "github.com/google/uuid"

// ProjectMode distinguishes continuous streams from batch jobs
type ProjectMode string

const (
	ProjectModeRealtime ProjectMode = "realtime"
	ProjectModeOffline  ProjectMode = "offline"
)

// Project is a data-collection job owned by a client
type Project struct {
	ID             uuid.UUID
	SnetID         string
	ClientID       uuid.UUID
	Label          string
	QuerySignature string
	Mode           ProjectMode
	IsActive       bool
}

// Streaming reports whether the project still has a running job
func (p *Project) Streaming() bool {
	return p.IsActive
}
