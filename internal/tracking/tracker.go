// Package tracking records research projects across runs so finished work
// is discoverable later. Two backends exist: a JSON file for zero-setup
// use and SQLite for anything multi-process.
package tracking

import (
	"context"
	"time"
)

// ProjectStatus is the lifecycle state of a tracked research project.
type ProjectStatus string

const (
	StatusRunning  ProjectStatus = "running"
	StatusComplete ProjectStatus = "complete"
	StatusFailed   ProjectStatus = "failed"
)

// Project is one tracked research run.
type Project struct {
	ID          string        `json:"id"`
	Topic       string        `json:"topic"`
	Perspective string        `json:"perspective,omitempty"`
	Dir         string        `json:"dir"`
	Status      ProjectStatus `json:"status"`
	Questions   int           `json:"questions"`
	Citations   int           `json:"citations"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Tracker persists project records.
type Tracker interface {
	Create(ctx context.Context, p Project) error
	Update(ctx context.Context, p Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, limit int) ([]Project, error)
	Close() error
}
