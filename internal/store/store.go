// Package store persists evaluation runs. Two drivers are provided:
// SQLite for local use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/search-eval/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines run persistence.
type Store interface {
	// CreateRun records a new run in the running state.
	CreateRun(ctx context.Context, caseCount int) (*model.Run, error)
	// CompleteRun finalizes a run with its status and, when the run
	// succeeded, the aggregate metrics document.
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, metrics *model.AggregateMetrics) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
