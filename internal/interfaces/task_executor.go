// -----------------------------------------------------------------------
// Task Executor Interface - Common interface for all task executors
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/aestimo/internal/models"
)

// TaskExecutor defines the interface that all task executors must implement.
// The orchestrator dispatches confirmed jobs to executors by task kind.
type TaskExecutor interface {
	// Execute runs the task pipeline for a parsed input and returns its result
	Execute(ctx context.Context, input *models.TaskInput) (*models.Result, error)

	// Kinds returns the task kinds this executor handles
	Kinds() []models.TaskKind
}
