// -----------------------------------------------------------------------
// Task Registry - Dispatches confirmed jobs to their executor by kind
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"fmt"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// ExecutionError indicates a task pipeline failure
type ExecutionError struct {
	Kind    models.TaskKind
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task %s failed: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("task %s failed: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Registry maps task kinds to their executors
type Registry struct {
	executors map[models.TaskKind]interfaces.TaskExecutor
	logger    arbor.ILogger
}

// NewRegistry creates an empty registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		executors: make(map[models.TaskKind]interfaces.TaskExecutor),
		logger:    logger,
	}
}

// Register adds an executor for every kind it handles. Registering a kind
// twice replaces the earlier executor.
func (r *Registry) Register(executor interfaces.TaskExecutor) {
	for _, kind := range executor.Kinds() {
		r.executors[kind] = executor
		r.logger.Debug().Str("task_kind", string(kind)).Msg("Task executor registered")
	}
}

// Dispatch runs the executor for the input's kind
func (r *Registry) Dispatch(ctx context.Context, input *models.TaskInput) (*models.Result, error) {
	executor, ok := r.executors[input.Kind]
	if !ok {
		return nil, &ExecutionError{Kind: input.Kind, Message: "no executor registered"}
	}
	return executor.Execute(ctx, input)
}

// NewDefaultRegistry creates a registry with the standard executors wired
// to the given LLM service.
func NewDefaultRegistry(llmService interfaces.LLMService, logger arbor.ILogger) *Registry {
	registry := NewRegistry(logger)
	registry.Register(NewRiskExecutor(llmService, logger))
	registry.Register(NewResearchExecutor(llmService, logger))
	return registry
}
