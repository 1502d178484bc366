// -----------------------------------------------------------------------
// Research Executor - Researcher/writer pipeline for generic research
// -----------------------------------------------------------------------

package tasks

import (
	"context"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	researcherSystemPrompt = "You are a Research Analyst, an expert at extracting information. " +
		"Find and analyze key information about the given topic."

	writerSystemPrompt = "You are a Content Summarizer, skilled at transforming complex " +
		"information into clear summaries."
)

// ResearchExecutor runs the generic research pipeline: a researcher stage
// gathers findings, a writer stage condenses them into the final report.
type ResearchExecutor struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

// NewResearchExecutor creates the generic research executor
func NewResearchExecutor(llmService interfaces.LLMService, logger arbor.ILogger) *ResearchExecutor {
	return &ResearchExecutor{
		llmService: llmService,
		logger:     logger,
	}
}

// Kinds returns the task kinds this executor handles
func (e *ResearchExecutor) Kinds() []models.TaskKind {
	return []models.TaskKind{models.TaskKindGenericResearch}
}

// Execute runs the two-stage pipeline and returns a text result
func (e *ResearchExecutor) Execute(ctx context.Context, input *models.TaskInput) (*models.Result, error) {
	e.logger.Info().Msg("Starting research task")

	findings, err := e.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: researcherSystemPrompt},
		{Role: "user", Content: "Research: " + input.Research.Text +
			"\n\nProduce detailed research findings about the topic."},
	})
	if err != nil {
		return nil, &ExecutionError{Kind: input.Kind, Message: "researcher stage failed", Err: err}
	}

	summary, err := e.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: writerSystemPrompt},
		{Role: "user", Content: "Write a clear and concise summary of the research findings below.\n\n" + findings},
	})
	if err != nil {
		return nil, &ExecutionError{Kind: input.Kind, Message: "writer stage failed", Err: err}
	}

	e.logger.Info().Msg("Research task completed successfully")
	return models.TextResult(summary), nil
}
