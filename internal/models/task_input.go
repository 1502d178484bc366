// -----------------------------------------------------------------------
// Task Input - Closed set of task kinds and their input payloads
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// TaskKind identifies which task pipeline a job runs.
// The set is closed; unknown kinds are rejected at submit time.
type TaskKind string

const (
	// TaskKindTrading assesses the market risk of a token position
	TaskKindTrading TaskKind = "trading"
	// TaskKindLendingBorrowing assesses the credit risk of a loan
	TaskKindLendingBorrowing TaskKind = "lending_borrowing"
	// TaskKindGenericResearch runs the generic research pipeline
	TaskKindGenericResearch TaskKind = "generic_research"
)

// ValidKind reports whether the kind is one of the supported task kinds
func ValidKind(kind TaskKind) bool {
	switch kind {
	case TaskKindTrading, TaskKindLendingBorrowing, TaskKindGenericResearch:
		return true
	default:
		return false
	}
}

// IsRiskAssessment reports whether the kind runs the risk assessment pipeline
func (k TaskKind) IsRiskAssessment() bool {
	return k == TaskKindTrading || k == TaskKindLendingBorrowing
}

var validate = validator.New()

// TradingInput is the payload for trading risk assessment
type TradingInput struct {
	TokenSymbol    string `json:"token_symbol" validate:"required"`
	TimePeriod     string `json:"time_period"`
	MoreParameters string `json:"more_parameters"`
}

// LendingInput is the payload for lending/borrowing risk assessment
type LendingInput struct {
	BorrowingAsset         string `json:"borrowing_asset" validate:"required"`
	BorrowerHistorySummary string `json:"borrower_history_summary" validate:"required"`
}

// ResearchInput is the payload for the generic research task
type ResearchInput struct {
	Text string `json:"text" validate:"required"`
}

// TaskInput is the tagged union of parsed task payloads. Exactly one of the
// pointer fields is set, matching Kind.
type TaskInput struct {
	Kind     TaskKind
	Trading  *TradingInput
	Lending  *LendingInput
	Research *ResearchInput
}

// InvalidInputError indicates a submit payload that failed parsing or
// validation
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid task input: " + e.Reason
}

// ParseTaskInput parses and validates a raw submit payload for the given
// kind. Dispatch is exhaustive over the closed kind set.
func ParseTaskInput(kind TaskKind, raw []byte) (*TaskInput, error) {
	switch kind {
	case TaskKindTrading:
		var in TradingInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		if in.TimePeriod == "" {
			in.TimePeriod = "1 year"
		}
		if err := validate.Struct(&in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		return &TaskInput{Kind: kind, Trading: &in}, nil

	case TaskKindLendingBorrowing:
		var in LendingInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		if err := validate.Struct(&in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		return &TaskInput{Kind: kind, Lending: &in}, nil

	case TaskKindGenericResearch:
		var in ResearchInput
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		if err := validate.Struct(&in); err != nil {
			return nil, &InvalidInputError{Reason: err.Error()}
		}
		return &TaskInput{Kind: kind, Research: &in}, nil

	default:
		return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown task kind %q", kind)}
	}
}

// PaymentMetadata returns the input payload as flat metadata attached to the
// payment request, so the purchaser's payment carries a hash of what was
// ordered.
func (t *TaskInput) PaymentMetadata() map[string]string {
	switch t.Kind {
	case TaskKindTrading:
		details, _ := json.Marshal(t.Trading)
		return map[string]string{"risk_type": string(t.Kind), "input_details": string(details)}
	case TaskKindLendingBorrowing:
		details, _ := json.Marshal(t.Lending)
		return map[string]string{"risk_type": string(t.Kind), "input_details": string(details)}
	default:
		return map[string]string{"text": t.Research.Text}
	}
}
