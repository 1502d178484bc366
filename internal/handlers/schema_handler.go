// -----------------------------------------------------------------------
// Schema Handler - Describes the expected input for each task kind
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/aestimo/internal/models"
)

type schemaField struct {
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
	Name string                 `json:"name"`
	Data map[string]interface{} `json:"data"`
}

type kindSchema struct {
	Description string        `json:"description"`
	InputData   []schemaField `json:"input_data"`
}

// inputSchemas is static; task kinds and their payloads form a closed set.
var inputSchemas = map[models.TaskKind]kindSchema{
	models.TaskKindGenericResearch: {
		Description: "Schema for the generic research task.",
		InputData: []schemaField{
			{
				ID:   "text",
				Type: "string",
				Name: "Task Description",
				Data: map[string]interface{}{
					"description": "The text input for the generic research task",
					"placeholder": "Enter your task description here",
				},
			},
		},
	},
	models.TaskKindTrading: {
		Description: "Schema for the trading risk assessment task.",
		InputData: []schemaField{
			{
				ID:   "token_symbol",
				Type: "string",
				Name: "Token Symbol",
				Data: map[string]interface{}{
					"description": "The token to assess",
					"required":    true,
				},
			},
			{
				ID:   "time_period",
				Type: "string",
				Name: "Time Period",
				Data: map[string]interface{}{
					"description": "Lookback window for the assessment",
					"default":     "1 year",
				},
			},
			{
				ID:   "more_parameters",
				Type: "string",
				Name: "Additional Parameters",
				Data: map[string]interface{}{
					"description": "Free-form extra context for the analyst",
				},
			},
		},
	},
	models.TaskKindLendingBorrowing: {
		Description: "Schema for the lending/borrowing risk assessment task.",
		InputData: []schemaField{
			{
				ID:   "borrowing_asset",
				Type: "string",
				Name: "Borrowing Asset",
				Data: map[string]interface{}{
					"description": "The asset being borrowed",
					"required":    true,
				},
			},
			{
				ID:   "borrower_history_summary",
				Type: "string",
				Name: "Borrower History Summary",
				Data: map[string]interface{}{
					"description": "Summary of the borrower's on-chain history",
					"required":    true,
				},
			},
		},
	},
}

// SchemaHandler returns the expected input schema for every task kind.
// GET /input_schema
func SchemaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, inputSchemas)
}
