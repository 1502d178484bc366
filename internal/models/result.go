// -----------------------------------------------------------------------
// Result - Tagged task result variant
// -----------------------------------------------------------------------

package models

import "encoding/json"

// ResultKind discriminates the two result shapes
type ResultKind string

const (
	// ResultKindStructured is a field map (risk assessments)
	ResultKindStructured ResultKind = "structured"
	// ResultKindText is a plain text report (research)
	ResultKindText ResultKind = "text"
)

// Result is the tagged output of a task execution. Callers switch on Kind:
// structured results carry Fields, text results carry Text.
type Result struct {
	Kind   ResultKind             `json:"kind"`
	Fields map[string]interface{} `json:"fields,omitempty"`
	Text   string                 `json:"text,omitempty"`
}

// StructuredResult creates a structured result from a field map
func StructuredResult(fields map[string]interface{}) *Result {
	return &Result{Kind: ResultKindStructured, Fields: fields}
}

// TextResult creates a plain text result
func TextResult(text string) *Result {
	return &Result{Kind: ResultKindText, Text: text}
}

// Project returns the wire representation used in status responses:
// the field map for structured results, the raw string for text results.
func (r *Result) Project() interface{} {
	if r.Kind == ResultKindStructured {
		return r.Fields
	}
	return r.Text
}

// String returns the result as a string for payment finalization hashing:
// the raw text for text results, the JSON encoding for structured results.
func (r *Result) String() string {
	if r.Kind == ResultKindText {
		return r.Text
	}
	encoded, err := json.Marshal(r.Fields)
	if err != nil {
		return ""
	}
	return string(encoded)
}
