package models

import (
	"errors"
	"testing"
)

// TestParseTaskInput verifies parsing and validation per task kind
func TestParseTaskInput(t *testing.T) {
	tests := []struct {
		name    string
		kind    TaskKind
		raw     string
		wantErr bool
	}{
		{
			name: "valid trading input",
			kind: TaskKindTrading,
			raw:  `{"token_symbol":"ADA","time_period":"3 months","more_parameters":"staking yield changes"}`,
		},
		{
			name:    "trading input missing token symbol",
			kind:    TaskKindTrading,
			raw:     `{"time_period":"3 months"}`,
			wantErr: true,
		},
		{
			name: "valid lending input",
			kind: TaskKindLendingBorrowing,
			raw:  `{"borrowing_asset":"USDC","borrower_history_summary":"2-year history, 0 defaults"}`,
		},
		{
			name:    "lending input missing history",
			kind:    TaskKindLendingBorrowing,
			raw:     `{"borrowing_asset":"USDC"}`,
			wantErr: true,
		},
		{
			name: "valid research input",
			kind: TaskKindGenericResearch,
			raw:  `{"text":"impact of AI on the job market"}`,
		},
		{
			name:    "research input missing text",
			kind:    TaskKindGenericResearch,
			raw:     `{}`,
			wantErr: true,
		},
		{
			name:    "unknown kind",
			kind:    TaskKind("image_generation"),
			raw:     `{"text":"x"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			kind:    TaskKindGenericResearch,
			raw:     `{"text":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseTaskInput(tt.kind, []byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var invalid *InvalidInputError
				if !errors.As(err, &invalid) {
					t.Errorf("error type = %T, want *InvalidInputError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if input.Kind != tt.kind {
				t.Errorf("parsed kind = %s, want %s", input.Kind, tt.kind)
			}
		})
	}
}

func TestParseTaskInputTradingDefaults(t *testing.T) {
	input, err := ParseTaskInput(TaskKindTrading, []byte(`{"token_symbol":"BTC"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.Trading.TimePeriod != "1 year" {
		t.Errorf("time_period default = %q, want \"1 year\"", input.Trading.TimePeriod)
	}
}

func TestPaymentMetadata(t *testing.T) {
	input, err := ParseTaskInput(TaskKindLendingBorrowing,
		[]byte(`{"borrowing_asset":"ETH","borrower_history_summary":"new user, stablecoin collateral"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta := input.PaymentMetadata()
	if meta["risk_type"] != "lending_borrowing" {
		t.Errorf("risk_type = %q, want lending_borrowing", meta["risk_type"])
	}
	if meta["input_details"] == "" {
		t.Error("input_details must carry the serialized payload")
	}

	research, _ := ParseTaskInput(TaskKindGenericResearch, []byte(`{"text":"quantum"}`))
	meta = research.PaymentMetadata()
	if meta["text"] != "quantum" {
		t.Errorf("text = %q, want quantum", meta["text"])
	}
}
