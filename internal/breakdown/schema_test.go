package breakdown

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yungbote/breakdown-backend/internal/llm"
)

func TestValidateExtractionOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "minimal valid",
			raw:  `{"nodes": []}`,
		},
		{
			name: "full valid",
			raw:  `{"regionId": "r1", "confidence": 0.9, "nodes": [{"title": "Task", "level": "1.1", "parentId": null}], "unmappedContent": []}`,
		},
		{
			name:    "missing nodes",
			raw:     `{"regionId": "r1"}`,
			wantErr: true,
		},
		{
			name:    "node without title",
			raw:     `{"nodes": [{"id": "n1"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `nodes: []`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtractionOutput(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, llm.ErrMalformedOutput) {
				t.Fatalf("err = %v, want ErrMalformedOutput in chain", err)
			}
		})
	}
}

func TestValidateVerifyOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "valid with plan",
			raw:  `{"correctedNodes": [], "escalationPlan": {"needed": true, "targetRegionIds": ["r1"], "reason": "low coverage"}}`,
		},
		{
			name: "valid minimal plan",
			raw:  `{"correctedNodes": [], "escalationPlan": {"needed": false}}`,
		},
		{
			name:    "missing escalation plan",
			raw:     `{"correctedNodes": []}`,
			wantErr: true,
		},
		{
			name:    "plan missing needed",
			raw:     `{"correctedNodes": [], "escalationPlan": {}}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVerifyOutput(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGlobalAnalysisOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "valid pattern",
			raw:  `{"documentPattern": "matrix", "regionGuidance": []}`,
		},
		{
			name:    "unknown pattern value",
			raw:     `{"documentPattern": "spreadsheet"}`,
			wantErr: true,
		},
		{
			name:    "missing pattern",
			raw:     `{"regionGuidance": []}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGlobalAnalysisOutput(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJudgeOutput(t *testing.T) {
	if err := ValidateJudgeOutput(json.RawMessage(`{"selected": {"strategy": "pick", "winningCandidate": "primary", "selectedNodes": []}}`)); err != nil {
		t.Fatalf("valid judge output rejected: %v", err)
	}
	if err := ValidateJudgeOutput(json.RawMessage(`{"rationale": "no pick"}`)); err == nil {
		t.Fatalf("judge output without selected accepted")
	}
}

func TestValidateSummaryOutput(t *testing.T) {
	if err := ValidateSummaryOutput(json.RawMessage(`{"summary": "A breakdown.", "highlights": [], "qcNotes": []}`)); err != nil {
		t.Fatalf("valid summary rejected: %v", err)
	}
	if err := ValidateSummaryOutput(json.RawMessage(`{"highlights": []}`)); err == nil {
		t.Fatalf("summary without text accepted")
	}
}
