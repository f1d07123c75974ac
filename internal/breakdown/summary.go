package breakdown

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/prompts"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type SummaryInput struct {
	JobID          string
	Mode           types.JobMode
	Nodes          []types.Node
	Report         types.ValidationReport
	VerifierIssues []types.VerifierIssue
	Config         llm.Config
}

// Summarizer produces the user-facing wrap-up of a finished extraction.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (types.Summary, error)
}

type summarizer struct {
	log *logger.Logger
	llm llm.Client
}

func NewSummarizer(llmClient llm.Client, baseLog *logger.Logger) Summarizer {
	return &summarizer{
		log: baseLog.With("component", "Summarizer"),
		llm: llmClient,
	}
}

func (s *summarizer) Summarize(ctx context.Context, in SummaryInput) (types.Summary, error) {
	cfg := in.Config
	cfg.Temperature = 0.3

	user := prompts.BuildSummaryUser(in.JobID, in.Mode, in.Nodes, in.Report, in.VerifierIssues)
	raw, err := s.llm.GenerateJSON(ctx, cfg, prompts.SummarySystem, user)
	if err != nil {
		return types.Summary{}, fmt.Errorf("summary call: %w", err)
	}
	if err := ValidateSummaryOutput(raw); err != nil {
		return types.Summary{}, err
	}

	var summary types.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return types.Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	if summary.Highlights == nil {
		summary.Highlights = []string{}
	}
	if summary.QCNotes == nil {
		summary.QCNotes = []string{}
	}
	return summary, nil
}
