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

type VerifyInput struct {
	JobID   string
	Mode    types.JobMode
	Nodes   []types.Node
	Report  types.ValidationReport
	Regions []types.Region
	Config  llm.Config
}

// Verifier runs the single correction pass over the consolidated draft and
// decides whether any regions need escalation.
type Verifier interface {
	Verify(ctx context.Context, in VerifyInput) (types.VerifyOutput, error)
}

type verifier struct {
	log *logger.Logger
	llm llm.Client
}

func NewVerifier(llmClient llm.Client, baseLog *logger.Logger) Verifier {
	return &verifier{
		log: baseLog.With("component", "Verifier"),
		llm: llmClient,
	}
}

// VerifyPrompts returns the exact system and user prompts the verifier sends
// for this input, so callers can archive what the model saw.
func VerifyPrompts(in VerifyInput) (system, user string) {
	evidence := make([]prompts.RegionEvidence, 0, len(in.Regions))
	for _, r := range in.Regions {
		evidence = append(evidence, prompts.RegionEvidence{
			RegionID:     r.RegionID,
			PageOrSheet:  r.PageOrSheet,
			Type:         string(r.Type),
			EvidenceText: r.Text,
			EvidenceRefs: r.EvidenceRefs,
		})
	}
	return prompts.VerifySystem(in.Mode), prompts.BuildVerifyUser(in.JobID, in.Mode, in.Nodes, in.Report, evidence)
}

func (v *verifier) Verify(ctx context.Context, in VerifyInput) (types.VerifyOutput, error) {
	cfg := in.Config
	cfg.Temperature = 0.15

	system, user := VerifyPrompts(in)

	raw, err := v.llm.GenerateJSON(ctx, cfg, system, user)
	if err != nil {
		return types.VerifyOutput{}, fmt.Errorf("verify call: %w", err)
	}
	if err := ValidateVerifyOutput(raw); err != nil {
		return types.VerifyOutput{}, err
	}

	var out types.VerifyOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.VerifyOutput{}, fmt.Errorf("decode verify output: %w", err)
	}

	if out.Issues == nil {
		out.Issues = []types.VerifierIssue{}
	}
	if out.EscalationPlan.TargetRegionIDs == nil {
		out.EscalationPlan.TargetRegionIDs = []string{}
	}

	// Strict mode must never introduce inference; scrub anything the model set.
	if in.Mode == types.JobModeStrict {
		for i := range out.CorrectedNodes {
			out.CorrectedNodes[i].Inferred = false
		}
	}

	return out, nil
}
