package breakdown_build

import (
	"encoding/json"
	"sort"

	"gorm.io/datatypes"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// finalArtifact is the tree as persisted: verifier corrections plus any
// judged escalation patches folded in.
type finalArtifact struct {
	Nodes              []types.Node          `json:"nodes"`
	Pattern            types.DocumentPattern `json:"pattern"`
	EscalatedRegionIDs []string              `json:"escalatedRegionIds,omitempty"`
	Warnings           []string              `json:"warnings,omitempty"`
}

/*
stageEscalate finalizes the node set. When the verifier requested escalation,
each flagged region is re-extracted by independent provider candidates and a
judge picks the winner; escalation failure degrades to the verifier's
corrected nodes with a warning instead of failing the run.
*/
func (p *Pipeline) stageEscalate(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	mode := p.mode(jc)

	var verified types.VerifyOutput
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectVerified, &verified); err != nil {
		return nil, err
	}
	var analysis types.GlobalAnalysis
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectGlobalAnalysis, &analysis); err != nil {
		return nil, err
	}

	final := finalArtifact{
		Nodes:   verified.CorrectedNodes,
		Pattern: analysis.DocumentPattern,
	}

	plan := verified.EscalationPlan
	escalated := false
	if plan.Needed && len(plan.TargetRegionIDs) > 0 {
		var norm normalizedArtifact
		if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, &norm); err != nil {
			return nil, err
		}
		patches, err := p.escalator.EscalateAndJudge(jc.Ctx, breakdown.EscalateInput{
			JobID:           jobID,
			Mode:            mode,
			TargetRegionIDs: plan.TargetRegionIDs,
			Regions:         norm.Regions,
			Pattern:         analysis.DocumentPattern,
			GuidanceByID:    guidanceByRegion(analysis),
			ColumnDecision:  p.columnDecision(jc),
			Candidates:      llm.EscalationCandidates(),
			JudgeConfig:     p.models.Judge,
		})
		if err != nil {
			p.log.Warn("escalation failed; keeping verified nodes", "job_id", jobID, "error", err)
			final.Warnings = append(final.Warnings, "escalation_failed: "+err.Error())
		} else {
			final.Nodes = breakdown.MergeEscalations(verified.CorrectedNodes, patches)
			for regionID, nodes := range patches {
				if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.EscalationPatchObject(regionID), nodes); err != nil {
					return nil, err
				}
				final.EscalatedRegionIDs = append(final.EscalatedRegionIDs, regionID)
			}
			sort.Strings(final.EscalatedRegionIDs)
			escalated = true
		}
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectFinalTree, final); err != nil {
		return nil, err
	}
	return map[string]any{
		"node_count": len(final.Nodes),
		"escalated":  escalated,
	}, nil
}

func (p *Pipeline) stagePersist(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	jobUUID := jc.PayloadUUID(PayloadJobID)

	var final finalArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectFinalTree, &final); err != nil {
		return nil, err
	}

	records := make([]*types.NodeRecord, 0, len(final.Nodes))
	inferred := 0
	for i := range final.Nodes {
		n := final.Nodes[i]
		n.JobID = jobUUID
		if n.Inferred {
			inferred++
		}
		body, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		records = append(records, &types.NodeRecord{
			JobID:    jobUUID,
			NodeID:   n.ID,
			ParentID: n.ParentID,
			Title:    n.Title,
			Level:    n.Level,
			Inferred: n.Inferred,
			Body:     datatypes.JSON(body),
		})
	}

	if err := p.nodes.ReplaceForJob(jc.Ctx, nil, jobUUID, records); err != nil {
		return nil, err
	}

	var report types.ValidationReport
	coverage := 0.0
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectValidation, &report); err == nil {
		coverage = report.Coverage.CoverageRatio
	}
	return map[string]any{
		"node_count":     len(records),
		"inferred_count": inferred,
		"coverage_ratio": coverage,
	}, nil
}

// stageSummarize never fails the run; a broken summary call produces a
// placeholder artifact and a warning.
func (p *Pipeline) stageSummarize(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	mode := p.mode(jc)

	var final finalArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectFinalTree, &final); err != nil {
		return nil, err
	}
	var report types.ValidationReport
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectValidation, &report); err != nil {
		return nil, err
	}
	var verified types.VerifyOutput
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectVerified, &verified); err != nil {
		return nil, err
	}

	summary, err := p.summarizer.Summarize(jc.Ctx, breakdown.SummaryInput{
		JobID:          jobID,
		Mode:           mode,
		Nodes:          final.Nodes,
		Report:         report,
		VerifierIssues: verified.Issues,
		Config:         p.models.Summary,
	})
	fallback := false
	if err != nil {
		p.log.Warn("summary failed; writing placeholder", "job_id", jobID, "error", err)
		summary = types.Summary{
			Summary:    "Summary unavailable.",
			Highlights: []string{},
			QCNotes:    []string{"summary_generation_failed"},
		}
		fallback = true
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectSummary, summary); err != nil {
		return nil, err
	}
	return map[string]any{"fallback": fallback}, nil
}

func (p *Pipeline) stageComplete(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobUUID := jc.PayloadUUID(PayloadJobID)

	nodeCount := outputInt(st, "persist", "node_count")
	inferredCount := outputInt(st, "persist", "inferred_count")
	coverage := outputFloat(st, "persist", "coverage_ratio")

	if err := p.jobs.MarkCompleted(jc.Ctx, nil, jobUUID, nodeCount, inferredCount, coverage); err != nil {
		return nil, err
	}
	return map[string]any{"node_count": nodeCount}, nil
}

// Stage outputs round-trip through JSON, so numbers come back as float64.
func outputFloat(st *orchestrator.OrchestratorState, stage, key string) float64 {
	if st == nil || st.Stages[stage] == nil {
		return 0
	}
	switch v := st.Stages[stage].Outputs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func outputInt(st *orchestrator.OrchestratorState, stage, key string) int {
	return int(outputFloat(st, stage, key))
}
