package breakdown_build

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/types"
)

const metaColumnGateDeadline = "column_gate_deadline"

// draftArtifact is the node set between extraction and verification.
type draftArtifact struct {
	Nodes        []types.Node            `json:"nodes"`
	Unmapped     []types.UnmappedContent `json:"unmapped"`
	Consolidated bool                    `json:"consolidated"`
	Warnings     []string                `json:"warnings,omitempty"`
}

/*
stageColumnGate pauses the run when table columns are ambiguous enough that
extraction semantics depend on a human call: matrix-pattern documents with
phase columns. The run parks in waiting_user until the answer endpoint writes
column_decision into the payload and re-queues it, or the pause outlives its
deadline and the stage fails the run.
*/
func (p *Pipeline) stageColumnGate(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	var analysis types.GlobalAnalysis
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectGlobalAnalysis, &analysis); err != nil {
		return nil, err
	}

	if !needsColumnDecision(analysis) {
		return map[string]any{"required": false}, nil
	}

	if cd := p.columnDecision(jc); cd != nil {
		p.actor.ResolveInput(jc.Ctx, jobID)
		return map[string]any{"required": true, "treat_as_nodes": cd.TreatAsNodes}, nil
	}

	if raw, ok := st.Meta[metaColumnGateDeadline].(string); ok && raw != "" {
		deadline, err := time.Parse(time.RFC3339, raw)
		if err == nil && time.Now().After(deadline) {
			return nil, fmt.Errorf("column decision not received before %s", deadline.Format(time.RFC3339))
		}
	} else {
		deadline := time.Now().UTC().Add(time.Duration(p.gateTimeoutHrs) * time.Hour)
		st.Meta[metaColumnGateDeadline] = deadline.Format(time.RFC3339)
		_ = orchestrator.SaveState(jc, st)
	}

	headers := analysis.StructuralElements.ColumnHeaders
	question := "This document has table columns that could be either node titles or metadata. Should column headers be treated as breakdown nodes?"
	p.actor.AwaitInput(jc.Ctx, jobID, types.PendingInput{
		Type:            jobrt.WaitpointKindColumnDecision,
		ColumnHeaders:   headers,
		DocumentPattern: string(analysis.DocumentPattern),
		Message:         question,
	})
	jc.WaitForUser("column_gate", 39, "Waiting for column decision", jobrt.WaitpointSpec{
		Kind:      jobrt.WaitpointKindColumnDecision,
		Question:  question,
		Options:   map[string]any{"treatAsNodes": []bool{true, false}},
		ExpiresAt: deadlineFromMeta(st),
	}, map[string]any{
		"column_headers":   headers,
		"document_pattern": string(analysis.DocumentPattern),
	})
	return nil, jobrt.ErrWaitingUser
}

func needsColumnDecision(analysis types.GlobalAnalysis) bool {
	return analysis.DocumentPattern == types.PatternMatrix &&
		analysis.StructuralElements.HasPhaseColumns &&
		len(analysis.StructuralElements.ColumnHeaders) > 0
}

func (p *Pipeline) columnDecision(jc *jobrt.Context) *types.ColumnDecision {
	v, ok := jc.Payload()[PayloadColumnDecision]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var cd types.ColumnDecision
	if err := json.Unmarshal(b, &cd); err != nil {
		return nil
	}
	return &cd
}

func deadlineFromMeta(st *orchestrator.OrchestratorState) time.Time {
	if raw, ok := st.Meta[metaColumnGateDeadline].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stageExtractRegions runs region extraction in fixed-size concurrent
// batches, archives each region's raw extraction, and assembles the draft.
func (p *Pipeline) stageExtractRegions(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	mode := p.mode(jc)

	var norm normalizedArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, &norm); err != nil {
		return nil, err
	}
	var analysis types.GlobalAnalysis
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectGlobalAnalysis, &analysis); err != nil {
		return nil, err
	}

	guidance := guidanceByRegion(analysis)
	decision := p.columnDecision(jc)
	jobUUID := jc.PayloadUUID(PayloadJobID)

	extractions := make([]types.RegionExtraction, len(norm.Regions))
	batch := p.batchSize
	if batch < 1 {
		batch = 1
	}
	for start := 0; start < len(norm.Regions); start += batch {
		end := start + batch
		if end > len(norm.Regions) {
			end = len(norm.Regions)
		}
		g, gctx := errgroup.WithContext(jc.Ctx)
		var mu sync.Mutex
		for i := start; i < end; i++ {
			g.Go(func() error {
				region := norm.Regions[i]
				out, err := p.extractor.ExtractRegion(gctx, breakdown.ExtractInput{
					JobID:          jobID,
					Mode:           mode,
					Region:         region,
					Pattern:        analysis.DocumentPattern,
					Guidance:       guidance[region.RegionID],
					ColumnDecision: decision,
					Config:         p.models.Extract,
				})
				if err != nil {
					return err
				}
				mu.Lock()
				extractions[i] = out
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		done := end
		pct := 40 + int(float64(done)/float64(len(norm.Regions))*26)
		jc.Progress("extract_regions", pct, fmt.Sprintf("Extracted %d/%d regions", done, len(norm.Regions)))
	}

	draft := draftArtifact{Nodes: []types.Node{}, Unmapped: []types.UnmappedContent{}}
	for _, ex := range extractions {
		if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.RegionExtractionObject(ex.RegionID), ex); err != nil {
			return nil, err
		}
		for _, n := range ex.Nodes {
			n.JobID = jobUUID
			draft.Nodes = append(draft.Nodes, n)
		}
		draft.Unmapped = append(draft.Unmapped, ex.UnmappedContent...)
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectDraftTree, draft); err != nil {
		return nil, err
	}
	return map[string]any{
		"node_count":     len(draft.Nodes),
		"unmapped_count": len(draft.Unmapped),
	}, nil
}

func guidanceByRegion(analysis types.GlobalAnalysis) map[string]*types.RegionGuidance {
	out := make(map[string]*types.RegionGuidance, len(analysis.RegionGuidance))
	for i := range analysis.RegionGuidance {
		g := analysis.RegionGuidance[i]
		out[g.RegionID] = &g
	}
	return out
}

func (p *Pipeline) stageValidate(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	var norm normalizedArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, &norm); err != nil {
		return nil, err
	}
	var draft draftArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectDraftTree, &draft); err != nil {
		return nil, err
	}

	report := breakdown.Validate(draft.Nodes, norm.Regions)
	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectValidation, report); err != nil {
		return nil, err
	}
	return map[string]any{
		"coverage_ratio": report.Coverage.CoverageRatio,
		"duplicates":     len(report.Duplicates),
		"unsupported":    len(report.UnsupportedNodes),
	}, nil
}

func (p *Pipeline) stageConsolidate(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	var draft draftArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectDraftTree, &draft); err != nil {
		return nil, err
	}

	draft.Nodes = breakdown.Consolidate(draft.Nodes)
	draft.Consolidated = true
	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectDraftTree, draft); err != nil {
		return nil, err
	}
	return map[string]any{"node_count": len(draft.Nodes)}, nil
}

func (p *Pipeline) stageVerify(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	mode := p.mode(jc)

	var norm normalizedArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, &norm); err != nil {
		return nil, err
	}
	var draft draftArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectDraftTree, &draft); err != nil {
		return nil, err
	}
	var report types.ValidationReport
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectValidation, &report); err != nil {
		return nil, err
	}

	in := breakdown.VerifyInput{
		JobID:   jobID,
		Mode:    mode,
		Nodes:   draft.Nodes,
		Report:  report,
		Regions: norm.Regions,
		Config:  p.models.Verify,
	}
	system, user := breakdown.VerifyPrompts(in)
	if err := p.putPrompt(jc, jobID, artifacts.ObjectVerifySystemPrompt, system); err != nil {
		return nil, err
	}
	if err := p.putPrompt(jc, jobID, artifacts.ObjectVerifyUserPrompt, user); err != nil {
		return nil, err
	}

	out, err := p.verifier.Verify(jc.Ctx, in)
	if err != nil {
		return nil, err
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectVerified, out); err != nil {
		return nil, err
	}
	return map[string]any{
		"corrected_count":   len(out.CorrectedNodes),
		"issue_count":       len(out.Issues),
		"escalation_needed": out.EscalationPlan.Needed,
		"target_regions":    len(out.EscalationPlan.TargetRegionIDs),
	}, nil
}
