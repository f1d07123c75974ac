package breakdown

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/prompts"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type EscalateInput struct {
	JobID           string
	Mode            types.JobMode
	TargetRegionIDs []string
	Regions         []types.Region
	Pattern         types.DocumentPattern
	GuidanceByID    map[string]*types.RegionGuidance
	ColumnDecision  *types.ColumnDecision
	Candidates      []llm.Candidate
	JudgeConfig     llm.Config
}

type judgeOutput struct {
	Selected struct {
		Strategy         string       `json:"strategy"`
		WinningCandidate *string      `json:"winningCandidate"`
		SelectedNodes    []types.Node `json:"selectedNodes"`
	} `json:"selected"`
	Rationale string `json:"rationale"`
	Problems  []struct {
		Candidate string `json:"candidate"`
		Issue     string `json:"issue"`
	} `json:"problems"`
}

// Escalator re-extracts flagged regions with several independent
// provider/model candidates and lets a judge pass pick or merge the result.
type Escalator interface {
	EscalateAndJudge(ctx context.Context, in EscalateInput) (map[string][]types.Node, error)
}

type escalator struct {
	log       *logger.Logger
	llm       llm.Client
	extractor Extractor
}

func NewEscalator(llmClient llm.Client, extractor Extractor, baseLog *logger.Logger) Escalator {
	return &escalator{
		log:       baseLog.With("component", "Escalator"),
		llm:       llmClient,
		extractor: extractor,
	}
}

// EscalateAndJudge handles target regions sequentially; the candidate
// extractions inside each region run concurrently. An unknown region id in
// the plan is skipped rather than failing the run.
func (e *escalator) EscalateAndJudge(ctx context.Context, in EscalateInput) (map[string][]types.Node, error) {
	regionMap := map[string]types.Region{}
	for _, r := range in.Regions {
		regionMap[r.RegionID] = r
	}

	patches := map[string][]types.Node{}

	for _, regionID := range in.TargetRegionIDs {
		region, ok := regionMap[regionID]
		if !ok {
			e.log.Warn("escalation plan names unknown region; skipping", "region_id", regionID)
			continue
		}

		candidates, err := e.runCandidates(ctx, in, region)
		if err != nil {
			return nil, err
		}

		nodes, err := e.judge(ctx, in, region, candidates)
		if err != nil {
			return nil, err
		}
		patches[regionID] = nodes
	}

	return patches, nil
}

func (e *escalator) runCandidates(ctx context.Context, in EscalateInput, region types.Region) ([]prompts.JudgeCandidate, error) {
	var mu sync.Mutex
	results := make([]prompts.JudgeCandidate, 0, len(in.Candidates))

	g, gctx := errgroup.WithContext(ctx)
	for _, candidate := range in.Candidates {
		g.Go(func() error {
			extraction, err := e.extractor.ExtractRegion(gctx, ExtractInput{
				JobID:          in.JobID,
				Mode:           in.Mode,
				Region:         region,
				Pattern:        in.Pattern,
				Guidance:       in.GuidanceByID[region.RegionID],
				ColumnDecision: in.ColumnDecision,
				Config:         candidate.Config,
			})
			if err != nil {
				return fmt.Errorf("candidate %s: %w", candidate.Name, err)
			}

			mu.Lock()
			results = append(results, prompts.JudgeCandidate{
				Name:     candidate.Name,
				Provider: string(candidate.Config.Provider),
				Model:    candidate.Config.Model,
				Nodes:    extraction.Nodes,
				RawNotes: extraction.Notes,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *escalator) judge(ctx context.Context, in EscalateInput, region types.Region, candidates []prompts.JudgeCandidate) ([]types.Node, error) {
	cfg := in.JudgeConfig
	cfg.Temperature = 0.1

	user := prompts.BuildJudgeUser(in.JobID, in.Mode, region, candidates)
	raw, err := e.llm.GenerateJSON(ctx, cfg, prompts.JudgeSystem, user)
	if err != nil {
		return nil, fmt.Errorf("judge region %s: %w", region.RegionID, err)
	}
	if err := ValidateJudgeOutput(raw); err != nil {
		return nil, fmt.Errorf("region %s: %w", region.RegionID, err)
	}

	var out judgeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode judge output for region %s: %w", region.RegionID, err)
	}
	if err := validateJudgeSelection(out, candidates); err != nil {
		return nil, fmt.Errorf("region %s: %w", region.RegionID, err)
	}
	for _, p := range out.Problems {
		e.log.Warn("judge flagged candidate problem",
			"region_id", region.RegionID,
			"candidate", p.Candidate,
			"issue", p.Issue)
	}

	nodes := out.Selected.SelectedNodes
	if nodes == nil {
		nodes = []types.Node{}
	}
	for i := range nodes {
		if nodes[i].Provenance.RegionID == "" {
			nodes[i].Provenance.RegionID = region.RegionID
			nodes[i].Provenance.PageOrSheet = region.PageOrSheet
		}
	}
	return nodes, nil
}

// validateJudgeSelection checks the judge's decision against the candidates
// it was actually shown. A pick_one decision must name one of them; a merge
// needs no winner. Anything else is an untrusted selection.
func validateJudgeSelection(out judgeOutput, candidates []prompts.JudgeCandidate) error {
	switch out.Selected.Strategy {
	case "merge", "":
		return nil
	case "pick_one":
		if out.Selected.WinningCandidate == nil {
			return fmt.Errorf("judge chose pick_one without naming a winning candidate")
		}
		for _, c := range candidates {
			if c.Name == *out.Selected.WinningCandidate {
				return nil
			}
		}
		return fmt.Errorf("judge named unknown candidate %q", *out.Selected.WinningCandidate)
	default:
		return fmt.Errorf("judge returned unknown strategy %q", out.Selected.Strategy)
	}
}

// MergeEscalations folds judged patches back into the verifier's corrected
// set: every original node whose provenance points at an escalated region is
// dropped, the judged nodes are appended, and duplicates by node id are
// resolved keeping the last occurrence, so judged nodes win.
func MergeEscalations(corrected []types.Node, patches map[string][]types.Node) []types.Node {
	escalated := map[string]bool{}
	for regionID := range patches {
		escalated[regionID] = true
	}

	merged := make([]types.Node, 0, len(corrected))
	for _, n := range corrected {
		if escalated[n.Provenance.RegionID] {
			continue
		}
		merged = append(merged, n)
	}
	regionIDs := make([]string, 0, len(patches))
	for regionID := range patches {
		regionIDs = append(regionIDs, regionID)
	}
	sort.Strings(regionIDs)
	for _, regionID := range regionIDs {
		merged = append(merged, patches[regionID]...)
	}

	lastIndex := map[string]int{}
	for i, n := range merged {
		lastIndex[n.ID] = i
	}
	out := make([]types.Node, 0, len(merged))
	for i, n := range merged {
		if lastIndex[n.ID] == i {
			out = append(out, n)
		}
	}
	return out
}
