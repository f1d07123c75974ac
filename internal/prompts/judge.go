package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/yungbote/breakdown-backend/internal/types"
)

const JudgePromptID = "judge_merge_v1"

const judgeSchemaHint = `
Return JSON ONLY:
{
  "selected": {
    "strategy": "pick_one" | "merge",
    "winningCandidate": string | null,
    "selectedNodes": Array<Node>
  },
  "rationale": string,
  "problems": Array<{ "candidate": string, "issue": string }>
}
`

const JudgeSystem = `
You are an evidence-based judge selecting or merging candidate breakdown extractions for a single region.
Prefer evidence support over completeness. Output JSON only.
`

type JudgeCandidate struct {
	Name     string       `json:"name"`
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	Nodes    []types.Node `json:"nodes"`
	RawNotes string       `json:"rawNotes,omitempty"`
}

func BuildJudgeUser(jobID string, mode types.JobMode, region types.Region, candidates []JudgeCandidate) string {
	regionJSON, _ := json.Marshal(map[string]string{
		"regionId":    region.RegionID,
		"pageOrSheet": region.PageOrSheet,
	})
	refsJSON, _ := json.Marshal(region.EvidenceRefs)
	candidatesJSON, _ := json.Marshal(candidates)

	return fmt.Sprintf(`
JobId: %s
Mode: %s

REGION:
%s

EVIDENCE_TEXT:
%s

EVIDENCE_REFS:
%s

CANDIDATES:
%s

OUTPUT REQUIREMENTS:
%s
`, jobID, mode, string(regionJSON), region.Text, string(refsJSON), string(candidatesJSON), judgeSchemaHint)
}
