package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/yungbote/breakdown-backend/internal/types"
)

const (
	VerifyStrictPromptID = "verify_strict_v1"
	VerifyBestPromptID   = "verify_best_judgment_v1"
)

const verifyStrictSchemaHint = `
Return JSON ONLY:
{
  "correctedNodes": Array<Node>,
  "issues": Array<{ "severity":"info"|"warn"|"error", "nodeId": string|null, "message": string, "regionId": string|null }>,
  "escalationPlan": { "needed": boolean, "targetRegionIds": Array<string>, "reason": string }
}

Strict rules:
- Do not invent nodes.
- Do not set inferred=true.
- Prefer clearing parentId over guessing.
`

const verifyBestSchemaHint = `
Return JSON ONLY:
{
  "correctedNodes": Array<Node>,
  "issues": Array<{ "severity":"info"|"warn"|"error", "nodeId": string|null, "message": string, "regionId": string|null }>,
  "escalationPlan": { "needed": boolean, "targetRegionIds": Array<string>, "reason": string }
}

Rules:
- You may set inferred=true when inferring parent/hierarchy.
- Do not fabricate new tasks.
- provenance.quote must remain an exact substring from evidence.
`

const VerifyStrictSystem = `
You are a strict verification engine for breakdown extraction.
Ensure nodes are evidence-backed. Fix obvious errors without inventing content.
Output JSON only.
`

const VerifyBestSystem = `
You are a high-accuracy verifier for breakdown extraction.
Improve hierarchy and consistency while remaining grounded in evidence.
Output JSON only.
`

func VerifySystem(mode types.JobMode) string {
	if mode == types.JobModeStrict {
		return VerifyStrictSystem
	}
	return VerifyBestSystem
}

func VerifyPromptID(mode types.JobMode) string {
	if mode == types.JobModeStrict {
		return VerifyStrictPromptID
	}
	return VerifyBestPromptID
}

type RegionEvidence struct {
	RegionID     string         `json:"regionId"`
	PageOrSheet  string         `json:"pageOrSheet"`
	Type         string         `json:"type"`
	EvidenceText string         `json:"evidenceText"`
	EvidenceRefs map[string]any `json:"evidenceRefs,omitempty"`
}

func BuildVerifyUser(jobID string, mode types.JobMode, nodes []types.Node, report types.ValidationReport, evidence []RegionEvidence) string {
	schemaHint := verifyBestSchemaHint
	if mode == types.JobModeStrict {
		schemaHint = verifyStrictSchemaHint
	}

	reportJSON, _ := json.Marshal(report)
	nodesJSON, _ := json.Marshal(nodes)
	evidenceJSON, _ := json.Marshal(evidence)

	tail := `
INFERENCE:
If you infer parent relationships, set inferred=true and add a warning explaining why.
`
	if mode == types.JobModeStrict {
		tail = `
ESCALATION:
Set needed=true if evidence is too ambiguous or extraction seems incomplete; list regionIds.
`
	}

	return fmt.Sprintf(`
JobId: %s
Mode: %s

VALIDATION_REPORT:
%s

NODES_DRAFT:
%s

EVIDENCE_BY_REGION:
%s

OUTPUT REQUIREMENTS:
%s
%s`, jobID, mode, string(reportJSON), string(nodesJSON), string(evidenceJSON), schemaHint, tail)
}
