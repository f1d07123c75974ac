package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/yungbote/breakdown-backend/internal/types"
)

const SummaryPromptID = "summary_v1"

const summarySchemaHint = `
Return JSON ONLY:
{ "summary": string, "highlights": Array<string>, "qcNotes": Array<string> }
`

const SummarySystem = `
You are a concise technical writer. Summarize a breakdown extraction result for an end user.
Be factual. Do not invent tasks.
Return JSON only.
`

func BuildSummaryUser(jobID string, mode types.JobMode, nodes []types.Node, report types.ValidationReport, verifierIssues []types.VerifierIssue) string {
	type topLevelNode struct {
		Title string  `json:"title"`
		Level *string `json:"level"`
	}
	topLevel := []topLevelNode{}
	for _, n := range nodes {
		if n.ParentID != nil {
			continue
		}
		var level *string
		if n.Level != "" {
			l := n.Level
			level = &l
		}
		topLevel = append(topLevel, topLevelNode{Title: n.Title, Level: level})
		if len(topLevel) == 25 {
			break
		}
	}
	topLevelJSON, _ := json.Marshal(topLevel)

	qcJSON, _ := json.Marshal(map[string]any{
		"coverageRatio":    report.Coverage.CoverageRatio,
		"unsupportedNodes": len(report.UnsupportedNodes),
		"hierarchyIssues":  len(report.HierarchyIssues),
		"numberingIssues":  len(report.NumberingIssues),
	})

	issues := verifierIssues
	if len(issues) > 20 {
		issues = issues[:20]
	}
	issuesJSON, _ := json.Marshal(issues)

	return fmt.Sprintf(`
JobId: %s
Mode: %s

NODES:
- total: %d
- topLevelSample: %s

QC:
%s

VerifierIssuesSample:
%s

OUTPUT REQUIREMENTS:
%s
`, jobID, mode, len(nodes), string(topLevelJSON), string(qcJSON), string(issuesJSON), summarySchemaHint)
}
