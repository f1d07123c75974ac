package breakdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/breakdown-backend/internal/types"
)

var levelPattern = regexp.MustCompile(`^[A-Za-z0-9]+(\.[A-Za-z0-9]+)*$`)

// Validate computes the QC report for a node set against the regions it was
// derived from. Deterministic and side-effect free: the same input always
// yields the same report.
func Validate(nodes []types.Node, regions []types.Region) types.ValidationReport {
	unsupported := []types.UnsupportedNode{}
	duplicates := []types.DuplicateGroup{}
	numberingIssues := []types.NodeIssue{}
	hierarchyIssues := []types.NodeIssue{}

	seen := map[string][]string{}
	seenOrder := []string{}

	for _, n := range nodes {
		if strings.TrimSpace(n.Title) == "" {
			unsupported = append(unsupported, types.UnsupportedNode{NodeID: n.ID, Reason: "missing_title"})
		}
		if strings.TrimSpace(n.Provenance.Quote) == "" {
			unsupported = append(unsupported, types.UnsupportedNode{NodeID: n.ID, Reason: "missing_provenance_quote"})
		}

		key := fmt.Sprintf("%s|%s|%s", strings.ToLower(strings.TrimSpace(n.Title)), n.Level, n.Provenance.Quote)
		if _, ok := seen[key]; !ok {
			seenOrder = append(seenOrder, key)
		}
		seen[key] = append(seen[key], n.ID)

		if n.ParentID != nil && *n.ParentID == n.ID {
			hierarchyIssues = append(hierarchyIssues, types.NodeIssue{NodeID: n.ID, Issue: "parentId_self"})
		}
		if n.Level != "" && !levelPattern.MatchString(n.Level) {
			numberingIssues = append(numberingIssues, types.NodeIssue{NodeID: n.ID, Issue: "level_format_suspicious"})
		}
	}

	for _, key := range seenOrder {
		if ids := seen[key]; len(ids) > 1 {
			duplicates = append(duplicates, types.DuplicateGroup{NodeIDs: ids, Reason: "same_title_level_quote"})
		}
	}

	totalEvidence := 0
	for _, r := range regions {
		lines := len(strings.Split(r.Text, "\n"))
		if lines < 1 {
			lines = 1
		}
		totalEvidence += lines
	}
	consumed := len(nodes)
	denominator := totalEvidence
	if denominator < 1 {
		denominator = 1
	}
	ratio := float64(consumed) / float64(denominator)
	if ratio > 1 {
		ratio = 1
	}

	riskScores := make([]types.RegionRiskScore, 0, len(regions))
	for _, r := range regions {
		riskScores = append(riskScores, types.RegionRiskScore{
			RegionID: r.RegionID,
			Risk:     0,
			Reasons:  []string{},
		})
	}

	return types.ValidationReport{
		SchemaValid:      len(unsupported) == 0,
		UnsupportedNodes: unsupported,
		Duplicates:       duplicates,
		NumberingIssues:  numberingIssues,
		HierarchyIssues:  hierarchyIssues,
		Coverage: types.Coverage{
			ConsumedEvidenceCount: consumed,
			TotalEvidenceCount:    totalEvidence,
			CoverageRatio:         ratio,
		},
		RegionRiskScores: riskScores,
	}
}
