package prompts

import (
	"fmt"
	"strings"

	"github.com/yungbote/breakdown-backend/internal/types"
)

const GlobalAnalysisPromptID = "global_analysis_v1"

const globalAnalysisSchemaHint = `
Return JSON ONLY, no markdown, no backticks.

{
  "documentPattern": "outline" | "matrix" | "flat_list" | "mixed" | "unknown",
  "structuralElements": {
    "columnHeaders": string[] | null,
    "hasPhaseColumns": boolean,
    "numberingScheme": string | null,
    "pageCount": number
  },
  "skeleton": {
    "nodes": Array<{
      "title": string,
      "suggestedLevel": string,
      "parentTitle": string | null,
      "pageRefs": string[],
      "confidence": number
    }>,
    "notes": string
  },
  "regionGuidance": Array<{
    "regionId": string,
    "pageOrSheet": string,
    "context": {
      "sectionPath": string[],
      "suggestedParentLevel": string,
      "layoutHint": "outline" | "matrix" | "list" | "table" | "unknown",
      "columnHeaders": string[] | null,
      "rowHeader": string | null,
      "extractionNotes": string
    }
  }>,
  "warnings": string[]
}
`

const GlobalAnalysisSystem = `
You are an expert document analyst specializing in hierarchical breakdown extraction.

Your task is to analyze an ENTIRE document to understand its structure and provide guidance for detailed extraction.

DOCUMENT PATTERNS:
- "outline": Traditional hierarchical outline (1, 1.1, 1.1.1) with clear parent-child relationships
- "matrix": Row/column layout where rows are categories and columns are phases/stages (e.g., Predesign, Schematic Design, DD, CD)
- "flat_list": Sequential items without explicit hierarchy
- "mixed": Combination of patterns (e.g., outline with embedded tables)
- "unknown": Cannot determine pattern

KEY IDENTIFICATION TASKS:
1. Identify if column headers repeat across pages (phase columns like "Predesign", "Schematic Design", etc.)
2. Identify row headers (section/category names in leftmost position)
3. Determine the numbering scheme used (if any)
4. Build a top-level hierarchy skeleton
5. Provide specific guidance for each region

CRITICAL FOR MATRIX LAYOUTS:
- Column headers (phases) are NOT breakdown items - they are organizational dimensions
- Row headers (categories like "SPECIFICATIONS", "SITE", "STRUCTURAL") ARE breakdown items
- Items in cells are deliverables that belong to their row category
- Do NOT treat phase names as separate breakdown nodes

OUTPUT REQUIREMENTS:
- skeleton.nodes should contain the TOP-LEVEL structure only (major sections)
- regionGuidance must include an entry for EACH region with specific extraction instructions
- suggestedLevel should follow the document's numbering or suggest appropriate levels
- extractionNotes should explain what the region contains and how to extract it

Output JSON only, no explanations.
`

func BuildGlobalAnalysisUser(jobID, fullContent string, regions []types.Region, pageCount int, userContext string) string {
	var regionList strings.Builder
	for i, r := range regions {
		fmt.Fprintf(&regionList, "  %d. regionId: %s, page: %s\n", i+1, r.RegionID, r.PageOrSheet)
	}

	userContextSection := ""
	if strings.TrimSpace(userContext) != "" {
		userContextSection = fmt.Sprintf(`
USER-PROVIDED CONTEXT:
The user has provided the following information about this document. Use this to guide your analysis:
%s
`, userContext)
	}

	return fmt.Sprintf(`
JobId: %s

Analyze this document to understand its structure and provide extraction guidance.
%s
DOCUMENT STATISTICS:
- Total pages: %d
- Total regions: %d

REGIONS TO PROVIDE GUIDANCE FOR:
%s
FULL DOCUMENT CONTENT:
%s

OUTPUT REQUIREMENTS:
%s

IMPORTANT:
1. For EACH region listed above, provide a regionGuidance entry
2. Identify the document's organizational pattern
3. Build a skeleton of the TOP-LEVEL sections only
4. For matrix layouts: column headers are sometimes phases, sometimes not. Check the user context to determine if they are breakdown items. If no user context was provided, use your best judgement.
5. Provide clear extractionNotes for each region explaining:
   - What section/category this region belongs to
   - What the items represent (deliverables, tasks, milestones, etc.)
   - Any special handling needed (e.g., "ignore column headers", "items are sub-bullets")
`, jobID, userContextSection, pageCount, len(regions), regionList.String(), fullContent, globalAnalysisSchemaHint)
}
