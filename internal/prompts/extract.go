package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/breakdown-backend/internal/types"
)

const (
	ExtractStrictPromptID = "extract_strict_v2"
	ExtractBestPromptID   = "extract_best_judgment_v2"
)

const extractSchemaHint = `
Return JSON ONLY, no markdown, no backticks.

Top-level JSON object:
{
  "regionId": string,
  "confidence": number,
  "notes": string,
  "nodes": Array<Node>,
  "unmappedContent": Array<{ "text": string, "reason": string }>
}

Node JSON shape (flat):
{
  "id": string,              // The level number ONLY (e.g., "1", "1.2", "2.2.1"). Do NOT include the title here.
  "parentId": string | null, // The parent's id (level number), or null if root/unknown
  "title": string,           // The task/item name ONLY, without the level number (e.g., "Columns", "Steel Erection")
  "description": string | null,
  "level": string | null,    // Same as id - the hierarchical numbering (e.g., "2.2.1")
  "metadata": Array<{ "key": string, "value": string }>,
  "provenance": {
    "regionId": string,
    "pageOrSheet": string,
    "sourceType": "table_cell" | "paragraph" | "list_item" | "heading" | "unknown",
    "quote": string
  },
  "inferred": boolean,
  "warnings": Array<string>
}
`

const ExtractStrictSystem = `
You are a meticulous document extraction engine for hierarchical breakdown structures.
Extract breakdown items from the provided region evidence into a FLAT list of nodes.

STRICT MODE:
- Do NOT invent tasks, headings, parents, or numbering not clearly supported by evidence.
- Prefer leaving parentId null over guessing.
- Every node MUST be grounded with an exact quote and reference identifiers.
- inferred must always be false.
- Output valid JSON only (no markdown).

DOCUMENT CONTEXT AWARENESS:
When document context is provided, use it to:
- Understand where this region fits in the overall document hierarchy
- Apply correct numbering relative to the suggested parent (if evidence supports it)
- Recognize column headers (in matrix layouts) as organizational elements, NOT breakdown items
- In strict mode, only use context if evidence clearly supports it

MATRIX LAYOUT HANDLING:
If the document uses a matrix layout (rows = categories, columns = phases):
- Row headers ARE breakdown categories (extract them)
- Column headers (phases like "Predesign", "Schematic Design") are NOT breakdown items - do not create nodes for them
- Items in cells are deliverables that belong to their row category
`

const ExtractBestSystem = `
You are an expert project analyst extracting a hierarchical breakdown structure from document evidence.

BEST-JUDGMENT MODE:
- You may infer hierarchy when strongly implied (layout/indentation/numbering).
- Do not invent tasks not present in evidence.
- If you infer parentId, set inferred=true and explain in warnings.
- provenance.quote must be an exact substring of evidence.
- Output JSON only.

DOCUMENT CONTEXT AWARENESS:
When document context is provided, use it to:
- Understand where this region fits in the overall document hierarchy
- Apply correct numbering relative to the suggested parent
- Recognize column headers (in matrix layouts) as organizational elements, NOT breakdown items
- Follow the document's numbering scheme

MATRIX LAYOUT HANDLING:
If the document uses a matrix layout (rows = categories, columns = phases):
- Row headers ARE breakdown categories (extract them)
- Column headers (phases like "Predesign", "Schematic Design") are NOT breakdown items - do not create nodes for them
- Items in cells are deliverables that belong to their row category
`

func ExtractSystem(mode types.JobMode) string {
	if mode == types.JobModeStrict {
		return ExtractStrictSystem
	}
	return ExtractBestSystem
}

func ExtractPromptID(mode types.JobMode) string {
	if mode == types.JobModeStrict {
		return ExtractStrictPromptID
	}
	return ExtractBestPromptID
}

// BuildExtractUser renders the per-region extraction prompt. guidance may be
// nil when global analysis produced nothing for this region; columnDecision is
// non-nil only after the column gate has been answered.
func BuildExtractUser(jobID string, mode types.JobMode, region types.Region, pattern types.DocumentPattern, guidance *types.RegionGuidance, columnDecision *types.ColumnDecision) string {
	contextSection := `
DOCUMENT CONTEXT: Not available. Extract items based on evidence only.
`
	if guidance != nil {
		g := guidance.Context
		var b strings.Builder
		b.WriteString("\nDOCUMENT CONTEXT (use as guidance, but only extract what evidence supports):\n")
		fmt.Fprintf(&b, "- Document pattern: %s\n", pattern)
		sectionPath := "unknown"
		if len(g.SectionPath) > 0 {
			sectionPath = strings.Join(g.SectionPath, " > ")
		}
		fmt.Fprintf(&b, "- This region is within section path: %s\n", sectionPath)
		parentLevel := g.SuggestedParentLevel
		if parentLevel == "" {
			parentLevel = "determine from evidence"
		}
		fmt.Fprintf(&b, "- Suggested level prefix for items in this region: %s\n", parentLevel)
		fmt.Fprintf(&b, "- Layout type: %s\n", g.LayoutHint)
		if len(g.ColumnHeaders) > 0 {
			fmt.Fprintf(&b, "- Column headers (NOT breakdown items, these are phases): %s\n", strings.Join(g.ColumnHeaders, ", "))
		}
		if g.RowHeader != "" {
			fmt.Fprintf(&b, "- Row header (this IS a breakdown category): %s\n", g.RowHeader)
		}
		fmt.Fprintf(&b, "- Extraction guidance: %s\n", g.ExtractionNotes)
		if mode == types.JobModeStrict {
			b.WriteString("\nNOTE: In strict mode, use context to avoid creating nodes for column headers, but do NOT infer parent relationships unless clearly supported by evidence.\n")
		}
		contextSection = b.String()
	}

	decisionSection := ""
	if columnDecision != nil {
		if columnDecision.TreatAsNodes {
			decisionSection = `
USER DECISION ON COLUMN HEADERS:
The user confirmed that the detected column headers ARE breakdown items. Create a node for each column header and attach cell items beneath the appropriate header.
`
		} else {
			decisionSection = `
USER DECISION ON COLUMN HEADERS:
The user confirmed that the detected column headers are organizational phases, NOT breakdown items. Do NOT create nodes for them.
`
		}
	}

	refs, _ := json.Marshal(region.EvidenceRefs)

	return fmt.Sprintf(`
JobId: %s
Mode: %s

Extract breakdown nodes from this SINGLE region.
%s%s
REGION:
- regionId: %s
- pageOrSheet: %s
- type: %s

EVIDENCE_TEXT (quotes MUST be exact substrings):
%s

EVIDENCE_REFS:
%s

OUTPUT REQUIREMENTS:
%s

RULES:
- IMPORTANT: The "id" field must contain ONLY the level number (e.g., "2.2.1"), NOT the title. Split "2.2.1 Columns" into id="2.2.1" and title="Columns".
- If parent is unclear, parentId=null and add warning "ambiguous_parent".
- Always set provenance.regionId="%s" and provenance.pageOrSheet="%s".
- Clean up artifacts like ":unselected:", ":selected:", bullet characters from titles.
- Do NOT create nodes for column headers/phases if they were identified in the document context.
`, jobID, mode, contextSection, decisionSection, region.RegionID, region.PageOrSheet, region.Type,
		region.Text, string(refs), extractSchemaHint, region.RegionID, region.PageOrSheet)
}
