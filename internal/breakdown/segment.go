package breakdown

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/types"
)

const fallbackDumpLimit = 20000

// EstimateTokens is a crude cost proxy: 1 token ~ 4 chars.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Segment slices a normalized document into one region per content-bearing
// page. Tables are rendered as markdown grids so downstream extraction can
// treat all evidence as text. A document with no usable pages still yields a
// single fallback region; the pipeline never runs on zero regions.
func Segment(doc *NormalizedDocument) []types.Region {
	regions := []types.Region{}

	for i, page := range doc.Pages {
		pageNumber := page.PageNumber
		if pageNumber == 0 {
			pageNumber = i + 1
		}
		pageLabel := fmt.Sprintf("page:%d", pageNumber)

		parts := []string{}

		for _, table := range page.Tables {
			if len(table.Cells) > 0 {
				parts = append(parts, TableToMarkdown(table))
			} else if raw, err := json.MarshalIndent(table, "", "  "); err == nil {
				parts = append(parts, string(raw))
			}
		}

		for _, para := range page.Paragraphs {
			parts = append(parts, strings.TrimSpace(para.Content))
		}

		// lines as fallback when the backend produced no paragraphs
		if len(page.Paragraphs) == 0 && len(page.Lines) > 0 {
			for _, line := range page.Lines {
				parts = append(parts, strings.TrimSpace(line.Content))
			}
		}

		if len(parts) == 0 {
			continue
		}

		text := strings.Join(parts, "\n\n")
		regionType := types.RegionTypeParagraphBlock
		if len(page.Tables) > 0 {
			regionType = types.RegionTypeTable
		}

		regions = append(regions, types.Region{
			RegionID:    uuid.NewString(),
			Type:        regionType,
			PageOrSheet: pageLabel,
			Text:        text,
			EvidenceRefs: map[string]any{
				"pageNumber":     pageNumber,
				"lineCount":      len(page.Lines),
				"tableCount":     len(page.Tables),
				"paragraphCount": len(page.Paragraphs),
			},
			TokenEstimate: EstimateTokens(text),
		})
	}

	if len(regions) == 0 {
		text := doc.Content
		if text == "" {
			if raw, err := json.Marshal(doc); err == nil {
				text = string(raw)
			}
		}
		if len(text) > fallbackDumpLimit {
			text = text[:fallbackDumpLimit]
		}
		regions = append(regions, types.Region{
			RegionID:    uuid.NewString(),
			Type:        types.RegionTypeUnknown,
			PageOrSheet: "page:1",
			Text:        text,
			EvidenceRefs: map[string]any{
				"fallback": true,
			},
			TokenEstimate: EstimateTokens(text),
		})
	}

	return regions
}

// TableToMarkdown places cells into a row/column grid (honoring spans for
// sizing) and renders a markdown table with a separator after the first row.
// Pipes and newlines inside cells are escaped so the grid stays parseable.
func TableToMarkdown(table docintel.Table) string {
	maxRow, maxCol := 0, 0
	for _, cell := range table.Cells {
		rowSpan := cell.RowSpan
		if rowSpan < 1 {
			rowSpan = 1
		}
		colSpan := cell.ColumnSpan
		if colSpan < 1 {
			colSpan = 1
		}
		if end := cell.RowIndex + rowSpan; end > maxRow {
			maxRow = end
		}
		if end := cell.ColumnIndex + colSpan; end > maxCol {
			maxCol = end
		}
	}

	grid := make([][]string, maxRow)
	for r := range grid {
		grid[r] = make([]string, maxCol)
	}

	for _, cell := range table.Cells {
		if cell.RowIndex < 0 || cell.RowIndex >= maxRow || cell.ColumnIndex < 0 || cell.ColumnIndex >= maxCol {
			continue
		}
		content := strings.ReplaceAll(cell.Content, "|", "\\|")
		content = strings.ReplaceAll(content, "\n", " ")
		grid[cell.RowIndex][cell.ColumnIndex] = content
	}

	lines := []string{}
	for r := 0; r < len(grid); r++ {
		lines = append(lines, "| "+strings.Join(grid[r], " | ")+" |")
		if r == 0 {
			seps := make([]string, len(grid[r]))
			for i := range seps {
				seps[i] = "---"
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}

	return strings.Join(lines, "\n")
}
