package breakdown

import (
	"strings"
	"testing"

	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/types"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "a", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: strings.Repeat("x", 40), want: 10},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSegmentParagraphPages(t *testing.T) {
	doc := &NormalizedDocument{
		Pages: []NormalizedPage{
			{
				PageNumber: 1,
				Paragraphs: []docintel.Paragraph{
					{Content: "  Scope of work  "},
					{Content: "Demolition and disposal"},
				},
			},
			{
				PageNumber: 2,
				Paragraphs: []docintel.Paragraph{
					{Content: "Electrical rough-in"},
				},
			},
		},
	}

	regions := Segment(doc)

	if len(regions) != 2 {
		t.Fatalf("len(regions) = %d, want 2", len(regions))
	}
	first := regions[0]
	if first.Type != types.RegionTypeParagraphBlock {
		t.Fatalf("Type = %q, want paragraph_block", first.Type)
	}
	if first.PageOrSheet != "page:1" {
		t.Fatalf("PageOrSheet = %q, want page:1", first.PageOrSheet)
	}
	if first.Text != "Scope of work\n\nDemolition and disposal" {
		t.Fatalf("Text = %q", first.Text)
	}
	if first.RegionID == "" {
		t.Fatalf("RegionID empty")
	}
	if first.EvidenceRefs["paragraphCount"] != 2 {
		t.Fatalf("paragraphCount = %v, want 2", first.EvidenceRefs["paragraphCount"])
	}
	if first.TokenEstimate != EstimateTokens(first.Text) {
		t.Fatalf("TokenEstimate = %d, want %d", first.TokenEstimate, EstimateTokens(first.Text))
	}
	if regions[1].PageOrSheet != "page:2" {
		t.Fatalf("second region page = %q, want page:2", regions[1].PageOrSheet)
	}
}

func TestSegmentTablePageTyped(t *testing.T) {
	doc := &NormalizedDocument{
		Pages: []NormalizedPage{
			{
				PageNumber: 1,
				Tables: []docintel.Table{
					{
						RowCount:    1,
						ColumnCount: 2,
						Cells: []docintel.TableCell{
							{RowIndex: 0, ColumnIndex: 0, Content: "Task"},
							{RowIndex: 0, ColumnIndex: 1, Content: "Phase"},
						},
					},
				},
				Paragraphs: []docintel.Paragraph{{Content: "Notes"}},
			},
		},
	}

	regions := Segment(doc)

	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.Type != types.RegionTypeTable {
		t.Fatalf("Type = %q, want table", r.Type)
	}
	if !strings.Contains(r.Text, "| Task | Phase |") {
		t.Fatalf("Text missing markdown table: %q", r.Text)
	}
	if !strings.HasSuffix(r.Text, "Notes") {
		t.Fatalf("Text missing trailing paragraph: %q", r.Text)
	}
}

func TestSegmentLinesFallback(t *testing.T) {
	doc := &NormalizedDocument{
		Pages: []NormalizedPage{
			{
				PageNumber: 3,
				Lines: []docintel.Line{
					{Content: " first line "},
					{Content: "second line"},
				},
			},
		},
	}

	regions := Segment(doc)

	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1", len(regions))
	}
	if regions[0].Text != "first line\n\nsecond line" {
		t.Fatalf("Text = %q", regions[0].Text)
	}
	if regions[0].PageOrSheet != "page:3" {
		t.Fatalf("PageOrSheet = %q, want page:3", regions[0].PageOrSheet)
	}
}

func TestSegmentSkipsEmptyPages(t *testing.T) {
	doc := &NormalizedDocument{
		Pages: []NormalizedPage{
			{PageNumber: 1},
			{PageNumber: 2, Paragraphs: []docintel.Paragraph{{Content: "content"}}},
		},
	}

	regions := Segment(doc)

	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1", len(regions))
	}
	if regions[0].PageOrSheet != "page:2" {
		t.Fatalf("PageOrSheet = %q, want page:2", regions[0].PageOrSheet)
	}
}

func TestSegmentZeroPageNumberFallsBackToIndex(t *testing.T) {
	doc := &NormalizedDocument{
		Pages: []NormalizedPage{
			{Paragraphs: []docintel.Paragraph{{Content: "a"}}},
			{Paragraphs: []docintel.Paragraph{{Content: "b"}}},
		},
	}

	regions := Segment(doc)

	if regions[0].PageOrSheet != "page:1" || regions[1].PageOrSheet != "page:2" {
		t.Fatalf("pages = %q, %q; want page:1, page:2", regions[0].PageOrSheet, regions[1].PageOrSheet)
	}
}

func TestSegmentFallbackRegion(t *testing.T) {
	doc := &NormalizedDocument{Content: "raw document text"}

	regions := Segment(doc)

	if len(regions) != 1 {
		t.Fatalf("len(regions) = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.Type != types.RegionTypeUnknown {
		t.Fatalf("Type = %q, want unknown", r.Type)
	}
	if r.PageOrSheet != "page:1" {
		t.Fatalf("PageOrSheet = %q, want page:1", r.PageOrSheet)
	}
	if r.Text != "raw document text" {
		t.Fatalf("Text = %q", r.Text)
	}
	if r.EvidenceRefs["fallback"] != true {
		t.Fatalf("EvidenceRefs = %v, want fallback true", r.EvidenceRefs)
	}
}

func TestSegmentFallbackTruncated(t *testing.T) {
	doc := &NormalizedDocument{Content: strings.Repeat("z", fallbackDumpLimit+100)}

	regions := Segment(doc)

	if got := len(regions[0].Text); got != fallbackDumpLimit {
		t.Fatalf("len(Text) = %d, want %d", got, fallbackDumpLimit)
	}
}

func TestTableToMarkdown(t *testing.T) {
	table := docintel.Table{
		RowCount:    2,
		ColumnCount: 2,
		Cells: []docintel.TableCell{
			{RowIndex: 0, ColumnIndex: 0, Content: "Task"},
			{RowIndex: 0, ColumnIndex: 1, Content: "Owner"},
			{RowIndex: 1, ColumnIndex: 0, Content: "Pour slab"},
			{RowIndex: 1, ColumnIndex: 1, Content: "Crew A"},
		},
	}

	got := TableToMarkdown(table)
	want := strings.Join([]string{
		"| Task | Owner |",
		"| --- | --- |",
		"| Pour slab | Crew A |",
	}, "\n")
	if got != want {
		t.Fatalf("TableToMarkdown =\n%s\nwant\n%s", got, want)
	}
}

func TestTableToMarkdownEscapesContent(t *testing.T) {
	table := docintel.Table{
		Cells: []docintel.TableCell{
			{RowIndex: 0, ColumnIndex: 0, Content: "a|b"},
			{RowIndex: 0, ColumnIndex: 1, Content: "line1\nline2"},
		},
	}

	got := TableToMarkdown(table)

	if !strings.Contains(got, `a\|b`) {
		t.Fatalf("pipe not escaped: %q", got)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("cell newline leaked into grid: %q", got)
	}
	if !strings.Contains(got, "line1 line2") {
		t.Fatalf("newline not replaced with space: %q", got)
	}
}

func TestTableToMarkdownSpansSizeGrid(t *testing.T) {
	table := docintel.Table{
		Cells: []docintel.TableCell{
			{RowIndex: 0, ColumnIndex: 0, Content: "wide", ColumnSpan: 3},
			{RowIndex: 1, ColumnIndex: 2, Content: "corner"},
		},
	}

	got := TableToMarkdown(table)
	lines := strings.Split(got, "\n")

	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3 (two rows plus separator)", len(lines))
	}
	if lines[0] != "| wide |  |  |" {
		t.Fatalf("header row = %q", lines[0])
	}
	if lines[2] != "|  |  | corner |" {
		t.Fatalf("second row = %q", lines[2])
	}
}
