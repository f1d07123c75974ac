package breakdown

import (
	"testing"

	"github.com/yungbote/breakdown-backend/internal/docintel"
)

func TestNormalizeAttachesByBoundingRegion(t *testing.T) {
	res := &docintel.Result{
		Content: "doc",
		Pages: []docintel.Page{
			{PageNumber: 1},
			{PageNumber: 2},
		},
		Paragraphs: []docintel.Paragraph{
			{Content: "on page one", BoundingRegions: []docintel.BoundingRegion{{PageNumber: 1}}},
			{Content: "on page two", BoundingRegions: []docintel.BoundingRegion{{PageNumber: 2}}},
			{Content: "no region defaults to one"},
		},
		Tables: []docintel.Table{
			{RowCount: 1, BoundingRegions: []docintel.BoundingRegion{{PageNumber: 2}}},
		},
	}

	doc := Normalize(res)

	if len(doc.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(doc.Pages))
	}
	if got := len(doc.Pages[0].Paragraphs); got != 2 {
		t.Fatalf("page 1 paragraphs = %d, want 2", got)
	}
	if got := len(doc.Pages[1].Paragraphs); got != 1 {
		t.Fatalf("page 2 paragraphs = %d, want 1", got)
	}
	if got := len(doc.Pages[1].Tables); got != 1 {
		t.Fatalf("page 2 tables = %d, want 1", got)
	}
	if got := len(doc.Pages[0].Tables); got != 0 {
		t.Fatalf("page 1 tables = %d, want 0", got)
	}
}

func TestNormalizeSyntheticPageWhenNoPages(t *testing.T) {
	res := &docintel.Result{
		Paragraphs: []docintel.Paragraph{{Content: "floating"}},
		Tables:     []docintel.Table{{RowCount: 1}},
	}

	doc := Normalize(res)

	if len(doc.Pages) != 1 {
		t.Fatalf("len(Pages) = %d, want 1", len(doc.Pages))
	}
	if doc.Pages[0].PageNumber != 1 {
		t.Fatalf("PageNumber = %d, want 1", doc.Pages[0].PageNumber)
	}
	if len(doc.Pages[0].Paragraphs) != 1 || len(doc.Pages[0].Tables) != 1 {
		t.Fatalf("synthetic page = %+v", doc.Pages[0])
	}
}

func TestNormalizeZeroPageNumberFallsBackToIndex(t *testing.T) {
	res := &docintel.Result{
		Pages: []docintel.Page{{}, {}},
	}

	doc := Normalize(res)

	if doc.Pages[0].PageNumber != 1 || doc.Pages[1].PageNumber != 2 {
		t.Fatalf("page numbers = %d, %d; want 1, 2", doc.Pages[0].PageNumber, doc.Pages[1].PageNumber)
	}
}

func TestNormalizeFlatParagraphs(t *testing.T) {
	res := &docintel.Result{
		Link:    "gs://bucket/doc",
		Content: "full text",
		Paragraphs: []docintel.Paragraph{
			{Content: "header", Role: "pageHeader", BoundingRegions: []docintel.BoundingRegion{{PageNumber: 3}}},
			{Content: "body"},
		},
	}

	doc := Normalize(res)

	if doc.Link != "gs://bucket/doc" || doc.Content != "full text" {
		t.Fatalf("doc metadata = %q / %q", doc.Link, doc.Content)
	}
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("len(Paragraphs) = %d, want 2", len(doc.Paragraphs))
	}
	first := doc.Paragraphs[0]
	if first.Content != "header" || first.Role != "pageHeader" || first.PageNumber != 3 {
		t.Fatalf("first flat paragraph = %+v", first)
	}
	if doc.Paragraphs[1].PageNumber != 0 {
		t.Fatalf("unanchored paragraph page = %d, want 0", doc.Paragraphs[1].PageNumber)
	}
}
