package breakdown

import (
	"github.com/yungbote/breakdown-backend/internal/docintel"
)

// NormalizedPage groups one page's lines, tables, and paragraphs.
type NormalizedPage struct {
	PageNumber int                  `json:"pageNumber"`
	Lines      []docintel.Line      `json:"lines"`
	Tables     []docintel.Table     `json:"tables"`
	Paragraphs []docintel.Paragraph `json:"paragraphs"`
}

// FlatParagraph is a paragraph with its page resolved from bounding regions.
type FlatParagraph struct {
	Content    string `json:"content"`
	Role       string `json:"role,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
}

// NormalizedDocument is the stable internal representation of a document
// intelligence result, independent of the backend's envelope quirks.
type NormalizedDocument struct {
	Link       string             `json:"link,omitempty"`
	Content    string             `json:"content"`
	Pages      []NormalizedPage   `json:"pages"`
	Paragraphs []FlatParagraph    `json:"paragraphs"`
	Tables     []docintel.Table   `json:"tables"`
	Sections   []docintel.Section `json:"sections"`
}

// Normalize rebuilds the backend output page by page. Paragraphs and tables
// are attached to the page their first bounding region names; headers and
// footers are kept since they often carry section titles.
func Normalize(res *docintel.Result) *NormalizedDocument {
	paragraphsByPage := map[int][]docintel.Paragraph{}
	for _, para := range res.Paragraphs {
		pageNum := 1
		if len(para.BoundingRegions) > 0 && para.BoundingRegions[0].PageNumber > 0 {
			pageNum = para.BoundingRegions[0].PageNumber
		}
		paragraphsByPage[pageNum] = append(paragraphsByPage[pageNum], para)
	}

	tablesByPage := map[int][]docintel.Table{}
	for _, table := range res.Tables {
		pageNum := 1
		if len(table.BoundingRegions) > 0 && table.BoundingRegions[0].PageNumber > 0 {
			pageNum = table.BoundingRegions[0].PageNumber
		}
		tablesByPage[pageNum] = append(tablesByPage[pageNum], table)
	}

	pages := make([]NormalizedPage, 0, len(res.Pages))
	for idx, page := range res.Pages {
		pageNumber := page.PageNumber
		if pageNumber == 0 {
			pageNumber = idx + 1
		}
		pages = append(pages, NormalizedPage{
			PageNumber: pageNumber,
			Lines:      page.Lines,
			Tables:     tablesByPage[pageNumber],
			Paragraphs: paragraphsByPage[pageNumber],
		})
	}

	// No page structure at all: fold every paragraph into a synthetic page 1.
	if len(pages) == 0 && len(res.Paragraphs) > 0 {
		pages = append(pages, NormalizedPage{
			PageNumber: 1,
			Lines:      []docintel.Line{},
			Tables:     res.Tables,
			Paragraphs: res.Paragraphs,
		})
	}

	paragraphs := make([]FlatParagraph, 0, len(res.Paragraphs))
	for _, p := range res.Paragraphs {
		pageNum := 0
		if len(p.BoundingRegions) > 0 {
			pageNum = p.BoundingRegions[0].PageNumber
		}
		paragraphs = append(paragraphs, FlatParagraph{
			Content:    p.Content,
			Role:       p.Role,
			PageNumber: pageNum,
		})
	}

	return &NormalizedDocument{
		Link:       res.Link,
		Content:    res.Content,
		Pages:      pages,
		Paragraphs: paragraphs,
		Tables:     res.Tables,
		Sections:   res.Sections,
	}
}
