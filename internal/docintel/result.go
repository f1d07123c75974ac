package docintel

import "encoding/json"

// The backend wraps the interesting fields under a "markdown" envelope in its
// current version; older versions returned them at the top level. ParseResult
// accepts both.

type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type BoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon,omitempty"`
}

type Line struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon,omitempty"`
	Spans   []Span    `json:"spans,omitempty"`
}

type Paragraph struct {
	Content         string           `json:"content"`
	Role            string           `json:"role,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type TableCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	RowSpan     int    `json:"rowSpan,omitempty"`
	ColumnSpan  int    `json:"columnSpan,omitempty"`
	Content     string `json:"content"`
	Kind        string `json:"kind,omitempty"`
}

type Table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []TableCell      `json:"cells"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
}

type Page struct {
	PageNumber int    `json:"pageNumber"`
	Lines      []Line `json:"lines,omitempty"`
}

type Section struct {
	Spans    []Span   `json:"spans,omitempty"`
	Elements []string `json:"elements,omitempty"`
}

type Result struct {
	Link       string      `json:"link,omitempty"`
	APIVersion string      `json:"apiVersion,omitempty"`
	ModelID    string      `json:"modelId,omitempty"`
	Content    string      `json:"content,omitempty"`
	Pages      []Page      `json:"pages,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
	Tables     []Table     `json:"tables,omitempty"`
	Sections   []Section   `json:"sections,omitempty"`
}

type envelope struct {
	Markdown *Result `json:"markdown,omitempty"`
	Result
}

// ParseResult decodes a raw backend response, unwrapping the markdown
// envelope when present.
func ParseResult(raw json.RawMessage) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Markdown != nil {
		res := *env.Markdown
		if res.Link == "" {
			res.Link = env.Result.Link
		}
		// top-level content wins when the envelope carries both
		if env.Result.Content != "" {
			res.Content = env.Result.Content
		}
		return &res, nil
	}
	res := env.Result
	return &res, nil
}
