package types

type RegionType string

const (
	RegionTypeTable          RegionType = "table"
	RegionTypeParagraphBlock RegionType = "paragraph_block"
	RegionTypeDrawing        RegionType = "drawing"
	RegionTypeUnknown        RegionType = "unknown"
)

// Region is one independently-extractable chunk of document content. Regions
// are produced once by segmentation and read-only afterwards; nodes reference
// them by RegionID through provenance.
type Region struct {
	RegionID      string         `json:"regionId"`
	Type          RegionType     `json:"type"`
	PageOrSheet   string         `json:"pageOrSheet"`
	Text          string         `json:"text"`
	EvidenceRefs  map[string]any `json:"evidenceRefs,omitempty"`
	TokenEstimate int            `json:"tokenEstimate"`
}
