package types

type DocumentPattern string

const (
	PatternOutline  DocumentPattern = "outline"
	PatternMatrix   DocumentPattern = "matrix"
	PatternFlatList DocumentPattern = "flat_list"
	PatternMixed    DocumentPattern = "mixed"
	PatternUnknown  DocumentPattern = "unknown"
)

type SkeletonNode struct {
	Title          string   `json:"title"`
	SuggestedLevel string   `json:"suggestedLevel"`
	ParentTitle    *string  `json:"parentTitle"`
	PageRefs       []string `json:"pageRefs"`
	Confidence     float64  `json:"confidence"`
}

type RegionContext struct {
	SectionPath          []string `json:"sectionPath"`
	SuggestedParentLevel string   `json:"suggestedParentLevel"`
	LayoutHint           string   `json:"layoutHint"`
	ColumnHeaders        []string `json:"columnHeaders,omitempty"`
	RowHeader            string   `json:"rowHeader,omitempty"`
	ExtractionNotes      string   `json:"extractionNotes"`
}

type RegionGuidance struct {
	RegionID    string        `json:"regionId"`
	PageOrSheet string        `json:"pageOrSheet"`
	Context     RegionContext `json:"context"`
}

type StructuralElements struct {
	ColumnHeaders   []string `json:"columnHeaders,omitempty"`
	HasPhaseColumns bool     `json:"hasPhaseColumns"`
	NumberingScheme string   `json:"numberingScheme,omitempty"`
	PageCount       int      `json:"pageCount"`
}

type Skeleton struct {
	Nodes []SkeletonNode `json:"nodes"`
	Notes string         `json:"notes"`
}

// GlobalAnalysis is the whole-document pass output: a pattern classification,
// structural hints, a coarse skeleton, and one guidance entry per region.
type GlobalAnalysis struct {
	DocumentPattern    DocumentPattern    `json:"documentPattern"`
	StructuralElements StructuralElements `json:"structuralElements"`
	Skeleton           Skeleton           `json:"skeleton"`
	RegionGuidance     []RegionGuidance   `json:"regionGuidance"`
	Warnings           []string           `json:"warnings"`
}

// EmptyGlobalAnalysis is the fallback when the analysis pass is unavailable.
func EmptyGlobalAnalysis() GlobalAnalysis {
	return GlobalAnalysis{
		DocumentPattern: PatternUnknown,
		StructuralElements: StructuralElements{
			HasPhaseColumns: false,
			PageCount:       0,
		},
		Skeleton: Skeleton{
			Nodes: []SkeletonNode{},
			Notes: "Global analysis unavailable",
		},
		RegionGuidance: []RegionGuidance{},
		Warnings:       []string{"global_analysis_unavailable"},
	}
}

// ColumnDecision is the human answer to the column-decision gate.
type ColumnDecision struct {
	TreatAsNodes bool `json:"treatAsNodes"`
}
