package types

// ValidationReport is a point-in-time QC snapshot over a node set and the
// regions it was derived from. It is recomputed each run and archived as an
// artifact; it never gates the pipeline.
type ValidationReport struct {
	SchemaValid      bool               `json:"schemaValid"`
	UnsupportedNodes []UnsupportedNode  `json:"unsupportedNodes"`
	Duplicates       []DuplicateGroup   `json:"duplicates"`
	NumberingIssues  []NodeIssue        `json:"numberingIssues"`
	HierarchyIssues  []NodeIssue        `json:"hierarchyIssues"`
	Coverage         Coverage           `json:"coverage"`
	RegionRiskScores []RegionRiskScore  `json:"regionRiskScores"`
}

type UnsupportedNode struct {
	NodeID string `json:"nodeId"`
	Reason string `json:"reason"`
}

type DuplicateGroup struct {
	NodeIDs []string `json:"nodeIds"`
	Reason  string   `json:"reason"`
}

type NodeIssue struct {
	NodeID string `json:"nodeId"`
	Issue  string `json:"issue"`
}

type Coverage struct {
	ConsumedEvidenceCount int     `json:"consumedEvidenceCount"`
	TotalEvidenceCount    int     `json:"totalEvidenceCount"`
	CoverageRatio         float64 `json:"coverageRatio"`
}

type RegionRiskScore struct {
	RegionID string   `json:"regionId"`
	Risk     float64  `json:"risk"`
	Reasons  []string `json:"reasons"`
}

type VerifierIssue struct {
	Severity string  `json:"severity"`
	NodeID   *string `json:"nodeId"`
	Message  string  `json:"message"`
	RegionID *string `json:"regionId"`
}

type EscalationPlan struct {
	Needed          bool     `json:"needed"`
	TargetRegionIDs []string `json:"targetRegionIds"`
	Reason          string   `json:"reason"`
}

type VerifyOutput struct {
	CorrectedNodes []Node          `json:"correctedNodes"`
	Issues         []VerifierIssue `json:"issues"`
	EscalationPlan EscalationPlan  `json:"escalationPlan"`
}

type RegionExtraction struct {
	RegionID        string            `json:"regionId"`
	Confidence      float64           `json:"confidence"`
	Notes           string            `json:"notes"`
	Nodes           []Node            `json:"nodes"`
	UnmappedContent []UnmappedContent `json:"unmappedContent"`
}

type UnmappedContent struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

type Summary struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	QCNotes    []string `json:"qcNotes"`
}
