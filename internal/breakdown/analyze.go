package breakdown

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/prompts"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// Analyzer runs the single whole-document pass that classifies the document's
// pattern and produces per-region extraction guidance.
type Analyzer interface {
	Analyze(ctx context.Context, jobID string, doc *NormalizedDocument, regions []types.Region, userContext string, cfg llm.Config) (types.GlobalAnalysis, error)
}

type analyzer struct {
	log *logger.Logger
	llm llm.Client
}

func NewAnalyzer(llmClient llm.Client, baseLog *logger.Logger) Analyzer {
	return &analyzer{
		log: baseLog.With("component", "Analyzer"),
		llm: llmClient,
	}
}

// GlobalAnalysisPrompts returns the exact system and user prompts the analyzer
// sends for this document, so callers can archive what the model saw.
func GlobalAnalysisPrompts(jobID string, doc *NormalizedDocument, regions []types.Region, userContext string) (system, user string) {
	fullContent := BuildFullDocumentContent(doc, regions)
	pageCount := 1
	if doc != nil && len(doc.Pages) > 0 {
		pageCount = len(doc.Pages)
	}
	return prompts.GlobalAnalysisSystem, prompts.BuildGlobalAnalysisUser(jobID, fullContent, regions, pageCount, userContext)
}

func (a *analyzer) Analyze(ctx context.Context, jobID string, doc *NormalizedDocument, regions []types.Region, userContext string, cfg llm.Config) (types.GlobalAnalysis, error) {
	cfg.Temperature = 0.2
	system, user := GlobalAnalysisPrompts(jobID, doc, regions, userContext)

	raw, err := a.llm.GenerateJSON(ctx, cfg, system, user)
	if err != nil {
		return types.GlobalAnalysis{}, fmt.Errorf("global analysis call: %w", err)
	}
	if err := ValidateGlobalAnalysisOutput(raw); err != nil {
		return types.GlobalAnalysis{}, err
	}

	var analysis types.GlobalAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return types.GlobalAnalysis{}, fmt.Errorf("decode global analysis: %w", err)
	}

	return EnsureCompleteGuidance(analysis, regions), nil
}

// BuildFullDocumentContent prefers the backend's own full-text rendition and
// falls back to concatenating region texts with page markers.
func BuildFullDocumentContent(doc *NormalizedDocument, regions []types.Region) string {
	if doc != nil && doc.Content != "" {
		return doc.Content
	}

	var parts []string
	currentPage := ""
	for _, region := range regions {
		if region.PageOrSheet != currentPage {
			currentPage = region.PageOrSheet
			parts = append(parts, fmt.Sprintf("\n=== %s ===\n", strings.ToUpper(currentPage)))
		}
		parts = append(parts, region.Text, "\n")
	}
	return strings.Join(parts, "\n")
}

// EnsureCompleteGuidance reconciles the analyzer output against the actual
// region list: any region the model skipped gets a default entry plus a
// warning, so no region goes silently unaddressed.
func EnsureCompleteGuidance(analysis types.GlobalAnalysis, regions []types.Region) types.GlobalAnalysis {
	guidanceMap := map[string]types.RegionGuidance{}
	for _, g := range analysis.RegionGuidance {
		guidanceMap[g.RegionID] = g
	}

	for _, region := range regions {
		if _, ok := guidanceMap[region.RegionID]; ok {
			continue
		}
		layoutHint := "unknown"
		if region.Type == types.RegionTypeTable {
			layoutHint = "table"
		}
		guidanceMap[region.RegionID] = types.RegionGuidance{
			RegionID:    region.RegionID,
			PageOrSheet: region.PageOrSheet,
			Context: types.RegionContext{
				SectionPath:     []string{},
				LayoutHint:      layoutHint,
				ExtractionNotes: "No specific guidance available. Extract items as found.",
			},
		}
		analysis.Warnings = append(analysis.Warnings, "missing_guidance_for_region:"+region.RegionID)
	}

	// Rebuild in region order so the guidance list is stable.
	guidance := make([]types.RegionGuidance, 0, len(regions))
	for _, region := range regions {
		guidance = append(guidance, guidanceMap[region.RegionID])
	}
	analysis.RegionGuidance = guidance

	return analysis
}
