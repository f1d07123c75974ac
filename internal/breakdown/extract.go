package breakdown

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/prompts"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type ExtractInput struct {
	JobID          string
	Mode           types.JobMode
	Region         types.Region
	Pattern        types.DocumentPattern
	Guidance       *types.RegionGuidance
	ColumnDecision *types.ColumnDecision
	Config         llm.Config
}

// Extractor turns one region's evidence into a flat candidate node list.
type Extractor interface {
	ExtractRegion(ctx context.Context, in ExtractInput) (types.RegionExtraction, error)
}

type extractor struct {
	log *logger.Logger
	llm llm.Client
}

func NewExtractor(llmClient llm.Client, baseLog *logger.Logger) Extractor {
	return &extractor{
		log: baseLog.With("component", "Extractor"),
		llm: llmClient,
	}
}

func (e *extractor) ExtractRegion(ctx context.Context, in ExtractInput) (types.RegionExtraction, error) {
	cfg := in.Config
	if in.Mode == types.JobModeStrict {
		cfg.Temperature = 0.1
	} else {
		cfg.Temperature = 0.35
	}

	system := prompts.ExtractSystem(in.Mode)
	user := prompts.BuildExtractUser(in.JobID, in.Mode, in.Region, in.Pattern, in.Guidance, in.ColumnDecision)

	raw, err := e.llm.GenerateJSON(ctx, cfg, system, user)
	if err != nil {
		return types.RegionExtraction{}, fmt.Errorf("extract region %s: %w", in.Region.RegionID, err)
	}
	if err := ValidateExtractionOutput(raw); err != nil {
		return types.RegionExtraction{}, fmt.Errorf("region %s: %w", in.Region.RegionID, err)
	}

	var extraction types.RegionExtraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return types.RegionExtraction{}, fmt.Errorf("decode extraction for region %s: %w", in.Region.RegionID, err)
	}

	ApplyExtractionDefaults(&extraction, in.Region)
	return extraction, nil
}

// ApplyExtractionDefaults backfills fields the model is allowed to omit: node
// ids, empty metadata/warnings slices, and a minimal provenance pointing at
// the source region.
func ApplyExtractionDefaults(extraction *types.RegionExtraction, region types.Region) {
	if extraction.RegionID == "" {
		extraction.RegionID = region.RegionID
	}
	if extraction.UnmappedContent == nil {
		extraction.UnmappedContent = []types.UnmappedContent{}
	}
	if extraction.Nodes == nil {
		extraction.Nodes = []types.Node{}
	}
	for i := range extraction.Nodes {
		n := &extraction.Nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Metadata == nil {
			n.Metadata = []types.KeyValue{}
		}
		if n.Warnings == nil {
			n.Warnings = []string{}
		}
		if n.Provenance.RegionID == "" {
			n.Provenance = types.Provenance{
				RegionID:    region.RegionID,
				PageOrSheet: region.PageOrSheet,
				SourceType:  types.SourceTypeUnknown,
				Quote:       "",
			}
		}
	}
}
