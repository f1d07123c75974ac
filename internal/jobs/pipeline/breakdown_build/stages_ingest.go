package breakdown_build

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	redisclients "github.com/yungbote/breakdown-backend/internal/clients/redis"
	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// normalizedArtifact bundles the normalized document with its regions so the
// downstream stages read one object.
type normalizedArtifact struct {
	Document *breakdown.NormalizedDocument `json:"document"`
	Regions  []types.Region                `json:"regions"`
}

func (p *Pipeline) stageResolve(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := jc.PayloadUUID(PayloadJobID)
	job, err := p.jobs.GetByID(jc.Ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Mode.Valid() {
		return nil, fmt.Errorf("job %s has invalid mode %q", jobID, job.Mode)
	}
	if err := p.jobs.MarkRunning(jc.Ctx, nil, jobID); err != nil {
		return nil, err
	}
	return map[string]any{
		"upload_key": job.UploadKey,
		"filename":   job.Filename,
		"file_hash":  job.FileHashSHA256,
	}, nil
}

// stageDocumentIntelligence fetches the layout analysis, serving identical
// documents from the cache keyed by content hash, model and backend version.
func (p *Pipeline) stageDocumentIntelligence(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	fileHash := st.OutputString("resolve", "file_hash")
	uploadKey := st.OutputString("resolve", "upload_key")
	filename := st.OutputString("resolve", "filename")
	if uploadKey == "" {
		return nil, fmt.Errorf("resolve outputs missing upload_key")
	}

	cacheKey := redisclients.DICacheKey(fileHash, p.di.Model(), p.di.BackendVersion())
	if p.cache != nil && fileHash != "" {
		var cached map[string]any
		hit, err := p.cache.GetJSON(jc.Ctx, cacheKey, &cached)
		if err != nil {
			p.log.Warn("di cache lookup failed", "job_id", jobID, "error", err)
		}
		if hit {
			if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectDIResult, cached); err != nil {
				return nil, err
			}
			return map[string]any{"cached": true}, nil
		}
	}

	file, err := p.bucket.DownloadFile(jc.Ctx, uploadKey)
	if err != nil {
		return nil, fmt.Errorf("download upload: %w", err)
	}
	defer file.Close()

	raw, err := p.di.Analyze(jc.Ctx, filename, file)
	if err != nil {
		return nil, err
	}
	if err := p.store.PutRaw(jc.Ctx, jobID, artifacts.ObjectDIResult, raw, "application/json"); err != nil {
		return nil, err
	}
	if p.cache != nil && fileHash != "" {
		var asMap map[string]any
		if err := json.Unmarshal(raw, &asMap); err == nil {
			ttl := time.Duration(p.diCacheTTLHours) * time.Hour
			if err := p.cache.PutJSON(jc.Ctx, cacheKey, asMap, ttl); err != nil {
				p.log.Warn("di cache write failed", "job_id", jobID, "error", err)
			}
		}
	}
	return map[string]any{"cached": false}, nil
}

func (p *Pipeline) stageNormalizeSegment(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	raw, err := p.store.GetRaw(jc.Ctx, jobID, artifacts.ObjectDIResult)
	if err != nil {
		return nil, err
	}
	res, err := docintel.ParseResult(raw)
	if err != nil {
		return nil, fmt.Errorf("parse layout result: %w", err)
	}

	doc := breakdown.Normalize(res)
	regions := breakdown.Segment(doc)
	if len(regions) == 0 {
		return nil, fmt.Errorf("document produced no extractable regions")
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, normalizedArtifact{
		Document: doc,
		Regions:  regions,
	}); err != nil {
		return nil, err
	}
	return map[string]any{
		"region_count": len(regions),
		"page_count":   len(doc.Pages),
	}, nil
}

// stageGlobalAnalysis classifies the document and produces per-region
// guidance. Transient failures ride the stage retry; once the retry budget is
// spent the stage degrades to the empty fallback rather than failing the run,
// since extraction still works without guidance.
func (p *Pipeline) stageGlobalAnalysis(jc *jobrt.Context, st *orchestrator.OrchestratorState) (map[string]any, error) {
	jobID := p.jobID(jc)
	var norm normalizedArtifact
	if err := p.store.GetJSON(jc.Ctx, jobID, artifacts.ObjectNormalized, &norm); err != nil {
		return nil, err
	}

	userContext := jc.PayloadString(PayloadUserContext)
	system, user := breakdown.GlobalAnalysisPrompts(jobID, norm.Document, norm.Regions, userContext)
	if err := p.putPrompt(jc, jobID, artifacts.ObjectGlobalAnalysisSystemPrompt, system); err != nil {
		return nil, err
	}
	if err := p.putPrompt(jc, jobID, artifacts.ObjectGlobalAnalysisUserPrompt, user); err != nil {
		return nil, err
	}

	analysis, err := p.analyzer.Analyze(jc.Ctx, jobID, norm.Document, norm.Regions, userContext, p.models.Global)
	degraded := false
	if err != nil {
		if retryableModelError(err) && attemptsRemain(st, "global_analysis") {
			return nil, err
		}
		p.log.Warn("global analysis failed; using fallback", "job_id", jobID, "error", err)
		analysis = breakdown.EnsureCompleteGuidance(types.EmptyGlobalAnalysis(), norm.Regions)
		degraded = true
	}

	if err := p.store.PutJSON(jc.Ctx, jobID, artifacts.ObjectGlobalAnalysis, analysis); err != nil {
		return nil, err
	}
	return map[string]any{
		"pattern":           string(analysis.DocumentPattern),
		"has_phase_columns": analysis.StructuralElements.HasPhaseColumns,
		"degraded":          degraded,
	}, nil
}
