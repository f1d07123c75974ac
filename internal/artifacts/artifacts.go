package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/yungbote/breakdown-backend/internal/clients/gcp"
	"github.com/yungbote/breakdown-backend/internal/logger"
)

// Object names written under artifacts/{jobID}/ during a run. The set is the
// audit trail for the job; re-runs overwrite in place.
const (
	ObjectDIResult       = "di_result.json"
	ObjectNormalized     = "normalized.json"
	ObjectGlobalAnalysis = "global_analysis.json"
	ObjectDraftTree      = "draft_tree.json"
	ObjectValidation     = "validation_report.json"
	ObjectVerified       = "verified_tree.json"
	ObjectFinalTree      = "final_tree.json"
	ObjectSummary        = "summary.json"

	ObjectGlobalAnalysisSystemPrompt = "global_analysis_system_prompt.txt"
	ObjectGlobalAnalysisUserPrompt   = "global_analysis_user_prompt.txt"
	ObjectVerifySystemPrompt         = "verify_system_prompt.txt"
	ObjectVerifyUserPrompt           = "verify_user_prompt.txt"
)

func UploadKey(jobID, filename string) string {
	return path.Join("uploads", jobID, sanitizeFilename(filename))
}

func Prefix(jobID string) string {
	return path.Join("artifacts", jobID) + "/"
}

func Key(jobID, name string) string {
	return path.Join("artifacts", jobID, name)
}

func RegionExtractionObject(regionID string) string {
	return path.Join("regions", sanitizeFilename(regionID)+".json")
}

// EscalationPatchObject holds the judged node set that replaced one escalated
// region's extraction.
func EscalationPatchObject(regionID string) string {
	return path.Join("escalations", sanitizeFilename(regionID), "selected_patch.json")
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "unnamed"
	}
	return name
}

// Store reads and writes the per-job artifact trail.
type Store interface {
	PutJSON(ctx context.Context, jobID, name string, value any) error
	GetJSON(ctx context.Context, jobID, name string, out any) error
	PutRaw(ctx context.Context, jobID, name string, raw []byte, contentType string) error
	GetRaw(ctx context.Context, jobID, name string) ([]byte, error)
	List(ctx context.Context, jobID string) ([]string, error)
}

type store struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewStore(bucket gcp.BucketService, baseLog *logger.Logger) Store {
	return &store{
		log:    baseLog.With("component", "ArtifactStore"),
		bucket: bucket,
	}
}

func (s *store) PutJSON(ctx context.Context, jobID, name string, value any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	return s.PutRaw(ctx, jobID, name, raw, "application/json")
}

func (s *store) GetJSON(ctx context.Context, jobID, name string, out any) error {
	raw, err := s.GetRaw(ctx, jobID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal artifact %s: %w", name, err)
	}
	return nil
}

func (s *store) PutRaw(ctx context.Context, jobID, name string, raw []byte, contentType string) error {
	key := Key(jobID, name)
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(raw), contentType); err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	return nil
}

func (s *store) GetRaw(ctx context.Context, jobID, name string) ([]byte, error) {
	key := Key(jobID, name)
	r, err := s.bucket.DownloadFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return raw, nil
}

func (s *store) List(ctx context.Context, jobID string) ([]string, error) {
	prefix := Prefix(jobID)
	keys, err := s.bucket.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}
