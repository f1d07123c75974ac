package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/clients/gcp"
	"github.com/yungbote/breakdown-backend/internal/jobs/pipeline/breakdown_build"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/status"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// maxUploadBytes bounds a single document upload (50 MiB).
const maxUploadBytes = 50 << 20

var (
	ErrInvalidMode    = errors.New("mode must be strict or best_judgment")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	ErrEmptyUpload    = errors.New("upload is empty")
	ErrNotAwaiting    = errors.New("job is not awaiting input")
)

type CreateJobInput struct {
	Filename    string
	ContentType string
	File        io.Reader
	Mode        types.JobMode
	UserContext string
}

type JobService interface {
	Create(ctx context.Context, in CreateJobInput) (*types.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Job, error)
	Status(ctx context.Context, id uuid.UUID) (*types.JobStatus, error)
	Nodes(ctx context.Context, id uuid.UUID) ([]*types.NodeRecord, error)
	ListArtifacts(ctx context.Context, id uuid.UUID) ([]string, error)
	GetArtifact(ctx context.Context, id uuid.UUID, name string) ([]byte, error)
	Answer(ctx context.Context, id uuid.UUID, decision types.ColumnDecision) error
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	jobs   repos.JobRepo
	runs   repos.JobRunRepo
	nodes  repos.NodeRepo
	actor  *status.Actor
	bucket gcp.BucketService
	store  artifacts.Store
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	runs repos.JobRunRepo,
	nodes repos.NodeRepo,
	actor *status.Actor,
	bucket gcp.BucketService,
	store artifacts.Store,
) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		jobs:   jobs,
		runs:   runs,
		nodes:  nodes,
		actor:  actor,
		bucket: bucket,
		store:  store,
	}
}

// Create ingests an upload: hash it, park the original in object storage,
// record the job row, and enqueue the build run.
func (s *jobService) Create(ctx context.Context, in CreateJobInput) (*types.Job, error) {
	if !in.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	data, err := io.ReadAll(io.LimitReader(in.File, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(data) > maxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])
	jobID := uuid.New()
	uploadKey := artifacts.UploadKey(jobID.String(), in.Filename)

	if err := s.bucket.UploadFile(ctx, uploadKey, bytes.NewReader(data), in.ContentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &types.Job{
		ID:              jobID,
		Mode:            in.Mode,
		State:           types.JobStateQueued,
		Filename:        in.Filename,
		ContentType:     in.ContentType,
		SizeBytes:       int64(len(data)),
		FileHashSHA256:  fileHash,
		UploadKey:       uploadKey,
		ArtifactsPrefix: artifacts.Prefix(jobID.String()),
	}
	if _, err := s.jobs.Create(ctx, nil, job); err != nil {
		return nil, err
	}

	payload := map[string]any{
		breakdown_build.PayloadJobID: jobID.String(),
		breakdown_build.PayloadMode:  string(in.Mode),
	}
	if strings.TrimSpace(in.UserContext) != "" {
		payload[breakdown_build.PayloadUserContext] = in.UserContext
	}
	pb, _ := json.Marshal(payload)
	run := &types.JobRun{
		JobID:   jobID,
		JobType: breakdown_build.JobType,
		Status:  "queued",
		Stage:   "queued",
		Payload: datatypes.JSON(pb),
	}
	if _, err := s.runs.Create(ctx, nil, []*types.JobRun{run}); err != nil {
		return nil, err
	}

	s.actor.Init(ctx, jobID.String())
	s.log.Info("job created",
		"job_id", jobID,
		"mode", in.Mode,
		"size_bytes", len(data),
		"file_hash", fileHash,
	)
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	return s.jobs.GetByID(ctx, nil, id)
}

func (s *jobService) Status(ctx context.Context, id uuid.UUID) (*types.JobStatus, error) {
	st, err := s.actor.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if st == nil {
		if _, err := s.jobs.GetByID(ctx, nil, id); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *jobService) Nodes(ctx context.Context, id uuid.UUID) ([]*types.NodeRecord, error) {
	if _, err := s.jobs.GetByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.nodes.ListByJob(ctx, nil, id)
}

func (s *jobService) ListArtifacts(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.jobs.GetByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.store.List(ctx, id.String())
}

func (s *jobService) GetArtifact(ctx context.Context, id uuid.UUID, name string) ([]byte, error) {
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return nil, fmt.Errorf("invalid artifact name")
	}
	if _, err := s.jobs.GetByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.store.GetRaw(ctx, id.String(), name)
}

// Answer resolves the column-decision gate: the decision lands in the run
// payload, the paused run goes back on the queue, and the status feed records
// the resume. Answering a job that is not paused is an error.
func (s *jobService) Answer(ctx context.Context, id uuid.UUID, decision types.ColumnDecision) error {
	if _, err := s.jobs.GetByID(ctx, nil, id); err != nil {
		return err
	}
	run, err := s.runs.GetLatestByJob(ctx, nil, id, breakdown_build.JobType)
	if err != nil {
		return err
	}
	if run == nil || run.Status != "waiting_user" {
		return ErrNotAwaiting
	}

	payload := map[string]any{}
	if len(run.Payload) > 0 {
		_ = json.Unmarshal(run.Payload, &payload)
	}
	payload[breakdown_build.PayloadColumnDecision] = decision
	pb, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.runs.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
		"payload": datatypes.JSON(pb),
	}); err != nil {
		return err
	}

	ok, err := s.runs.RequeueWaiting(ctx, nil, run.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAwaiting
	}

	s.actor.Append(ctx, id.String(), types.StatusLevelInfo, "Column decision received", map[string]any{
		"treat_as_nodes": decision.TreatAsNodes,
	})
	return nil
}
