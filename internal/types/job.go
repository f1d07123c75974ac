package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobMode string

const (
	JobModeStrict       JobMode = "strict"
	JobModeBestJudgment JobMode = "best_judgment"
)

func (m JobMode) Valid() bool {
	return m == JobModeStrict || m == JobModeBestJudgment
}

type JobState string

const (
	JobStateQueued        JobState = "queued"
	JobStateRunning       JobState = "running"
	JobStateAwaitingInput JobState = "awaiting_input"
	JobStateCompleted     JobState = "completed"
	JobStateFailed        JobState = "failed"
)

// Job is the lifecycle record for one uploaded document. It is created once at
// ingestion and mutated only by the pipeline at checkpoints; after a terminal
// state only the error text may change.
type Job struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Mode           JobMode        `gorm:"column:mode;not null" json:"mode"`
	State          JobState       `gorm:"column:state;not null;index" json:"state"`
	Filename       string         `gorm:"column:filename;not null" json:"filename"`
	ContentType    string         `gorm:"column:content_type" json:"contentType"`
	SizeBytes      int64          `gorm:"column:size_bytes" json:"sizeBytes"`
	FileHashSHA256 string         `gorm:"column:file_hash_sha256;index" json:"fileHashSha256"`
	UploadKey      string         `gorm:"column:upload_key;not null" json:"uploadKey"`
	ArtifactsPrefix string        `gorm:"column:artifacts_prefix;not null" json:"artifactsPrefix"`
	NodeCount      int            `gorm:"column:node_count" json:"nodeCount,omitempty"`
	InferredCount  int            `gorm:"column:inferred_count" json:"inferredCount,omitempty"`
	CoverageRatio  float64        `gorm:"column:coverage_ratio" json:"coverageRatio,omitempty"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	Options        datatypes.JSON `gorm:"column:options;type:jsonb" json:"options,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (Job) TableName() string { return "job" }

// JobRun is the queue/checkpoint row that drives execution. One breakdown_build
// run per job; the orchestrator persists its stage cursor into Result.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"job_id"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Stage       string         `gorm:"column:stage;not null;index" json:"stage"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobRun) TableName() string { return "job_run" }
