package types

import (
	"time"

	"gorm.io/datatypes"
)

type StatusLevel string

const (
	StatusLevelInfo  StatusLevel = "info"
	StatusLevelWarn  StatusLevel = "warn"
	StatusLevelError StatusLevel = "error"
)

type StatusMessage struct {
	TS    time.Time      `json:"ts"`
	Level StatusLevel    `json:"level"`
	Msg   string         `json:"msg"`
	Data  map[string]any `json:"data,omitempty"`
}

type StatusError struct {
	TS   time.Time      `json:"ts"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data,omitempty"`
}

// PendingInput describes a question the pipeline is blocked on. Present only
// while the job is in awaiting_input.
type PendingInput struct {
	Type            string   `json:"type"`
	ColumnHeaders   []string `json:"columnHeaders,omitempty"`
	DocumentPattern string   `json:"documentPattern,omitempty"`
	Message         string   `json:"message"`
}

// StatusSnapshot is the persisted form of a JobStatus. The status actor writes
// the full snapshot on every mutation; readers always take the latest row.
type StatusSnapshot struct {
	JobID     string         `gorm:"column:job_id;primaryKey" json:"job_id"`
	Snapshot  datatypes.JSON `gorm:"column:snapshot;type:jsonb;not null" json:"snapshot"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (StatusSnapshot) TableName() string { return "job_status_snapshot" }

// JobStatus is the live, append-heavy projection of one job. It is owned
// exclusively by the status actor; everything else requests patches/appends.
type JobStatus struct {
	JobID        string          `json:"jobId"`
	State        JobState        `json:"state"`
	Step         string          `json:"step"`
	Percent      int             `json:"percent"`
	Messages     []StatusMessage `json:"messages"`
	Errors       []StatusError   `json:"errors"`
	PendingInput *PendingInput   `json:"pendingInput,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
