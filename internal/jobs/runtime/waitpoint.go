package runtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WaitpointKindColumnDecision is the only durable pause the pipeline takes:
// asking the user which table columns carry titles and levels.
const WaitpointKindColumnDecision = "column_decision"

// ErrWaitingUser is returned by a stage that just called WaitForUser. The
// orchestrator treats it as "stop without failing": the run row is already
// parked in waiting_user and must not be touched again this cycle.
var ErrWaitingUser = errors.New("waiting for user input")

/*
WaitpointSpec describes what the run is waiting for. Kind identifies the
question type, Question and Options are what the UI renders, ExpiresAt is
when the pause becomes a hard failure.
*/
type WaitpointSpec struct {
	Version   int            `json:"version"`
	Kind      string         `json:"kind"`
	Question  string         `json:"question"`
	Options   map[string]any `json:"options,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
}

/*
WaitpointEnvelope is the shape merged into job_run.result while
status=waiting_user. Data carries whatever the resuming stage needs to
re-render its question (e.g. sampled table headers).
*/
type WaitpointEnvelope struct {
	Waitpoint WaitpointSpec  `json:"waitpoint"`
	Data      map[string]any `json:"waitpoint_data,omitempty"`
}

/*
WaitForUser is the durable pause primitive. It:
  - sets job_run.status = waiting_user,
  - clears locked_at so no worker holds the run,
  - stores a machine-readable waitpoint envelope in job_run.result,
  - emits a waiting notification.

The run resumes when the answer endpoint re-queues it, or when the expiry
reaper re-queues it past ExpiresAt so the stage can observe the deadline.
*/
func (c *Context) WaitForUser(stage string, pct int, msg string, spec WaitpointSpec, data map[string]any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	if strings.TrimSpace(stage) == "" {
		stage = "waiting_user"
	}
	if strings.TrimSpace(msg) == "" {
		msg = "Waiting for your response..."
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	if spec.Version <= 0 {
		spec.Version = 1
	}
	if strings.TrimSpace(spec.Kind) == "" {
		spec.Kind = "unknown"
	}

	// Merge into the existing result blob so the orchestrator checkpoint
	// stored alongside it survives the pause.
	merged := map[string]any{}
	if len(c.Job.Result) > 0 {
		_ = json.Unmarshal(c.Job.Result, &merged)
	}
	merged["waitpoint"] = spec
	if data != nil {
		merged["waitpoint_data"] = data
	}
	b, _ := json.Marshal(merged)
	res := datatypes.JSON(b)

	if c.Repo != nil {
		_, _ = c.Repo.UpdateFieldsUnlessStatus(c.ctx(), nil, c.Job.ID, []string{"canceled"}, map[string]interface{}{
			"status":       "waiting_user",
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	}

	c.Job.Status = "waiting_user"
	c.Job.Stage = stage
	c.Job.Progress = pct
	c.Job.Message = msg
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now

	if c.Notify != nil {
		c.Notify.JobWaiting(c.Job, stage, pct, msg)
	}
}
