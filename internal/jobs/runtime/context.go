package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// Notifier receives run lifecycle events so the status layer can fan them out
// to subscribers. Implementations must be safe for concurrent use.
type Notifier interface {
	JobProgress(job *types.JobRun, stage string, pct int, msg string)
	JobWaiting(job *types.JobRun, stage string, pct int, msg string)
	JobSucceeded(job *types.JobRun)
	JobFailed(job *types.JobRun, stage string, errMsg string)
}

/*
Context is the per-run execution context handed to job handlers.
It wraps the claimed job_run row plus everything a handler needs to
checkpoint progress durably: the DB handle, the run repo, and the notifier.
All terminal/progress writes go through UpdateFieldsUnlessStatus so a
canceled run is never resurrected by a slow worker.
*/
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Notify Notifier

	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify Notifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	c.decodePayload()
	return c
}

func (c *Context) decodePayload() {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return
	}
	_ = json.Unmarshal(c.Job.Payload, &c.payload)
}

// Payload returns the decoded job payload map. Never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.decodePayload()
	}
	return c.payload
}

// PayloadString reads a string payload field, "" when absent or wrong type.
func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// PayloadUUID parses a payload field as a UUID, uuid.Nil on failure.
func (c *Context) PayloadUUID(key string) uuid.UUID {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ReloadJob refreshes the in-memory row from the DB. Used after an external
// actor (answer endpoint) may have rewritten the payload.
func (c *Context) ReloadJob() error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	fresh, err := c.Repo.GetByID(c.ctx(), nil, c.Job.ID)
	if err != nil {
		return err
	}
	if fresh != nil {
		c.Job = fresh
		c.decodePayload()
	}
	return nil
}

func (c *Context) ctx() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

// Update writes raw fields to the run row and mirrors them into the in-memory
// copy for the fields it understands.
func (c *Context) Update(updates map[string]interface{}) error {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	if err := c.Repo.UpdateFields(c.ctx(), nil, c.Job.ID, updates); err != nil {
		return err
	}
	applyToJob(c.Job, updates)
	return nil
}

func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	now := time.Now().UTC()
	ok, err := c.Repo.UpdateFieldsUnlessStatus(c.ctx(), nil, c.Job.ID, []string{"canceled"}, map[string]interface{}{
		"status":       "running",
		"stage":        stage,
		"progress":     pct,
		"message":      msg,
		"heartbeat_at": now,
		"updated_at":   now,
	})
	if err != nil || !ok {
		return
	}
	c.Job.Status = "running"
	c.Job.Stage = stage
	c.Job.Progress = pct
	c.Job.Message = msg
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobProgress(c.Job, stage, pct, msg)
	}
}

func (c *Context) Succeed(stage string, result any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     "succeeded",
		"stage":      stage,
		"progress":   100,
		"message":    "Done",
		"error":      "",
		"locked_at":  nil,
		"updated_at": now,
	}
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			updates["result"] = b
		}
	}
	ok, err := c.Repo.UpdateFieldsUnlessStatus(c.ctx(), nil, c.Job.ID, []string{"canceled"}, updates)
	if err != nil || !ok {
		return
	}
	c.Job.Status = "succeeded"
	c.Job.Stage = stage
	c.Job.Progress = 100
	c.Job.Message = "Done"
	c.Job.Error = ""
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	if b, mok := updates["result"].([]byte); mok {
		c.Job.Result = b
	}
	if c.Notify != nil {
		c.Notify.JobSucceeded(c.Job)
	}
}

func (c *Context) Fail(stage string, runErr error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	now := time.Now().UTC()
	ok, err := c.Repo.UpdateFieldsUnlessStatus(c.ctx(), nil, c.Job.ID, []string{"canceled"}, map[string]interface{}{
		"status":        "failed",
		"stage":         stage,
		"error":         msg,
		"locked_at":     nil,
		"last_error_at": now,
		"updated_at":    now,
	})
	if err != nil || !ok {
		return
	}
	c.Job.Status = "failed"
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LockedAt = nil
	c.Job.LastErrorAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobFailed(c.Job, stage, msg)
	}
}

func applyToJob(job *types.JobRun, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			if s, ok := v.(string); ok {
				job.Status = s
			}
		case "stage":
			if s, ok := v.(string); ok {
				job.Stage = s
			}
		case "progress":
			if p, ok := v.(int); ok {
				job.Progress = p
			}
		case "message":
			if s, ok := v.(string); ok {
				job.Message = s
			}
		case "error":
			if s, ok := v.(string); ok {
				job.Error = s
			}
		case "result":
			switch b := v.(type) {
			case datatypes.JSON:
				job.Result = b
			case []byte:
				job.Result = b
			}
		}
	}
}
