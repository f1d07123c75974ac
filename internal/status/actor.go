package status

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/datatypes"

	redisclients "github.com/yungbote/breakdown-backend/internal/clients/redis"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/sse"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// maxMessages bounds the append-heavy message log; oldest entries roll off.
const maxMessages = 200

/*
Actor owns every JobStatus mutation. All writers go through it, mutations are
serialized under one lock, and each mutation persists the full snapshot before
the event is published. Terminal states are sticky: once a job is completed or
failed, only error detail may still be recorded.
*/
type Actor struct {
	mu    sync.Mutex
	log   *logger.Logger
	repo  repos.StatusRepo
	bus   redisclients.StatusBus
	cache map[string]*types.JobStatus
}

func NewActor(repo repos.StatusRepo, bus redisclients.StatusBus, baseLog *logger.Logger) *Actor {
	return &Actor{
		log:   baseLog.With("component", "StatusActor"),
		repo:  repo,
		bus:   bus,
		cache: map[string]*types.JobStatus{},
	}
}

// Init creates the starting snapshot for a new job.
func (a *Actor) Init(ctx context.Context, jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := &types.JobStatus{
		JobID:   jobID,
		State:   types.JobStateQueued,
		Step:    "init",
		Percent: 0,
		Messages: []types.StatusMessage{{
			TS:    time.Now().UTC(),
			Level: types.StatusLevelInfo,
			Msg:   "Job initialized",
		}},
		Errors: []types.StatusError{},
	}
	a.cache[jobID] = st
	a.commit(ctx, st, sse.SSEEventJobStatusUpdated)
}

// Step records pipeline progress: current step name plus percent.
func (a *Actor) Step(ctx context.Context, jobID, step string, percent int) {
	a.mutate(ctx, jobID, sse.SSEEventJobStatusUpdated, func(st *types.JobStatus) bool {
		if isTerminal(st.State) {
			return false
		}
		st.State = types.JobStateRunning
		st.Step = step
		if percent >= 0 && percent <= 100 {
			st.Percent = percent
		}
		return true
	})
}

// Append adds a log line to the job's message feed. Error-level lines land in
// the error record too, so they survive the rolling message cap.
func (a *Actor) Append(ctx context.Context, jobID string, level types.StatusLevel, msg string, data map[string]any) {
	a.mutate(ctx, jobID, sse.SSEEventJobStatusUpdated, func(st *types.JobStatus) bool {
		if isTerminal(st.State) {
			return false
		}
		now := time.Now().UTC()
		st.Messages = append(st.Messages, types.StatusMessage{
			TS:    now,
			Level: level,
			Msg:   msg,
			Data:  data,
		})
		if len(st.Messages) > maxMessages {
			st.Messages = st.Messages[len(st.Messages)-maxMessages:]
		}
		if level == types.StatusLevelError {
			st.Errors = append(st.Errors, types.StatusError{
				TS:   now,
				Msg:  msg,
				Data: data,
			})
		}
		return true
	})
}

// AwaitInput parks the job in awaiting_input with the question attached.
func (a *Actor) AwaitInput(ctx context.Context, jobID string, pending types.PendingInput) {
	a.mutate(ctx, jobID, sse.SSEEventJobAwaitingInput, func(st *types.JobStatus) bool {
		if isTerminal(st.State) {
			return false
		}
		st.State = types.JobStateAwaitingInput
		st.PendingInput = &pending
		return true
	})
}

// ResolveInput clears the pending question after an answer (or expiry) and
// puts the job back into running.
func (a *Actor) ResolveInput(ctx context.Context, jobID string) {
	a.mutate(ctx, jobID, sse.SSEEventJobStatusUpdated, func(st *types.JobStatus) bool {
		if isTerminal(st.State) {
			return false
		}
		st.PendingInput = nil
		st.State = types.JobStateRunning
		return true
	})
}

// Complete marks the job terminal-successful.
func (a *Actor) Complete(ctx context.Context, jobID string) {
	a.mutate(ctx, jobID, sse.SSEEventJobCompleted, func(st *types.JobStatus) bool {
		if isTerminal(st.State) {
			return false
		}
		st.State = types.JobStateCompleted
		st.Step = "done"
		st.Percent = 100
		st.PendingInput = nil
		return true
	})
}

// Fail marks the job terminal-failed. A job already terminal still accepts
// the error record so late failure detail is never lost.
func (a *Actor) Fail(ctx context.Context, jobID, errMsg string, data map[string]any) {
	a.mutate(ctx, jobID, sse.SSEEventJobFailed, func(st *types.JobStatus) bool {
		st.Errors = append(st.Errors, types.StatusError{
			TS:   time.Now().UTC(),
			Msg:  errMsg,
			Data: data,
		})
		if isTerminal(st.State) {
			return true
		}
		st.State = types.JobStateFailed
		st.PendingInput = nil
		return true
	})
}

// Get returns the current status, loading the persisted snapshot on a cold
// cache. Returns nil when the job has no status at all.
func (a *Actor) Get(ctx context.Context, jobID string) (*types.JobStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.cache[jobID]; ok {
		cp := *st
		return &cp, nil
	}
	st, err := a.load(ctx, jobID)
	if err != nil || st == nil {
		return nil, err
	}
	a.cache[jobID] = st
	cp := *st
	return &cp, nil
}

func (a *Actor) mutate(ctx context.Context, jobID string, event sse.SSEEvent, fn func(st *types.JobStatus) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.cache[jobID]
	if !ok {
		loaded, err := a.load(ctx, jobID)
		if err != nil || loaded == nil {
			a.log.Warn("status mutation for unknown job", "job_id", jobID, "error", err)
			return
		}
		st = loaded
		a.cache[jobID] = st
	}
	if !fn(st) {
		return
	}
	a.commit(ctx, st, event)
}

func (a *Actor) load(ctx context.Context, jobID string) (*types.JobStatus, error) {
	if a.repo == nil {
		return nil, nil
	}
	snap, err := a.repo.Get(ctx, nil, jobID)
	if err != nil || snap == nil {
		return nil, err
	}
	var st types.JobStatus
	if err := json.Unmarshal(snap.Snapshot, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (a *Actor) commit(ctx context.Context, st *types.JobStatus, event sse.SSEEvent) {
	st.UpdatedAt = time.Now().UTC()

	if a.repo != nil {
		b, err := json.Marshal(st)
		if err == nil {
			err = a.repo.Upsert(ctx, nil, &types.StatusSnapshot{
				JobID:     st.JobID,
				Snapshot:  datatypes.JSON(b),
				UpdatedAt: st.UpdatedAt,
			})
		}
		if err != nil {
			a.log.Warn("status snapshot persist failed", "job_id", st.JobID, "error", err)
		}
	}

	if a.bus != nil {
		cp := *st
		if err := a.bus.Publish(ctx, sse.SSEMessage{
			Channel: sse.JobChannel(st.JobID),
			Event:   event,
			Data:    cp,
		}); err != nil {
			a.log.Warn("status publish failed", "job_id", st.JobID, "error", err)
		}
	}
}

func isTerminal(s types.JobState) bool {
	return s == types.JobStateCompleted || s == types.JobStateFailed
}
