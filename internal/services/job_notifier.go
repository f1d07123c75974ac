package services

import (
	"context"

	"github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/status"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// jobNotifier translates run-level lifecycle events into status actor calls
// so every subscriber sees one coherent stream per job. Run failure is also
// mirrored onto the job row; success is not, since the persist stage writes
// the completed state together with its counts.
type jobNotifier struct {
	actor *status.Actor
	jobs  repos.JobRepo
	log   *logger.Logger
}

func NewJobNotifier(actor *status.Actor, jobs repos.JobRepo, baseLog *logger.Logger) runtime.Notifier {
	return &jobNotifier{
		actor: actor,
		jobs:  jobs,
		log:   baseLog.With("component", "JobNotifier"),
	}
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, pct int, msg string) {
	if n.actor == nil || job == nil {
		return
	}
	ctx := context.Background()
	n.actor.Step(ctx, job.JobID.String(), stage, pct)
	if msg != "" {
		n.actor.Append(ctx, job.JobID.String(), types.StatusLevelInfo, msg, nil)
	}
}

func (n *jobNotifier) JobWaiting(job *types.JobRun, stage string, pct int, msg string) {
	if n.actor == nil || job == nil {
		return
	}
	// The pipeline attaches the pending question itself; this only logs the pause.
	n.actor.Append(context.Background(), job.JobID.String(), types.StatusLevelInfo, msg, map[string]any{"stage": stage})
}

func (n *jobNotifier) JobSucceeded(job *types.JobRun) {
	if n.actor == nil || job == nil {
		return
	}
	n.actor.Complete(context.Background(), job.JobID.String())
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errMsg string) {
	if n.actor == nil || job == nil {
		return
	}
	ctx := context.Background()
	n.actor.Fail(ctx, job.JobID.String(), errMsg, map[string]any{"stage": stage})
	if n.jobs != nil {
		if err := n.jobs.MarkFailed(ctx, nil, job.JobID, errMsg); err != nil {
			n.log.Warn("could not mark job failed", "job_id", job.JobID, "error", err)
		}
	}
}
