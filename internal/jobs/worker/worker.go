package worker

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/types"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   runtime.Notifier

	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
	waitTimeout  time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify runtime.Notifier) *Worker {
	log := baseLog.With("component", "JobWorker")
	return &Worker{
		db:           db,
		log:          log,
		repo:         repo,
		registry:     registry,
		notify:       notify,
		maxAttempts:  utils.GetEnvAsInt("WORKER_MAX_ATTEMPTS", 5, log),
		retryDelay:   time.Duration(utils.GetEnvAsInt("WORKER_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
		staleRunning: time.Duration(utils.GetEnvAsInt("WORKER_STALE_RUNNING_MINUTES", 30, log)) * time.Minute,
		waitTimeout:  time.Duration(utils.GetEnvAsInt("WORKER_WAIT_TIMEOUT_HOURS", 24, log)) * time.Hour,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, w.log)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting job worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
	go w.reapLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(ctx, w.db, w.maxAttempts, w.retryDelay, w.staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.dispatch(ctx, workerID, job)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, workerID int, job *types.JobRun) {
	h, ok := w.registry.Get(job.JobType)
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)

	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeatLoop(hbCtx, job)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic",
				"worker_id", workerID,
				"job_id", job.ID,
				"job_type", job.JobType,
				"panic", r,
			)
			jc.Fail("panic", errFromRecover(r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Most pipelines call jc.Fail themselves; this is a safety net.
		jc.Fail("run", runErr)
	}
}

// heartbeatLoop keeps the claimed run visibly alive so other workers don't
// steal it as stale. Heartbeat only touches rows still in running.
func (w *Worker) heartbeatLoop(ctx context.Context, job *types.JobRun) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(ctx, nil, job.ID); err != nil {
				w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

// reapLoop re-queues waiting_user runs whose pause exceeded the answer
// deadline. The resumed stage observes the expired waitpoint and fails the
// run; the reaper itself never fails anything.
func (w *Worker) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.ExpireWaiting(ctx, nil, w.waitTimeout)
			if err != nil {
				w.log.Warn("ExpireWaiting failed", "error", err)
				continue
			}
			if n > 0 {
				w.log.Info("Re-queued expired waiting runs", "count", n)
			}
		}
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic during job execution" }
