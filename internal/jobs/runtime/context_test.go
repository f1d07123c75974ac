package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/types"
)

// fakeRunRepo records update calls and can simulate a canceled run.
type fakeRunRepo struct {
	updates    []map[string]interface{}
	canceled   bool
	reloadWith *types.JobRun
}

func (f *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.JobRun) ([]*types.JobRun, error) {
	return runs, nil
}

func (f *fakeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	return f.reloadWith, nil
}

func (f *fakeRunRepo) GetLatestByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, jobType string) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}

func (f *fakeRunRepo) UpdateFieldsUnlessStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	if f.canceled {
		return false, nil
	}
	f.updates = append(f.updates, updates)
	return true, nil
}

func (f *fakeRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error { return nil }

func (f *fakeRunRepo) RequeueWaiting(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeRunRepo) ExpireWaiting(ctx context.Context, tx *gorm.DB, waitTimeout time.Duration) (int64, error) {
	return 0, nil
}

type notifyCall struct {
	kind  string
	stage string
	pct   int
	msg   string
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) JobProgress(job *types.JobRun, stage string, pct int, msg string) {
	f.calls = append(f.calls, notifyCall{kind: "progress", stage: stage, pct: pct, msg: msg})
}

func (f *fakeNotifier) JobWaiting(job *types.JobRun, stage string, pct int, msg string) {
	f.calls = append(f.calls, notifyCall{kind: "waiting", stage: stage, pct: pct, msg: msg})
}

func (f *fakeNotifier) JobSucceeded(job *types.JobRun) {
	f.calls = append(f.calls, notifyCall{kind: "succeeded"})
}

func (f *fakeNotifier) JobFailed(job *types.JobRun, stage string, errMsg string) {
	f.calls = append(f.calls, notifyCall{kind: "failed", stage: stage, msg: errMsg})
}

func newTestContext(payload map[string]any, repo *fakeRunRepo, notify Notifier) *Context {
	job := &types.JobRun{
		ID:     uuid.New(),
		JobID:  uuid.New(),
		Status: "running",
	}
	if payload != nil {
		b, _ := json.Marshal(payload)
		job.Payload = datatypes.JSON(b)
	}
	return NewContext(context.Background(), nil, job, repo, notify)
}

func TestPayloadDecoding(t *testing.T) {
	id := uuid.New()
	c := newTestContext(map[string]any{
		"job_id": id.String(),
		"mode":   "strict",
		"count":  3,
	}, &fakeRunRepo{}, nil)

	if got := c.PayloadString("mode"); got != "strict" {
		t.Fatalf("PayloadString(mode) = %q, want strict", got)
	}
	if got := c.PayloadString("missing"); got != "" {
		t.Fatalf("PayloadString(missing) = %q, want empty", got)
	}
	if got := c.PayloadString("count"); got != "" {
		t.Fatalf("PayloadString on non-string = %q, want empty", got)
	}
	if got := c.PayloadUUID("job_id"); got != id {
		t.Fatalf("PayloadUUID = %v, want %v", got, id)
	}
	if got := c.PayloadUUID("mode"); got != uuid.Nil {
		t.Fatalf("PayloadUUID on non-uuid = %v, want Nil", got)
	}
}

func TestPayloadNeverNil(t *testing.T) {
	c := newTestContext(nil, &fakeRunRepo{}, nil)
	if c.Payload() == nil {
		t.Fatalf("Payload() = nil")
	}
}

func TestProgressClampsAndMirrors(t *testing.T) {
	repo := &fakeRunRepo{}
	notify := &fakeNotifier{}
	c := newTestContext(nil, repo, notify)

	c.Progress("extract_regions", 150, "working")

	if c.Job.Progress != 100 {
		t.Fatalf("Progress = %d, want 100", c.Job.Progress)
	}
	if c.Job.Stage != "extract_regions" || c.Job.Status != "running" {
		t.Fatalf("job = %+v", c.Job)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("len(updates) = %d, want 1", len(repo.updates))
	}
	if len(notify.calls) != 1 || notify.calls[0].kind != "progress" || notify.calls[0].pct != 100 {
		t.Fatalf("notify calls = %+v", notify.calls)
	}
}

func TestProgressSkippedWhenCanceled(t *testing.T) {
	repo := &fakeRunRepo{canceled: true}
	notify := &fakeNotifier{}
	c := newTestContext(nil, repo, notify)
	c.Job.Status = "canceled"

	c.Progress("resolve", 5, "should not land")

	if c.Job.Status != "canceled" {
		t.Fatalf("Status = %q, want canceled", c.Job.Status)
	}
	if len(notify.calls) != 0 {
		t.Fatalf("notify calls = %+v, want none", notify.calls)
	}
}

func TestSucceedWritesResult(t *testing.T) {
	repo := &fakeRunRepo{}
	notify := &fakeNotifier{}
	c := newTestContext(nil, repo, notify)

	c.Succeed("done", map[string]any{"node_count": 12})

	if c.Job.Status != "succeeded" || c.Job.Progress != 100 || c.Job.Message != "Done" {
		t.Fatalf("job = %+v", c.Job)
	}
	if c.Job.LockedAt != nil {
		t.Fatalf("LockedAt not cleared")
	}
	var result map[string]any
	if err := json.Unmarshal(c.Job.Result, &result); err != nil {
		t.Fatalf("result not mirrored: %v", err)
	}
	if result["node_count"] != float64(12) {
		t.Fatalf("result = %v", result)
	}
	if len(notify.calls) != 1 || notify.calls[0].kind != "succeeded" {
		t.Fatalf("notify calls = %+v", notify.calls)
	}
}

func TestFailRecordsError(t *testing.T) {
	repo := &fakeRunRepo{}
	notify := &fakeNotifier{}
	c := newTestContext(nil, repo, notify)

	c.Fail("verify", errWithText("model output rejected"))

	if c.Job.Status != "failed" || c.Job.Error != "model output rejected" {
		t.Fatalf("job = %+v", c.Job)
	}
	if c.Job.LastErrorAt == nil {
		t.Fatalf("LastErrorAt not set")
	}
	if len(notify.calls) != 1 || notify.calls[0].kind != "failed" || notify.calls[0].stage != "verify" {
		t.Fatalf("notify calls = %+v", notify.calls)
	}
}

func TestUpdateMirrorsResult(t *testing.T) {
	repo := &fakeRunRepo{}
	c := newTestContext(nil, repo, nil)

	raw := datatypes.JSON(`{"version": 1}`)
	if err := c.Update(map[string]interface{}{"result": raw, "stage": "column_gate"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if string(c.Job.Result) != `{"version": 1}` {
		t.Fatalf("Result = %s", c.Job.Result)
	}
	if c.Job.Stage != "column_gate" {
		t.Fatalf("Stage = %q", c.Job.Stage)
	}
}

func TestReloadJobRefreshesPayload(t *testing.T) {
	fresh := &types.JobRun{
		ID:      uuid.New(),
		Payload: datatypes.JSON(`{"column_decision": {"treatAsNodes": true}}`),
	}
	repo := &fakeRunRepo{reloadWith: fresh}
	c := newTestContext(map[string]any{"mode": "strict"}, repo, nil)

	if err := c.ReloadJob(); err != nil {
		t.Fatalf("ReloadJob: %v", err)
	}

	if c.PayloadString("mode") != "" {
		t.Fatalf("stale payload survived reload")
	}
	if _, ok := c.Payload()["column_decision"]; !ok {
		t.Fatalf("fresh payload missing: %v", c.Payload())
	}
}

type errWithText string

func (e errWithText) Error() string { return string(e) }
