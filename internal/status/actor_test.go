package status

import (
	"context"
	"testing"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/types"
)

func newTestActor(t *testing.T) *Actor {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewActor(nil, nil, log)
}

func TestActorInitAndStep(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")

	st, err := a.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.State != types.JobStateQueued || st.Step != "init" || st.Percent != 0 {
		t.Fatalf("initial status = %+v", st)
	}
	if len(st.Messages) != 1 || st.Messages[0].Msg != "Job initialized" {
		t.Fatalf("initial Messages = %+v, want the init line", st.Messages)
	}
	if st.Messages[0].Level != types.StatusLevelInfo {
		t.Fatalf("init message level = %q, want info", st.Messages[0].Level)
	}

	a.Step(ctx, "job1", "extract_regions", 45)

	st, _ = a.Get(ctx, "job1")
	if st.State != types.JobStateRunning {
		t.Fatalf("State = %q, want running", st.State)
	}
	if st.Step != "extract_regions" || st.Percent != 45 {
		t.Fatalf("status = %+v", st)
	}
}

func TestActorStepIgnoresOutOfRangePercent(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	a.Step(ctx, "job1", "resolve", 10)
	a.Step(ctx, "job1", "resolve", 150)

	st, _ := a.Get(ctx, "job1")
	if st.Percent != 10 {
		t.Fatalf("Percent = %d, want 10", st.Percent)
	}
}

func TestActorAppendRollsMessages(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	for i := 0; i < maxMessages+10; i++ {
		a.Append(ctx, "job1", types.StatusLevelInfo, "msg", nil)
	}

	st, _ := a.Get(ctx, "job1")
	if len(st.Messages) != maxMessages {
		t.Fatalf("len(Messages) = %d, want %d", len(st.Messages), maxMessages)
	}
}

func TestActorAppendErrorLevelLandsInErrors(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	a.Append(ctx, "job1", types.StatusLevelWarn, "slow region", nil)
	a.Append(ctx, "job1", types.StatusLevelError, "region extraction blew up", map[string]any{"region_id": "p1_r0"})

	st, _ := a.Get(ctx, "job1")
	if len(st.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(st.Errors))
	}
	if st.Errors[0].Msg != "region extraction blew up" {
		t.Fatalf("Errors[0].Msg = %q", st.Errors[0].Msg)
	}
	if st.Errors[0].Data["region_id"] != "p1_r0" {
		t.Fatalf("Errors[0].Data = %+v", st.Errors[0].Data)
	}
	if st.State == types.JobStateFailed {
		t.Fatalf("error append must not fail the job")
	}
}

func TestActorPendingInputLifecycle(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	a.AwaitInput(ctx, "job1", types.PendingInput{
		Type:          "column_decision",
		ColumnHeaders: []string{"Phase 1", "Phase 2"},
		Message:       "Treat columns as nodes?",
	})

	st, _ := a.Get(ctx, "job1")
	if st.State != types.JobStateAwaitingInput {
		t.Fatalf("State = %q, want awaiting_input", st.State)
	}
	if st.PendingInput == nil || st.PendingInput.Type != "column_decision" {
		t.Fatalf("PendingInput = %+v", st.PendingInput)
	}

	a.ResolveInput(ctx, "job1")

	st, _ = a.Get(ctx, "job1")
	if st.State != types.JobStateRunning {
		t.Fatalf("State = %q, want running", st.State)
	}
	if st.PendingInput != nil {
		t.Fatalf("PendingInput = %+v, want nil", st.PendingInput)
	}
}

func TestActorTerminalStickiness(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	a.Complete(ctx, "job1")

	a.Step(ctx, "job1", "late_step", 50)
	a.Append(ctx, "job1", types.StatusLevelInfo, "late message", nil)
	a.AwaitInput(ctx, "job1", types.PendingInput{Type: "column_decision"})

	st, _ := a.Get(ctx, "job1")
	if st.State != types.JobStateCompleted {
		t.Fatalf("State = %q, want completed", st.State)
	}
	if st.Step != "done" || st.Percent != 100 {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Messages) != 1 {
		t.Fatalf("Messages = %v, want only the init line after terminal", st.Messages)
	}
	if st.PendingInput != nil {
		t.Fatalf("PendingInput set after terminal")
	}
}

func TestActorFailRecordsErrorsEvenWhenTerminal(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	a.Fail(ctx, "job1", "stage blew up", map[string]any{"stage": "verify"})

	st, _ := a.Get(ctx, "job1")
	if st.State != types.JobStateFailed {
		t.Fatalf("State = %q, want failed", st.State)
	}
	if len(st.Errors) != 1 || st.Errors[0].Msg != "stage blew up" {
		t.Fatalf("Errors = %+v", st.Errors)
	}

	a.Fail(ctx, "job1", "second failure detail", nil)

	st, _ = a.Get(ctx, "job1")
	if st.State != types.JobStateFailed {
		t.Fatalf("State = %q, want failed", st.State)
	}
	if len(st.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want 2", len(st.Errors))
	}
}

func TestActorGetUnknownJob(t *testing.T) {
	a := newTestActor(t)

	st, err := a.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st != nil {
		t.Fatalf("st = %+v, want nil", st)
	}
}

func TestActorGetReturnsCopy(t *testing.T) {
	a := newTestActor(t)
	ctx := context.Background()

	a.Init(ctx, "job1")
	st, _ := a.Get(ctx, "job1")
	st.Step = "tampered"

	again, _ := a.Get(ctx, "job1")
	if again.Step != "init" {
		t.Fatalf("Step = %q, cached snapshot mutated through copy", again.Step)
	}
}
