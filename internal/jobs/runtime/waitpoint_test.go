package runtime

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestWaitForUserMergesIntoResult(t *testing.T) {
	repo := &fakeRunRepo{}
	notify := &fakeNotifier{}
	c := newTestContext(nil, repo, notify)
	c.Job.Result = datatypes.JSON(`{"orchestrator": {"version": 1}}`)

	expires := time.Now().UTC().Add(time.Hour)
	c.WaitForUser("column_gate", 39, "Need a column decision", WaitpointSpec{
		Kind:      WaitpointKindColumnDecision,
		Question:  "Treat phase columns as nodes?",
		ExpiresAt: expires,
	}, map[string]any{"columnHeaders": []string{"Phase 1"}})

	if c.Job.Status != "waiting_user" {
		t.Fatalf("Status = %q, want waiting_user", c.Job.Status)
	}
	if c.Job.LockedAt != nil {
		t.Fatalf("LockedAt not cleared")
	}

	var merged map[string]any
	if err := json.Unmarshal(c.Job.Result, &merged); err != nil {
		t.Fatalf("result: %v", err)
	}
	if _, ok := merged["orchestrator"]; !ok {
		t.Fatalf("checkpoint dropped from result: %v", merged)
	}
	wp, ok := merged["waitpoint"].(map[string]any)
	if !ok {
		t.Fatalf("waitpoint missing: %v", merged)
	}
	if wp["kind"] != WaitpointKindColumnDecision {
		t.Fatalf("kind = %v", wp["kind"])
	}
	if wp["version"] != float64(1) {
		t.Fatalf("version not defaulted: %v", wp["version"])
	}
	if _, ok := merged["waitpoint_data"]; !ok {
		t.Fatalf("waitpoint_data missing: %v", merged)
	}

	if len(notify.calls) != 1 || notify.calls[0].kind != "waiting" {
		t.Fatalf("notify calls = %+v", notify.calls)
	}
}

func TestWaitForUserDefaults(t *testing.T) {
	repo := &fakeRunRepo{}
	c := newTestContext(nil, repo, nil)

	c.WaitForUser("", 150, "", WaitpointSpec{}, nil)

	if c.Job.Stage != "waiting_user" {
		t.Fatalf("Stage = %q, want waiting_user", c.Job.Stage)
	}
	if c.Job.Progress != 99 {
		t.Fatalf("Progress = %d, want 99 (clamped)", c.Job.Progress)
	}
	if c.Job.Message == "" {
		t.Fatalf("Message not defaulted")
	}

	var merged map[string]any
	if err := json.Unmarshal(c.Job.Result, &merged); err != nil {
		t.Fatalf("result: %v", err)
	}
	wp := merged["waitpoint"].(map[string]any)
	if wp["kind"] != "unknown" {
		t.Fatalf("kind = %v, want unknown", wp["kind"])
	}
	if _, ok := merged["waitpoint_data"]; ok {
		t.Fatalf("waitpoint_data present for nil data")
	}
}
