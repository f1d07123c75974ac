package breakdown_build

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type memStore struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objs: map[string][]byte{}}
}

func (s *memStore) key(jobID, name string) string { return jobID + "/" + name }

func (s *memStore) PutJSON(_ context.Context, jobID, name string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.PutRaw(context.Background(), jobID, name, b, "application/json")
}

func (s *memStore) GetJSON(_ context.Context, jobID, name string, out any) error {
	raw, err := s.GetRaw(context.Background(), jobID, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *memStore) PutRaw(_ context.Context, jobID, name string, raw []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[s.key(jobID, name)] = raw
	return nil
}

func (s *memStore) GetRaw(_ context.Context, jobID, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objs[s.key(jobID, name)]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", name)
	}
	return raw, nil
}

func (s *memStore) List(_ context.Context, jobID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k := range s.objs {
		names = append(names, k)
	}
	return names, nil
}

func (s *memStore) has(jobID, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[s.key(jobID, name)]
	return ok
}

type stubAnalyzer struct {
	analysis types.GlobalAnalysis
	err      error
	calls    int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string, _ *breakdown.NormalizedDocument, regions []types.Region, _ string, _ llm.Config) (types.GlobalAnalysis, error) {
	a.calls++
	if a.err != nil {
		return types.GlobalAnalysis{}, a.err
	}
	return breakdown.EnsureCompleteGuidance(a.analysis, regions), nil
}

func newAnalysisFixture(t *testing.T, analyzer breakdown.Analyzer) (*Pipeline, *memStore, *jobrt.Context, string) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	store := newMemStore()
	jobID := uuid.New()
	payload, _ := json.Marshal(map[string]any{PayloadJobID: jobID.String()})
	jc := jobrt.NewContext(context.Background(), nil, &types.JobRun{ID: uuid.New(), Payload: datatypes.JSON(payload)}, nil, nil)

	if err := store.PutJSON(context.Background(), jobID.String(), artifacts.ObjectNormalized, normalizedArtifact{
		Document: &breakdown.NormalizedDocument{Content: "doc body"},
		Regions:  []types.Region{{RegionID: "p1_r0", PageOrSheet: "page:1", Text: "region text"}},
	}); err != nil {
		t.Fatalf("seed normalized artifact: %v", err)
	}

	p := &Pipeline{log: log, store: store, analyzer: analyzer}
	return p, store, jc, jobID.String()
}

func TestStageGlobalAnalysisRetriesBeforeDegrading(t *testing.T) {
	analyzer := &stubAnalyzer{err: fmt.Errorf("analysis: %w", &docintel.HTTPError{StatusCode: 503})}
	p, store, jc, jobID := newAnalysisFixture(t, analyzer)

	st := &orchestrator.OrchestratorState{}
	st.EnsureStage("global_analysis")

	outs, err := p.stageGlobalAnalysis(jc, st)
	if err == nil {
		t.Fatalf("first failure degraded instead of surfacing for retry, outs = %+v", outs)
	}
	if !retryableModelError(err) {
		t.Fatalf("surfaced error not retryable: %v", err)
	}
	if store.has(jobID, artifacts.ObjectGlobalAnalysis) {
		t.Fatalf("fallback analysis written while retries remain")
	}
}

func TestStageGlobalAnalysisDegradesOnceBudgetSpent(t *testing.T) {
	analyzer := &stubAnalyzer{err: fmt.Errorf("analysis: %w", &docintel.HTTPError{StatusCode: 503})}
	p, store, jc, jobID := newAnalysisFixture(t, analyzer)

	st := &orchestrator.OrchestratorState{}
	st.EnsureStage("global_analysis").Attempts = llmMaxAttempts - 1

	outs, err := p.stageGlobalAnalysis(jc, st)
	if err != nil {
		t.Fatalf("final attempt should degrade, got error: %v", err)
	}
	if outs["degraded"] != true {
		t.Fatalf("outs = %+v, want degraded", outs)
	}
	if outs["pattern"] != string(types.PatternUnknown) {
		t.Fatalf("pattern = %v, want unknown fallback", outs["pattern"])
	}
	if !store.has(jobID, artifacts.ObjectGlobalAnalysis) {
		t.Fatalf("fallback analysis artifact missing")
	}
}

func TestStageGlobalAnalysisDegradesOnNonRetryableError(t *testing.T) {
	analyzer := &stubAnalyzer{err: fmt.Errorf("provider rejected the request")}
	p, _, jc, _ := newAnalysisFixture(t, analyzer)

	st := &orchestrator.OrchestratorState{}
	st.EnsureStage("global_analysis")

	outs, err := p.stageGlobalAnalysis(jc, st)
	if err != nil {
		t.Fatalf("non-retryable failure should degrade, got error: %v", err)
	}
	if outs["degraded"] != true {
		t.Fatalf("outs = %+v, want degraded", outs)
	}
}

func TestStageGlobalAnalysisArchivesPrompts(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: types.GlobalAnalysis{DocumentPattern: types.PatternOutline}}
	p, store, jc, jobID := newAnalysisFixture(t, analyzer)

	st := &orchestrator.OrchestratorState{}
	outs, err := p.stageGlobalAnalysis(jc, st)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if outs["degraded"] != false {
		t.Fatalf("outs = %+v, want degraded=false", outs)
	}

	for _, name := range []string{artifacts.ObjectGlobalAnalysisSystemPrompt, artifacts.ObjectGlobalAnalysisUserPrompt} {
		if !store.has(jobID, name) {
			t.Fatalf("prompt artifact %s missing", name)
		}
	}
	user, _ := store.GetRaw(context.Background(), jobID, artifacts.ObjectGlobalAnalysisUserPrompt)
	if len(user) == 0 {
		t.Fatalf("user prompt artifact empty")
	}
}
