package breakdown_build

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/pkg/httpx"
	"github.com/yungbote/breakdown-backend/internal/types"
)

// llmMaxAttempts is shared by the retrying model stages and by the stages
// that degrade once their retry budget is spent.
const llmMaxAttempts = 3

// retryableModelError classifies which model-stage failures earn another
// attempt: transient transport trouble, or output we could not parse or
// validate. A clean but wrong generation is often fixed by regenerating.
func retryableModelError(err error) bool {
	return httpx.IsRetryableError(err) || errors.Is(err, llm.ErrMalformedOutput)
}

// attemptsRemain reports whether the named stage would still get another run
// if it failed right now. Stages that degrade instead of failing consult this
// so the fallback only kicks in once the retry budget is spent.
func attemptsRemain(st *orchestrator.OrchestratorState, stage string) bool {
	if st == nil || st.Stages[stage] == nil {
		return llmMaxAttempts > 1
	}
	return st.Stages[stage].Attempts+1 < llmMaxAttempts
}

// putPrompt archives the exact prompt text a model stage sent.
func (p *Pipeline) putPrompt(jc *jobrt.Context, jobID, name, text string) error {
	return p.store.PutRaw(jc.Ctx, jobID, name, []byte(text), "text/plain; charset=utf-8")
}

// Run drives the whole breakdown build as a checkpointed stage list. A
// re-claimed run resumes at its first unfinished stage; the column gate can
// park the run in waiting_user between global analysis and extraction.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jobID := jc.PayloadUUID(PayloadJobID)
	if jobID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing job_id"))
		return nil
	}

	llmRetry := orchestrator.RetryPolicy{
		MaxAttempts: llmMaxAttempts,
		Retryable:   retryableModelError,
	}

	stages := []orchestrator.Stage{
		{
			Name:     "resolve",
			StartPct: 0, EndPct: 4,
			StartMsg: "Preparing job",
			Run:      p.stageResolve,
		},
		{
			Name:     "document_intelligence",
			StartPct: 4, EndPct: 18,
			StartMsg: "Reading document layout",
			Timeout:  10 * time.Minute,
			Retry:    llmRetry,
			Run:      p.stageDocumentIntelligence,
		},
		{
			Name:     "normalize_segment",
			StartPct: 18, EndPct: 26,
			StartMsg: "Segmenting document",
			Run:      p.stageNormalizeSegment,
		},
		{
			Name:     "global_analysis",
			StartPct: 26, EndPct: 38,
			StartMsg: "Analyzing document structure",
			Timeout:  5 * time.Minute,
			Retry:    llmRetry,
			Run:      p.stageGlobalAnalysis,
		},
		{
			Name:     "column_gate",
			StartPct: 38, EndPct: 40,
			StartMsg: "Checking for ambiguous table columns",
			Run:      p.stageColumnGate,
		},
		{
			Name:     "extract_regions",
			StartPct: 40, EndPct: 66,
			StartMsg: "Extracting items from regions",
			Timeout:  20 * time.Minute,
			Retry:    llmRetry,
			Run:      p.stageExtractRegions,
		},
		{
			Name:     "validate",
			StartPct: 66, EndPct: 70,
			StartMsg: "Running quality checks",
			Run:      p.stageValidate,
		},
		{
			Name:     "consolidate",
			StartPct: 70, EndPct: 73,
			StartMsg: "Linking parents",
			Run:      p.stageConsolidate,
		},
		{
			Name:     "verify",
			StartPct: 73, EndPct: 80,
			StartMsg: "Verifying the draft tree",
			Timeout:  10 * time.Minute,
			Retry:    llmRetry,
			Run:      p.stageVerify,
		},
		{
			Name:     "escalate",
			StartPct: 80, EndPct: 88,
			StartMsg: "Re-checking flagged regions",
			Timeout:  20 * time.Minute,
			Run:      p.stageEscalate,
		},
		{
			Name:     "persist",
			StartPct: 88, EndPct: 94,
			StartMsg: "Saving the breakdown tree",
			Run:      p.stagePersist,
		},
		{
			Name:     "summarize",
			StartPct: 94, EndPct: 98,
			StartMsg: "Writing the summary",
			Timeout:  5 * time.Minute,
			Run:      p.stageSummarize,
		},
		{
			Name:     "complete",
			StartPct: 98, EndPct: 100,
			StartMsg: "Finishing up",
			Run:      p.stageComplete,
		},
	}

	return p.engine.Run(jc, stages, map[string]any{"job_id": jobID.String()})
}

// mode reads the job mode from the payload, defaulting to strict.
func (p *Pipeline) mode(jc *jobrt.Context) types.JobMode {
	m := types.JobMode(jc.PayloadString(PayloadMode))
	if !m.Valid() {
		return types.JobModeStrict
	}
	return m
}

func (p *Pipeline) jobID(jc *jobrt.Context) string {
	return jc.PayloadUUID(PayloadJobID).String()
}
