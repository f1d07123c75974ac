package breakdown_build

import (
	"gorm.io/gorm"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	"github.com/yungbote/breakdown-backend/internal/clients/gcp"
	redisclients "github.com/yungbote/breakdown-backend/internal/clients/redis"
	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/jobs/orchestrator"
	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/status"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

const JobType = "breakdown_build"

// Payload keys. column_decision appears only after the answer endpoint
// rewrites the payload.
const (
	PayloadJobID          = "job_id"
	PayloadMode           = "mode"
	PayloadUserContext    = "user_context"
	PayloadColumnDecision = "column_decision"
)

type Pipeline struct {
	db     *gorm.DB
	log    *logger.Logger
	engine *orchestrator.Engine

	jobs  repos.JobRepo
	runs  repos.JobRunRepo
	nodes repos.NodeRepo

	actor  *status.Actor
	store  artifacts.Store
	bucket gcp.BucketService
	cache  redisclients.Cache
	di     docintel.Client

	models     llm.StageModels
	analyzer   breakdown.Analyzer
	extractor  breakdown.Extractor
	verifier   breakdown.Verifier
	escalator  breakdown.Escalator
	summarizer breakdown.Summarizer

	batchSize       int
	gateTimeoutHrs  int
	diCacheTTLHours int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	runs repos.JobRunRepo,
	nodes repos.NodeRepo,
	actor *status.Actor,
	store artifacts.Store,
	bucket gcp.BucketService,
	cache redisclients.Cache,
	di docintel.Client,
	models llm.StageModels,
	analyzer breakdown.Analyzer,
	extractor breakdown.Extractor,
	verifier breakdown.Verifier,
	escalator breakdown.Escalator,
	summarizer breakdown.Summarizer,
) *Pipeline {
	log := baseLog.With("job", JobType)
	return &Pipeline{
		db:              db,
		log:             log,
		engine:          orchestrator.NewEngine(),
		jobs:            jobs,
		runs:            runs,
		nodes:           nodes,
		actor:           actor,
		store:           store,
		bucket:          bucket,
		cache:           cache,
		di:              di,
		models:          models,
		analyzer:        analyzer,
		extractor:       extractor,
		verifier:        verifier,
		escalator:       escalator,
		summarizer:      summarizer,
		batchSize:       utils.GetEnvAsInt("EXTRACT_BATCH_SIZE", 3, log),
		gateTimeoutHrs:  utils.GetEnvAsInt("COLUMN_GATE_TIMEOUT_HOURS", 24, log),
		diCacheTTLHours: utils.GetEnvAsInt("DI_CACHE_TTL_HOURS", 24, log),
	}
}

func (p *Pipeline) Type() string { return JobType }
