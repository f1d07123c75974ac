package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/breakdown-backend/internal/artifacts"
	"github.com/yungbote/breakdown-backend/internal/breakdown"
	"github.com/yungbote/breakdown-backend/internal/clients/gcp"
	redisclients "github.com/yungbote/breakdown-backend/internal/clients/redis"
	"github.com/yungbote/breakdown-backend/internal/db"
	"github.com/yungbote/breakdown-backend/internal/docintel"
	"github.com/yungbote/breakdown-backend/internal/handlers"
	"github.com/yungbote/breakdown-backend/internal/jobs/pipeline/breakdown_build"
	"github.com/yungbote/breakdown-backend/internal/jobs/runtime"
	"github.com/yungbote/breakdown-backend/internal/jobs/worker"
	"github.com/yungbote/breakdown-backend/internal/llm"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/server"
	"github.com/yungbote/breakdown-backend/internal/services"
	"github.com/yungbote/breakdown-backend/internal/sse"
	"github.com/yungbote/breakdown-backend/internal/status"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	jobRepo := repos.NewJobRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)
	nodeRepo := repos.NewNodeRepo(thePG, log)
	statusRepo := repos.NewStatusRepo(thePG, log)

	// SSE + Redis
	log.Info("Setting up SSE hub and status bus...")
	sseHub := sse.NewSSEHub(log)
	statusBus, err := redisclients.NewStatusBus(log)
	if err != nil {
		log.Error("Could not init redis status bus", "error", err)
		os.Exit(1)
	}
	if err := statusBus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
		sseHub.Broadcast(m)
	}); err != nil {
		log.Error("Could not start status forwarder", "error", err)
		os.Exit(1)
	}
	diCache, err := redisclients.NewCache(log)
	if err != nil {
		log.Warn("Could not init layout cache; continuing without it", "error", err)
		diCache = nil
	}

	// Clients
	log.Info("Setting up clients from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	diClient, err := docintel.NewClient(log)
	if err != nil {
		log.Error("Could not init document intelligence client", "error", err)
		os.Exit(1)
	}
	llmClient, err := llm.NewClient(log)
	if err != nil {
		log.Error("Could not init LLM client", "error", err)
		os.Exit(1)
	}

	// Status + artifacts
	statusActor := status.NewActor(statusRepo, statusBus, log)
	artifactStore := artifacts.NewStore(bucketService, log)

	// Domain components
	models := llm.StageModelsFromEnv(log)
	analyzer := breakdown.NewAnalyzer(llmClient, log)
	extractor := breakdown.NewExtractor(llmClient, log)
	verifier := breakdown.NewVerifier(llmClient, log)
	escalator := breakdown.NewEscalator(llmClient, extractor, log)
	summarizer := breakdown.NewSummarizer(llmClient, log)

	// Jobs
	log.Info("Setting up job worker from main...")
	notifier := services.NewJobNotifier(statusActor, jobRepo, log)
	registry := runtime.NewRegistry()
	buildPipeline := breakdown_build.New(
		thePG,
		log,
		jobRepo,
		jobRunRepo,
		nodeRepo,
		statusActor,
		artifactStore,
		bucketService,
		diCache,
		diClient,
		models,
		analyzer,
		extractor,
		verifier,
		escalator,
		summarizer,
	)
	if err := registry.Register(buildPipeline); err != nil {
		log.Error("Could not register pipeline", "error", err)
		os.Exit(1)
	}
	jobWorker := worker.NewWorker(thePG, log, jobRunRepo, registry, notifier)
	jobWorker.Start(context.Background())

	// Services + handlers
	log.Info("Setting up services and handlers from main...")
	jobService := services.NewJobService(thePG, log, jobRepo, jobRunRepo, nodeRepo, statusActor, bucketService, artifactStore)
	jobsHandler := handlers.NewJobsHandler(jobService)
	realtimeHandler := handlers.NewRealtimeHandler(sseHub, statusActor)

	// Router
	router := server.NewRouter(server.RouterConfig{
		JobsHandler:     jobsHandler,
		RealtimeHandler: realtimeHandler,
		Log:             log,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
