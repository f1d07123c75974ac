package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/breakdown-backend/internal/handlers"
	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

type RouterConfig struct {
	JobsHandler     *handlers.JobsHandler
	RealtimeHandler *handlers.RealtimeHandler
	Log             *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", cfg.Log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/jobs", cfg.JobsHandler.CreateJob)
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
		api.GET("/jobs/:id/status", cfg.JobsHandler.GetJobStatus)
		api.GET("/jobs/:id/nodes", cfg.JobsHandler.GetJobNodes)
		api.GET("/jobs/:id/artifacts", cfg.JobsHandler.ListJobArtifacts)
		api.GET("/jobs/:id/artifacts/*name", cfg.JobsHandler.GetJobArtifact)
		api.POST("/jobs/:id/answer", cfg.JobsHandler.AnswerJob)

		api.GET("/realtime/jobs/:id", cfg.RealtimeHandler.StreamJob)
	}

	return router
}
