package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/breakdown-backend/internal/repos"
	"github.com/yungbote/breakdown-backend/internal/services"
	"github.com/yungbote/breakdown-backend/internal/types"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// POST /api/jobs
// multipart/form-data: file (required), mode (strict|best_judgment), context (optional)
func (h *JobsHandler) CreateJob(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	mode := types.JobMode(strings.TrimSpace(c.PostForm("mode")))
	if mode == "" {
		mode = types.JobModeStrict
	}
	if !mode.Valid() {
		RespondError(c, http.StatusBadRequest, "invalid_mode", services.ErrInvalidMode)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	job, err := h.jobs.Create(c.Request.Context(), services.CreateJobInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		File:        file,
		Mode:        mode,
		UserContext: c.PostForm("context"),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUploadTooLarge):
			RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
		case errors.Is(err, services.ErrEmptyUpload):
			RespondError(c, http.StatusBadRequest, "empty_upload", err)
		default:
			RespondError(c, http.StatusInternalServerError, "create_failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// GET /api/jobs/:id
func (h *JobsHandler) GetJobByID(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		respondJobErr(c, err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs/:id/status
func (h *JobsHandler) GetJobStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	st, err := h.jobs.Status(c.Request.Context(), jobID)
	if err != nil {
		respondJobErr(c, err)
		return
	}
	RespondOK(c, gin.H{"status": st})
}

// GET /api/jobs/:id/nodes
func (h *JobsHandler) GetJobNodes(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	nodes, err := h.jobs.Nodes(c.Request.Context(), jobID)
	if err != nil {
		respondJobErr(c, err)
		return
	}
	RespondOK(c, gin.H{"nodes": nodes})
}

// GET /api/jobs/:id/artifacts
func (h *JobsHandler) ListJobArtifacts(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	names, err := h.jobs.ListArtifacts(c.Request.Context(), jobID)
	if err != nil {
		respondJobErr(c, err)
		return
	}
	RespondOK(c, gin.H{"artifacts": names})
}

// GET /api/jobs/:id/artifacts/*name
func (h *JobsHandler) GetJobArtifact(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	name := strings.TrimPrefix(c.Param("name"), "/")
	if name == "" {
		RespondError(c, http.StatusBadRequest, "missing_artifact_name", fmt.Errorf("artifact name required"))
		return
	}
	raw, err := h.jobs.GetArtifact(c.Request.Context(), jobID, name)
	if err != nil {
		respondJobErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

type answerRequest struct {
	TreatAsNodes *bool `json:"treatAsNodes" binding:"required"`
}

// POST /api/jobs/:id/answer
func (h *JobsHandler) AnswerJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_answer", err)
		return
	}
	err = h.jobs.Answer(c.Request.Context(), jobID, types.ColumnDecision{TreatAsNodes: *req.TreatAsNodes})
	if err != nil {
		if errors.Is(err, services.ErrNotAwaiting) {
			RespondError(c, http.StatusConflict, "not_awaiting_input", err)
			return
		}
		respondJobErr(c, err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

func respondJobErr(c *gin.Context, err error) {
	if errors.Is(err, repos.ErrJobNotFound) {
		RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}
