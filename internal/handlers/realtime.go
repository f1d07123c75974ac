package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/breakdown-backend/internal/sse"
	"github.com/yungbote/breakdown-backend/internal/status"
)

type RealtimeHandler struct {
	hub   *sse.SSEHub
	actor *status.Actor
}

func NewRealtimeHandler(hub *sse.SSEHub, actor *status.Actor) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, actor: actor}
}

// GET /api/realtime/jobs/:id
// Streams the job's status events until the client disconnects. The current
// snapshot is replayed first so a late subscriber is never blank until the
// next mutation happens to broadcast.
func (h *RealtimeHandler) StreamJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}

	client := h.hub.NewSSEClient()
	channel := sse.JobChannel(jobID.String())
	h.hub.AddChannel(client, channel)
	defer h.hub.CloseClient(client)

	if snap, err := h.actor.Get(c.Request.Context(), jobID.String()); err == nil && snap != nil {
		client.Outbound <- sse.SSEMessage{
			Channel: channel,
			Event:   sse.SSEEventJobStatusUpdated,
			Data:    *snap,
		}
	}

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
