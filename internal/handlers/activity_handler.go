package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathwise/pathwise-backend/internal/dtos"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/services"
	"gorm.io/datatypes"
)

type ActivityHandler struct {
	log      *logger.Logger
	activity *services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{log: log.With("handler", "activity"), activity: activity}
}

// Track is POST /activity. Events go through the batch queue, so a 202 here
// means accepted, not yet written.
func (h *ActivityHandler) Track(c *gin.Context) {
	var req dtos.ActivityTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON format: "+err.Error())
		return
	}
	h.activity.Track(models.ActivityEvent{
		UserID:       middleware.UserID(c),
		ActivityType: req.ActivityType,
		Payload:      datatypes.JSONMap(req.Payload),
	})
	respondOK(c, http.StatusAccepted, gin.H{"queued": true})
}

// Stats is GET /activity/stats
func (h *ActivityHandler) Stats(c *gin.Context) {
	userID := middleware.UserID(c)
	now := time.Now().UTC()

	stats, err := h.activity.Stats(c.Request.Context(), userID, now)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	momentum, err := h.activity.WeeklyMomentum(c.Request.Context(), userID, now)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"stats": stats, "momentum": momentum})
}
