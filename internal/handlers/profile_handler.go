package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pathwise/pathwise-backend/internal/dtos"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/services"
)

type ProfileHandler struct {
	log      *logger.Logger
	profiles *services.ProfileService
	activity *services.ActivityService
}

func NewProfileHandler(log *logger.Logger, profiles *services.ProfileService, activity *services.ActivityService) *ProfileHandler {
	return &ProfileHandler{log: log.With("handler", "profile"), profiles: profiles, activity: activity}
}

// GetProfile is GET /profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, err := h.profiles.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateProfile is PUT /profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req dtos.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON format: "+err.Error())
		return
	}
	user, err := h.profiles.UpdateProfile(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// GetResume is GET /resume
func (h *ProfileHandler) GetResume(c *gin.Context) {
	resume, err := h.profiles.GetResume(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, resume)
}

// UpsertResume is PUT /resume
func (h *ProfileHandler) UpsertResume(c *gin.Context) {
	var req dtos.ResumeUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON format: "+err.Error())
		return
	}
	userID := middleware.UserID(c)
	resume, err := h.profiles.UpsertResume(c.Request.Context(), userID, &req)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	h.activity.Track(models.ActivityEvent{UserID: userID, ActivityType: "resume_updated"})
	respondOK(c, http.StatusOK, resume)
}

// CreateGoal is POST /goals
func (h *ProfileHandler) CreateGoal(c *gin.Context) {
	var req dtos.GoalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON format: "+err.Error())
		return
	}
	userID := middleware.UserID(c)
	goal, err := h.profiles.CreateGoal(c.Request.Context(), userID, &req)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	h.activity.Track(models.ActivityEvent{UserID: userID, ActivityType: "goal_created"})
	respondOK(c, http.StatusCreated, goal)
}

// ListGoals is GET /goals
func (h *ProfileHandler) ListGoals(c *gin.Context) {
	goals, err := h.profiles.ListGoals(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, goals)
}

// UpdateGoalStatus is PATCH /goals/:id
func (h *ProfileHandler) UpdateGoalStatus(c *gin.Context) {
	goalID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid goal id")
		return
	}
	var req dtos.GoalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON format: "+err.Error())
		return
	}
	userID := middleware.UserID(c)
	goal, err := h.profiles.UpdateGoalStatus(c.Request.Context(), userID, uint(goalID), req.Status)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if req.Status == "DONE" {
		h.activity.Track(models.ActivityEvent{UserID: userID, ActivityType: "goal_completed"})
	}
	respondOK(c, http.StatusOK, goal)
}
