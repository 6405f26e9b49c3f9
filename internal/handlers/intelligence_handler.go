package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/services"
)

type IntelligenceHandler struct {
	log          *logger.Logger
	intelligence *services.IntelligenceService
	salary       *services.SalaryService
	usage        *services.UsageService
	profiles     *services.ProfileService
	activity     *services.ActivityService
}

func NewIntelligenceHandler(
	log *logger.Logger,
	intelligence *services.IntelligenceService,
	salary *services.SalaryService,
	usage *services.UsageService,
	profiles *services.ProfileService,
	activity *services.ActivityService,
) *IntelligenceHandler {
	return &IntelligenceHandler{
		log:          log.With("handler", "intelligence"),
		intelligence: intelligence,
		salary:       salary,
		usage:        usage,
		profiles:     profiles,
		activity:     activity,
	}
}

// Generate is POST /intelligence/:type. A cache hit does not charge the
// monthly quota; only a real model invocation does.
func (h *IntelligenceHandler) Generate(c *gin.Context) {
	reportType := c.Param("type")
	if !services.KnownReportType(reportType) {
		respondBadRequest(c, "unknown report type: "+reportType)
		return
	}

	userID := middleware.UserID(c)
	user, err := h.profiles.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}

	if st := h.usage.Allow(c.Request.Context(), userID, services.ResourceIntelligenceReports, user.PlanTier); st.Exceeded {
		respondErr(c, h.log, apperr.New(apperr.LimitExceeded, "monthly report limit reached for your plan"))
		return
	}

	report, cached, err := h.intelligence.Generate(c.Request.Context(), userID, reportType)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}

	if !cached {
		if _, err := h.usage.Increment(c.Request.Context(), userID, services.ResourceIntelligenceReports, 1); err != nil {
			// A quota we failed to record is worse than a failed request.
			respondErr(c, h.log, err)
			return
		}
		h.activity.Track(models.ActivityEvent{UserID: userID, ActivityType: "report_generated"})
	}

	respondOK(c, http.StatusOK, gin.H{"report": report, "cached": cached})
}

// Get is GET /intelligence/:type. It serves the cached report only and
// never triggers a generation.
func (h *IntelligenceHandler) Get(c *gin.Context) {
	reportType := c.Param("type")
	if !services.KnownReportType(reportType) {
		respondBadRequest(c, "unknown report type: "+reportType)
		return
	}
	report, err := h.intelligence.CachedReport(c.Request.Context(), middleware.UserID(c), reportType)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// Salary is GET /salary?role=&location=
func (h *IntelligenceHandler) Salary(c *gin.Context) {
	role := c.Query("role")
	location := c.Query("location")
	if role == "" {
		respondBadRequest(c, "role query parameter is required")
		return
	}

	userID := middleware.UserID(c)
	user, err := h.profiles.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if st := h.usage.Allow(c.Request.Context(), userID, services.ResourceSalaryLookups, user.PlanTier); st.Exceeded {
		respondErr(c, h.log, apperr.New(apperr.LimitExceeded, "monthly salary lookup limit reached for your plan"))
		return
	}

	report, cached, err := h.salary.Distribution(c.Request.Context(), role, location)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if !cached {
		if _, err := h.usage.Increment(c.Request.Context(), userID, services.ResourceSalaryLookups, 1); err != nil {
			respondErr(c, h.log, err)
			return
		}
		h.activity.Track(models.ActivityEvent{UserID: userID, ActivityType: "salary_lookup"})
	}
	respondOK(c, http.StatusOK, gin.H{"report": report, "cached": cached})
}

// Usage is GET /usage. It reports the caller's remaining quota per
// metered resource.
func (h *IntelligenceHandler) Usage(c *gin.Context) {
	userID := middleware.UserID(c)
	user, err := h.profiles.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}

	out := gin.H{"plan": user.PlanTier, "period_start": services.PeriodStart(time.Now())}
	for _, resource := range []string{
		services.ResourceIntelligenceReports,
		services.ResourceSalaryLookups,
	} {
		out[resource] = h.usage.Allow(c.Request.Context(), userID, resource, user.PlanTier)
	}

	// Goal slots are a concurrent cap, not a monthly counter: measured
	// against active goals rather than a usage row.
	active, err := h.profiles.ActiveGoalCount(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	out[services.ResourceGoalSlots] = services.CheckLimit(active, services.PlanLimit(user.PlanTier, services.ResourceGoalSlots))

	respondOK(c, http.StatusOK, out)
}
