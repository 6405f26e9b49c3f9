package services

import (
	"context"
	"errors"
	"time"

	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resource types metered against plan quotas.
const (
	ResourceIntelligenceReports = "intelligence_reports"
	ResourceSalaryLookups       = "salary_lookups"
	ResourceGoalSlots           = "goal_slots"
)

// PlanLimits maps tier -> resource -> monthly cap. -1 is unlimited, 0 is no
// access. Resources absent from a tier's map get 0.
var PlanLimits = map[string]map[string]int{
	models.PlanFree: {
		ResourceIntelligenceReports: 3,
		ResourceSalaryLookups:       5,
		ResourceGoalSlots:           3,
	},
	models.PlanPro: {
		ResourceIntelligenceReports: -1,
		ResourceSalaryLookups:       -1,
		ResourceGoalSlots:           -1,
	},
}

// LimitStatus is the result of comparing current usage to a plan limit.
// Remaining is -1 when the plan is unlimited.
type LimitStatus struct {
	Exceeded  bool `json:"exceeded"`
	Current   int  `json:"current"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

type UsageService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageService(db *gorm.DB, log *logger.Logger) *UsageService {
	return &UsageService{db: db, log: log.With("service", "usage")}
}

// PeriodStart truncates now to the first of its UTC calendar month. Counters
// reset on the 1st by keying rows on this value.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PlanLimit resolves the cap for a tier and resource. Unknown tiers fall back
// to free; unknown resources get no access.
func PlanLimit(tier, resourceType string) int {
	limits, ok := PlanLimits[tier]
	if !ok {
		limits = PlanLimits[models.PlanFree]
	}
	limit, ok := limits[resourceType]
	if !ok {
		return 0
	}
	return limit
}

// CheckLimit is the pure comparison: -1 never exceeds, 0 always does, and a
// positive cap is boundary-inclusive (current == limit means exceeded).
func CheckLimit(current, limit int) LimitStatus {
	st := LimitStatus{Current: current, Limit: limit}
	switch {
	case limit == -1:
		st.Unlimited = true
		st.Remaining = -1
	case limit == 0:
		st.Exceeded = true
	default:
		st.Exceeded = current >= limit
		if remaining := limit - current; remaining > 0 {
			st.Remaining = remaining
		}
	}
	return st
}

// CurrentUsage returns the counter for the period containing periodStart.
// A missing row means zero usage.
func (s *UsageService) CurrentUsage(ctx context.Context, userID uint, resourceType string, periodStart time.Time) (int, error) {
	var counter models.UsageCounter
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_type = ? AND period_start = ?", userID, resourceType, periodStart).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.PersistenceError, "read usage counter", err)
	}
	return counter.Count, nil
}

// Allow resolves the user's plan limit against current usage for this month.
// On a persistence read failure the limiter fails open: the user is not
// blocked by an infra error, and the failure is logged distinctly so it can't
// be mistaken for a real quota breach.
func (s *UsageService) Allow(ctx context.Context, userID uint, resourceType, planTier string) LimitStatus {
	limit := PlanLimit(planTier, resourceType)
	current, err := s.CurrentUsage(ctx, userID, resourceType, PeriodStart(time.Now()))
	if err != nil {
		s.log.Error("usage read failed, failing open", "user_id", userID, "resource", resourceType, "err", err)
		return LimitStatus{Limit: limit, Unlimited: limit == -1, Remaining: -1}
	}
	return CheckLimit(current, limit)
}

// Increment bumps the month's counter by amount using the store's atomic
// update. Concurrent increments for the same key are serialized by the
// database, not by in-process locking; a write failure always surfaces
// (silently dropping a quota charge is worse than a visible error).
func (s *UsageService) Increment(ctx context.Context, userID uint, resourceType string, amount int) (int, error) {
	periodStart := PeriodStart(time.Now())

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "resource_type"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&models.UsageCounter{
		UserID:       userID,
		ResourceType: resourceType,
		PeriodStart:  periodStart,
		Count:        amount,
	}).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.PersistenceError, "increment usage counter", err)
	}

	return s.CurrentUsage(ctx, userID, resourceType, periodStart)
}
