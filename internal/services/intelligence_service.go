package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/llmx"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report types the orchestrator can generate.
const (
	ReportDaily         = "daily"
	ReportPrediction    = "prediction"
	ReportSalaryCompass = "salary_compass"
	ReportSkillGap      = "skill_gap"
)

// reportSpec pins per-type freshness and the required top-level keys of the
// model's payload. A payload missing a required key is rejected outright, not
// partially accepted.
type reportSpec struct {
	TTL          time.Duration
	RequiredKeys []string
}

var reportSpecs = map[string]reportSpec{
	ReportDaily:         {TTL: 24 * time.Hour, RequiredKeys: []string{"summary", "tasks"}},
	ReportPrediction:    {TTL: 30 * 24 * time.Hour, RequiredKeys: []string{"trajectory", "milestones", "confidence"}},
	ReportSalaryCompass: {TTL: 7 * 24 * time.Hour, RequiredKeys: []string{"current_estimate", "market_position"}},
	ReportSkillGap:      {TTL: 7 * 24 * time.Hour, RequiredKeys: []string{"missing_skills", "recommendations"}},
}

// KnownReportType reports whether t is a generatable report type.
func KnownReportType(t string) bool {
	_, ok := reportSpecs[t]
	return ok
}

// profileBundle is everything Collect gathers before composing a prompt.
type profileBundle struct {
	User     models.User
	Resume   models.Resume
	Goals    []models.CareerGoal
	Stats    *ActivityStats
	Momentum *Momentum
}

type IntelligenceService struct {
	db        *gorm.DB
	log       *logger.Logger
	generator TextGenerator
	activity  *ActivityService
	salary    *SalaryService
	maxTokens int
}

func NewIntelligenceService(db *gorm.DB, log *logger.Logger, generator TextGenerator, activity *ActivityService, salary *SalaryService, maxTokens int) *IntelligenceService {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &IntelligenceService{
		db:        db,
		log:       log.With("service", "intelligence"),
		generator: generator,
		activity:  activity,
		salary:    salary,
		maxTokens: maxTokens,
	}
}

// CachedReport returns the stored report for (user, type) if one exists,
// regardless of freshness. Used by the GET surface.
func (s *IntelligenceService) CachedReport(ctx context.Context, userID uint, reportType string) (*models.IntelligenceReport, error) {
	var report models.IntelligenceReport
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND report_type = ?", userID, reportType).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "no report generated yet")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "read report cache", err)
	}
	return &report, nil
}

// Generate runs the orchestration pipeline for one report:
// collect -> compose -> invoke -> parse -> merge -> persist, with a cache
// check short-circuiting everything after collect. The model is called at
// most once; retrying is the caller's decision.
func (s *IntelligenceService) Generate(ctx context.Context, userID uint, reportType string) (*models.IntelligenceReport, bool, error) {
	spec, ok := reportSpecs[reportType]
	if !ok {
		return nil, false, apperr.New(apperr.InvalidInput, "unknown report type: "+reportType)
	}

	now := time.Now().UTC()

	// Cache check: a fresh entry skips compose/invoke/parse/merge entirely.
	// Read failures degrade to "no cache" rather than failing the request.
	if cached, err := s.CachedReport(ctx, userID, reportType); err == nil && isFresh(cached, spec.TTL, now) {
		return cached, true, nil
	}

	bundle, err := s.collect(ctx, userID, now)
	if err != nil {
		return nil, false, err
	}

	prompt := s.compose(reportType, bundle)

	raw, err := s.generator.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.UpstreamUnavailable, "text generation", err)
	}

	payload, err := llmx.ExtractJSON(raw)
	if err != nil {
		s.log.Error("model returned unparseable content", "user_id", userID, "report_type", reportType, "raw_len", len(raw))
		return nil, false, apperr.Wrap(apperr.MalformedResponse, "extract payload", err)
	}
	if missing := llmx.RequireKeys(payload, spec.RequiredKeys); missing != nil {
		s.log.Error("model payload missing required keys", "report_type", reportType, "missing", missing)
		return nil, false, apperr.New(apperr.MalformedResponse, "payload missing keys: "+strings.Join(missing, ", "))
	}

	merged, err := s.merge(ctx, payload, reportType, bundle, now)
	if err != nil {
		return nil, false, err
	}

	report, err := s.persist(ctx, userID, reportType, merged, now)
	if err != nil {
		return nil, false, err
	}
	return report, false, nil
}

// isFresh is the single freshness predicate; nothing else does TTL math.
func isFresh(report *models.IntelligenceReport, ttl time.Duration, now time.Time) bool {
	return now.Sub(report.GeneratedAt) < ttl
}

// collect gathers the user's records in parallel and enforces the business
// preconditions. Missing resume or no active goal short-circuits before any
// model spend.
func (s *IntelligenceService) collect(ctx context.Context, userID uint, now time.Time) (*profileBundle, error) {
	bundle := &profileBundle{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.WithContext(gctx).First(&bundle.User, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.PersistenceError, "load user", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.WithContext(gctx).Where("user_id = ?", userID).First(&bundle.Resume).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.PersistenceError, "load resume", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Where("user_id = ? AND status = ?", userID, "ACTIVE").
			Order("created_at asc").
			Find(&bundle.Goals).Error
		if err != nil {
			return apperr.Wrap(apperr.PersistenceError, "load goals", err)
		}
		return nil
	})
	g.Go(func() error {
		st, err := s.activity.Stats(gctx, userID, now)
		if err != nil {
			return err
		}
		bundle.Stats = st
		return nil
	})
	g.Go(func() error {
		m, err := s.activity.WeeklyMomentum(gctx, userID, now)
		if err != nil {
			return err
		}
		bundle.Momentum = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(bundle.Resume.Content) == "" {
		return nil, apperr.New(apperr.IncompleteProfile, "add a resume before generating intelligence")
	}
	if len(bundle.Goals) == 0 {
		return nil, apperr.New(apperr.IncompleteProfile, "set at least one active career goal first")
	}
	return bundle, nil
}

const promptHeader = `You are a career coach analyzing a job seeker's profile.

CANDIDATE:
Name: %s
Target role: %s
Target location: %s
Years of experience: %d

ACTIVE GOALS:
%s
RESUME:
%s

RECENT ACTIVITY:
Current streak: %d days, active days: %d, events this week: %d (last week: %d)

`

// compose renders the deterministic prompt for a report type. Templates are
// fixed; two identical bundles always produce the same prompt.
func (s *IntelligenceService) compose(reportType string, bundle *profileBundle) string {
	resume := bundle.Resume.Content
	if len(resume) > 12000 {
		resume = resume[:12000]
	}

	var goals strings.Builder
	for _, goal := range bundle.Goals {
		fmt.Fprintf(&goals, "- %s", goal.Title)
		if goal.Detail != "" {
			fmt.Fprintf(&goals, ": %s", goal.Detail)
		}
		goals.WriteString("\n")
	}

	header := fmt.Sprintf(promptHeader,
		bundle.User.FullName,
		bundle.User.TargetRole,
		bundle.User.TargetLocation,
		bundle.User.YearsExp,
		goals.String(),
		resume,
		bundle.Stats.CurrentStreak,
		bundle.Stats.ActiveDays,
		bundle.Momentum.ThisWeek,
		bundle.Momentum.LastWeek,
	)

	return header + reportInstructions[reportType]
}

var reportInstructions = map[string]string{
	ReportDaily: `TASK: Produce today's coaching brief.
Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "summary": "2-3 sentence assessment of where the candidate stands today",
  "tasks": [{"title": "...", "why": "...", "minutes": 15}],
  "insight": "one non-obvious observation about their search"
}
Give 3 to 5 tasks, each doable today. Do not invent facts absent from the profile.`,

	ReportPrediction: `TASK: Project this candidate's likely career trajectory.
Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "trajectory": "narrative of the likely 1-3 year path toward the target role",
  "milestones": [{"title": "...", "horizon_months": 6}],
  "confidence": 0.7,
  "risks": ["..."]
}
Confidence is 0-1 and must reflect how complete the profile is. Do not invent employers or dates.`,

	ReportSalaryCompass: `TASK: Assess the candidate's market position for their target role.
Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "current_estimate": "qualitative estimate of where they sit in the salary band",
  "market_position": "below|at|above market and why",
  "levers": ["concrete actions that would move their number"]
}
Do NOT output specific salary figures; verified market percentiles are attached separately.`,

	ReportSkillGap: `TASK: Identify the gap between this resume and the target role.
Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{
  "missing_skills": [{"skill": "...", "priority": "critical|high|medium", "learning_time": "..."}],
  "recommendations": ["ordered, concrete next steps"],
  "matching_strengths": ["skills already in place"]
}
Priorities: critical = blocking for the role, high = clearly expected, medium = nice-to-have.`,
}

// merge overwrites fields the application can compute itself so model output
// never overrides verifiable numbers.
func (s *IntelligenceService) merge(ctx context.Context, payload json.RawMessage, reportType string, bundle *profileBundle, now time.Time) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, apperr.Wrap(apperr.MalformedResponse, "merge payload", err)
	}

	setJSON := func(key string, v interface{}) {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		obj[key] = b
	}

	setJSON("generated_at", now)
	setJSON("activity", map[string]interface{}{
		"current_streak": bundle.Stats.CurrentStreak,
		"longest_streak": bundle.Stats.LongestStreak,
		"total_points":   bundle.Stats.TotalPoints,
		"level":          bundle.Stats.Progression.Level,
		"momentum":       bundle.Momentum,
	})

	if reportType == ReportSalaryCompass && bundle.User.TargetRole != "" {
		report, _, err := s.salary.Distribution(ctx, bundle.User.TargetRole, bundle.User.TargetLocation)
		if err != nil {
			// The compass still ships without market data; the model's
			// qualitative read stands on its own.
			s.log.Warn("salary data unavailable for compass merge", "err", err)
		} else {
			setJSON("market_data", report)
		}
	}

	return json.Marshal(obj)
}

func (s *IntelligenceService) persist(ctx context.Context, userID uint, reportType string, payload json.RawMessage, now time.Time) (*models.IntelligenceReport, error) {
	// The id must stay out of the lookup struct: a non-zero primary key
	// would become a search condition and regeneration would insert a
	// duplicate instead of overwriting the existing row.
	report := models.IntelligenceReport{
		UserID:     userID,
		ReportType: reportType,
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND report_type = ?", userID, reportType).
		Attrs(models.IntelligenceReport{ID: uuid.NewString()}).
		Assign(models.IntelligenceReport{Payload: datatypes.JSON(payload), GeneratedAt: now}).
		FirstOrCreate(&report).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "cache report", err)
	}
	return &report, nil
}
