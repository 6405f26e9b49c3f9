package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func newIntelligenceFixture(t *testing.T, gen TextGenerator) (*IntelligenceService, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	log := logger.NewNop()
	activity := NewActivityService(db, log, 10, time.Hour)
	salary := NewSalaryService(db, log, &stubSampleSource{samples: []SalarySample{{Min: 90000, Max: 110000}}})
	svc := NewIntelligenceService(db, log, gen, activity, salary, 1024)
	return svc, db
}

func seedCompleteProfile(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{
		ID: userID, Email: "u@example.com", FullName: "Test User",
		PlanTier: models.PlanFree, TargetRole: "Backend Engineer", TargetLocation: "Berlin", YearsExp: 4,
	}).Error)
	require.NoError(t, db.Create(&models.Resume{UserID: userID, Content: "Go developer, 4 years, built APIs"}).Error)
	require.NoError(t, db.Create(&models.CareerGoal{UserID: userID, Title: "Become a staff engineer", Status: "ACTIVE"}).Error)
}

const validDaily = `{"summary": "Solid progress.", "tasks": [{"title": "Apply to two roles", "why": "volume", "minutes": 30}], "insight": "Mornings are your best window."}`

func TestGenerateHappyPath(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	report, cached, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, ReportDaily, report.ReportType)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(report.Payload, &payload))
	assert.Contains(t, payload, "summary")
	assert.Contains(t, payload, "tasks")
	// Merge step stamps locally computed fields.
	assert.Contains(t, payload, "generated_at")
	assert.Contains(t, payload, "activity")
}

func TestGenerateIncompleteProfileSkipsModel(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)

	// User with a goal but no resume.
	require.NoError(t, db.Create(&models.User{ID: 1, Email: "u@example.com"}).Error)
	require.NoError(t, db.Create(&models.CareerGoal{UserID: 1, Title: "goal", Status: "ACTIVE"}).Error)

	_, _, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.IncompleteProfile, apperr.KindOf(err))
	assert.Equal(t, 0, gen.calls, "the model must never be invoked for an incomplete profile")
}

func TestGenerateNoActiveGoalSkipsModel(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)

	require.NoError(t, db.Create(&models.User{ID: 1, Email: "u@example.com"}).Error)
	require.NoError(t, db.Create(&models.Resume{UserID: 1, Content: "resume text"}).Error)
	require.NoError(t, db.Create(&models.CareerGoal{UserID: 1, Title: "done goal", Status: "DONE"}).Error)

	_, _, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.IncompleteProfile, apperr.KindOf(err))
	assert.Equal(t, 0, gen.calls)
}

func TestGenerateMalformedResponseNothingCached(t *testing.T) {
	gen := &stubGenerator{response: "I'm sorry, I can't produce JSON today."}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	_, _, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.MalformedResponse, apperr.KindOf(err))

	var rows int64
	require.NoError(t, db.Model(&models.IntelligenceReport{}).Count(&rows).Error)
	assert.Equal(t, int64(0), rows, "no partial payload may be cached")
}

func TestGenerateMissingRequiredKeysRejected(t *testing.T) {
	// Parseable JSON but missing the "tasks" key required for daily reports.
	gen := &stubGenerator{response: `{"summary": "ok"}`}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	_, _, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.MalformedResponse, apperr.KindOf(err))
}

func TestGenerateUpstreamErrorDistinctFromMalformed(t *testing.T) {
	gen := &stubGenerator{err: errors.New("context deadline exceeded")}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	_, _, err := svc.Generate(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamUnavailable, apperr.KindOf(err))
	assert.Equal(t, 1, gen.calls, "exactly one attempt, no automatic retry")
}

func TestGenerateCacheHitSkipsPipeline(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)
	ctx := context.Background()

	_, cached, err := svc.Generate(ctx, 1, ReportDaily)
	require.NoError(t, err)
	assert.False(t, cached)

	report, cached, err := svc.Generate(ctx, 1, ReportDaily)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, gen.calls, "fresh cache entry skips compose/invoke/parse/merge")
	assert.Equal(t, ReportDaily, report.ReportType)
}

func TestGenerateStaleCacheRegenerates(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)
	ctx := context.Background()

	first, _, err := svc.Generate(ctx, 1, ReportDaily)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.IntelligenceReport{}).
		Where("user_id = ?", 1).
		Update("generated_at", time.Now().Add(-25*time.Hour)).Error)

	second, cached, err := svc.Generate(ctx, 1, ReportDaily)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, first.ID, second.ID, "regeneration keeps the (user, type) row")
	assert.WithinDuration(t, time.Now(), second.GeneratedAt, time.Minute)

	var rows int64
	require.NoError(t, db.Model(&models.IntelligenceReport{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "regeneration overwrites the row, no duplicates")
}

func TestGenerateUnknownReportType(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	_, _, err := svc.Generate(context.Background(), 1, "horoscope")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestComposeIsDeterministic(t *testing.T) {
	gen := &stubGenerator{response: validDaily}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	bundle, err := svc.collect(ctx, 1, now)
	require.NoError(t, err)

	p1 := svc.compose(ReportDaily, bundle)
	p2 := svc.compose(ReportDaily, bundle)
	assert.Equal(t, p1, p2)
	assert.Contains(t, p1, "Backend Engineer")
	assert.Contains(t, p1, "Become a staff engineer")
	assert.Contains(t, p1, "ONLY a JSON object")
}

func TestSalaryCompassMergesMarketData(t *testing.T) {
	gen := &stubGenerator{response: `{"current_estimate": "mid band", "market_position": "at market", "levers": []}`}
	svc, db := newIntelligenceFixture(t, gen)
	seedCompleteProfile(t, db, 1)

	report, _, err := svc.Generate(context.Background(), 1, ReportSalaryCompass)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(report.Payload, &payload))
	assert.Contains(t, payload, "market_data", "verified percentiles must be attached locally")
}

func TestCachedReportNotFound(t *testing.T) {
	svc, db := newIntelligenceFixture(t, &stubGenerator{})
	seedCompleteProfile(t, db, 1)

	_, err := svc.CachedReport(context.Background(), 1, ReportDaily)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
