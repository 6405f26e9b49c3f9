package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActivityService(t *testing.T, batchSize int) (*ActivityService, func() int64) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	svc := NewActivityService(db, logger.NewNop(), batchSize, time.Hour)
	persisted := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.ActivityEvent{}).Count(&n).Error)
		return n
	}
	return svc, persisted
}

func TestTrackFlushesAtBatchThreshold(t *testing.T) {
	svc, persisted := newActivityService(t, 3)

	svc.Track(models.ActivityEvent{UserID: 1, ActivityType: "login"})
	svc.Track(models.ActivityEvent{UserID: 1, ActivityType: "login"})
	assert.Equal(t, int64(0), persisted(), "below threshold nothing is written")
	assert.Equal(t, 2, svc.PendingCount())

	svc.Track(models.ActivityEvent{UserID: 1, ActivityType: "login"})
	assert.Equal(t, int64(3), persisted())
	assert.Equal(t, 0, svc.PendingCount())
}

func TestFlushNowDrainsQueue(t *testing.T) {
	svc, persisted := newActivityService(t, 100)

	svc.Track(models.ActivityEvent{UserID: 1, ActivityType: "login"})
	svc.FlushNow(context.Background())
	assert.Equal(t, int64(1), persisted())
	assert.Equal(t, 0, svc.PendingCount())

	// Flushing an empty queue is a no-op.
	svc.FlushNow(context.Background())
	assert.Equal(t, int64(1), persisted())
}

func TestFlushNowConcurrentCallers(t *testing.T) {
	svc, persisted := newActivityService(t, 1000)

	for i := 0; i < 50; i++ {
		svc.Track(models.ActivityEvent{UserID: 1, ActivityType: fmt.Sprintf("t%d", i)})
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.FlushNow(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), persisted(), "no event lost or duplicated")
	assert.Equal(t, 0, svc.PendingCount())
}

func TestStatsDerivesStreakAndProgression(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewActivityService(db, logger.NewNop(), 10, time.Hour)
	ctx := context.Background()

	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	// Three consecutive days, goal_completed (25) + 2x login (5 each).
	events := []models.ActivityEvent{
		{UserID: 1, ActivityType: "goal_completed", CreatedAt: today},
		{UserID: 1, ActivityType: "login", CreatedAt: today.AddDate(0, 0, -1)},
		{UserID: 1, ActivityType: "login", CreatedAt: today.AddDate(0, 0, -2)},
		{UserID: 2, ActivityType: "login", CreatedAt: today}, // other user, excluded
	}
	require.NoError(t, db.Create(&events).Error)

	stats, err := svc.Stats(ctx, 1, today)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.Equal(t, 3, stats.ActiveDays)
	assert.Equal(t, 35, stats.TotalPoints)
	assert.Equal(t, 1, stats.Progression.Level)
	assert.Equal(t, 65, stats.Progression.XPToNext)
}

func TestStatsEmptyUser(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewActivityService(db, logger.NewNop(), 10, time.Hour)

	stats, err := svc.Stats(context.Background(), 42, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, 1, stats.Progression.Level)
}

func TestWeeklyMomentum(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewActivityService(db, logger.NewNop(), 10, time.Hour)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	var events []models.ActivityEvent
	for i := 0; i < 4; i++ { // this week
		events = append(events, models.ActivityEvent{UserID: 1, ActivityType: "login", CreatedAt: now.Add(-time.Duration(i*24+1) * time.Hour)})
	}
	for i := 8; i < 10; i++ { // last week
		events = append(events, models.ActivityEvent{UserID: 1, ActivityType: "login", CreatedAt: now.Add(-time.Duration(i*24+1) * time.Hour)})
	}
	require.NoError(t, db.Create(&events).Error)

	m, err := svc.WeeklyMomentum(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, 4, m.ThisWeek)
	assert.Equal(t, 2, m.LastWeek)
	assert.Equal(t, 2, m.Delta)
	assert.InDelta(t, 2.0, m.Ratio, 1e-9)
}

func TestWeeklyMomentumEmptyLastWeek(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewActivityService(db, logger.NewNop(), 10, time.Hour)

	m, err := svc.WeeklyMomentum(context.Background(), 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, m.ThisWeek)
	assert.InDelta(t, 1.0, m.Ratio, 1e-9)
}
