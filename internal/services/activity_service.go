package services

import (
	"context"
	"sync"
	"time"

	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"github.com/pathwise/pathwise-backend/internal/progression"
	"github.com/pathwise/pathwise-backend/internal/streak"
	"gorm.io/gorm"
)

// ActivityStats is the derived view the dashboard renders.
type ActivityStats struct {
	CurrentStreak int                `json:"current_streak"`
	LongestStreak int                `json:"longest_streak"`
	ActiveDays    int                `json:"active_days"`
	TotalPoints   int                `json:"total_points"`
	Progression   progression.State  `json:"progression"`
	NextUnlock    progression.Unlock `json:"next_unlock"`
}

// Momentum compares this week's activity volume to last week's, computed from
// the event log rather than fixed sample values.
type Momentum struct {
	ThisWeek int     `json:"this_week"`
	LastWeek int     `json:"last_week"`
	Delta    int     `json:"delta"`
	Ratio    float64 `json:"ratio"` // this/last; 1.0 when last week was empty
}

// ActivityService tracks events through a bounded write queue. The queue
// flushes when it holds flushBatchSize events or on every timer tick,
// whichever comes first; a failed flush requeues its batch instead of
// dropping it.
type ActivityService struct {
	db  *gorm.DB
	log *logger.Logger

	mu      sync.Mutex
	pending []models.ActivityEvent

	flushBatchSize int
	flushInterval  time.Duration
}

func NewActivityService(db *gorm.DB, log *logger.Logger, flushBatchSize int, flushInterval time.Duration) *ActivityService {
	if flushBatchSize <= 0 {
		flushBatchSize = 10
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &ActivityService{
		db:             db,
		log:            log.With("service", "activity"),
		flushBatchSize: flushBatchSize,
		flushInterval:  flushInterval,
	}
}

// StartFlusher launches the background tick loop. Process-lifetime scoped;
// there is no cancellation beyond process exit.
func (s *ActivityService) StartFlusher() {
	ticker := time.NewTicker(s.flushInterval)
	go func() {
		for range ticker.C {
			s.FlushNow(context.Background())
		}
	}()
}

// Track enqueues an event and flushes inline once the batch threshold is
// reached. The insert itself is deferred, so Track never fails.
func (s *ActivityService) Track(event models.ActivityEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.pending = append(s.pending, event)
	full := len(s.pending) >= s.flushBatchSize
	s.mu.Unlock()

	if full {
		s.FlushNow(context.Background())
	}
}

// FlushNow drains the queue and writes it in one batch insert. Safe to call
// concurrently: each caller swaps out the buffer under the lock and owns the
// batch it took. On failure the batch is pushed back for the next attempt.
func (s *ActivityService) FlushNow(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		s.log.Error("activity flush failed, requeueing batch", "count", len(batch), "err", err)
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return
	}
	s.log.Debug("activity batch flushed", "count", len(batch))
}

// PendingCount reports the queue depth. Used by tests and the health surface.
func (s *ActivityService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats derives streaks, points, and progression from the user's event log.
func (s *ActivityService) Stats(ctx context.Context, userID uint, today time.Time) (*ActivityStats, error) {
	var events []models.ActivityEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&events).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "load activity events", err)
	}

	timestamps := make([]time.Time, 0, len(events))
	totalPoints := 0
	for _, e := range events {
		timestamps = append(timestamps, e.CreatedAt)
		totalPoints += progression.PointsFor(e.ActivityType)
	}

	state := progression.LevelFor(totalPoints)
	return &ActivityStats{
		CurrentStreak: streak.CurrentStreak(timestamps, today),
		LongestStreak: streak.LongestStreak(timestamps),
		ActiveDays:    len(streak.UniqueActiveDays(timestamps)),
		TotalPoints:   totalPoints,
		Progression:   state,
		NextUnlock:    progression.NextUnlock(state.Level),
	}, nil
}

// WeeklyMomentum counts events in the trailing 7-day window against the 7
// days before that.
func (s *ActivityService) WeeklyMomentum(ctx context.Context, userID uint, now time.Time) (*Momentum, error) {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	var thisWeek, lastWeek int64
	err := s.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, weekAgo, now).
		Count(&thisWeek).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "count weekly activity", err)
	}
	err = s.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, twoWeeksAgo, weekAgo).
		Count(&lastWeek).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "count weekly activity", err)
	}

	m := &Momentum{
		ThisWeek: int(thisWeek),
		LastWeek: int(lastWeek),
		Delta:    int(thisWeek - lastWeek),
		Ratio:    1.0,
	}
	if lastWeek > 0 {
		m.Ratio = float64(thisWeek) / float64(lastWeek)
	}
	return m, nil
}
