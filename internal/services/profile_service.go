package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pathwise/pathwise-backend/internal/apperr"
	"github.com/pathwise/pathwise-backend/internal/dtos"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfileService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileService(db *gorm.DB, log *logger.Logger) *ProfileService {
	return &ProfileService{db: db, log: log.With("service", "profile")}
}

func (s *ProfileService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "load user", err)
	}
	return &user, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, req *dtos.ProfileUpdateRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.TargetRole != nil {
		updates["target_role"] = *req.TargetRole
	}
	if req.TargetLocation != nil {
		updates["target_location"] = *req.TargetLocation
	}
	if req.YearsExp != nil {
		updates["years_exp"] = *req.YearsExp
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "update profile", err)
	}
	return user, nil
}

func (s *ProfileService) GetResume(ctx context.Context, userID uint) (*models.Resume, error) {
	var resume models.Resume
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "no resume on file")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "load resume", err)
	}
	return &resume, nil
}

// UpsertResume stores the resume text, one row per user.
func (s *ProfileService) UpsertResume(ctx context.Context, userID uint, req *dtos.ResumeUpsertRequest) (*models.Resume, error) {
	skills, err := json.Marshal(req.Skills)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "encode skills", err)
	}

	resume := models.Resume{UserID: userID}
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Assign(models.Resume{Content: req.Content, Skills: datatypes.JSON(skills)}).
		FirstOrCreate(&resume).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "save resume", err)
	}
	return &resume, nil
}

// ActiveGoalCount counts the user's ACTIVE goals.
func (s *ProfileService) ActiveGoalCount(ctx context.Context, userID uint) (int, error) {
	var active int64
	err := s.db.WithContext(ctx).Model(&models.CareerGoal{}).
		Where("user_id = ? AND status = ?", userID, "ACTIVE").
		Count(&active).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.PersistenceError, "count goals", err)
	}
	return int(active), nil
}

// CreateGoal adds an active goal, enforcing the plan's goal-slot quota
// against the count of currently active goals.
func (s *ProfileService) CreateGoal(ctx context.Context, userID uint, req *dtos.GoalCreateRequest) (*models.CareerGoal, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := s.ActiveGoalCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st := CheckLimit(active, PlanLimit(user.PlanTier, ResourceGoalSlots)); st.Exceeded {
		return nil, apperr.New(apperr.LimitExceeded, "active goal limit reached for your plan")
	}

	goal := &models.CareerGoal{
		UserID:     userID,
		Title:      req.Title,
		Detail:     req.Detail,
		TargetDate: req.TargetDate,
	}
	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "create goal", err)
	}
	return goal, nil
}

func (s *ProfileService) ListGoals(ctx context.Context, userID uint) ([]models.CareerGoal, error) {
	var goals []models.CareerGoal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&goals).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "list goals", err)
	}
	return goals, nil
}

func (s *ProfileService) UpdateGoalStatus(ctx context.Context, userID, goalID uint, status string) (*models.CareerGoal, error) {
	switch status {
	case "ACTIVE", "DONE", "ABANDONED":
	default:
		return nil, apperr.New(apperr.InvalidInput, "invalid goal status: "+status)
	}

	var goal models.CareerGoal
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "goal not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "load goal", err)
	}

	if err := s.db.WithContext(ctx).Model(&goal).Update("status", status).Error; err != nil {
		return nil, apperr.Wrap(apperr.PersistenceError, "update goal", err)
	}
	return &goal, nil
}
