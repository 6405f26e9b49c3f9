package dtos

import "time"

type ProfileUpdateRequest struct {
	FullName       *string `json:"full_name"`
	TargetRole     *string `json:"target_role"`
	TargetLocation *string `json:"target_location"`
	YearsExp       *int    `json:"years_experience"`
}

type ResumeUpsertRequest struct {
	Content string   `json:"content" binding:"required"`
	Skills  []string `json:"skills"`
}

type GoalCreateRequest struct {
	Title      string     `json:"title" binding:"required"`
	Detail     string     `json:"detail"`
	TargetDate *time.Time `json:"target_date"`
}

type GoalStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ActivityTrackRequest struct {
	ActivityType string                 `json:"activity_type" binding:"required"`
	Payload      map[string]interface{} `json:"payload"`
}
