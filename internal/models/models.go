package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan tiers. Limits for each tier live in services.PlanLimits.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	FullName       string `json:"full_name"`
	PlanTier       string `gorm:"default:'free'" json:"plan_tier"`
	TargetRole     string `json:"target_role"`
	TargetLocation string `json:"target_location"`
	YearsExp       int    `json:"years_experience"`
}

type Resume struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Content string         `gorm:"type:text" json:"content"`
	Skills  datatypes.JSON `json:"skills"`
}

type CareerGoal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Title      string     `gorm:"not null" json:"title"`
	Detail     string     `gorm:"type:text" json:"detail"`
	Status     string     `gorm:"default:'ACTIVE'" json:"status"` // ACTIVE, DONE, ABANDONED
	TargetDate *time.Time `json:"target_date"`
}

// ActivityEvent rows are append-only; nothing updates them after insert.
type ActivityEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID       uint              `gorm:"index" json:"user_id"`
	ActivityType string            `gorm:"index;not null" json:"activity_type"`
	Payload      datatypes.JSONMap `json:"payload"`
}

// UsageCounter: one row per (user, resource, calendar month), incremented
// atomically in SQL. The unique index is what makes increment-or-insert safe.
type UsageCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID       uint      `gorm:"uniqueIndex:idx_usage_period" json:"user_id"`
	ResourceType string    `gorm:"uniqueIndex:idx_usage_period" json:"resource_type"`
	PeriodStart  time.Time `gorm:"uniqueIndex:idx_usage_period" json:"period_start"`
	Count        int       `json:"count"`
}

// IntelligenceReport caches one generated payload per (user, report type).
// Freshness is decided by GeneratedAt against the per-type TTL, not here.
type IntelligenceReport struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      uint           `gorm:"uniqueIndex:idx_report_type" json:"user_id"`
	ReportType  string         `gorm:"uniqueIndex:idx_report_type" json:"report_type"`
	Payload     datatypes.JSON `json:"payload"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// SalarySnapshot caches a derived distribution per (role, location).
type SalarySnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Role      string         `gorm:"uniqueIndex:idx_salary_key" json:"role"`
	Location  string         `gorm:"uniqueIndex:idx_salary_key" json:"location"`
	Payload   datatypes.JSON `json:"payload"`
	FetchedAt time.Time      `json:"fetched_at"`
}
