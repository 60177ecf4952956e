package models

import (
	"time"

	"gorm.io/gorm"
)

// Question categories. Every pool question carries exactly one of the first
// five; CategoryFollowUp is reserved for AI-generated follow-up turns.
const (
	CategoryBehavioral      = "behavioral"
	CategoryTechnical       = "technical"
	CategorySituational     = "situational"
	CategoryCompanySpecific = "company-specific"
	CategoryRoleSpecific    = "role-specific"
	CategoryFollowUp        = "follow-up"
)

// PoolCategories lists the categories a generated pool question may carry,
// in the fixed order used by the metrics profile.
var PoolCategories = []string{
	CategoryBehavioral,
	CategoryTechnical,
	CategorySituational,
	CategoryCompanySpecific,
	CategoryRoleSpecific,
}

// Question difficulties. "mixed" is a session preference, never a question tag.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyMixed  = "mixed"
)

// JobApplication represents one tracked job posting for a user
type JobApplication struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Company        string         `gorm:"size:255;not null" json:"company"`
	RoleTitle      string         `gorm:"size:255;not null" json:"role_title"`
	JobDescription string         `gorm:"type:text" json:"job_description,omitempty"`
	ResumeText     string         `gorm:"type:text" json:"resume_text,omitempty"`
	Status         string         `gorm:"not null;default:'saved';check:status IN ('saved', 'applied', 'interviewing', 'offer', 'rejected')" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User      User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Questions []InterviewQuestion `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Sessions  []InterviewSession  `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
	Metrics   *InterviewMetrics   `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"metrics,omitempty"`
}

// InterviewQuestion is one entry in the fixed question pool generated from a
// resume analysis. The pool is not regenerated mid-session.
type InterviewQuestion struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID string         `gorm:"type:uuid;not null;index" json:"application_id"`
	Question      string         `gorm:"type:text;not null" json:"question"`
	Category      string         `gorm:"size:50;not null" json:"category"`
	Difficulty    string         `gorm:"size:20;not null" json:"difficulty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application JobApplication `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
}
