package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session lifecycle states. Transitions only move forward:
// setup -> in_progress -> completed, or in_progress -> abandoned.
const (
	SessionStatusSetup      = "setup"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusAbandoned  = "abandoned"
)

// Feedback modes: per-turn evaluation shown immediately, or withheld until
// the session summary.
const (
	FeedbackModeImmediate = "immediate"
	FeedbackModeSummary   = "summary"
)

// SkippedAnswer is the sentinel stored in InterviewResponse.Answer when the
// candidate skips a question instead of answering it.
const SkippedAnswer = "[SKIPPED]"

// InterviewSession represents one mock-interview practice run against a
// job application's question pool
type InterviewSession struct {
	ID                   string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID               string                      `gorm:"type:uuid;not null;index" json:"user_id"`
	ApplicationID        string                      `gorm:"type:uuid;not null;index" json:"application_id"`
	FeedbackMode         string                      `gorm:"size:20;not null;default:'immediate';check:feedback_mode IN ('immediate', 'summary')" json:"feedback_mode"`
	QuestionCount        int                         `gorm:"not null;default:5" json:"question_count"`
	Categories           datatypes.JSONSlice[string] `json:"categories,omitempty"` // empty means all categories
	Difficulty           string                      `gorm:"size:20;not null;default:'mixed'" json:"difficulty"`
	VoiceEnabled         bool                        `gorm:"default:false" json:"voice_enabled"`
	Status               string                      `gorm:"not null;default:'setup';check:status IN ('setup', 'in_progress', 'completed', 'abandoned')" json:"status"`
	CurrentQuestionIndex int                         `json:"current_question_index"`
	OverallScore         *float64                    `gorm:"type:decimal(5,2)" json:"overall_score,omitempty"` // 0.00 to 100.00, set on completion
	SummaryFeedback      *string                     `gorm:"type:text" json:"summary_feedback,omitempty"`
	StrengthAreas        datatypes.JSONSlice[string] `json:"strength_areas,omitempty"`
	ImprovementAreas     datatypes.JSONSlice[string] `json:"improvement_areas,omitempty"`
	StartedAt            *time.Time                  `json:"started_at,omitempty"`
	CompletedAt          *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
	DeletedAt            gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relationships
	User        User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Application JobApplication      `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	Responses   []InterviewResponse `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

// InterviewResponse is one question/answer turn within a session, ordered by
// OrderIndex. Question text, category and difficulty are frozen copies taken
// at ask time; the source question may change later without affecting them.
// A turn is pending while Answer is nil, and at most one pending turn exists
// per session at any time.
type InterviewResponse struct {
	ID                   string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID            string                      `gorm:"type:uuid;not null;index" json:"session_id"`
	QuestionID           *string                     `gorm:"type:uuid;index" json:"question_id,omitempty"` // nil for AI-generated follow-ups
	OrderIndex           int                         `gorm:"not null" json:"order_index"`
	QuestionText         string                      `gorm:"type:text;not null" json:"question_text"`
	Category             string                      `gorm:"size:50;not null" json:"category"`
	Difficulty           string                      `gorm:"size:20;not null" json:"difficulty"`
	IsFollowUp           bool                        `gorm:"default:false" json:"is_follow_up"`
	ParentResponseID     *string                     `gorm:"type:uuid" json:"parent_response_id,omitempty"` // only set on follow-up turns
	Answer               *string                     `gorm:"type:text" json:"answer,omitempty"`
	Score                *float64                    `gorm:"type:decimal(5,2)" json:"score,omitempty"` // 0.00 to 100.00
	Feedback             string                      `gorm:"type:text" json:"feedback,omitempty"`
	SuggestedImprovement string                      `gorm:"type:text" json:"suggested_improvement,omitempty"`
	KeyPointsCovered     datatypes.JSONSlice[string] `json:"key_points_covered,omitempty"`
	KeyPointsMissed      datatypes.JSONSlice[string] `json:"key_points_missed,omitempty"`
	AnsweredAt           *time.Time                  `json:"answered_at,omitempty"`
	EvaluatedAt          *time.Time                  `json:"evaluated_at,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
	DeletedAt            gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relationships
	Session  InterviewSession   `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Question *InterviewQuestion `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

// IsPending reports whether the turn is still waiting for an answer.
func (r *InterviewResponse) IsPending() bool {
	return r.Answer == nil
}

// IsSkipped reports whether the turn carries the skip sentinel.
func (r *InterviewResponse) IsSkipped() bool {
	return r.Answer != nil && *r.Answer == SkippedAnswer
}
