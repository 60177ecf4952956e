package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InterviewMetrics is the long-lived performance rollup for one job
// application, accumulated across all completed sessions for that job.
// AverageScore is a weighted incremental mean over completed sessions; the
// per-category averages hold the last observed value for each category.
type InterviewMetrics struct {
	ID                 string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ApplicationID      string         `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	TotalSessions      int            `gorm:"not null;default:0" json:"total_sessions"`
	CompletedSessions  int            `gorm:"not null;default:0" json:"completed_sessions"`
	AverageScore       float64        `gorm:"type:decimal(5,2);not null;default:0" json:"average_score"`
	BehavioralAvg      *float64       `gorm:"type:decimal(5,2)" json:"behavioral_avg,omitempty"`
	TechnicalAvg       *float64       `gorm:"type:decimal(5,2)" json:"technical_avg,omitempty"`
	SituationalAvg     *float64       `gorm:"type:decimal(5,2)" json:"situational_avg,omitempty"`
	CompanySpecificAvg *float64       `gorm:"type:decimal(5,2)" json:"company_specific_avg,omitempty"`
	RoleSpecificAvg    *float64       `gorm:"type:decimal(5,2)" json:"role_specific_avg,omitempty"`
	ScoreHistory       datatypes.JSON `json:"score_history,omitempty"` // append-only []ScorePoint
	StrongestCategory  string         `gorm:"size:50" json:"strongest_category,omitempty"`
	WeakestCategory    string         `gorm:"size:50" json:"weakest_category,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Application JobApplication `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
}

// ScorePoint is one entry in the append-only score history.
type ScorePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

// History decodes the stored score history. A missing or malformed column
// yields an empty slice, never an error.
func (m *InterviewMetrics) History() []ScorePoint {
	if len(m.ScoreHistory) == 0 {
		return nil
	}
	var points []ScorePoint
	if err := json.Unmarshal(m.ScoreHistory, &points); err != nil {
		return nil
	}
	return points
}

// SetHistory encodes and stores the score history.
func (m *InterviewMetrics) SetHistory(points []ScorePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	m.ScoreHistory = datatypes.JSON(data)
	return nil
}

// CategoryAvg returns a pointer to the stored running average for the given
// pool category, or nil for unknown categories.
func (m *InterviewMetrics) CategoryAvg(category string) **float64 {
	switch category {
	case CategoryBehavioral:
		return &m.BehavioralAvg
	case CategoryTechnical:
		return &m.TechnicalAvg
	case CategorySituational:
		return &m.SituationalAvg
	case CategoryCompanySpecific:
		return &m.CompanySpecificAvg
	case CategoryRoleSpecific:
		return &m.RoleSpecificAvg
	}
	return nil
}
