package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avashista/jobquest/backend/models"
	"gorm.io/gorm"
)

// Interview session operations
func (r *GORMRepository) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create interview session", "error", err)
		return err
	}
	slog.Info("Interview session created", "session_id", session.ID, "application_id", session.ApplicationID)
	return nil
}

func (r *GORMRepository) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetInterviewSessionForUser(ctx context.Context, sessionID string, userID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session for user", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, err
	}
	return &session, nil
}

// GetInterviewSessionWithResponses loads a session with its ordered turns.
func (r *GORMRepository) GetInterviewSessionWithResponses(ctx context.Context, sessionID string, userID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index")
		}).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview session with responses", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetInterviewSessions(ctx context.Context, userID string, applicationID string) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if applicationID != "" {
		query = query.Where("application_id = ?", applicationID)
	}
	if err := query.Order("created_at DESC").Find(&sessions).Error; err != nil {
		slog.Error("Failed to get interview sessions", "error", err, "user_id", userID)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update interview session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteInterviewSession(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&models.InterviewSession{}).Error; err != nil {
		slog.Error("Failed to delete interview session", "error", err, "session_id", sessionID)
		return err
	}
	slog.Info("Interview session deleted", "session_id", sessionID)
	return nil
}

// GetStaleInProgressSessions returns in_progress sessions whose last write
// predates the cutoff. The abandonment watchdog marks these abandoned.
func (r *GORMRepository) GetStaleInProgressSessions(ctx context.Context, cutoff time.Time) ([]models.InterviewSession, error) {
	var sessions []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.SessionStatusInProgress, cutoff).
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get stale interview sessions", "error", err)
		return nil, fmt.Errorf("failed to get stale interview sessions: %w", err)
	}
	return sessions, nil
}

// Interview response operations
func (r *GORMRepository) CreateInterviewResponse(ctx context.Context, response *models.InterviewResponse) error {
	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		slog.Error("Failed to create interview response", "error", err, "session_id", response.SessionID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetInterviewResponses(ctx context.Context, sessionID string) ([]models.InterviewResponse, error) {
	var responses []models.InterviewResponse
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("order_index").Find(&responses).Error
	if err != nil {
		slog.Error("Failed to get interview responses", "error", err, "session_id", sessionID)
		return nil, err
	}
	return responses, nil
}

func (r *GORMRepository) UpdateInterviewResponse(ctx context.Context, response *models.InterviewResponse) error {
	if err := r.db.WithContext(ctx).Save(response).Error; err != nil {
		slog.Error("Failed to update interview response", "error", err, "response_id", response.ID)
		return err
	}
	return nil
}

// Interview metrics operations
func (r *GORMRepository) CreateInterviewMetrics(ctx context.Context, metrics *models.InterviewMetrics) error {
	if err := r.db.WithContext(ctx).Create(metrics).Error; err != nil {
		slog.Error("Failed to create interview metrics", "error", err, "application_id", metrics.ApplicationID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetInterviewMetrics(ctx context.Context, applicationID string) (*models.InterviewMetrics, error) {
	var metrics models.InterviewMetrics
	err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&metrics).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get interview metrics", "error", err, "application_id", applicationID)
		return nil, err
	}
	return &metrics, nil
}

func (r *GORMRepository) UpdateInterviewMetrics(ctx context.Context, metrics *models.InterviewMetrics) error {
	if err := r.db.WithContext(ctx).Save(metrics).Error; err != nil {
		slog.Error("Failed to update interview metrics", "error", err, "application_id", metrics.ApplicationID)
		return err
	}
	return nil
}

// IncrementTotalSessions bumps the profile's session counter when a new
// session is created, independent of whether it ever completes.
func (r *GORMRepository) IncrementTotalSessions(ctx context.Context, applicationID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.InterviewMetrics{}).
		Where("application_id = ?", applicationID).
		UpdateColumn("total_sessions", gorm.Expr("total_sessions + 1")).Error
	if err != nil {
		slog.Error("Failed to increment total sessions", "error", err, "application_id", applicationID)
		return fmt.Errorf("failed to increment total sessions: %w", err)
	}
	return nil
}
