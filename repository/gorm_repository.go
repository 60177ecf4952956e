package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/avashista/jobquest/backend/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.JobApplication{},
		&models.InterviewQuestion{},
		&models.InterviewSession{},
		&models.InterviewResponse{},
		&models.InterviewMetrics{},
		&models.RefreshToken{},
		&models.PermanentToken{},
	)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) CreatePermanentToken(ctx context.Context, token *models.PermanentToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create permanent token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetPermanentToken(ctx context.Context, token string) (*models.PermanentToken, error) {
	var permanentToken models.PermanentToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&permanentToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get permanent token", "error", err)
		return nil, err
	}
	return &permanentToken, nil
}

func (r *GORMRepository) DeletePermanentToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.PermanentToken{}).Error; err != nil {
		slog.Error("Failed to delete permanent token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PermanentToken{}).Error; err != nil {
		slog.Error("Failed to delete user permanent tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Job application operations
func (r *GORMRepository) CreateJobApplication(ctx context.Context, app *models.JobApplication) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		slog.Error("Failed to create job application", "error", err)
		return err
	}
	slog.Info("Job application created", "application_id", app.ID, "company", app.Company)
	return nil
}

func (r *GORMRepository) GetJobApplications(ctx context.Context, userID string) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&apps).Error
	if err != nil {
		slog.Error("Failed to get job applications", "error", err, "user_id", userID)
		return nil, err
	}
	return apps, nil
}

func (r *GORMRepository) GetJobApplication(ctx context.Context, applicationID string) (*models.JobApplication, error) {
	var app models.JobApplication
	err := r.db.WithContext(ctx).Where("id = ?", applicationID).First(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get job application", "error", err, "application_id", applicationID)
		return nil, err
	}
	return &app, nil
}

// GetJobApplicationForUser gets an application only if it belongs to the user.
func (r *GORMRepository) GetJobApplicationForUser(ctx context.Context, applicationID string, userID string) (*models.JobApplication, error) {
	var app models.JobApplication
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", applicationID, userID).First(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get job application for user", "error", err, "application_id", applicationID, "user_id", userID)
		return nil, err
	}
	return &app, nil
}

func (r *GORMRepository) UpdateJobApplication(ctx context.Context, app *models.JobApplication) error {
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		slog.Error("Failed to update job application", "error", err, "application_id", app.ID)
		return err
	}
	slog.Info("Job application updated", "application_id", app.ID, "status", app.Status)
	return nil
}

func (r *GORMRepository) DeleteJobApplication(ctx context.Context, applicationID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", applicationID).Delete(&models.JobApplication{}).Error; err != nil {
		slog.Error("Failed to delete job application", "error", err, "application_id", applicationID)
		return err
	}
	slog.Info("Job application deleted", "application_id", applicationID)
	return nil
}

// Question pool operations
func (r *GORMRepository) CreateInterviewQuestions(ctx context.Context, questions []models.InterviewQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&questions).Error; err != nil {
		slog.Error("Failed to create interview questions", "error", err)
		return err
	}
	slog.Info("Interview questions created", "application_id", questions[0].ApplicationID, "count", len(questions))
	return nil
}

func (r *GORMRepository) GetQuestionPool(ctx context.Context, applicationID string) ([]models.InterviewQuestion, error) {
	var questions []models.InterviewQuestion
	err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).Order("created_at").Find(&questions).Error
	if err != nil {
		slog.Error("Failed to get question pool", "error", err, "application_id", applicationID)
		return nil, err
	}
	return questions, nil
}

func (r *GORMRepository) DeleteQuestionPool(ctx context.Context, applicationID string) error {
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).Delete(&models.InterviewQuestion{}).Error; err != nil {
		slog.Error("Failed to delete question pool", "error", err, "application_id", applicationID)
		return err
	}
	return nil
}
