package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avashista/jobquest/backend/models"
	"github.com/avashista/jobquest/backend/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds the database with initial data (idempotent)
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	existing, err := s.repo.GetUserByEmail(ctx, "test@example.com")
	if err != nil {
		return fmt.Errorf("failed to check seeding state: %w", err)
	}
	if existing != nil {
		slog.Info("Database seeding already completed, skipping")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{
			Email:    "test@example.com",
			Password: string(hashedPassword),
			FullName: "Test User",
			Role:     "user",
		},
		{
			Email:    "demo@example.com",
			Password: string(hashedPassword),
			FullName: "Demo User",
			Role:     "user",
		},
	}

	for i := range users {
		if err := s.repo.CreateUser(ctx, &users[i]); err != nil {
			slog.Error("Failed to seed user", "email", users[i].Email, "error", err)
		}
	}

	testUser, err := s.repo.GetUserByEmail(ctx, "test@example.com")
	if err != nil {
		return fmt.Errorf("failed to get test user: %w", err)
	}
	if testUser == nil {
		return fmt.Errorf("test user not found")
	}

	// One sample application with a ready-made question pool, so the demo
	// flow works without a Gemini key.
	app := models.JobApplication{
		ID:             uuid.New().String(),
		UserID:         testUser.ID,
		Company:        "Acme Corp",
		RoleTitle:      "Senior Backend Engineer",
		JobDescription: "Design and operate Go services backing the Acme platform. Postgres, distributed systems, and on-call ownership.",
		ResumeText:     "Backend engineer with six years of Go and Postgres experience, previously at a payments startup.",
		Status:         "interviewing",
	}
	if err := s.repo.CreateJobApplication(ctx, &app); err != nil {
		return fmt.Errorf("failed to seed application: %w", err)
	}

	metrics := models.InterviewMetrics{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
	}
	if err := s.repo.CreateInterviewMetrics(ctx, &metrics); err != nil {
		slog.Error("Failed to seed metrics profile", "error", err, "application_id", app.ID)
	}

	questions := []models.InterviewQuestion{
		{Question: "Tell me about a time you had to push back on a product decision.", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium},
		{Question: "Describe a production incident you owned end to end.", Category: models.CategoryBehavioral, Difficulty: models.DifficultyHard},
		{Question: "How do transactions and isolation levels work in Postgres?", Category: models.CategoryTechnical, Difficulty: models.DifficultyMedium},
		{Question: "Walk me through designing a rate limiter for a public API.", Category: models.CategoryTechnical, Difficulty: models.DifficultyHard},
		{Question: "What does a goroutine leak look like and how do you find one?", Category: models.CategoryTechnical, Difficulty: models.DifficultyEasy},
		{Question: "Your deploy doubled p99 latency. What do you do in the first ten minutes?", Category: models.CategorySituational, Difficulty: models.DifficultyMedium},
		{Question: "A teammate keeps merging untested code. How do you handle it?", Category: models.CategorySituational, Difficulty: models.DifficultyEasy},
		{Question: "Why do you want to work at Acme Corp?", Category: models.CategoryCompanySpecific, Difficulty: models.DifficultyEasy},
		{Question: "What would your first ninety days as a senior engineer here look like?", Category: models.CategoryRoleSpecific, Difficulty: models.DifficultyMedium},
	}
	for i := range questions {
		questions[i].ID = uuid.New().String()
		questions[i].ApplicationID = app.ID
	}
	if err := s.repo.CreateInterviewQuestions(ctx, questions); err != nil {
		return fmt.Errorf("failed to seed question pool: %w", err)
	}

	slog.Info("Database seeding completed", "users", len(users), "questions", len(questions))
	return nil
}
