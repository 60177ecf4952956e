package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/avashista/jobquest/backend/models"
	"github.com/avashista/jobquest/backend/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionEndpoints struct {
	repo *repository.GORMRepository
}

type CreateSessionRequest struct {
	ApplicationID string   `json:"application_id" validate:"required"`
	FeedbackMode  string   `json:"feedback_mode"`
	QuestionCount int      `json:"question_count"`
	Categories    []string `json:"categories"`
	Difficulty    string   `json:"difficulty"`
	VoiceEnabled  bool     `json:"voice_enabled"`
}

type CreateSessionResponse struct {
	Session models.InterviewSession `json:"session"`
	Message string                  `json:"message"`
}

type GetSessionsResponse struct {
	Sessions []models.InterviewSession `json:"sessions"`
	Count    int                       `json:"count"`
}

func NewSessionEndpoints(repo *repository.GORMRepository) *SessionEndpoints {
	return &SessionEndpoints{
		repo: repo,
	}
}

func (e *SessionEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", e.CreateSessionHandler)
		r.Get("/", e.GetSessionsHandler)
		r.Get("/{id}", e.GetSessionHandler)
		r.Delete("/{id}", e.DeleteSessionHandler)
	})
}

func validCategories(categories []string) bool {
	for _, category := range categories {
		known := false
		for _, pool := range models.PoolCategories {
			if category == pool {
				known = true
			}
		}
		if !known {
			return false
		}
	}
	return true
}

func (e *SessionEndpoints) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	app, err := e.repo.GetJobApplicationForUser(r.Context(), req.ApplicationID, user.ID)
	if err != nil {
		slog.Error("Failed to validate application", "error", err, "application_id", req.ApplicationID)
		http.Error(w, "Failed to validate application", http.StatusInternalServerError)
		return
	}
	if app == nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	feedbackMode := req.FeedbackMode
	if feedbackMode == "" {
		feedbackMode = models.FeedbackModeImmediate
	}
	if feedbackMode != models.FeedbackModeImmediate && feedbackMode != models.FeedbackModeSummary {
		http.Error(w, "Invalid feedback mode", http.StatusBadRequest)
		return
	}

	questionCount := req.QuestionCount
	if questionCount <= 0 {
		questionCount = 5
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMixed
	}
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard, models.DifficultyMixed:
	default:
		http.Error(w, "Invalid difficulty", http.StatusBadRequest)
		return
	}

	if !validCategories(req.Categories) {
		http.Error(w, "Invalid category filter", http.StatusBadRequest)
		return
	}

	session := models.InterviewSession{
		ID:            uuid.New().String(),
		UserID:        user.ID,
		ApplicationID: app.ID,
		FeedbackMode:  feedbackMode,
		QuestionCount: questionCount,
		Categories:    datatypes.JSONSlice[string](req.Categories),
		Difficulty:    difficulty,
		VoiceEnabled:  req.VoiceEnabled,
		Status:        models.SessionStatusSetup,
	}

	if err := e.repo.CreateInterviewSession(r.Context(), &session); err != nil {
		slog.Error("Failed to create interview session", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	if err := e.repo.IncrementTotalSessions(r.Context(), app.ID); err != nil {
		slog.Error("Failed to count new session", "error", err, "application_id", app.ID)
	}

	response := CreateSessionResponse{
		Session: session,
		Message: "Session created successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)

	slog.Info("Interview session created", "session_id", session.ID, "user_id", user.ID, "application_id", app.ID)
}

func (e *SessionEndpoints) GetSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessions, err := e.repo.GetInterviewSessions(r.Context(), user.ID, r.URL.Query().Get("application_id"))
	if err != nil {
		slog.Error("Failed to get interview sessions", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to get sessions", http.StatusInternalServerError)
		return
	}

	response := GetSessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (e *SessionEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	session, err := e.repo.GetInterviewSessionWithResponses(r.Context(), sessionID, user.ID)
	if err != nil {
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to get session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"session": session})
}

func (e *SessionEndpoints) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	session, err := e.repo.GetInterviewSessionForUser(r.Context(), sessionID, user.ID)
	if err != nil {
		slog.Error("Failed to get interview session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to get session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if err := e.repo.DeleteInterviewSession(r.Context(), sessionID); err != nil {
		slog.Error("Failed to delete interview session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Session deleted successfully"})
}
