package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/avashista/jobquest/backend/interview"
	"github.com/avashista/jobquest/backend/models"
	"github.com/avashista/jobquest/backend/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultQuestionPoolSize is how many questions a generation run asks for.
const DefaultQuestionPoolSize = 15

type ApplicationEndpoints struct {
	repo          *repository.GORMRepository
	geminiService *GeminiService
}

type CreateApplicationRequest struct {
	Company        string `json:"company" validate:"required"`
	RoleTitle      string `json:"role_title" validate:"required"`
	JobDescription string `json:"job_description"`
	ResumeText     string `json:"resume_text"`
	Status         string `json:"status"`
}

type UpdateApplicationRequest struct {
	Company        string `json:"company"`
	RoleTitle      string `json:"role_title"`
	JobDescription string `json:"job_description"`
	ResumeText     string `json:"resume_text"`
	Status         string `json:"status"`
}

type CreateApplicationResponse struct {
	Application models.JobApplication `json:"application"`
	Message     string                `json:"message"`
}

type GetApplicationsResponse struct {
	Applications []models.JobApplication `json:"applications"`
	Count        int                     `json:"count"`
}

type GenerateQuestionsResponse struct {
	Questions []models.InterviewQuestion `json:"questions"`
	Count     int                        `json:"count"`
	Message   string                     `json:"message"`
}

func NewApplicationEndpoints(repo *repository.GORMRepository, geminiService *GeminiService) *ApplicationEndpoints {
	return &ApplicationEndpoints{
		repo:          repo,
		geminiService: geminiService,
	}
}

func (e *ApplicationEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", e.CreateApplicationHandler)
		r.Get("/", e.GetApplicationsHandler)
		r.Get("/{id}", e.GetApplicationHandler)
		r.Put("/{id}", e.UpdateApplicationHandler)
		r.Delete("/{id}", e.DeleteApplicationHandler)
		r.Get("/{id}/questions", e.GetQuestionsHandler)
		r.Post("/{id}/questions/generate", e.GenerateQuestionsHandler)
		r.Get("/{id}/metrics", e.GetMetricsHandler)
	})
}

// ownedApplication loads the application and enforces ownership. Writes the
// HTTP error itself and returns nil when the caller should stop.
func (e *ApplicationEndpoints) ownedApplication(w http.ResponseWriter, r *http.Request) *models.JobApplication {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return nil
	}

	applicationID := chi.URLParam(r, "id")
	app, err := e.repo.GetJobApplicationForUser(r.Context(), applicationID, user.ID)
	if err != nil {
		slog.Error("Failed to get job application", "error", err, "application_id", applicationID)
		http.Error(w, "Failed to get application", http.StatusInternalServerError)
		return nil
	}
	if app == nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return nil
	}
	return app
}

func (e *ApplicationEndpoints) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Company == "" || req.RoleTitle == "" {
		http.Error(w, "Company and role title are required", http.StatusBadRequest)
		return
	}

	status := req.Status
	if status == "" {
		status = "saved"
	}

	app := models.JobApplication{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Company:        req.Company,
		RoleTitle:      req.RoleTitle,
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
		Status:         status,
	}

	if err := e.repo.CreateJobApplication(r.Context(), &app); err != nil {
		slog.Error("Failed to create job application", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to create application", http.StatusInternalServerError)
		return
	}

	// Every application gets a metrics profile row up front; the aggregator
	// only updates existing profiles.
	metrics := models.InterviewMetrics{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
	}
	if err := e.repo.CreateInterviewMetrics(r.Context(), &metrics); err != nil {
		slog.Error("Failed to create metrics profile", "error", err, "application_id", app.ID)
	}

	response := CreateApplicationResponse{
		Application: app,
		Message:     "Application created successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)

	slog.Info("Job application created", "application_id", app.ID, "user_id", user.ID, "company", app.Company)
}

func (e *ApplicationEndpoints) GetApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	apps, err := e.repo.GetJobApplications(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get job applications", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to get applications", http.StatusInternalServerError)
		return
	}

	response := GetApplicationsResponse{
		Applications: apps,
		Count:        len(apps),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (e *ApplicationEndpoints) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"application": app})
}

func (e *ApplicationEndpoints) UpdateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	var req UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Company != "" {
		app.Company = req.Company
	}
	if req.RoleTitle != "" {
		app.RoleTitle = req.RoleTitle
	}
	if req.JobDescription != "" {
		app.JobDescription = req.JobDescription
	}
	if req.ResumeText != "" {
		app.ResumeText = req.ResumeText
	}
	if req.Status != "" {
		app.Status = req.Status
	}

	if err := e.repo.UpdateJobApplication(r.Context(), app); err != nil {
		slog.Error("Failed to update job application", "error", err, "application_id", app.ID)
		http.Error(w, "Failed to update application", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"application": app,
		"message":     "Application updated successfully",
	})
}

func (e *ApplicationEndpoints) DeleteApplicationHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	if err := e.repo.DeleteJobApplication(r.Context(), app.ID); err != nil {
		slog.Error("Failed to delete job application", "error", err, "application_id", app.ID)
		http.Error(w, "Failed to delete application", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": "Application deleted successfully"})
}

func (e *ApplicationEndpoints) GetQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	questions, err := e.repo.GetQuestionPool(r.Context(), app.ID)
	if err != nil {
		slog.Error("Failed to get question pool", "error", err, "application_id", app.ID)
		http.Error(w, "Failed to get questions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	})
}

// GenerateQuestionsHandler rebuilds the application's question pool from its
// job description and resume text. A rerun replaces the previous pool;
// session turns keep their frozen copies of the old questions.
func (e *ApplicationEndpoints) GenerateQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	if e.geminiService == nil {
		http.Error(w, "Question generation is not available", http.StatusServiceUnavailable)
		return
	}
	if app.JobDescription == "" && app.ResumeText == "" {
		http.Error(w, "Add a job description or resume text before generating questions", http.StatusBadRequest)
		return
	}

	job := interview.JobContext{
		Company:        app.Company,
		RoleTitle:      app.RoleTitle,
		JobDescription: app.JobDescription,
		ResumeText:     app.ResumeText,
	}

	questions, err := e.geminiService.GenerateQuestions(r.Context(), app.ID, job, DefaultQuestionPoolSize)
	if err != nil {
		slog.Error("Failed to generate questions", "error", err, "application_id", app.ID)
		http.Error(w, "Failed to generate questions", http.StatusBadGateway)
		return
	}
	if len(questions) == 0 {
		http.Error(w, "Question generation produced no usable questions", http.StatusBadGateway)
		return
	}

	if err := e.repo.DeleteQuestionPool(r.Context(), app.ID); err != nil {
		http.Error(w, "Failed to replace question pool", http.StatusInternalServerError)
		return
	}
	if err := e.repo.CreateInterviewQuestions(r.Context(), questions); err != nil {
		http.Error(w, "Failed to store questions", http.StatusInternalServerError)
		return
	}

	response := GenerateQuestionsResponse{
		Questions: questions,
		Count:     len(questions),
		Message:   "Question pool generated successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)

	slog.Info("Question pool generated", "application_id", app.ID, "count", len(questions))
}

func (e *ApplicationEndpoints) GetMetricsHandler(w http.ResponseWriter, r *http.Request) {
	app := e.ownedApplication(w, r)
	if app == nil {
		return
	}

	metrics, err := e.repo.GetInterviewMetrics(r.Context(), app.ID)
	if err != nil {
		slog.Error("Failed to get interview metrics", "error", err, "application_id", app.ID)
		http.Error(w, "Failed to get metrics", http.StatusInternalServerError)
		return
	}
	if metrics == nil {
		http.Error(w, "Metrics not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"metrics": metrics,
		"history": metrics.History(),
	})
}
