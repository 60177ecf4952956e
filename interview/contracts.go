package interview

import (
	"context"
	"errors"

	"github.com/avashista/jobquest/backend/models"
)

// ErrApplicationNotFound is returned when a session points at a job
// application that no longer exists.
var ErrApplicationNotFound = errors.New("job application not found")

// JobContext carries the job-application material the AI collaborators need
// to ground their judgments.
type JobContext struct {
	Company        string
	RoleTitle      string
	JobDescription string
	ResumeText     string
}

// STARAnalysis records which parts of the STAR method a behavioral answer
// touched.
type STARAnalysis struct {
	Situation bool `json:"situation"`
	Task      bool `json:"task"`
	Action    bool `json:"action"`
	Result    bool `json:"result"`
}

// Evaluation is the scoring oracle's verdict on one answer.
type Evaluation struct {
	Score                float64       `json:"score"` // 0-100
	Feedback             string        `json:"feedback"`
	SuggestedImprovement string        `json:"suggestedImprovement"`
	KeyPointsCovered     []string      `json:"keyPointsCovered"`
	KeyPointsMissed      []string      `json:"keyPointsMissed"`
	STARAnalysis         *STARAnalysis `json:"starAnalysis,omitempty"`
}

// FollowUpDecision says whether an answer warrants a clarifying follow-up.
type FollowUpDecision struct {
	ShouldFollowUp   bool   `json:"shouldFollowUp"`
	FollowUpQuestion string `json:"followUpQuestion"`
	Reason           string `json:"reason"`
}

// SessionSummary is the generator's rollup of all answered turns. A nil
// entry in CategoryScores means the session produced no data for that
// category.
type SessionSummary struct {
	OverallScore     float64             `json:"overallScore"`
	SummaryFeedback  string              `json:"summaryFeedback"`
	StrengthAreas    []string            `json:"strengthAreas"`
	ImprovementAreas []string            `json:"improvementAreas"`
	CategoryScores   map[string]*float64 `json:"categoryScores"`
	Recommendations  []string            `json:"recommendations"`
}

// AnswerEvaluator scores a candidate's answer to one turn's question.
type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, turn *models.InterviewResponse, answer string, job JobContext) (*Evaluation, error)
}

// FollowUpDecider decides whether to ask a clarifying follow-up. The engine
// never calls it once the per-parent follow-up budget is exhausted.
type FollowUpDecider interface {
	DecideFollowUp(ctx context.Context, turn *models.InterviewResponse, answer string, eval *Evaluation) (*FollowUpDecision, error)
}

// SummaryGenerator produces the end-of-session analysis from the answered
// turns.
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, turns []models.InterviewResponse, job JobContext) (*SessionSummary, error)
}

// Store is the persistence surface the engine needs. Lookups return
// (nil, nil) when the row does not exist. GetResponses returns turns ordered
// by their order index.
type Store interface {
	GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error
	GetQuestionPool(ctx context.Context, applicationID string) ([]models.InterviewQuestion, error)
	GetInterviewResponses(ctx context.Context, sessionID string) ([]models.InterviewResponse, error)
	CreateInterviewResponse(ctx context.Context, response *models.InterviewResponse) error
	UpdateInterviewResponse(ctx context.Context, response *models.InterviewResponse) error
	GetJobApplication(ctx context.Context, applicationID string) (*models.JobApplication, error)
	GetInterviewMetrics(ctx context.Context, applicationID string) (*models.InterviewMetrics, error)
	UpdateInterviewMetrics(ctx context.Context, metrics *models.InterviewMetrics) error
}
