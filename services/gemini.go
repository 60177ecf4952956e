package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avashista/jobquest/backend/interview"
	"github.com/avashista/jobquest/backend/models"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// GeminiService handles all Gemini AI operations: question pool generation,
// per-answer evaluation, follow-up decisions and session summaries. Every
// call requests structured JSON output against an explicit schema, so the
// decode step never has to scrape prose.
type GeminiService struct {
	genaiClient *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

var (
	_ interview.AnswerEvaluator  = (*GeminiService)(nil)
	_ interview.FollowUpDecider  = (*GeminiService)(nil)
	_ interview.SummaryGenerator = (*GeminiService)(nil)
)

func NewGeminiService(apiKey, model string) *GeminiService {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}

	breaker := gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Info("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiService{
		genaiClient: genaiClient,
		model:       model,
		breaker:     breaker,
	}
}

// generateJSON runs one structured-output generation through the circuit
// breaker and decodes the response into out.
func (g *GeminiService) generateJSON(ctx context.Context, systemInstruction, prompt string, schema *genai.Schema, out any) error {
	if g.genaiClient == nil {
		return fmt.Errorf("genai client not initialized")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.genaiClient.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	})
	if err != nil {
		return fmt.Errorf("failed to generate response: %w", err)
	}

	if err := json.Unmarshal([]byte(result.Text()), out); err != nil {
		slog.Error("Failed to decode AI response", "error", err, "model", g.model)
		return fmt.Errorf("failed to decode AI response: %w", err)
	}
	return nil
}

func jobContextBlock(job interview.JobContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nRole: %s\n", job.Company, job.RoleTitle)
	if job.JobDescription != "" {
		fmt.Fprintf(&b, "\nJob description:\n%s\n", job.JobDescription)
	}
	if job.ResumeText != "" {
		fmt.Fprintf(&b, "\nCandidate resume:\n%s\n", job.ResumeText)
	}
	return b.String()
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// GenerateQuestions builds a question pool for a job application from its
// description and resume text. Entries with an unknown category or
// difficulty are dropped rather than stored.
func (g *GeminiService) GenerateQuestions(ctx context.Context, applicationID string, job interview.JobContext, count int) ([]models.InterviewQuestion, error) {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question":   {Type: genai.TypeString},
						"category":   {Type: genai.TypeString, Enum: models.PoolCategories},
						"difficulty": {Type: genai.TypeString, Enum: []string{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
					},
					Required: []string{"question", "category", "difficulty"},
				},
			},
		},
		Required: []string{"questions"},
	}

	systemInstruction := "You are an experienced interviewer preparing a mock-interview question bank. " +
		"Write questions specific to the role and the candidate's background, spread across categories and difficulties."

	prompt := fmt.Sprintf("Generate %d interview questions for this job application.\n\n%s", count, jobContextBlock(job))

	var decoded struct {
		Questions []struct {
			Question   string `json:"question"`
			Category   string `json:"category"`
			Difficulty string `json:"difficulty"`
		} `json:"questions"`
	}
	if err := g.generateJSON(ctx, systemInstruction, prompt, schema, &decoded); err != nil {
		return nil, err
	}

	valid := func(category, difficulty string) bool {
		okCategory := false
		for _, c := range models.PoolCategories {
			if c == category {
				okCategory = true
			}
		}
		okDifficulty := difficulty == models.DifficultyEasy || difficulty == models.DifficultyMedium || difficulty == models.DifficultyHard
		return okCategory && okDifficulty
	}

	questions := make([]models.InterviewQuestion, 0, len(decoded.Questions))
	for _, q := range decoded.Questions {
		if strings.TrimSpace(q.Question) == "" || !valid(q.Category, q.Difficulty) {
			slog.Warn("Dropping malformed generated question", "category", q.Category, "difficulty", q.Difficulty)
			continue
		}
		questions = append(questions, models.InterviewQuestion{
			ID:            uuid.New().String(),
			ApplicationID: applicationID,
			Question:      q.Question,
			Category:      q.Category,
			Difficulty:    q.Difficulty,
		})
	}

	slog.Info("Generated interview questions", "application_id", applicationID, "count", len(questions))
	return questions, nil
}

// EvaluateAnswer scores one answer against its question and the job context.
func (g *GeminiService) EvaluateAnswer(ctx context.Context, turn *models.InterviewResponse, answer string, job interview.JobContext) (*interview.Evaluation, error) {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":                {Type: genai.TypeNumber},
			"feedback":             {Type: genai.TypeString},
			"suggestedImprovement": {Type: genai.TypeString},
			"keyPointsCovered":     {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"keyPointsMissed":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"starAnalysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"situation": {Type: genai.TypeBoolean},
					"task":      {Type: genai.TypeBoolean},
					"action":    {Type: genai.TypeBoolean},
					"result":    {Type: genai.TypeBoolean},
				},
				Required: []string{"situation", "task", "action", "result"},
			},
		},
		Required: []string{"score", "feedback", "suggestedImprovement", "keyPointsCovered", "keyPointsMissed"},
	}

	systemInstruction := "You are an experienced interviewer evaluating a candidate's answer in a mock interview. " +
		"Score from 0 to 100, give concrete feedback, and list the key points the answer covered and missed. " +
		"For behavioral questions, also report which STAR components (situation, task, action, result) the answer touched."

	prompt := fmt.Sprintf("Question (%s, %s): %s\n\nAnswer:\n%s\n\n%s",
		turn.Category, turn.Difficulty, turn.QuestionText, answer, jobContextBlock(job))

	eval := &interview.Evaluation{}
	if err := g.generateJSON(ctx, systemInstruction, prompt, schema, eval); err != nil {
		return nil, err
	}

	eval.Score = clampScore(eval.Score)
	// STAR analysis only applies to behavioral questions.
	if turn.Category != models.CategoryBehavioral {
		eval.STARAnalysis = nil
	}
	return eval, nil
}

// DecideFollowUp decides whether the answer warrants a clarifying follow-up
// question.
func (g *GeminiService) DecideFollowUp(ctx context.Context, turn *models.InterviewResponse, answer string, eval *interview.Evaluation) (*interview.FollowUpDecision, error) {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"shouldFollowUp":   {Type: genai.TypeBoolean},
			"followUpQuestion": {Type: genai.TypeString},
			"reason":           {Type: genai.TypeString},
		},
		Required: []string{"shouldFollowUp", "followUpQuestion", "reason"},
	}

	systemInstruction := "You are an interviewer deciding whether to probe deeper. " +
		"Ask a follow-up only when the answer was vague, incomplete, or raised something worth exploring. " +
		"Most good answers do not need one."

	prompt := fmt.Sprintf("Question: %s\n\nAnswer (scored %.0f/100):\n%s\n\nEvaluation notes: %s",
		turn.QuestionText, eval.Score, answer, eval.Feedback)

	decision := &interview.FollowUpDecision{}
	if err := g.generateJSON(ctx, systemInstruction, prompt, schema, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// GenerateSummary produces the end-of-session rollup over all answered
// turns. Categories without data in this session come back nil.
func (g *GeminiService) GenerateSummary(ctx context.Context, turns []models.InterviewResponse, job interview.JobContext) (*interview.SessionSummary, error) {
	categoryProps := make(map[string]*genai.Schema, len(models.PoolCategories))
	for _, category := range models.PoolCategories {
		categoryProps[category] = &genai.Schema{Type: genai.TypeNumber}
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overallScore":     {Type: genai.TypeNumber},
			"summaryFeedback":  {Type: genai.TypeString},
			"strengthAreas":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"improvementAreas": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"categoryScores":   {Type: genai.TypeObject, Properties: categoryProps},
			"recommendations":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"overallScore", "summaryFeedback", "strengthAreas", "improvementAreas", "recommendations"},
	}

	var transcript strings.Builder
	for i, turn := range turns {
		answer := ""
		if turn.Answer != nil {
			answer = *turn.Answer
		}
		score := ""
		if turn.Score != nil {
			score = fmt.Sprintf(" (scored %.0f/100)", *turn.Score)
		}
		fmt.Fprintf(&transcript, "Q%d [%s]%s: %s\nA: %s\n\n", i+1, turn.Category, score, turn.QuestionText, answer)
	}

	systemInstruction := "You are an interview coach writing an end-of-session performance summary. " +
		"Weigh every answered question, name concrete strengths and improvement areas, and only score categories the session actually touched."

	prompt := fmt.Sprintf("%s\nSession transcript:\n\n%s", jobContextBlock(job), transcript.String())

	summary := &interview.SessionSummary{}
	if err := g.generateJSON(ctx, systemInstruction, prompt, schema, summary); err != nil {
		return nil, err
	}

	summary.OverallScore = clampScore(summary.OverallScore)
	if summary.CategoryScores == nil {
		summary.CategoryScores = make(map[string]*float64, len(models.PoolCategories))
	}
	for _, category := range models.PoolCategories {
		if score, ok := summary.CategoryScores[category]; ok && score != nil {
			clamped := clampScore(*score)
			summary.CategoryScores[category] = &clamped
		} else if !ok {
			summary.CategoryScores[category] = nil
		}
	}
	return summary, nil
}
