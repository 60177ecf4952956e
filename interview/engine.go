package interview

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avashista/jobquest/backend/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaxFollowUpsPerQuestion caps the AI-generated follow-ups spawned from one
// turn. The cap is checked before the decider is consulted, so a saturated
// turn never costs an AI call.
const MaxFollowUpsPerQuestion = 2

// Engine drives mock-interview sessions through their four actions
// (start, answer, skip, end). Each action is one atomic request that emits a
// stream of events terminated by complete and done. Actions against the same
// session are serialized with a per-session mutex; the engine's invariants
// assume no two actions mutate one session concurrently.
type Engine struct {
	store      Store
	evaluator  AnswerEvaluator
	decider    FollowUpDecider
	summarizer SummaryGenerator
	selector   *Selector
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an engine with explicit collaborators. A nil selector
// gets a time-seeded default; a nil clock defaults to time.Now.
func NewEngine(store Store, evaluator AnswerEvaluator, decider FollowUpDecider, summarizer SummaryGenerator, selector *Selector, now func() time.Time) *Engine {
	if selector == nil {
		selector = NewSelector(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:      store,
		evaluator:  evaluator,
		decider:    decider,
		summarizer: summarizer,
		selector:   selector,
		now:        now,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock serializes actions per session. Entries are never evicted; a
// deployment sees at most a handful of sessions per user, so the map stays
// small for the process lifetime.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

// HandleAction processes one action request and emits its event stream.
// Failures surface as inline error events; the stream always terminates with
// complete and done regardless of branch.
func (e *Engine) HandleAction(ctx context.Context, req ActionRequest, emit EventSink) {
	lock := e.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	status := e.dispatch(ctx, req, emit)

	_ = emit(CompleteEvent{Type: EventTypeComplete, SessionID: req.SessionID, Status: status})
	_ = emit(DoneEvent{Type: EventTypeDone})
}

// dispatch runs the requested action and returns the session's status for
// the terminal event.
func (e *Engine) dispatch(ctx context.Context, req ActionRequest, emit EventSink) string {
	if strings.TrimSpace(req.SessionID) == "" {
		e.emitError(emit, "Session ID is required")
		return ""
	}

	session, err := e.store.GetInterviewSession(ctx, req.SessionID)
	if err != nil {
		slog.Error("Failed to get interview session", "error", err, "session_id", req.SessionID)
		e.emitError(emit, "Failed to load interview session")
		return ""
	}
	if session == nil {
		e.emitError(emit, "Interview session not found")
		return ""
	}

	switch req.Action {
	case ActionStart:
		e.handleStart(ctx, session, emit)
	case ActionAnswer:
		e.handleAnswer(ctx, session, req.UserAnswer, emit)
	case ActionSkip:
		e.handleSkip(ctx, session, emit)
	case ActionEnd:
		e.handleEnd(ctx, session, emit)
	default:
		e.emitError(emit, "Unknown action: "+req.Action)
	}

	return session.Status
}

func (e *Engine) emitError(emit EventSink, message string) {
	_ = emit(ErrorEvent{Type: EventTypeError, Error: message})
}

// handleStart moves a session from setup to in_progress and asks the first
// question. The candidate pool is the application's generated questions,
// minus any entry missing a category or difficulty.
func (e *Engine) handleStart(ctx context.Context, session *models.InterviewSession, emit EventSink) {
	if session.Status != models.SessionStatusSetup {
		e.emitError(emit, "Interview has already been started")
		return
	}

	pool, err := e.questionPool(ctx, session.ApplicationID)
	if err != nil {
		e.emitError(emit, "Failed to load question pool")
		return
	}
	if len(pool) == 0 {
		e.emitError(emit, "No interview questions available. Run resume analysis first.")
		return
	}

	first := e.selector.SelectNext(pool, map[string]bool{}, map[string]CategoryPerformance{}, e.settings(session))
	if first == nil {
		e.emitError(emit, "No suitable questions found for your session settings")
		return
	}

	now := e.now()
	session.Status = models.SessionStatusInProgress
	session.StartedAt = &now
	session.CurrentQuestionIndex = 0
	if err := e.store.UpdateInterviewSession(ctx, session); err != nil {
		slog.Error("Failed to start interview session", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to start interview session")
		return
	}

	turn := e.newQuestionTurn(session.ID, first, 0)
	if err := e.store.CreateInterviewResponse(ctx, turn); err != nil {
		slog.Error("Failed to create first interview turn", "error", err, "session_id", session.ID)
		// Roll the session back to setup so start can be retried; otherwise
		// it would sit in_progress with no pending turn.
		session.Status = models.SessionStatusSetup
		session.StartedAt = nil
		if rbErr := e.store.UpdateInterviewSession(ctx, session); rbErr != nil {
			slog.Error("Failed to roll back session start", "error", rbErr, "session_id", session.ID)
		}
		e.emitError(emit, "Failed to create interview question")
		return
	}

	slog.Info("Interview started", "session_id", session.ID, "question_id", first.ID, "category", first.Category)

	_ = emit(StatusEvent{Type: EventTypeStatus, Status: models.SessionStatusInProgress, Message: "Interview started"})
	_ = emit(QuestionEvent{
		Type:           EventTypeQuestion,
		QuestionNumber: 1,
		TotalQuestions: session.QuestionCount,
		QuestionText:   turn.QuestionText,
		Category:       turn.Category,
		Difficulty:     turn.Difficulty,
	})
}

// handleAnswer evaluates the pending turn's answer, maybe spawns a
// follow-up, and otherwise advances to the next question or completion.
// The turn is only written after the evaluator returns successfully, so a
// failed evaluation leaves no partial state.
func (e *Engine) handleAnswer(ctx context.Context, session *models.InterviewSession, userAnswer string, emit EventSink) {
	if session.Status != models.SessionStatusInProgress {
		e.emitError(emit, "Interview is not in progress")
		return
	}

	answer := strings.TrimSpace(userAnswer)
	if answer == "" {
		e.emitError(emit, "Answer text is required")
		return
	}

	responses, err := e.store.GetInterviewResponses(ctx, session.ID)
	if err != nil {
		slog.Error("Failed to get interview responses", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to load interview turns")
		return
	}

	pending := findPending(responses)
	if pending == nil {
		e.emitError(emit, "No pending question to answer")
		return
	}

	job, err := e.jobContext(ctx, session.ApplicationID)
	if err != nil {
		e.emitError(emit, "Failed to load job application context")
		return
	}

	eval, err := e.evaluator.EvaluateAnswer(ctx, pending, answer, job)
	if err != nil {
		slog.Error("Answer evaluation failed", "error", err, "session_id", session.ID, "response_id", pending.ID)
		e.emitError(emit, err.Error())
		return
	}

	now := e.now()
	pending.Answer = &answer
	pending.AnsweredAt = &now
	pending.Score = &eval.Score
	pending.Feedback = eval.Feedback
	pending.SuggestedImprovement = eval.SuggestedImprovement
	pending.KeyPointsCovered = datatypes.JSONSlice[string](eval.KeyPointsCovered)
	pending.KeyPointsMissed = datatypes.JSONSlice[string](eval.KeyPointsMissed)
	pending.EvaluatedAt = &now
	if err := e.store.UpdateInterviewResponse(ctx, pending); err != nil {
		slog.Error("Failed to persist answered turn", "error", err, "session_id", session.ID, "response_id", pending.ID)
		e.emitError(emit, "Failed to save your answer")
		return
	}

	if session.FeedbackMode == models.FeedbackModeImmediate {
		_ = emit(FeedbackEvent{
			Type:                 EventTypeFeedback,
			Score:                eval.Score,
			Feedback:             eval.Feedback,
			SuggestedImprovement: eval.SuggestedImprovement,
			KeyPointsCovered:     eval.KeyPointsCovered,
			KeyPointsMissed:      eval.KeyPointsMissed,
			STARAnalysis:         eval.STARAnalysis,
		})
	} else {
		_ = emit(AnswerRecordedEvent{Type: EventTypeAnswerRecorded, Message: "Answer recorded. Feedback will be available in your session summary."})
	}

	// The follow-up budget is a hard precondition: a saturated parent never
	// reaches the decider. Answering a follow-up attributes any further
	// follow-up to the root turn, keeping parents non-follow-up turns and
	// the per-parent count bounded.
	parentID := pending.ID
	if pending.IsFollowUp && pending.ParentResponseID != nil {
		parentID = *pending.ParentResponseID
	}
	if countFollowUps(responses, parentID) < MaxFollowUpsPerQuestion {
		decision, err := e.decider.DecideFollowUp(ctx, pending, answer, eval)
		if err != nil {
			slog.Error("Follow-up decision failed", "error", err, "session_id", session.ID, "response_id", pending.ID)
			e.emitError(emit, err.Error())
			return
		}
		if decision.ShouldFollowUp && strings.TrimSpace(decision.FollowUpQuestion) != "" {
			followUp := &models.InterviewResponse{
				ID:               uuid.New().String(),
				SessionID:        session.ID,
				OrderIndex:       len(responses),
				QuestionText:     decision.FollowUpQuestion,
				Category:         models.CategoryFollowUp,
				Difficulty:       pending.Difficulty,
				IsFollowUp:       true,
				ParentResponseID: &parentID,
			}
			if err := e.store.CreateInterviewResponse(ctx, followUp); err != nil {
				slog.Error("Failed to create follow-up turn", "error", err, "session_id", session.ID)
				e.emitError(emit, "Failed to create follow-up question")
				return
			}
			session.CurrentQuestionIndex++
			if err := e.store.UpdateInterviewSession(ctx, session); err != nil {
				slog.Error("Failed to advance session index", "error", err, "session_id", session.ID)
			}
			_ = emit(FollowUpEvent{
				Type:           EventTypeFollowUp,
				QuestionText:   decision.FollowUpQuestion,
				Reason:         decision.Reason,
				QuestionNumber: countAnswered(responses),
				TotalQuestions: session.QuestionCount,
			})
			return
		}
	}

	e.advance(ctx, session, responses, emit)
}

// handleSkip records the skip sentinel on the pending turn and advances.
// Skips never consult the follow-up decider.
func (e *Engine) handleSkip(ctx context.Context, session *models.InterviewSession, emit EventSink) {
	if session.Status != models.SessionStatusInProgress {
		e.emitError(emit, "Interview is not in progress")
		return
	}

	responses, err := e.store.GetInterviewResponses(ctx, session.ID)
	if err != nil {
		slog.Error("Failed to get interview responses", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to load interview turns")
		return
	}

	pending := findPending(responses)
	if pending == nil {
		e.emitError(emit, "No pending question to skip")
		return
	}

	now := e.now()
	skipped := models.SkippedAnswer
	zero := 0.0
	pending.Answer = &skipped
	pending.Score = &zero
	pending.Feedback = "Question skipped."
	pending.AnsweredAt = &now
	if err := e.store.UpdateInterviewResponse(ctx, pending); err != nil {
		slog.Error("Failed to persist skipped turn", "error", err, "session_id", session.ID, "response_id", pending.ID)
		e.emitError(emit, "Failed to skip question")
		return
	}

	_ = emit(QuestionSkippedEvent{Type: EventTypeQuestionSkipped, Message: "Question skipped. Moving on."})

	e.advance(ctx, session, responses, emit)
}

// advance either asks the next pool question or declares the interview
// complete once the answered-turn count reaches the session target.
func (e *Engine) advance(ctx context.Context, session *models.InterviewSession, responses []models.InterviewResponse, emit EventSink) {
	answered := countAnswered(responses)
	if answered >= session.QuestionCount {
		_ = emit(InterviewCompleteEvent{
			Type:          EventTypeInterviewComplete,
			Message:       "You've reached the end of the interview. Use end to get your summary.",
			AnsweredCount: answered,
		})
		return
	}

	pool, err := e.questionPool(ctx, session.ApplicationID)
	if err != nil {
		e.emitError(emit, "Failed to load question pool")
		return
	}

	answeredIDs, perf := selectionState(responses)
	next := e.selector.SelectNext(pool, answeredIDs, perf, e.settings(session))
	if next == nil {
		_ = emit(InterviewCompleteEvent{
			Type:          EventTypeInterviewComplete,
			Message:       "No more questions match your session settings.",
			AnsweredCount: answered,
		})
		return
	}

	turn := e.newQuestionTurn(session.ID, next, len(responses))
	if err := e.store.CreateInterviewResponse(ctx, turn); err != nil {
		slog.Error("Failed to create next interview turn", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to create interview question")
		return
	}
	session.CurrentQuestionIndex++
	if err := e.store.UpdateInterviewSession(ctx, session); err != nil {
		slog.Error("Failed to advance session index", "error", err, "session_id", session.ID)
	}

	_ = emit(QuestionEvent{
		Type:           EventTypeQuestion,
		QuestionNumber: answered + 1,
		TotalQuestions: session.QuestionCount,
		QuestionText:   turn.QuestionText,
		Category:       turn.Category,
		Difficulty:     turn.Difficulty,
	})
}

// handleEnd completes the session. With no qualifying answered turns the
// session still completes, with a zero score and a canned summary; the
// summary generator is only consulted when there is something to summarize.
func (e *Engine) handleEnd(ctx context.Context, session *models.InterviewSession, emit EventSink) {
	if session.Status != models.SessionStatusInProgress {
		e.emitError(emit, "Interview is not in progress")
		return
	}

	responses, err := e.store.GetInterviewResponses(ctx, session.ID)
	if err != nil {
		slog.Error("Failed to get interview responses", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to load interview turns")
		return
	}

	qualifying := make([]models.InterviewResponse, 0, len(responses))
	for _, r := range responses {
		if r.Answer != nil && !r.IsSkipped() && r.Score != nil {
			qualifying = append(qualifying, r)
		}
	}

	now := e.now()

	if len(qualifying) == 0 {
		zero := 0.0
		message := "No questions were answered in this session."
		session.OverallScore = &zero
		session.SummaryFeedback = &message
		session.Status = models.SessionStatusCompleted
		session.CompletedAt = &now
		if err := e.store.UpdateInterviewSession(ctx, session); err != nil {
			slog.Error("Failed to complete empty session", "error", err, "session_id", session.ID)
			e.emitError(emit, "Failed to complete interview session")
			return
		}
		_ = emit(StatusEvent{Type: EventTypeStatus, Status: models.SessionStatusCompleted, Message: "Interview completed"})
		_ = emit(SummaryEvent{
			Type:             EventTypeSummary,
			OverallScore:     0,
			SummaryFeedback:  message,
			StrengthAreas:    []string{},
			ImprovementAreas: []string{},
			CategoryScores:   emptyCategoryScores(),
			Recommendations:  []string{"Answer at least one question in your next session to receive personalized recommendations."},
		})
		return
	}

	job, err := e.jobContext(ctx, session.ApplicationID)
	if err != nil {
		e.emitError(emit, "Failed to load job application context")
		return
	}

	summary, err := e.summarizer.GenerateSummary(ctx, qualifying, job)
	if err != nil {
		slog.Error("Summary generation failed", "error", err, "session_id", session.ID)
		e.emitError(emit, err.Error())
		return
	}

	session.OverallScore = &summary.OverallScore
	session.SummaryFeedback = &summary.SummaryFeedback
	session.StrengthAreas = datatypes.JSONSlice[string](summary.StrengthAreas)
	session.ImprovementAreas = datatypes.JSONSlice[string](summary.ImprovementAreas)
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	if err := e.store.UpdateInterviewSession(ctx, session); err != nil {
		slog.Error("Failed to complete session", "error", err, "session_id", session.ID)
		e.emitError(emit, "Failed to complete interview session")
		return
	}

	if err := ApplyCompletedSession(ctx, e.store, session.ApplicationID, summary.OverallScore, summary.CategoryScores, now); err != nil {
		// The session itself completed; a metrics write failure is logged,
		// not surfaced to the candidate.
		slog.Error("Failed to update interview metrics", "error", err, "application_id", session.ApplicationID)
	}

	slog.Info("Interview completed", "session_id", session.ID, "overall_score", summary.OverallScore, "answered_count", len(qualifying))

	_ = emit(StatusEvent{Type: EventTypeStatus, Status: models.SessionStatusCompleted, Message: "Interview completed"})
	_ = emit(SummaryEvent{
		Type:             EventTypeSummary,
		OverallScore:     summary.OverallScore,
		SummaryFeedback:  summary.SummaryFeedback,
		StrengthAreas:    summary.StrengthAreas,
		ImprovementAreas: summary.ImprovementAreas,
		CategoryScores:   summary.CategoryScores,
		Recommendations:  summary.Recommendations,
	})
}

// Helpers

// questionPool loads the application's generated questions, dropping any
// entry missing a category or difficulty.
func (e *Engine) questionPool(ctx context.Context, applicationID string) ([]models.InterviewQuestion, error) {
	questions, err := e.store.GetQuestionPool(ctx, applicationID)
	if err != nil {
		slog.Error("Failed to get question pool", "error", err, "application_id", applicationID)
		return nil, err
	}
	pool := make([]models.InterviewQuestion, 0, len(questions))
	for _, q := range questions {
		if q.Category != "" && q.Difficulty != "" {
			pool = append(pool, q)
		}
	}
	return pool, nil
}

func (e *Engine) jobContext(ctx context.Context, applicationID string) (JobContext, error) {
	app, err := e.store.GetJobApplication(ctx, applicationID)
	if err != nil {
		slog.Error("Failed to get job application", "error", err, "application_id", applicationID)
		return JobContext{}, err
	}
	if app == nil {
		return JobContext{}, ErrApplicationNotFound
	}
	return JobContext{
		Company:        app.Company,
		RoleTitle:      app.RoleTitle,
		JobDescription: app.JobDescription,
		ResumeText:     app.ResumeText,
	}, nil
}

func (e *Engine) settings(session *models.InterviewSession) SelectorSettings {
	return SelectorSettings{
		Categories: session.Categories,
		Difficulty: session.Difficulty,
	}
}

func (e *Engine) newQuestionTurn(sessionID string, q *models.InterviewQuestion, orderIndex int) *models.InterviewResponse {
	questionID := q.ID
	return &models.InterviewResponse{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		QuestionID:   &questionID,
		OrderIndex:   orderIndex,
		QuestionText: q.Question,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
	}
}

func findPending(responses []models.InterviewResponse) *models.InterviewResponse {
	for i := range responses {
		if responses[i].IsPending() {
			return &responses[i]
		}
	}
	return nil
}

func countAnswered(responses []models.InterviewResponse) int {
	count := 0
	for i := range responses {
		if responses[i].Answer != nil {
			count++
		}
	}
	return count
}

func countFollowUps(responses []models.InterviewResponse, parentID string) int {
	count := 0
	for i := range responses {
		if responses[i].ParentResponseID != nil && *responses[i].ParentResponseID == parentID {
			count++
		}
	}
	return count
}

// selectionState rebuilds the answered-question set and per-category
// performance from a session's turns. Skipped turns count with their zero
// score, pulling their category toward the front of the weakness ordering.
func selectionState(responses []models.InterviewResponse) (map[string]bool, map[string]CategoryPerformance) {
	answeredIDs := make(map[string]bool)
	perf := make(map[string]CategoryPerformance)
	for _, r := range responses {
		if r.QuestionID != nil {
			answeredIDs[*r.QuestionID] = true
		}
		if r.Score != nil {
			p := perf[r.Category]
			p.TotalScore += *r.Score
			p.Count++
			perf[r.Category] = p
		}
	}
	return answeredIDs, perf
}

func emptyCategoryScores() map[string]*float64 {
	scores := make(map[string]*float64, len(models.PoolCategories))
	for _, category := range models.PoolCategories {
		scores[category] = nil
	}
	return scores
}
