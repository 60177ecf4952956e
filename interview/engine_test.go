package interview

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/avashista/jobquest/backend/models"
)

// fakeStore is an in-memory Store for engine tests. Reads return copies so
// the engine's local mutations only become visible through explicit updates,
// matching how a real database behaves.
type fakeStore struct {
	sessions  map[string]*models.InterviewSession
	questions map[string][]models.InterviewQuestion
	responses map[string][]*models.InterviewResponse
	apps      map[string]*models.JobApplication
	metrics   map[string]*models.InterviewMetrics

	metricsUpdates int

	// createResponseErr fails the next CreateInterviewResponse, once.
	createResponseErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[string]*models.InterviewSession),
		questions: make(map[string][]models.InterviewQuestion),
		responses: make(map[string][]*models.InterviewResponse),
		apps:      make(map[string]*models.JobApplication),
		metrics:   make(map[string]*models.InterviewMetrics),
	}
}

func (s *fakeStore) GetInterviewSession(_ context.Context, sessionID string) (*models.InterviewSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *fakeStore) UpdateInterviewSession(_ context.Context, session *models.InterviewSession) error {
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeStore) GetQuestionPool(_ context.Context, applicationID string) ([]models.InterviewQuestion, error) {
	return append([]models.InterviewQuestion{}, s.questions[applicationID]...), nil
}

func (s *fakeStore) GetInterviewResponses(_ context.Context, sessionID string) ([]models.InterviewResponse, error) {
	stored := s.responses[sessionID]
	out := make([]models.InterviewResponse, 0, len(stored))
	for _, r := range stored {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *fakeStore) CreateInterviewResponse(_ context.Context, response *models.InterviewResponse) error {
	if s.createResponseErr != nil {
		err := s.createResponseErr
		s.createResponseErr = nil
		return err
	}
	copied := *response
	s.responses[response.SessionID] = append(s.responses[response.SessionID], &copied)
	return nil
}

func (s *fakeStore) UpdateInterviewResponse(_ context.Context, response *models.InterviewResponse) error {
	for i, r := range s.responses[response.SessionID] {
		if r.ID == response.ID {
			copied := *response
			s.responses[response.SessionID][i] = &copied
			return nil
		}
	}
	return errors.New("response not found")
}

func (s *fakeStore) GetJobApplication(_ context.Context, applicationID string) (*models.JobApplication, error) {
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, nil
	}
	copied := *app
	return &copied, nil
}

func (s *fakeStore) GetInterviewMetrics(_ context.Context, applicationID string) (*models.InterviewMetrics, error) {
	m, ok := s.metrics[applicationID]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *fakeStore) UpdateInterviewMetrics(_ context.Context, metrics *models.InterviewMetrics) error {
	copied := *metrics
	s.metrics[metrics.ApplicationID] = &copied
	s.metricsUpdates++
	return nil
}

// Scripted AI collaborators.

type scriptedEvaluator struct {
	eval  Evaluation
	err   error
	calls int
}

func (e *scriptedEvaluator) EvaluateAnswer(context.Context, *models.InterviewResponse, string, JobContext) (*Evaluation, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	eval := e.eval
	return &eval, nil
}

type scriptedDecider struct {
	decision FollowUpDecision
	err      error
	calls    int
}

func (d *scriptedDecider) DecideFollowUp(context.Context, *models.InterviewResponse, string, *Evaluation) (*FollowUpDecision, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	decision := d.decision
	return &decision, nil
}

type scriptedSummarizer struct {
	summary SessionSummary
	err     error
	calls   int
}

func (g *scriptedSummarizer) GenerateSummary(context.Context, []models.InterviewResponse, JobContext) (*SessionSummary, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	summary := g.summary
	return &summary, nil
}

// Test harness

type engineFixture struct {
	store      *fakeStore
	evaluator  *scriptedEvaluator
	decider    *scriptedDecider
	summarizer *scriptedSummarizer
	engine     *Engine
	events     []Event
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store: newFakeStore(),
		evaluator: &scriptedEvaluator{eval: Evaluation{
			Score:                80,
			Feedback:             "Solid structure.",
			SuggestedImprovement: "Quantify the outcome.",
			KeyPointsCovered:     []string{"ownership"},
			KeyPointsMissed:      []string{"metrics"},
		}},
		decider:    &scriptedDecider{},
		summarizer: &scriptedSummarizer{},
	}
	clock := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	f.engine = NewEngine(f.store, f.evaluator, f.decider, f.summarizer, NewSelector(rand.New(rand.NewSource(7))), clock)
	return f
}

func (f *engineFixture) sink(event Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *engineFixture) run(t *testing.T, req ActionRequest) []Event {
	t.Helper()
	f.events = nil
	f.engine.HandleAction(context.Background(), req, f.sink)
	return f.events
}

func (f *engineFixture) seedSession(status string, questionCount int, feedbackMode string) *models.InterviewSession {
	app := &models.JobApplication{ID: "app-1", UserID: "user-1", Company: "Acme", RoleTitle: "Backend Engineer"}
	f.store.apps[app.ID] = app
	session := &models.InterviewSession{
		ID:            "sess-1",
		UserID:        "user-1",
		ApplicationID: app.ID,
		FeedbackMode:  feedbackMode,
		QuestionCount: questionCount,
		Difficulty:    models.DifficultyMixed,
		Status:        status,
	}
	f.store.sessions[session.ID] = session
	return session
}

func (f *engineFixture) seedPool(questions ...models.InterviewQuestion) {
	f.store.questions["app-1"] = questions
}

func (f *engineFixture) seedPendingTurn(questionID string, orderIndex int) *models.InterviewResponse {
	turn := &models.InterviewResponse{
		ID:           "turn-" + questionID,
		SessionID:    "sess-1",
		QuestionID:   &questionID,
		OrderIndex:   orderIndex,
		QuestionText: "Describe a challenge you overcame.",
		Category:     models.CategoryBehavioral,
		Difficulty:   models.DifficultyMedium,
	}
	copied := *turn
	f.store.responses["sess-1"] = append(f.store.responses["sess-1"], &copied)
	return turn
}

func eventTypes(events []Event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

func assertTerminated(t *testing.T, events []Event, wantStatus string) {
	t.Helper()
	if len(events) < 2 {
		t.Fatalf("stream too short: %v", eventTypes(events))
	}
	complete, ok := events[len(events)-2].(CompleteEvent)
	if !ok {
		t.Fatalf("second-to-last event is %T, want CompleteEvent", events[len(events)-2])
	}
	if complete.Status != wantStatus {
		t.Fatalf("complete event status = %q, want %q", complete.Status, wantStatus)
	}
	if _, ok := events[len(events)-1].(DoneEvent); !ok {
		t.Fatalf("last event is %T, want DoneEvent", events[len(events)-1])
	}
}

func firstErrorEvent(events []Event) *ErrorEvent {
	for _, e := range events {
		if ev, ok := e.(ErrorEvent); ok {
			return &ev
		}
	}
	return nil
}

// Tests

func TestStartEmitsStatusAndFirstQuestion(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusSetup, 5, models.FeedbackModeImmediate)
	f.seedPool(models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "Why Acme?", Category: models.CategoryCompanySpecific, Difficulty: models.DifficultyEasy})

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})

	assertTerminated(t, events, models.SessionStatusInProgress)
	status, ok := events[0].(StatusEvent)
	if !ok || status.Status != models.SessionStatusInProgress {
		t.Fatalf("first event = %+v, want in_progress status", events[0])
	}
	question, ok := events[1].(QuestionEvent)
	if !ok {
		t.Fatalf("second event is %T, want QuestionEvent", events[1])
	}
	if question.QuestionNumber != 1 || question.TotalQuestions != 5 || question.QuestionText != "Why Acme?" {
		t.Fatalf("unexpected question event: %+v", question)
	}

	stored := f.store.sessions["sess-1"]
	if stored.Status != models.SessionStatusInProgress || stored.StartedAt == nil {
		t.Fatalf("session not started: status=%s startedAt=%v", stored.Status, stored.StartedAt)
	}
	turns := f.store.responses["sess-1"]
	if len(turns) != 1 || !turns[0].IsPending() {
		t.Fatalf("expected one pending turn, got %d", len(turns))
	}
}

func TestStartWithEmptyPoolFails(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusSetup, 5, models.FeedbackModeImmediate)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "No interview questions available. Run resume analysis first." {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
	assertTerminated(t, events, models.SessionStatusSetup)
	if f.store.sessions["sess-1"].Status != models.SessionStatusSetup {
		t.Fatal("failed start must leave session in setup")
	}
}

func TestStartRejectsRunningSession(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "Interview has already been started" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
}

func TestStartRollsBackWhenFirstTurnFails(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusSetup, 5, models.FeedbackModeImmediate)
	f.seedPool(
		models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium},
	)
	f.store.createResponseErr = errors.New("insert failed")

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})

	if errEvent := firstErrorEvent(events); errEvent == nil {
		t.Fatalf("expected error event, got %v", eventTypes(events))
	}
	stored := f.store.sessions["sess-1"]
	if stored.Status != models.SessionStatusSetup {
		t.Fatalf("session status after failed start = %q, want setup", stored.Status)
	}
	if stored.StartedAt != nil {
		t.Fatal("startedAt should be cleared after failed start")
	}
	if len(f.store.responses["sess-1"]) != 0 {
		t.Fatalf("responses after failed start = %d, want 0", len(f.store.responses["sess-1"]))
	}

	// The rollback makes start retryable.
	events = f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})
	assertTerminated(t, events, models.SessionStatusInProgress)
	if len(f.store.responses["sess-1"]) != 1 {
		t.Fatalf("responses after retried start = %d, want 1", len(f.store.responses["sess-1"]))
	}
}

func TestAnswerImmediateFeedbackThenNextQuestion(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPool(
		models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium},
		models.InterviewQuestion{ID: "q2", ApplicationID: "app-1", Question: "b", Category: models.CategoryTechnical, Difficulty: models.DifficultyMedium},
	)
	f.seedPendingTurn("q1", 0)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "I led the migration."})

	feedback, ok := events[0].(FeedbackEvent)
	if !ok {
		t.Fatalf("first event is %T, want FeedbackEvent", events[0])
	}
	if feedback.Score != 80 || feedback.Feedback != "Solid structure." {
		t.Fatalf("unexpected feedback event: %+v", feedback)
	}
	question, ok := events[1].(QuestionEvent)
	if !ok {
		t.Fatalf("second event is %T, want QuestionEvent", events[1])
	}
	if question.QuestionNumber != 2 || question.QuestionText != "b" {
		t.Fatalf("unexpected next question: %+v", question)
	}
	assertTerminated(t, events, models.SessionStatusInProgress)

	turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
	if turns[0].Score == nil || *turns[0].Score != 80 || turns[0].Answer == nil {
		t.Fatalf("answered turn not persisted: %+v", turns[0])
	}
	if len(turns) != 2 || !turns[1].IsPending() {
		t.Fatalf("expected a new pending turn, got %d turns", len(turns))
	}
}

func TestAnswerSummaryModeWithholdsFeedback(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeSummary)
	f.seedPool(models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium})
	f.seedPendingTurn("q1", 0)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "Answer text."})

	if _, ok := events[0].(AnswerRecordedEvent); !ok {
		t.Fatalf("first event is %T, want AnswerRecordedEvent", events[0])
	}
	for _, e := range events {
		if _, ok := e.(FeedbackEvent); ok {
			t.Fatal("summary mode must not emit per-turn feedback")
		}
	}
	turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
	if turns[0].Score == nil || *turns[0].Score != 80 {
		t.Fatal("evaluation must still be persisted in summary mode")
	}
}

func TestAnswerRequiresText(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPendingTurn("q1", 0)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "   "})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "Answer text is required" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
	if f.evaluator.calls != 0 {
		t.Fatal("evaluator must not run on empty answers")
	}
}

func TestFollowUpChainCapsAtBudget(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPool(models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium})
	root := f.seedPendingTurn("q1", 0)
	f.decider.decision = FollowUpDecision{ShouldFollowUp: true, FollowUpQuestion: "Can you elaborate?", Reason: "vague"}

	// Root answer spawns the first follow-up.
	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "First answer."})
	if _, ok := events[1].(FollowUpEvent); !ok {
		t.Fatalf("expected follow-up event, got %v", eventTypes(events))
	}
	if f.decider.calls != 1 {
		t.Fatalf("decider calls = %d, want 1", f.decider.calls)
	}

	// Answering the follow-up spawns the second, still attributed to the root.
	f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "Second answer."})
	if f.decider.calls != 2 {
		t.Fatalf("decider calls = %d, want 2", f.decider.calls)
	}

	// The budget is exhausted: the third answer must advance without ever
	// consulting the decider.
	events = f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "Third answer."})
	if f.decider.calls != 2 {
		t.Fatalf("decider consulted past the budget: calls = %d", f.decider.calls)
	}
	for _, e := range events {
		if _, ok := e.(FollowUpEvent); ok {
			t.Fatal("no follow-up may be asked past the budget")
		}
	}

	turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
	followUps := 0
	for _, turn := range turns {
		if turn.IsFollowUp {
			followUps++
			if turn.ParentResponseID == nil || *turn.ParentResponseID != root.ID {
				t.Fatalf("follow-up parent = %v, want root turn %s", turn.ParentResponseID, root.ID)
			}
			if turn.Category != models.CategoryFollowUp {
				t.Fatalf("follow-up category = %s", turn.Category)
			}
		}
	}
	if followUps != MaxFollowUpsPerQuestion {
		t.Fatalf("follow-up count = %d, want %d", followUps, MaxFollowUpsPerQuestion)
	}
}

func TestSkipNeverConsultsDecider(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPool(
		models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium},
		models.InterviewQuestion{ID: "q2", ApplicationID: "app-1", Question: "b", Category: models.CategoryTechnical, Difficulty: models.DifficultyMedium},
	)
	f.seedPendingTurn("q1", 0)
	f.decider.decision = FollowUpDecision{ShouldFollowUp: true, FollowUpQuestion: "More?"}

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionSkip})

	if _, ok := events[0].(QuestionSkippedEvent); !ok {
		t.Fatalf("first event is %T, want QuestionSkippedEvent", events[0])
	}
	if f.decider.calls != 0 || f.evaluator.calls != 0 {
		t.Fatal("skip must not reach the AI collaborators")
	}

	turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
	skipped := turns[0]
	if !skipped.IsSkipped() || skipped.Score == nil || *skipped.Score != 0 {
		t.Fatalf("skip sentinel not recorded: %+v", skipped)
	}
	if len(turns) != 2 || !turns[1].IsPending() {
		t.Fatal("skip must advance to the next question")
	}
}

func TestReachingTargetCountEmitsInterviewComplete(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 1, models.FeedbackModeImmediate)
	f.seedPool(models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium})
	f.seedPendingTurn("q1", 0)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "Done."})

	var complete *InterviewCompleteEvent
	for _, e := range events {
		if ev, ok := e.(InterviewCompleteEvent); ok {
			complete = &ev
		}
	}
	if complete == nil || complete.AnsweredCount != 1 {
		t.Fatalf("expected interview_complete with answeredCount 1, got %v", eventTypes(events))
	}
	if f.store.sessions["sess-1"].Status != models.SessionStatusInProgress {
		t.Fatal("reaching the target must not complete the session without end")
	}
}

func TestExhaustedPoolEmitsInterviewComplete(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPool(models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium})
	f.seedPendingTurn("q1", 0)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "Only question."})

	var complete *InterviewCompleteEvent
	for _, e := range events {
		if ev, ok := e.(InterviewCompleteEvent); ok {
			complete = &ev
		}
	}
	if complete == nil || complete.Message != "No more questions match your session settings." {
		t.Fatalf("expected pool-exhausted interview_complete, got %v", eventTypes(events))
	}
}

func TestEndWithNoAnswersCompletesWithZeroScore(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPendingTurn("q1", 0)
	f.store.metrics["app-1"] = &models.InterviewMetrics{ID: "m-1", ApplicationID: "app-1"}

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionEnd})

	assertTerminated(t, events, models.SessionStatusCompleted)
	var summary *SummaryEvent
	for _, e := range events {
		if ev, ok := e.(SummaryEvent); ok {
			summary = &ev
		}
	}
	if summary == nil || summary.OverallScore != 0 {
		t.Fatalf("expected degenerate summary, got %v", eventTypes(events))
	}
	if summary.SummaryFeedback != "No questions were answered in this session." {
		t.Fatalf("unexpected summary feedback: %q", summary.SummaryFeedback)
	}
	for _, category := range models.PoolCategories {
		if score, ok := summary.CategoryScores[category]; !ok || score != nil {
			t.Fatalf("category %s should be present and nil", category)
		}
	}
	if f.summarizer.calls != 0 {
		t.Fatal("summarizer must not run for a session with no answers")
	}
	if f.store.metricsUpdates != 0 {
		t.Fatal("metrics must not count a session with no answers")
	}
	stored := f.store.sessions["sess-1"]
	if stored.Status != models.SessionStatusCompleted || stored.OverallScore == nil || *stored.OverallScore != 0 {
		t.Fatalf("session not completed with zero score: %+v", stored)
	}
}

func TestEndGeneratesSummaryAndUpdatesMetrics(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.store.metrics["app-1"] = &models.InterviewMetrics{ID: "m-1", ApplicationID: "app-1", TotalSessions: 1}

	answer := "Answered."
	score := 75.0
	f.store.responses["sess-1"] = []*models.InterviewResponse{{
		ID: "t1", SessionID: "sess-1", OrderIndex: 0,
		QuestionText: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyMedium,
		Answer: &answer, Score: &score,
	}}

	behavioral := 75.0
	f.summarizer.summary = SessionSummary{
		OverallScore:     75,
		SummaryFeedback:  "Good session overall.",
		StrengthAreas:    []string{"communication"},
		ImprovementAreas: []string{"depth"},
		CategoryScores:   map[string]*float64{models.CategoryBehavioral: &behavioral},
		Recommendations:  []string{"Practice technical questions."},
	}

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionEnd})

	assertTerminated(t, events, models.SessionStatusCompleted)
	if f.summarizer.calls != 1 {
		t.Fatalf("summarizer calls = %d, want 1", f.summarizer.calls)
	}

	var summary *SummaryEvent
	for _, e := range events {
		if ev, ok := e.(SummaryEvent); ok {
			summary = &ev
		}
	}
	if summary == nil || summary.OverallScore != 75 || summary.SummaryFeedback != "Good session overall." {
		t.Fatalf("unexpected summary event: %+v", summary)
	}

	stored := f.store.sessions["sess-1"]
	if stored.OverallScore == nil || *stored.OverallScore != 75 || stored.CompletedAt == nil {
		t.Fatalf("summary not persisted on session: %+v", stored)
	}

	metrics := f.store.metrics["app-1"]
	if metrics.CompletedSessions != 1 || metrics.AverageScore != 75 {
		t.Fatalf("metrics not applied: %+v", metrics)
	}
	if metrics.BehavioralAvg == nil || *metrics.BehavioralAvg != 75 {
		t.Fatalf("behavioral average not recorded: %+v", metrics.BehavioralAvg)
	}
}

func TestEvaluatorFailureLeavesTurnPending(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)
	f.seedPendingTurn("q1", 0)
	f.evaluator.err = errors.New("model unavailable")

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "An answer."})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "model unavailable" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
	assertTerminated(t, events, models.SessionStatusInProgress)

	turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
	if len(turns) != 1 || !turns[0].IsPending() {
		t.Fatal("failed evaluation must leave the turn pending and unmodified")
	}
}

func TestUnknownSessionEmitsError(t *testing.T) {
	f := newEngineFixture(t)

	events := f.run(t, ActionRequest{SessionID: "missing", Action: ActionStart})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "Interview session not found" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
	assertTerminated(t, events, "")
}

func TestUnknownActionEmitsError(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusInProgress, 5, models.FeedbackModeImmediate)

	events := f.run(t, ActionRequest{SessionID: "sess-1", Action: "dance"})

	errEvent := firstErrorEvent(events)
	if errEvent == nil || errEvent.Error != "Unknown action: dance" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}
}

func TestSessionNeverHoldsTwoPendingTurns(t *testing.T) {
	f := newEngineFixture(t)
	f.seedSession(models.SessionStatusSetup, 3, models.FeedbackModeImmediate)
	f.seedPool(
		models.InterviewQuestion{ID: "q1", ApplicationID: "app-1", Question: "a", Category: models.CategoryBehavioral, Difficulty: models.DifficultyEasy},
		models.InterviewQuestion{ID: "q2", ApplicationID: "app-1", Question: "b", Category: models.CategoryTechnical, Difficulty: models.DifficultyMedium},
		models.InterviewQuestion{ID: "q3", ApplicationID: "app-1", Question: "c", Category: models.CategorySituational, Difficulty: models.DifficultyHard},
	)

	checkPending := func(step string) {
		t.Helper()
		turns, _ := f.store.GetInterviewResponses(context.Background(), "sess-1")
		pending := 0
		for i := range turns {
			if turns[i].IsPending() {
				pending++
			}
		}
		if pending > 1 {
			t.Fatalf("after %s: %d pending turns", step, pending)
		}
	}

	f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionStart})
	checkPending("start")
	f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionAnswer, UserAnswer: "one"})
	checkPending("answer")
	f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionSkip})
	checkPending("skip")
	f.run(t, ActionRequest{SessionID: "sess-1", Action: ActionEnd})
	checkPending("end")
}
