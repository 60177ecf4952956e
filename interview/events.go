// Package interview implements the mock-interview session engine: the
// action-driven state machine that walks a session through its turns, the
// performance-biased question selector, and the cross-session metrics
// aggregator. The package is free of HTTP and database concerns; transports
// drive it through HandleAction and persistence is reached through the Store
// interface.
package interview

// Action names accepted by the engine.
const (
	ActionStart  = "start"
	ActionAnswer = "answer"
	ActionSkip   = "skip"
	ActionEnd    = "end"
)

// ActionRequest is one client request against a session. UserAnswer is
// required and non-empty for the answer action only.
type ActionRequest struct {
	SessionID  string `json:"sessionId"`
	Action     string `json:"action"`
	UserAnswer string `json:"userAnswer,omitempty"`
}

// Event is one entry in an action's response stream. Every concrete event
// carries a "type" discriminator in its JSON form.
type Event interface {
	EventType() string
}

// EventSink receives the events of one action in causal order. A sink error
// aborts further emission for the current action.
type EventSink func(Event) error

// Event type discriminators.
const (
	EventTypeStatus            = "status"
	EventTypeQuestion          = "question"
	EventTypeFollowUp          = "follow_up"
	EventTypeFeedback          = "feedback"
	EventTypeAnswerRecorded    = "answer_recorded"
	EventTypeQuestionSkipped   = "question_skipped"
	EventTypeInterviewComplete = "interview_complete"
	EventTypeSummary           = "summary"
	EventTypeError             = "error"
	EventTypeComplete          = "complete"
	EventTypeDone              = "done"
)

type StatusEvent struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (StatusEvent) EventType() string { return EventTypeStatus }

type QuestionEvent struct {
	Type           string `json:"type"`
	QuestionNumber int    `json:"questionNumber"`
	TotalQuestions int    `json:"totalQuestions"`
	QuestionText   string `json:"questionText"`
	Category       string `json:"category"`
	Difficulty     string `json:"difficulty"`
}

func (QuestionEvent) EventType() string { return EventTypeQuestion }

type FollowUpEvent struct {
	Type           string `json:"type"`
	QuestionText   string `json:"questionText"`
	Reason         string `json:"reason"`
	QuestionNumber int    `json:"questionNumber"`
	TotalQuestions int    `json:"totalQuestions"`
}

func (FollowUpEvent) EventType() string { return EventTypeFollowUp }

type FeedbackEvent struct {
	Type                 string        `json:"type"`
	Score                float64       `json:"score"`
	Feedback             string        `json:"feedback"`
	SuggestedImprovement string        `json:"suggestedImprovement"`
	KeyPointsCovered     []string      `json:"keyPointsCovered"`
	KeyPointsMissed      []string      `json:"keyPointsMissed"`
	STARAnalysis         *STARAnalysis `json:"starAnalysis,omitempty"`
}

func (FeedbackEvent) EventType() string { return EventTypeFeedback }

type AnswerRecordedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (AnswerRecordedEvent) EventType() string { return EventTypeAnswerRecorded }

type QuestionSkippedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (QuestionSkippedEvent) EventType() string { return EventTypeQuestionSkipped }

type InterviewCompleteEvent struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	AnsweredCount int    `json:"answeredCount"`
}

func (InterviewCompleteEvent) EventType() string { return EventTypeInterviewComplete }

type SummaryEvent struct {
	Type             string              `json:"type"`
	OverallScore     float64             `json:"overallScore"`
	SummaryFeedback  string              `json:"summaryFeedback"`
	StrengthAreas    []string            `json:"strengthAreas"`
	ImprovementAreas []string            `json:"improvementAreas"`
	CategoryScores   map[string]*float64 `json:"categoryScores"`
	Recommendations  []string            `json:"recommendations"`
}

func (SummaryEvent) EventType() string { return EventTypeSummary }

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ErrorEvent) EventType() string { return EventTypeError }

// CompleteEvent terminates every action stream, followed by DoneEvent.
type CompleteEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

func (CompleteEvent) EventType() string { return EventTypeComplete }

type DoneEvent struct {
	Type string `json:"type"`
}

func (DoneEvent) EventType() string { return EventTypeDone }
