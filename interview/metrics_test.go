package interview

import (
	"context"
	"testing"
	"time"

	"github.com/avashista/jobquest/backend/models"
	"gorm.io/datatypes"
)

func metricsNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestApplyCompletedSessionIncrementalMean(t *testing.T) {
	store := newFakeStore()
	store.metrics["app-1"] = &models.InterviewMetrics{
		ID:                "m-1",
		ApplicationID:     "app-1",
		CompletedSessions: 3,
		AverageScore:      70,
	}

	err := ApplyCompletedSession(context.Background(), store, "app-1", 90, nil, metricsNow())
	if err != nil {
		t.Fatalf("ApplyCompletedSession: %v", err)
	}

	metrics := store.metrics["app-1"]
	if metrics.CompletedSessions != 4 {
		t.Fatalf("completed sessions = %d, want 4", metrics.CompletedSessions)
	}
	if metrics.AverageScore != 75 {
		t.Fatalf("average score = %v, want 75", metrics.AverageScore)
	}
}

func TestApplyCompletedSessionAppendsScoreHistory(t *testing.T) {
	store := newFakeStore()
	store.metrics["app-1"] = &models.InterviewMetrics{ID: "m-1", ApplicationID: "app-1"}

	if err := ApplyCompletedSession(context.Background(), store, "app-1", 60, nil, metricsNow()); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	later := metricsNow().Add(24 * time.Hour)
	if err := ApplyCompletedSession(context.Background(), store, "app-1", 80, nil, later); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	history := store.metrics["app-1"].History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Score != 60 || history[1].Score != 80 {
		t.Fatalf("history scores = %v, %v", history[0].Score, history[1].Score)
	}
	if !history[1].Timestamp.Equal(later) {
		t.Fatalf("history timestamp = %v, want %v", history[1].Timestamp, later)
	}
}

func TestApplyCompletedSessionLastObservedCategoryValue(t *testing.T) {
	behavioral := 85.0
	store := newFakeStore()
	store.metrics["app-1"] = &models.InterviewMetrics{
		ID:            "m-1",
		ApplicationID: "app-1",
		BehavioralAvg: &behavioral,
	}

	// The session scores only the technical category; behavioral keeps its
	// previously observed value.
	technical := 55.0
	scores := map[string]*float64{
		models.CategoryTechnical:  &technical,
		models.CategoryBehavioral: nil,
	}
	if err := ApplyCompletedSession(context.Background(), store, "app-1", 55, scores, metricsNow()); err != nil {
		t.Fatalf("ApplyCompletedSession: %v", err)
	}

	metrics := store.metrics["app-1"]
	if metrics.BehavioralAvg == nil || *metrics.BehavioralAvg != 85 {
		t.Fatalf("behavioral average overwritten: %v", metrics.BehavioralAvg)
	}
	if metrics.TechnicalAvg == nil || *metrics.TechnicalAvg != 55 {
		t.Fatalf("technical average = %v, want 55", metrics.TechnicalAvg)
	}

	// A later session overwrites, it does not average.
	technical = 95.0
	if err := ApplyCompletedSession(context.Background(), store, "app-1", 95, scores, metricsNow()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if *store.metrics["app-1"].TechnicalAvg != 95 {
		t.Fatalf("technical average = %v, want 95", *store.metrics["app-1"].TechnicalAvg)
	}
}

func TestApplyCompletedSessionStrongestWeakestLabels(t *testing.T) {
	behavioral, technical, situational := 80.0, 40.0, 60.0
	scores := map[string]*float64{
		models.CategoryBehavioral:  &behavioral,
		models.CategoryTechnical:   &technical,
		models.CategorySituational: &situational,
	}

	store := newFakeStore()
	store.metrics["app-1"] = &models.InterviewMetrics{
		ID:                "m-1",
		ApplicationID:     "app-1",
		StrongestCategory: models.CategoryRoleSpecific,
		WeakestCategory:   models.CategoryCompanySpecific,
	}

	if err := ApplyCompletedSession(context.Background(), store, "app-1", 60, scores, metricsNow()); err != nil {
		t.Fatalf("ApplyCompletedSession: %v", err)
	}

	metrics := store.metrics["app-1"]
	if metrics.StrongestCategory != models.CategoryBehavioral {
		t.Fatalf("strongest = %s, want behavioral", metrics.StrongestCategory)
	}
	if metrics.WeakestCategory != models.CategoryTechnical {
		t.Fatalf("weakest = %s, want technical", metrics.WeakestCategory)
	}
}

func TestApplyCompletedSessionKeepsLabelsWithoutCategoryData(t *testing.T) {
	store := newFakeStore()
	store.metrics["app-1"] = &models.InterviewMetrics{
		ID:                "m-1",
		ApplicationID:     "app-1",
		StrongestCategory: models.CategoryBehavioral,
		WeakestCategory:   models.CategoryTechnical,
	}

	scores := map[string]*float64{models.CategoryBehavioral: nil}
	if err := ApplyCompletedSession(context.Background(), store, "app-1", 50, scores, metricsNow()); err != nil {
		t.Fatalf("ApplyCompletedSession: %v", err)
	}

	metrics := store.metrics["app-1"]
	if metrics.StrongestCategory != models.CategoryBehavioral || metrics.WeakestCategory != models.CategoryTechnical {
		t.Fatalf("labels changed without category data: %s / %s", metrics.StrongestCategory, metrics.WeakestCategory)
	}
}

func TestApplyCompletedSessionWithoutProfileIsNoOp(t *testing.T) {
	store := newFakeStore()

	if err := ApplyCompletedSession(context.Background(), store, "app-x", 88, nil, metricsNow()); err != nil {
		t.Fatalf("ApplyCompletedSession: %v", err)
	}
	if store.metricsUpdates != 0 {
		t.Fatal("no-profile apply must not write metrics")
	}
}

func TestHistoryToleratesMalformedColumn(t *testing.T) {
	metrics := &models.InterviewMetrics{ScoreHistory: datatypes.JSON([]byte("not json"))}
	if got := metrics.History(); got != nil {
		t.Fatalf("malformed history should decode to nil, got %v", got)
	}
}
