package interview

import (
	"context"
	"time"

	"github.com/avashista/jobquest/backend/models"
)

// ApplyCompletedSession folds a just-completed session into the job
// application's long-running metrics profile. It is a no-op when no profile
// row exists for the application.
//
// The overall average is a weighted incremental mean over completed
// sessions. Per-category averages use last-observed-value semantics: a
// category's stored value is only overwritten when the session produced a
// score for it. Strongest/weakest labels are recomputed from this session's
// non-nil category scores alone, and kept untouched when the session has
// none.
func ApplyCompletedSession(ctx context.Context, store Store, applicationID string, overallScore float64, categoryScores map[string]*float64, now time.Time) error {
	metrics, err := store.GetInterviewMetrics(ctx, applicationID)
	if err != nil {
		return err
	}
	if metrics == nil {
		return nil
	}

	metrics.CompletedSessions++
	n := float64(metrics.CompletedSessions)
	metrics.AverageScore = (metrics.AverageScore*(n-1) + overallScore) / n

	history := append(metrics.History(), models.ScorePoint{Timestamp: now, Score: overallScore})
	if err := metrics.SetHistory(history); err != nil {
		return err
	}

	var strongest, weakest string
	var highest, lowest float64
	seen := false
	for _, category := range models.PoolCategories {
		score, ok := categoryScores[category]
		if !ok || score == nil {
			continue
		}
		if slot := metrics.CategoryAvg(category); slot != nil {
			value := *score
			*slot = &value
		}
		if !seen || *score > highest {
			strongest, highest = category, *score
		}
		if !seen || *score < lowest {
			weakest, lowest = category, *score
		}
		seen = true
	}
	if seen {
		metrics.StrongestCategory = strongest
		metrics.WeakestCategory = weakest
	}

	return store.UpdateInterviewMetrics(ctx, metrics)
}
