package interview

import (
	"math/rand"
	"sort"
	"time"

	"github.com/avashista/jobquest/backend/models"
)

// CategoryPerformance is the running score total for one category within a
// session, rebuilt from the session's turns on each selection decision.
type CategoryPerformance struct {
	TotalScore float64
	Count      int
}

// Mean returns the category's average score. Only meaningful when Count > 0.
func (p CategoryPerformance) Mean() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.TotalScore / float64(p.Count)
}

// SelectorSettings narrows the candidate pool. Categories is a hard filter
// when non-empty; Difficulty is a soft preference unless set to "mixed".
type SelectorSettings struct {
	Categories []string
	Difficulty string
}

// Selector picks the next question from the pool, biased toward the
// candidate's weakest performing category. The random source is injectable
// so tests can pin the tie-breaking.
type Selector struct {
	rng *rand.Rand
}

// NewSelector returns a selector using the given random source, or a
// time-seeded one when rng is nil.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// SelectNext narrows the pool and picks the next question, or returns nil
// when no candidate survives the hard filters.
//
// Filtering order: answered questions are dropped, then the category
// allowlist is applied, then the difficulty preference. If the difficulty
// filter empties the candidate set it is silently reverted; difficulty is a
// preference, category a requirement. Among the survivors, the first
// category (walking worst-performing upward) that still has a candidate wins
// and one of its questions is picked uniformly at random. Without any
// performance data the pick is uniform over all candidates.
func (s *Selector) SelectNext(
	pool []models.InterviewQuestion,
	answeredIDs map[string]bool,
	perf map[string]CategoryPerformance,
	settings SelectorSettings,
) *models.InterviewQuestion {
	candidates := make([]models.InterviewQuestion, 0, len(pool))
	for _, q := range pool {
		if !answeredIDs[q.ID] {
			candidates = append(candidates, q)
		}
	}

	if len(settings.Categories) > 0 {
		allowed := make(map[string]bool, len(settings.Categories))
		for _, c := range settings.Categories {
			allowed[c] = true
		}
		filtered := candidates[:0]
		for _, q := range candidates {
			if allowed[q.Category] {
				filtered = append(filtered, q)
			}
		}
		candidates = filtered
	}

	if settings.Difficulty != "" && settings.Difficulty != models.DifficultyMixed {
		byDifficulty := make([]models.InterviewQuestion, 0, len(candidates))
		for _, q := range candidates {
			if q.Difficulty == settings.Difficulty {
				byDifficulty = append(byDifficulty, q)
			}
		}
		if len(byDifficulty) > 0 {
			candidates = byDifficulty
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Walk categories from worst mean score upward and take the first one
	// that still has a candidate question.
	type categoryMean struct {
		category string
		mean     float64
	}
	means := make([]categoryMean, 0, len(perf))
	for category, p := range perf {
		if p.Count > 0 {
			means = append(means, categoryMean{category: category, mean: p.Mean()})
		}
	}
	sort.Slice(means, func(i, j int) bool {
		if means[i].mean != means[j].mean {
			return means[i].mean < means[j].mean
		}
		return means[i].category < means[j].category
	})

	for _, cm := range means {
		var inCategory []models.InterviewQuestion
		for _, q := range candidates {
			if q.Category == cm.category {
				inCategory = append(inCategory, q)
			}
		}
		if len(inCategory) > 0 {
			pick := inCategory[s.rng.Intn(len(inCategory))]
			return &pick
		}
	}

	// No performance data yet, or no candidate matches a weak category.
	pick := candidates[s.rng.Intn(len(candidates))]
	return &pick
}
