// Package review schedules question reviews. Each correct answer in a row
// doubles the interval up to a cap; a wrong answer brings the question back
// the next day.
package review

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/conorfennell/examdeck/internal/domain"
)

const (
	// MaxIntervalDays caps the delay after a run of correct answers.
	MaxIntervalDays = 30

	day = 24 * time.Hour
)

// NextDelay returns how long to wait before the question is due again.
// streak is the consecutive-correct count after the answer was applied.
func NextDelay(wasCorrect bool, streak int) time.Duration {
	if !wasCorrect {
		return day
	}
	if streak < 0 {
		streak = 0
	}
	days := MaxIntervalDays
	// 2^5 already exceeds the cap, so larger shifts are never computed.
	if streak < 5 {
		days = min(int(1)<<streak, MaxIntervalDays)
	}
	return time.Duration(days) * day
}

// Apply records one answer on rec and schedules the next review from now.
func Apply(rec domain.ReviewRecord, correct bool, now time.Time) domain.ReviewRecord {
	if correct {
		rec.CorrectCount++
		rec.ConsecutiveCorrect++
	} else {
		rec.IncorrectCount++
		rec.ConsecutiveCorrect = 0
	}

	reviewed := now
	next := now.Add(NextDelay(correct, rec.ConsecutiveCorrect))
	rec.LastReviewed = &reviewed
	rec.NextReview = &next
	return rec
}

// Scheduler picks the next question to present. It is safe for concurrent use.
type Scheduler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduler returns a Scheduler drawing from rng. A nil rng uses a
// randomly seeded source.
func NewScheduler(rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{rng: rng}
}

// SelectNext picks a due question. Questions that were never answered are
// always preferred over ones that are due again; within each group the pick
// is uniform. It returns false when nothing is due.
func (s *Scheduler) SelectNext(states []domain.ReviewState, now time.Time) (int64, bool) {
	var fresh, due []int64
	for _, st := range states {
		switch {
		case st.Record == nil:
			fresh = append(fresh, st.QuestionID)
		case st.Record.DueAt(now):
			due = append(due, st.QuestionID)
		}
	}

	if len(fresh) > 0 {
		return s.pick(fresh)
	}
	return s.pick(due)
}

// SelectRandom picks uniformly among ids, ignoring review state.
func (s *Scheduler) SelectRandom(ids []int64) (int64, bool) {
	return s.pick(ids)
}

func (s *Scheduler) pick(ids []int64) (int64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ids[s.rng.IntN(len(ids))], true
}
