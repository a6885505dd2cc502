// Package quiz serves questions and records answers.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/examdeck/internal/domain"
	"github.com/conorfennell/examdeck/internal/review"
)

var (
	// ErrNoQuestion means nothing is due, or the store is empty.
	ErrNoQuestion = errors.New("quiz: no question available")
	// ErrQuestionNotFound means the requested id does not exist.
	ErrQuestionNotFound = errors.New("quiz: question not found")
	// ErrInvalidChoice means the submitted letter is not one of the question's options.
	ErrInvalidChoice = errors.New("quiz: choice is not one of the options")
)

// Mode selects how the next question is chosen.
type Mode string

const (
	// Due prefers never-answered questions, then ones whose review is due.
	Due Mode = "due"
	// Random ignores review state.
	Random Mode = "random"
)

// Store is the progress store the service reads and updates.
type Store interface {
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)
	ListQuestionIDs(ctx context.Context) ([]int64, error)
	ListReviewStates(ctx context.Context) ([]domain.ReviewState, error)
	UpdateRecord(ctx context.Context, id int64, fn func(domain.ReviewRecord) domain.ReviewRecord) (domain.ReviewRecord, error)
}

// Result is the feedback for a submitted answer.
type Result struct {
	QuestionID    int64               `json:"question_id"`
	Choice        string              `json:"choice"`
	Correct       bool                `json:"correct"`
	CorrectAnswer string              `json:"correct_answer"`
	CorrectText   string              `json:"correct_text"`
	Explanation   string              `json:"explanation"`
	Record        domain.ReviewRecord `json:"record"`
}

// Progress summarizes the answer history of the stored questions.
type Progress struct {
	Total     int `json:"total"`
	Reviewed  int `json:"reviewed"`
	Due       int `json:"due"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// Service ties the progress store to the review scheduler.
type Service struct {
	store     Store
	scheduler *review.Scheduler
	now       func() time.Time
}

// NewService returns a Service. now defaults to time.Now.
func NewService(store Store, scheduler *review.Scheduler, now func() time.Time) *Service {
	if scheduler == nil {
		scheduler = review.NewScheduler(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, scheduler: scheduler, now: now}
}

// Next returns the question to present, chosen according to mode.
func (s *Service) Next(ctx context.Context, mode Mode) (*domain.Question, error) {
	var (
		id int64
		ok bool
	)
	switch mode {
	case Random:
		ids, err := s.store.ListQuestionIDs(ctx)
		if err != nil {
			return nil, err
		}
		id, ok = s.scheduler.SelectRandom(ids)
	case Due, "":
		states, err := s.store.ListReviewStates(ctx)
		if err != nil {
			return nil, err
		}
		id, ok = s.scheduler.SelectNext(states, s.now())
	default:
		return nil, fmt.Errorf("unknown selection mode %q", mode)
	}
	if !ok {
		return nil, ErrNoQuestion
	}
	return s.Question(ctx, id)
}

// Question returns a stored question by id.
func (s *Service) Question(ctx context.Context, id int64) (*domain.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
	}
	return q, nil
}

// Submit checks choice against the stored answer, records the outcome and
// schedules the next review.
func (s *Service) Submit(ctx context.Context, id int64, choice string) (Result, error) {
	q, err := s.Question(ctx, id)
	if err != nil {
		return Result{}, err
	}

	choice = strings.ToUpper(strings.TrimSpace(choice))
	if !q.Options.Has(choice) {
		return Result{}, fmt.Errorf("%w: %q not in %v", ErrInvalidChoice, choice, q.Options.Keys())
	}

	correct := choice == q.CorrectAnswer
	now := s.now()
	rec, err := s.store.UpdateRecord(ctx, id, func(r domain.ReviewRecord) domain.ReviewRecord {
		return review.Apply(r, correct, now)
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to record answer for question %d: %w", id, err)
	}

	text, _ := q.Options.Get(q.CorrectAnswer)
	return Result{
		QuestionID:    id,
		Choice:        choice,
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		CorrectText:   text,
		Explanation:   q.Explanation,
		Record:        rec,
	}, nil
}

// Progress counts stored questions and their review state.
func (s *Service) Progress(ctx context.Context) (Progress, error) {
	states, err := s.store.ListReviewStates(ctx)
	if err != nil {
		return Progress{}, err
	}

	now := s.now()
	p := Progress{Total: len(states)}
	for _, st := range states {
		if st.Record == nil {
			p.Due++
			continue
		}
		p.Reviewed++
		p.Correct += st.Record.CorrectCount
		p.Incorrect += st.Record.IncorrectCount
		if st.Record.DueAt(now) {
			p.Due++
		}
	}
	return p, nil
}
