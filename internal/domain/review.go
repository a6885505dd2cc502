package domain

import "time"

// ReviewRecord holds the answer history of one question.
// A nil NextReview means the question is due immediately.
type ReviewRecord struct {
	QuestionID         int64      `json:"question_id"`
	LastReviewed       *time.Time `json:"last_reviewed,omitempty"`
	NextReview         *time.Time `json:"next_review,omitempty"`
	CorrectCount       int        `json:"correct_count"`
	IncorrectCount     int        `json:"incorrect_count"`
	ConsecutiveCorrect int        `json:"consecutive_correct"`
}

// Attempts is the number of answers recorded for the question.
func (r ReviewRecord) Attempts() int {
	return r.CorrectCount + r.IncorrectCount
}

// DueAt reports whether the record is due for review at now.
func (r ReviewRecord) DueAt(now time.Time) bool {
	return r.NextReview == nil || !r.NextReview.After(now)
}

// ReviewState pairs a question id with its record, nil if it was never answered.
type ReviewState struct {
	QuestionID int64
	Record     *ReviewRecord
}
