package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/examdeck/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Initialize(context.Background()))
	return db
}

func sampleQuestion(n int) domain.Question {
	return domain.Question{
		Number: n,
		Text:   "Which control protects data at rest?",
		Options: domain.Options{
			{Key: "D", Text: "Full disk encryption"},
			{Key: "A", Text: "Firewall"},
			{Key: "C", Text: "Antivirus"},
		},
		CorrectAnswer: "D",
		Explanation:   "Encryption protects stolen disks.",
		Hash:          "abc123",
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Initialize(context.Background()))
}

func TestQuestionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	q := sampleQuestion(4)
	id, err := db.InsertQuestion(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := db.GetQuestion(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	q.ID = id
	assert.Equal(t, q, *got)
	assert.Equal(t, []string{"D", "A", "C"}, got.Options.Keys())

	missing, err := db.GetQuestion(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertRejectsInvalidQuestion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	q := sampleQuestion(1)
	q.CorrectAnswer = "B"
	_, err := db.InsertQuestion(ctx, q)
	assert.Error(t, err)

	q = sampleQuestion(1)
	q.Text = ""
	_, err = db.InsertQuestion(ctx, q)
	assert.Error(t, err)

	n, err := db.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClearAllRestartsIDs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i := 1; i <= 3; i++ {
		_, err := db.InsertQuestion(ctx, sampleQuestion(i))
		require.NoError(t, err)
	}
	require.NoError(t, db.UpsertRecord(ctx, 2, domain.ReviewRecord{CorrectCount: 1}))

	require.NoError(t, db.ClearAll(ctx))

	n, err := db.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec, err := db.GetRecord(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, rec)

	id, err := db.InsertQuestion(ctx, sampleQuestion(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestReplaceQuestionsRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.InsertQuestion(ctx, sampleQuestion(1))
	require.NoError(t, err)

	bad := sampleQuestion(2)
	bad.Options = nil
	_, err = db.ReplaceQuestions(ctx, []domain.Question{sampleQuestion(5), bad})
	require.Error(t, err)

	// The clear was rolled back together with the failed insert.
	ids, err := db.ListQuestionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	ids, err = db.ReplaceQuestions(ctx, []domain.Question{sampleQuestion(5), sampleQuestion(6)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	got, err := db.GetQuestion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Number)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.InsertQuestion(ctx, sampleQuestion(1))
	require.NoError(t, err)

	rec, err := db.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	reviewed := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	next := reviewed.Add(48 * time.Hour)
	require.NoError(t, db.UpsertRecord(ctx, id, domain.ReviewRecord{
		LastReviewed:       &reviewed,
		NextReview:         &next,
		CorrectCount:       3,
		IncorrectCount:     1,
		ConsecutiveCorrect: 1,
	}))

	rec, err = db.GetRecord(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.QuestionID)
	assert.True(t, reviewed.Equal(*rec.LastReviewed))
	assert.True(t, next.Equal(*rec.NextReview))
	assert.Equal(t, 3, rec.CorrectCount)
	assert.Equal(t, 1, rec.IncorrectCount)

	// Full replace: cleared timestamps are stored as NULL.
	require.NoError(t, db.UpsertRecord(ctx, id, domain.ReviewRecord{CorrectCount: 4}))
	rec, err = db.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec.NextReview)
	assert.Equal(t, 4, rec.CorrectCount)

	err = db.UpsertRecord(ctx, 42, domain.ReviewRecord{})
	assert.True(t, errors.Is(err, ErrQuestionNotFound), "got %v", err)
}

func TestUpdateRecordSerializesAnswers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.InsertQuestion(ctx, sampleQuestion(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.UpdateRecord(ctx, id, func(r domain.ReviewRecord) domain.ReviewRecord {
				r.CorrectCount++
				return r
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := db.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 20, rec.CorrectCount)
}

func TestListReviewStates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i := 1; i <= 3; i++ {
		_, err := db.InsertQuestion(ctx, sampleQuestion(i))
		require.NoError(t, err)
	}
	next := time.Now().Add(time.Hour)
	require.NoError(t, db.UpsertRecord(ctx, 2, domain.ReviewRecord{NextReview: &next, IncorrectCount: 2}))

	states, err := db.ListReviewStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)

	assert.Nil(t, states[0].Record)
	require.NotNil(t, states[1].Record)
	assert.Equal(t, int64(2), states[1].Record.QuestionID)
	assert.Equal(t, 2, states[1].Record.IncorrectCount)
	assert.Nil(t, states[1].Record.LastReviewed)
	assert.Nil(t, states[2].Record)
}

func TestIsForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.q.ExecContext(ctx, `INSERT INTO review_records (question_id) VALUES (7)`)
	require.Error(t, err)
	assert.True(t, isForeignKeyViolation(err), "got %v", err)

	insert := `INSERT INTO questions (id, question, options, correct_answer) VALUES (1, 'q', '[]', 'A')`
	_, err = db.q.ExecContext(ctx, insert)
	require.NoError(t, err)
	_, err = db.q.ExecContext(ctx, insert)
	require.Error(t, err)
	assert.False(t, isForeignKeyViolation(err), "a primary key clash is not a missing question: %v", err)

	assert.False(t, isForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, isForeignKeyViolation(nil))
}
