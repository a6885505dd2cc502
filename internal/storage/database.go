package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/examdeck/internal/domain"
	"modernc.org/sqlite" // Registers the sqlite driver
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrQuestionNotFound is returned when a record is written for a question that does not exist.
var ErrQuestionNotFound = errors.New("storage: question not found")

const dsnParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB represents a wrapper around the SQL database connection.
// A DB handed out by WithTx runs every call inside that transaction.
type DB struct {
	conn *sql.DB
	q    querier
	inTx bool
}

// Open creates a new database connection. The schema is not touched until
// Initialize is called.
func Open(path string) (*DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	db, err := sql.Open("sqlite", path+sep+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; this also keeps in-memory databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{conn: db, q: db}, nil
}

// Initialize creates the tables if they don't exist. It is safe to call more than once.
func (db *DB) Initialize(ctx context.Context) error {
	if _, err := db.q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithTx runs fn inside a single transaction. fn must only use the DB it is given.
// Nested calls join the outer transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx *DB) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&DB{conn: db.conn, q: tx, inTx: true}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertQuestion validates and stores q, returning its new id.
func (db *DB) InsertQuestion(ctx context.Context, q domain.Question) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("failed to encode options for question %d: %w", q.Number, err)
	}

	res, err := db.q.ExecContext(ctx, `
		INSERT INTO questions (number, question, options, correct_answer, explanation, hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		q.Number,
		q.Text,
		string(options),
		q.CorrectAnswer,
		q.Explanation,
		q.Hash,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert question %d: %w", q.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for question %d: %w", q.Number, err)
	}
	return id, nil
}

// GetQuestion retrieves a question by id. It returns nil if there is none.
func (db *DB) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	var q domain.Question
	var options string
	row := db.q.QueryRowContext(ctx, `
		SELECT id, number, question, options, correct_answer, explanation, hash
		FROM questions WHERE id = ?
	`, id)

	err := row.Scan(
		&q.ID,
		&q.Number,
		&q.Text,
		&options,
		&q.CorrectAnswer,
		&q.Explanation,
		&q.Hash,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Question not found
		}
		return nil, fmt.Errorf("failed to find question %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options for question %d: %w", id, err)
	}
	return &q, nil
}

// CountQuestions returns the number of stored questions.
func (db *DB) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := db.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// ListQuestionIDs returns every question id in ascending order.
func (db *DB) ListQuestionIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT id FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list question ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearAll removes every question and review record.
func (db *DB) ClearAll(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *DB) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM review_records`); err != nil {
			return fmt.Errorf("failed to clear review records: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("failed to clear questions: %w", err)
		}
		return nil
	})
}

// ReplaceQuestions clears the store and inserts questions in one transaction.
// On error nothing changes.
func (db *DB) ReplaceQuestions(ctx context.Context, questions []domain.Question) ([]int64, error) {
	ids := make([]int64, 0, len(questions))
	err := db.WithTx(ctx, func(tx *DB) error {
		if err := tx.ClearAll(ctx); err != nil {
			return err
		}
		for _, q := range questions {
			id, err := tx.InsertQuestion(ctx, q)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetRecord retrieves the review record of a question. It returns nil if the
// question was never answered.
func (db *DB) GetRecord(ctx context.Context, questionID int64) (*domain.ReviewRecord, error) {
	row := db.q.QueryRowContext(ctx, `
		SELECT question_id, last_reviewed, next_review, correct_count, incorrect_count, consecutive_correct
		FROM review_records WHERE question_id = ?
	`, questionID)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Never reviewed
		}
		return nil, fmt.Errorf("failed to find review record for question %d: %w", questionID, err)
	}
	return rec, nil
}

// UpsertRecord replaces the review record of a question.
func (db *DB) UpsertRecord(ctx context.Context, questionID int64, rec domain.ReviewRecord) error {
	_, err := db.q.ExecContext(ctx, `
		INSERT INTO review_records (question_id, last_reviewed, next_review, correct_count, incorrect_count, consecutive_correct)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET
			last_reviewed = excluded.last_reviewed,
			next_review = excluded.next_review,
			correct_count = excluded.correct_count,
			incorrect_count = excluded.incorrect_count,
			consecutive_correct = excluded.consecutive_correct
	`,
		questionID,
		nullTime(rec.LastReviewed),
		nullTime(rec.NextReview),
		rec.CorrectCount,
		rec.IncorrectCount,
		rec.ConsecutiveCorrect,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to save review record for question %d: %w", questionID, ErrQuestionNotFound)
		}
		return fmt.Errorf("failed to save review record for question %d: %w", questionID, err)
	}
	return nil
}

// UpdateRecord reads the record of a question, applies fn and writes the
// result back in one transaction, so concurrent answers to the same question
// are not lost. fn receives a zero record if the question was never answered.
func (db *DB) UpdateRecord(ctx context.Context, questionID int64, fn func(domain.ReviewRecord) domain.ReviewRecord) (domain.ReviewRecord, error) {
	var updated domain.ReviewRecord
	err := db.WithTx(ctx, func(tx *DB) error {
		current, err := tx.GetRecord(ctx, questionID)
		if err != nil {
			return err
		}
		if current == nil {
			current = &domain.ReviewRecord{QuestionID: questionID}
		}

		updated = fn(*current)
		updated.QuestionID = questionID
		return tx.UpsertRecord(ctx, questionID, updated)
	})
	return updated, err
}

// ListReviewStates returns every question with its review record, if any.
func (db *DB) ListReviewStates(ctx context.Context) ([]domain.ReviewState, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT q.id, r.question_id, r.last_reviewed, r.next_review, r.correct_count, r.incorrect_count, r.consecutive_correct
		FROM questions q
		LEFT JOIN review_records r ON r.question_id = q.id
		ORDER BY q.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list review states: %w", err)
	}
	defer rows.Close()

	var states []domain.ReviewState
	for rows.Next() {
		var (
			id                         int64
			recordID                   sql.NullInt64
			lastReviewed, nextReview   sql.NullTime
			correct, incorrect, streak sql.NullInt64
		)
		if err := rows.Scan(&id, &recordID, &lastReviewed, &nextReview, &correct, &incorrect, &streak); err != nil {
			return nil, fmt.Errorf("failed to scan review state row: %w", err)
		}

		st := domain.ReviewState{QuestionID: id}
		if recordID.Valid {
			st.Record = &domain.ReviewRecord{
				QuestionID:         id,
				LastReviewed:       timePtr(lastReviewed),
				NextReview:         timePtr(nextReview),
				CorrectCount:       int(correct.Int64),
				IncorrectCount:     int(incorrect.Int64),
				ConsecutiveCorrect: int(streak.Int64),
			}
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func scanRecord(row *sql.Row) (*domain.ReviewRecord, error) {
	var rec domain.ReviewRecord
	var lastReviewed, nextReview sql.NullTime
	err := row.Scan(
		&rec.QuestionID,
		&lastReviewed,
		&nextReview,
		&rec.CorrectCount,
		&rec.IncorrectCount,
		&rec.ConsecutiveCorrect,
	)
	if err != nil {
		return nil, err
	}
	rec.LastReviewed = timePtr(lastReviewed)
	rec.NextReview = timePtr(nextReview)
	return &rec, nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
