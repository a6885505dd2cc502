package storage

const schema = `
-- The 'questions' table stores the imported multiple-choice questions.
-- No AUTOINCREMENT: ids start again at 1 after the table is cleared.
CREATE TABLE IF NOT EXISTS questions (
    id INTEGER PRIMARY KEY,
    number INTEGER NOT NULL DEFAULT 0,
    question TEXT NOT NULL,
    options TEXT NOT NULL, -- JSON array of {"key","text"}, in display order
    correct_answer TEXT NOT NULL,
    explanation TEXT NOT NULL DEFAULT '',
    hash TEXT NOT NULL DEFAULT ''
);

-- The 'review_records' table holds one row per answered question.
CREATE TABLE IF NOT EXISTS review_records (
    question_id INTEGER PRIMARY KEY,
    last_reviewed DATETIME,
    next_review DATETIME,
    correct_count INTEGER NOT NULL DEFAULT 0,
    incorrect_count INTEGER NOT NULL DEFAULT 0,
    consecutive_correct INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(question_id) REFERENCES questions(id) ON DELETE CASCADE
);
`
