package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sharrell/surveybot/internal/domain"
	"github.com/sharrell/surveybot/internal/shared"
	_ "modernc.org/sqlite"
)

// Sentinel errors returned by Repository implementations.
var (
	// ErrCallerExists is returned when creating a caller whose phone number
	// is already registered.
	ErrCallerExists = errors.New("caller already exists")

	// ErrAlreadyAnswered is returned when recording an answer on a record
	// that already holds one, or that does not belong to the caller.
	ErrAlreadyAnswered = errors.New("record already answered or not owned by caller")
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS callers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		age TEXT NOT NULL,
		phone_number TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS poll_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller_id INTEGER NOT NULL REFERENCES callers(id),
		question_id INTEGER NOT NULL REFERENCES questions(id),
		question TEXT NOT NULL,
		answer TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(caller_id, question_id)
	);
	CREATE INDEX IF NOT EXISTS idx_poll_answers_open ON poll_answers(caller_id, id) WHERE answer IS NULL;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetCallerByPhone retrieves a caller by phone number.
func (s *SQLiteStore) GetCallerByPhone(ctx context.Context, phoneNumber string) (*domain.Caller, error) {
	query := `
		SELECT id, first_name, last_name, age, phone_number, created_at
		FROM callers WHERE phone_number = ? LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, phoneNumber)

	var caller domain.Caller
	var createdAt int64

	err := row.Scan(
		&caller.ID, &caller.FirstName, &caller.LastName,
		&caller.Age, &caller.PhoneNumber, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan caller row: %w", err)
	}

	caller.CreatedAt = time.Unix(createdAt, 0)
	return &caller, nil
}

// CreateCaller persists a new caller and fills in its ID.
func (s *SQLiteStore) CreateCaller(ctx context.Context, caller *domain.Caller) error {
	query := `
		INSERT INTO callers (first_name, last_name, age, phone_number, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if caller.CreatedAt.IsZero() {
		caller.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		caller.FirstName, caller.LastName, caller.Age,
		caller.PhoneNumber, caller.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return ErrCallerExists
		}
		return fmt.Errorf("insert caller: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("caller last insert id: %w", err)
	}
	caller.ID = id
	return nil
}

// AddQuestion appends a question to the catalog.
func (s *SQLiteStore) AddQuestion(ctx context.Context, text string) (*domain.Question, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (question, created_at) VALUES (?, ?)`,
		text, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("question last insert id: %w", err)
	}

	return &domain.Question{ID: id, Text: text, CreatedAt: now}, nil
}

// ListQuestions returns the full catalog in ascending ID order.
func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]*domain.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, created_at FROM questions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close question rows", "error", closeErr)
		}
	}()

	var questions []*domain.Question
	for rows.Next() {
		var q domain.Question
		var createdAt int64
		if err := rows.Scan(&q.ID, &q.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		q.CreatedAt = time.Unix(createdAt, 0)
		questions = append(questions, &q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

// EnsurePendingRecords inserts a pending record for every catalog question
// the caller is missing. The OR IGNORE against the (caller_id, question_id)
// unique index makes duplicate webhook deliveries harmless; the ORDER BY
// keeps record IDs monotonic in catalog order so new questions always land
// at the end of the caller's queue.
// Retries on SQLITE_BUSY with exponential backoff, as concurrent deliveries
// for the same caller can contend on the write lock.
func (s *SQLiteStore) EnsurePendingRecords(ctx context.Context, callerID int64) (int64, error) {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		created, err := s.ensurePendingOnce(ctx, callerID)
		if err == nil {
			return created, nil
		}
		lastErr = err

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("EnsurePendingRecords contended, retrying",
				"caller_id", callerID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}

	return 0, fmt.Errorf("ensure pending records for caller %d: %w", callerID, lastErr)
}

func (s *SQLiteStore) ensurePendingOnce(ctx context.Context, callerID int64) (int64, error) {
	query := `
		INSERT OR IGNORE INTO poll_answers (caller_id, question_id, question, created_at)
		SELECT ?, q.id, q.question, ?
		FROM questions q
		ORDER BY q.id ASC`

	result, err := s.db.ExecContext(ctx, query, callerID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert pending records: %w", err)
	}

	return result.RowsAffected()
}

// NextUnanswered returns the caller's first record with no recorded answer.
func (s *SQLiteStore) NextUnanswered(ctx context.Context, callerID int64) (*domain.PendingRecord, error) {
	query := `
		SELECT id, caller_id, question_id, question, answer, created_at
		FROM poll_answers
		WHERE caller_id = ? AND answer IS NULL
		ORDER BY id ASC LIMIT 1`

	record, err := s.scanRecord(s.db.QueryRowContext(ctx, query, callerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan next unanswered row: %w", err)
	}
	return record, nil
}

// RecordAnswer sets the answer on a record. The answer IS NULL guard makes
// the write strictly once: a second attempt affects zero rows and is
// reported as ErrAlreadyAnswered instead of overwriting.
func (s *SQLiteStore) RecordAnswer(ctx context.Context, recordID, callerID int64, answer string) error {
	query := `
		UPDATE poll_answers SET answer = ?
		WHERE id = ? AND caller_id = ? AND answer IS NULL`

	result, err := s.db.ExecContext(ctx, query, answer, recordID, callerID)
	if err != nil {
		return fmt.Errorf("update answer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyAnswered
	}

	return nil
}

// ListRecords returns all of a caller's records in ascending ID order.
func (s *SQLiteStore) ListRecords(ctx context.Context, callerID int64) ([]*domain.PendingRecord, error) {
	query := `
		SELECT id, caller_id, question_id, question, answer, created_at
		FROM poll_answers WHERE caller_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, callerID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close record rows", "error", closeErr)
		}
	}()

	var records []*domain.PendingRecord
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row rowScanner) (*domain.PendingRecord, error) {
	var record domain.PendingRecord
	var answer sql.NullString
	var createdAt int64

	err := row.Scan(
		&record.ID, &record.CallerID, &record.QuestionID,
		&record.Question, &answer, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if answer.Valid {
		record.Answer = &answer.String
	}
	record.CreatedAt = time.Unix(createdAt, 0)
	return &record, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
