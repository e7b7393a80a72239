// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/sharrell/surveybot/internal/domain"
)

// Repository defines the interface for persisting callers, the question
// catalog, and per-caller answer records.
type Repository interface {
	// GetCallerByPhone retrieves a caller by phone number.
	// Returns (nil, nil) if no caller exists for the number.
	GetCallerByPhone(ctx context.Context, phoneNumber string) (*domain.Caller, error)

	// CreateCaller persists a new caller and fills in its ID.
	// Returns ErrCallerExists if the phone number is already registered.
	CreateCaller(ctx context.Context, caller *domain.Caller) error

	// AddQuestion appends a question to the catalog.
	AddQuestion(ctx context.Context, text string) (*domain.Question, error)

	// ListQuestions returns the full catalog in ascending ID order.
	ListQuestions(ctx context.Context) ([]*domain.Question, error)

	// EnsurePendingRecords inserts a pending record for every catalog
	// question the caller does not already have one for, walking the
	// catalog in ascending question ID order. Idempotent; returns the
	// number of records created.
	EnsurePendingRecords(ctx context.Context, callerID int64) (int64, error)

	// NextUnanswered returns the caller's first record with no recorded
	// answer, in ascending record ID order. Returns (nil, nil) when the
	// caller has answered everything.
	NextUnanswered(ctx context.Context, callerID int64) (*domain.PendingRecord, error)

	// RecordAnswer sets the answer on a record, only if the record belongs
	// to the caller and no answer has been recorded yet. Returns
	// ErrAlreadyAnswered otherwise.
	RecordAnswer(ctx context.Context, recordID, callerID int64, answer string) error

	// ListRecords returns all of a caller's records in ascending ID order.
	ListRecords(ctx context.Context, callerID int64) ([]*domain.PendingRecord, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
