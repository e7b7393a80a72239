// Package survey implements the survey session state machine: caller
// resolution, catalog sync, question sequencing, and answer recording.
//
// No session state lives in process memory. The conversational agent carries
// only text between calls, so every operation reconstructs "which question is
// outstanding" from the store, keyed by the caller's phone number.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharrell/surveybot/internal/domain"
	"github.com/sharrell/surveybot/internal/store"
)

// Service coordinates the survey flow over the persistence layer.
type Service struct {
	repo store.Repository
}

// NewService creates a survey service backed by the given repository.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Resolution is the outcome of resolving a caller by phone number.
type Resolution struct {
	Caller *domain.Caller
	// Question is the caller's outstanding question, nil when the survey
	// is complete.
	Question *domain.PendingRecord
	// SurveyComplete is true when the caller has answered every question
	// currently in the catalog.
	SurveyComplete bool
}

// NextStep is the result of recording an answer or creating a caller: the
// next question to ask, or survey completion.
type NextStep struct {
	Question       *domain.PendingRecord
	SurveyComplete bool
}

// Resolve looks up a caller by phone number. For a known caller it first
// reconciles the caller's pending set against the catalog, so questions added
// since the caller's last contact are appended to their queue, then returns
// the outstanding question. Returns ErrUnknownCaller for an unregistered
// number.
func (s *Service) Resolve(ctx context.Context, phoneNumber string) (*Resolution, error) {
	caller, err := s.repo.GetCallerByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("lookup caller: %w", err)
	}
	if caller == nil {
		return nil, ErrUnknownCaller
	}

	question, err := s.syncAndNext(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Caller:         caller,
		Question:       question,
		SurveyComplete: question == nil,
	}, nil
}

// CreateCaller registers a first-time caller and returns their first
// question. Returns ErrDuplicateCaller if the phone number is already
// registered; creation is for first contact only.
func (s *Service) CreateCaller(ctx context.Context, firstName, lastName, age, phoneNumber string) (*domain.Caller, *NextStep, error) {
	existing, err := s.repo.GetCallerByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing caller: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrDuplicateCaller
	}

	caller := &domain.Caller{
		FirstName:   firstName,
		LastName:    lastName,
		Age:         age,
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.CreateCaller(ctx, caller); err != nil {
		// The unique index catches creations that race past the
		// existence check.
		if errors.Is(err, store.ErrCallerExists) {
			return nil, nil, ErrDuplicateCaller
		}
		return nil, nil, fmt.Errorf("create caller: %w", err)
	}

	slog.Info("caller created", "caller_id", caller.ID, "phone", caller.PhoneNumber)

	question, err := s.syncAndNext(ctx, caller.ID)
	if err != nil {
		return nil, nil, err
	}

	return caller, &NextStep{Question: question, SurveyComplete: question == nil}, nil
}

// RecordAnswer records an answer against the caller's outstanding question
// and returns the next one. The outstanding record is recomputed from the
// store rather than trusted from the agent; askedQuestion, when non-empty, is
// cross-checked against the outstanding record's text snapshot and a mismatch
// is rejected as stale. Recording is write-once: the next question is never
// served before the answer is durably committed.
func (s *Service) RecordAnswer(ctx context.Context, phoneNumber, askedQuestion, answer string) (*NextStep, error) {
	caller, err := s.repo.GetCallerByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("lookup caller: %w", err)
	}
	if caller == nil {
		return nil, ErrUnknownCaller
	}

	outstanding, err := s.repo.NextUnanswered(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("find outstanding question: %w", err)
	}
	if outstanding == nil {
		// Nothing left to answer; a duplicate delivery or an agent
		// replaying past the end of the survey.
		return nil, ErrStaleAnswer
	}
	if askedQuestion != "" && askedQuestion != outstanding.Question {
		slog.Warn("answer rejected, question mismatch",
			"caller_id", caller.ID,
			"outstanding_record", outstanding.ID)
		return nil, ErrStaleAnswer
	}

	if err := s.repo.RecordAnswer(ctx, outstanding.ID, caller.ID, answer); err != nil {
		if errors.Is(err, store.ErrAlreadyAnswered) {
			return nil, ErrStaleAnswer
		}
		return nil, fmt.Errorf("record answer: %w", err)
	}

	next, err := s.repo.NextUnanswered(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("find next question: %w", err)
	}

	return &NextStep{Question: next, SurveyComplete: next == nil}, nil
}

// syncAndNext reconciles the caller's pending set with the catalog, then
// returns the first unanswered record, nil when the survey is complete.
func (s *Service) syncAndNext(ctx context.Context, callerID int64) (*domain.PendingRecord, error) {
	created, err := s.repo.EnsurePendingRecords(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("sync catalog: %w", err)
	}
	if created > 0 {
		slog.Info("pending records created", "caller_id", callerID, "count", created)
	}

	question, err := s.repo.NextUnanswered(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("find next question: %w", err)
	}
	return question, nil
}
