package domain

import (
	"time"
)

// PendingRecord tracks one (caller, question) pair. The question text is
// snapshotted at creation time so the served text is stable even if the
// catalog wording were ever edited out-of-band. The answer moves from absent
// to present exactly once; callers are served records in ascending ID order.
type PendingRecord struct {
	ID         int64     `json:"id"`
	CallerID   int64     `json:"caller_id"`
	QuestionID int64     `json:"question_id"`
	Question   string    `json:"question"`
	Answer     *string   `json:"answer,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Answered reports whether an answer has been recorded for this record.
func (r *PendingRecord) Answered() bool {
	return r.Answer != nil
}
