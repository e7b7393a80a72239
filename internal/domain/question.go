package domain

import (
	"time"
)

// Question is one entry in the survey catalog. Questions are immutable once
// created; the catalog may grow over time and new questions are offered to
// existing callers on their next contact.
type Question struct {
	ID        int64     `json:"id"`
	Text      string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}
