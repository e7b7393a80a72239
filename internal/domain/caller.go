// Package domain contains core domain types for the SurveyBot application.
package domain

import (
	"time"
)

// Caller represents a person who has phoned in to take the survey.
// A caller is created once on first contact and never mutated afterward.
type Caller struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Age         string    `json:"age"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName returns the caller's display name.
func (c *Caller) FullName() string {
	return c.FirstName + " " + c.LastName
}
