package models

import "time"

// Submission represents a user's text payload stored in the 'submissions'
// table. Rows are immutable after creation except for the archived flag;
// a submission whose analysis fails is deleted outright.
type Submission struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	OriginalText string    `db:"original_text"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	IsArchived   bool      `db:"is_archived"`
}
