package models

import (
	"time"

	"github.com/lib/pq"
)

// AnalysisResult is the persisted outcome of classifying one submission.
// Emotions and Scores are parallel, sorted by score descending, so element
// 0 is always the primary emotion. Single-label runs store one entry.
type AnalysisResult struct {
	ID               int64           `db:"id"`
	SubmissionID     int64           `db:"submission_id"`
	Emotions         pq.StringArray  `db:"emotions"`
	Scores           pq.Float64Array `db:"scores"`
	ModelUsed        string          `db:"model_used"`
	ProcessingTimeMs int64           `db:"processing_time_ms"`
	CreatedAt        time.Time       `db:"created_at"`
}

// HistoryEntry is one row of a user's analysis history: a submission
// joined with its completed result.
type HistoryEntry struct {
	SubmissionID    int64     `db:"submission_id"`
	OriginalText    string    `db:"original_text"`
	Emotion         string    `db:"emotion"`
	ConfidenceScore float64   `db:"confidence_score"`
	CreatedAt       time.Time `db:"created_at"`
}
