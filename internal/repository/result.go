package repository

import (
	"sentiment-api/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ResultRepository interface {
	SaveResult(result *models.AnalysisResult) error
	HistoryByUser(userID int64) ([]*models.HistoryEntry, error)
}

type resultRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewResultRepository(db *sqlx.DB, logger *zap.Logger) ResultRepository {
	return &resultRepository{db: db, logger: logger}
}

func (r *resultRepository) SaveResult(result *models.AnalysisResult) error {
	query := `INSERT INTO analysis_results (submission_id, emotions, scores, model_used, processing_time_ms)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.db.QueryRowx(query, result.SubmissionID, result.Emotions, result.Scores,
		result.ModelUsed, result.ProcessingTimeMs).Scan(&result.ID, &result.CreatedAt)
}

// HistoryByUser joins a user's submissions against their completed results,
// newest first. Submissions without a result (an analysis in flight, or one
// whose failure cleanup raced) never appear. Element 0 of the stored arrays
// is the primary emotion.
func (r *resultRepository) HistoryByUser(userID int64) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry
	query := `
		SELECT
			s.id AS submission_id,
			s.original_text,
			r.emotions[1] AS emotion,
			r.scores[1] AS confidence_score,
			r.created_at
		FROM submissions s
		INNER JOIN analysis_results r ON r.submission_id = s.id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
	`
	err := r.db.Select(&entries, query, userID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
