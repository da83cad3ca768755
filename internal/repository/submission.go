package repository

import (
	"sentiment-api/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type SubmissionRepository interface {
	CreateSubmission(sub *models.Submission) error
	DeleteSubmission(id int64) error
	CountByUser(userID int64) (int, error)
	SetArchived(id int64, archived bool) error
}

type submissionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSubmissionRepository(db *sqlx.DB, logger *zap.Logger) SubmissionRepository {
	return &submissionRepository{db: db, logger: logger}
}

func (r *submissionRepository) CreateSubmission(sub *models.Submission) error {
	query := `INSERT INTO submissions (user_id, original_text) VALUES ($1, $2)
	          RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(query, sub.UserID, sub.OriginalText).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// DeleteSubmission removes a submission. The result row, if one was
// already written, goes with it via ON DELETE CASCADE.
func (r *submissionRepository) DeleteSubmission(id int64) error {
	_, err := r.db.Exec(`DELETE FROM submissions WHERE id = $1`, id)
	return err
}

func (r *submissionRepository) CountByUser(userID int64) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *submissionRepository) SetArchived(id int64, archived bool) error {
	query := `UPDATE submissions SET is_archived = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(query, id, archived)
	return err
}
