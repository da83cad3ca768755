package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sentiment-api/internal/inference"
	"sentiment-api/internal/models"
	"sentiment-api/internal/repository"
)

// Classifier is the slice of the model runtime adapter the pipeline needs.
type Classifier interface {
	Loaded() bool
	ModelID() string
	Classify(ctx context.Context, text string, mode inference.Mode) (*inference.Outcome, error)
}

// AnalysisService runs the analysis pipeline:
//
//	Validating -> SubmissionCreated -> Inferring -> (Completed | InferenceFailed)
//
// A failed inference deletes the just-created submission, so an observer
// after pipeline completion sees either both records or neither.
type AnalysisService interface {
	Analyze(ctx context.Context, user *models.User, text string, mode inference.Mode) (*Analysis, error)
	History(ctx context.Context, user *models.User) (map[int64]HistoryItem, error)
}

// Analysis is a completed pipeline run.
type Analysis struct {
	SubmissionID int64
	Text         string
	Username     string
	Labels       []string
	Scores       []float64
}

// HistoryItem is one entry of a user's history, keyed by submission id.
type HistoryItem struct {
	Text            string    `json:"text"`
	Emotion         string    `json:"emotion"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type analysisService struct {
	submissions   repository.SubmissionRepository
	results       repository.ResultRepository
	classifier    Classifier
	maxTextLength int
	logger        *zap.Logger
}

func NewAnalysisService(
	submissions repository.SubmissionRepository,
	results repository.ResultRepository,
	classifier Classifier,
	maxTextLength int,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		submissions:   submissions,
		results:       results,
		classifier:    classifier,
		maxTextLength: maxTextLength,
		logger:        logger,
	}
}

func (s *analysisService) Analyze(ctx context.Context, user *models.User, text string, mode inference.Mode) (*Analysis, error) {
	// Validating: reject before any record exists.
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn("User submitted empty text", zap.String("username", user.Username))
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if len(text) > s.maxTextLength {
		s.logger.Warn("User submitted text exceeding max length",
			zap.String("username", user.Username),
			zap.Int("length", len(text)))
		return nil, fmt.Errorf("%w: text length should be less than %d characters", ErrInvalidInput, s.maxTextLength)
	}

	// A missing model is known cheaply up front; short-circuit without
	// creating a submission. A genuine inference failure is only
	// discoverable after the submission exists and takes the
	// compensating-delete path below.
	if !s.classifier.Loaded() {
		s.logger.Error("Sentiment model is not loaded")
		return nil, ErrModelUnavailable
	}

	submission := &models.Submission{
		UserID:       user.ID,
		OriginalText: text,
	}
	if err := s.submissions.CreateSubmission(submission); err != nil {
		s.logger.Error("Failed to create submission", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.logger.Info("Submission created",
		zap.Int64("submission_id", submission.ID),
		zap.String("username", user.Username))

	// Inferring. time.Since reads the monotonic clock, so latency is
	// immune to wall-clock skew.
	start := time.Now()
	outcome, err := s.classifier.Classify(ctx, text, mode)
	latencyMs := time.Since(start).Milliseconds()
	if err != nil {
		s.logger.Error("Inference failed, deleting submission",
			zap.Int64("submission_id", submission.ID),
			zap.Error(err))
		s.compensate(submission.ID)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	result := &models.AnalysisResult{
		SubmissionID:     submission.ID,
		Emotions:         outcome.Labels,
		Scores:           outcome.Scores,
		ModelUsed:        outcome.ModelID,
		ProcessingTimeMs: latencyMs,
	}
	if err := s.results.SaveResult(result); err != nil {
		s.logger.Error("Failed to save analysis result, deleting submission",
			zap.Int64("submission_id", submission.ID),
			zap.Error(err))
		s.compensate(submission.ID)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Analysis completed",
		zap.Int64("submission_id", submission.ID),
		zap.String("mode", mode.String()),
		zap.Int64("processing_time_ms", latencyMs))

	return &Analysis{
		SubmissionID: submission.ID,
		Text:         text,
		Username:     user.Username,
		Labels:       outcome.Labels,
		Scores:       outcome.Scores,
	}, nil
}

// compensate removes a submission left behind by a failed analysis. A
// failed delete is logged but not surfaced; the caller's error already
// describes the root cause.
func (s *analysisService) compensate(submissionID int64) {
	if err := s.submissions.DeleteSubmission(submissionID); err != nil {
		s.logger.Error("Compensating delete failed",
			zap.Int64("submission_id", submissionID),
			zap.Error(err))
	}
}

func (s *analysisService) History(ctx context.Context, user *models.User) (map[int64]HistoryItem, error) {
	entries, err := s.results.HistoryByUser(user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch analysis history",
			zap.String("username", user.Username),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	items := make(map[int64]HistoryItem, len(entries))
	for _, e := range entries {
		items[e.SubmissionID] = HistoryItem{
			Text:            e.OriginalText,
			Emotion:         e.Emotion,
			ConfidenceScore: e.ConfidenceScore,
			CreatedAt:       e.CreatedAt,
		}
	}
	return items, nil
}
