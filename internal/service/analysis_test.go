package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"sentiment-api/internal/inference"
	"sentiment-api/internal/models"
)

type fakeSubmissionRepo struct {
	nextID      int64
	submissions map[int64]*models.Submission
	createErr   error
	deleteErr   error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[int64]*models.Submission)}
}

func (r *fakeSubmissionRepo) CreateSubmission(sub *models.Submission) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	sub.ID = r.nextID
	stored := *sub
	r.submissions[sub.ID] = &stored
	return nil
}

func (r *fakeSubmissionRepo) DeleteSubmission(id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.submissions, id)
	return nil
}

func (r *fakeSubmissionRepo) CountByUser(userID int64) (int, error) {
	count := 0
	for _, sub := range r.submissions {
		if sub.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubmissionRepo) SetArchived(id int64, archived bool) error {
	sub, ok := r.submissions[id]
	if !ok {
		return errors.New("not found")
	}
	sub.IsArchived = archived
	return nil
}

type fakeResultRepo struct {
	results map[int64]*models.AnalysisResult
	history []*models.HistoryEntry
	saveErr error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[int64]*models.AnalysisResult)}
}

func (r *fakeResultRepo) SaveResult(result *models.AnalysisResult) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, exists := r.results[result.SubmissionID]; exists {
		return errors.New("duplicate result for submission")
	}
	result.ID = int64(len(r.results) + 1)
	stored := *result
	r.results[result.SubmissionID] = &stored
	return nil
}

// resultFor looks up the stored result for a submission; test-side only.
func (r *fakeResultRepo) resultFor(submissionID int64) (*models.AnalysisResult, bool) {
	result, ok := r.results[submissionID]
	return result, ok
}

func (r *fakeResultRepo) HistoryByUser(userID int64) ([]*models.HistoryEntry, error) {
	return r.history, nil
}

type fakeClassifier struct {
	loaded  bool
	outcome *inference.Outcome
	err     error
}

func (c *fakeClassifier) Loaded() bool    { return c.loaded }
func (c *fakeClassifier) ModelID() string { return "fake-model" }

func (c *fakeClassifier) Classify(ctx context.Context, text string, mode inference.Mode) (*inference.Outcome, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.outcome, nil
}

const maxTextLength = 5000

func newTestService(subs *fakeSubmissionRepo, results *fakeResultRepo, clf *fakeClassifier) AnalysisService {
	return NewAnalysisService(subs, results, clf, maxTextLength, zap.NewNop())
}

func testUser() *models.User {
	return &models.User{ID: 7, Username: "alice"}
}

func positiveOutcome() *inference.Outcome {
	return &inference.Outcome{
		Labels:  []string{"POSITIVE"},
		Scores:  []float64{0.97},
		ModelID: "fake-model",
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		subs := newFakeSubmissionRepo()
		svc := newTestService(subs, newFakeResultRepo(), &fakeClassifier{loaded: true, outcome: positiveOutcome()})

		_, err := svc.Analyze(context.Background(), testUser(), text, inference.ModeSingleLabel)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("text %q: err = %v, want ErrInvalidInput", text, err)
		}
		if count, _ := subs.CountByUser(7); count != 0 {
			t.Errorf("text %q: %d submissions created, want 0", text, count)
		}
	}
}

func TestAnalyze_OversizedText(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	svc := newTestService(subs, results, &fakeClassifier{loaded: true, outcome: positiveOutcome()})

	_, err := svc.Analyze(context.Background(), testUser(), strings.Repeat("a", maxTextLength+1), inference.ModeSingleLabel)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if count, _ := subs.CountByUser(7); count != 0 {
		t.Errorf("%d submissions created, want 0", count)
	}
	if len(results.results) != 0 {
		t.Errorf("%d results created, want 0", len(results.results))
	}
}

func TestAnalyze_ModelUnavailable(t *testing.T) {
	subs := newFakeSubmissionRepo()
	svc := newTestService(subs, newFakeResultRepo(), &fakeClassifier{loaded: false})

	_, err := svc.Analyze(context.Background(), testUser(), "perfectly valid text", inference.ModeSingleLabel)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	// The pre-check fires before any record exists.
	if count, _ := subs.CountByUser(7); count != 0 {
		t.Errorf("%d submissions created, want 0", count)
	}
}

func TestAnalyze_InferenceFailure_CompensatingDelete(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	clf := &fakeClassifier{loaded: true, err: errors.New("tokenizer blew up")}
	svc := newTestService(subs, results, clf)

	before, _ := subs.CountByUser(7)
	_, err := svc.Analyze(context.Background(), testUser(), "valid text", inference.ModeSingleLabel)
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}

	after, _ := subs.CountByUser(7)
	if after != before {
		t.Errorf("submission count %d after failed analysis, want %d", after, before)
	}
	if len(results.results) != 0 {
		t.Errorf("%d results persisted after failed analysis, want 0", len(results.results))
	}
}

func TestAnalyze_StorageFailureOnCreate(t *testing.T) {
	subs := newFakeSubmissionRepo()
	subs.createErr = errors.New("connection refused")
	clf := &fakeClassifier{loaded: true, outcome: positiveOutcome()}
	svc := newTestService(subs, newFakeResultRepo(), clf)

	_, err := svc.Analyze(context.Background(), testUser(), "valid text", inference.ModeSingleLabel)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

func TestAnalyze_ResultSaveFailure_CompensatingDelete(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	results.saveErr = errors.New("disk full")
	svc := newTestService(subs, results, &fakeClassifier{loaded: true, outcome: positiveOutcome()})

	_, err := svc.Analyze(context.Background(), testUser(), "valid text", inference.ModeSingleLabel)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if count, _ := subs.CountByUser(7); count != 0 {
		t.Errorf("submission survived a failed result write, count = %d", count)
	}
}

func TestAnalyze_Success(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	svc := newTestService(subs, results, &fakeClassifier{loaded: true, outcome: positiveOutcome()})

	analysis, err := svc.Analyze(context.Background(), testUser(), "  I love this!  ", inference.ModeSingleLabel)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.Text != "I love this!" {
		t.Errorf("echoed text = %q, want trimmed input", analysis.Text)
	}
	if analysis.Username != "alice" {
		t.Errorf("username = %q, want alice", analysis.Username)
	}
	if len(analysis.Labels) != 1 || analysis.Labels[0] != "POSITIVE" {
		t.Errorf("labels = %v, want [POSITIVE]", analysis.Labels)
	}

	if count, _ := subs.CountByUser(7); count != 1 {
		t.Fatalf("submission count = %d, want 1", count)
	}
	result, ok := results.resultFor(analysis.SubmissionID)
	if !ok {
		t.Fatalf("no result persisted for submission %d", analysis.SubmissionID)
	}
	if result.ProcessingTimeMs < 0 {
		t.Errorf("processing time %d ms is negative", result.ProcessingTimeMs)
	}
	for _, s := range result.Scores {
		if s < 0 || s > 1 {
			t.Errorf("stored score %f out of [0,1]", s)
		}
	}
	if result.ModelUsed != "fake-model" {
		t.Errorf("model used = %q, want fake-model", result.ModelUsed)
	}
}

func TestAnalyze_AtMostOneResultPerSubmission(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	svc := newTestService(subs, results, &fakeClassifier{loaded: true, outcome: positiveOutcome()})

	for i := 0; i < 3; i++ {
		if _, err := svc.Analyze(context.Background(), testUser(), "same text", inference.ModeSingleLabel); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	// Each run creates a fresh submission with its own result; the fake
	// rejects a second result for the same submission.
	if len(results.results) != 3 {
		t.Errorf("result count = %d, want 3", len(results.results))
	}
}

func TestHistory(t *testing.T) {
	subs := newFakeSubmissionRepo()
	results := newFakeResultRepo()
	results.history = []*models.HistoryEntry{
		{SubmissionID: 2, OriginalText: "second", Emotion: "joy", ConfidenceScore: 0.8},
		{SubmissionID: 1, OriginalText: "first", Emotion: "anger", ConfidenceScore: 0.6},
	}
	svc := newTestService(subs, results, &fakeClassifier{loaded: true})

	items, err := svc.History(context.Background(), testUser())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("history size = %d, want 2", len(items))
	}
	if items[2].Text != "second" || items[1].Text != "first" {
		t.Errorf("history texts do not match originating submissions: %+v", items)
	}
	if items[2].Emotion != "joy" || items[2].ConfidenceScore != 0.8 {
		t.Errorf("entry 2 = %+v, want joy/0.8", items[2])
	}
}

func TestHistory_Empty(t *testing.T) {
	svc := newTestService(newFakeSubmissionRepo(), newFakeResultRepo(), &fakeClassifier{loaded: true})

	items, err := svc.History(context.Background(), testUser())
	if err != nil {
		t.Fatalf("empty history should not be an error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("history size = %d, want 0", len(items))
	}
}
