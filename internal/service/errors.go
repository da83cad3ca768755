package service

import "errors"

var (
	// ErrInvalidInput covers empty-after-trim and oversized text. No
	// record is created for a rejected request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable means the adapter has no loaded model. Detected
	// up front, before a submission is created.
	ErrModelUnavailable = errors.New("sentiment analysis model currently unavailable")

	// ErrAnalysisFailed means inference itself failed after the submission
	// was created; the submission has been deleted to compensate.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrStorage means a persistence call failed.
	ErrStorage = errors.New("storage error")

	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
