package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRunActive        = errors.New("a generation run is already active for this dataset")
	ErrRunNotFound      = errors.New("generation run not found or already completed")
	ErrCircularRules    = errors.New("circular dependency detected in column rules")
	ErrPageOutOfRange   = errors.New("page exceeds total pages")
	ErrNoColumnsDefined = errors.New("dataset has no columns defined")
)
