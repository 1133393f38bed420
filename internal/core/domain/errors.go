package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// For acts this means another live act holds the same natural key.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// Bad trigger parameters and out-of-range paging surface as this error.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// Pipeline Errors.

	// ErrExtraction indicates the registry was unreachable or its layout changed.
	// Fatal for the run; there is no retry at the extraction layer.
	ErrExtraction = errors.New("extraction failed")

	// ErrParse indicates a rendered field did not match the expected format.
	// Fatal for the run's transformation stage.
	ErrParse = errors.New("parse failed")

	// ErrPersistence indicates the ingest transaction failed and was rolled back.
	// The Ingestor converts it into an ERROR run log entry instead of returning it.
	ErrPersistence = errors.New("persistence failed")

	// ErrRunInProgress indicates another pipeline run holds the single-flight lock.
	ErrRunInProgress = errors.New("run in progress")
)
