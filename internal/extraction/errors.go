package extraction

import "errors"

// Domain errors for extraction operations.
var (
	ErrExtraction = errors.New("extraction failed")
	ErrNoBackend  = errors.New("no extraction backend available")
	ErrEmptySheet = errors.New("rate sheet contains no programs")
)
