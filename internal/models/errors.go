package models

import "errors"

var (
	// ErrExtraction signals that the extractor could not turn the input text
	// into fields.
	ErrExtraction = errors.New("extraction failed")
	// ErrExtractionEmpty signals that an update carried no usable fields.
	ErrExtractionEmpty = errors.New("extraction yielded no usable fields")
	// ErrVersionConflict signals that an append did not extend the latest
	// version by exactly one.
	ErrVersionConflict = errors.New("snapshot version conflict")
	// ErrAnalysisInProgress signals that another analysis holds the startup.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
)

// ExtractionError reports why an extractor could not produce fields. It
// matches ErrExtraction under errors.Is.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed: " + e.Reason
	}
	return "extraction failed: " + e.Reason + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExtraction) match any ExtractionError.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
