package utils

import (
	"fmt"
	"strings"
)

// AppError wraps an operation, the startup it concerned, the snapshot version
// being attempted, and the underlying error.
type AppError struct {
	Op        string
	StartupID string
	Version   int
	Msg       string
	Err       error
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StartupID != "" {
		fmt.Fprintf(&b, " [startup=%s", e.StartupID)
		if e.Version > 0 {
			fmt.Fprintf(&b, " version=%d", e.Version)
		}
		b.WriteString("]")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError without startup context.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewStartupError constructs an AppError carrying the startup id and the
// version that was being created.
func NewStartupError(op, startupID string, version int, msg string, err error) error {
	return &AppError{Op: op, StartupID: startupID, Version: version, Msg: msg, Err: err}
}
