package app

import (
	"errors"
	"fmt"
)

// CaptureError is a fatal audio failure. The session it belonged to has
// moved to Error.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s failed: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsCaptureError reports whether err is a CaptureError
func IsCaptureError(err error) bool {
	var ce *CaptureError
	return errors.As(err, &ce)
}

// ErrClosed is returned by operations on a closed orchestrator
var ErrClosed = errors.New("orchestrator closed")
