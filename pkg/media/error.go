package media

import (
	"errors"
	"fmt"
)

var (
	// ErrAgain is returned by Decoder.ReceiveFrame when the decoder needs more
	// input before it can output a frame.
	ErrAgain          = errors.New("resource temporarily unavailable")
	ErrStreamNotFound = errors.New("stream not found")
)

// Error is a failure reported by a backend with its native error code.
type Error struct {
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed: %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Err, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the native error code carried by err, or 0 if there is none.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
