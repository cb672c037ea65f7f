package framegrab

import (
	"errors"
	"fmt"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

var (
	ErrFormatNotFound  = errors.New("could not find input format")
	ErrSourceOpen      = errors.New("could not open input device")
	ErrStreamProbe     = errors.New("could not find stream info")
	ErrNoVideoStream   = errors.New("could not find video stream")
	ErrDecoderNotFound = errors.New("could not find decoder")
	ErrAllocation      = errors.New("could not allocate")
	ErrDecoderOpen     = errors.New("could not open decoder")
	ErrConverterInit   = errors.New("could not create converter")
	ErrRead            = errors.New("could not read packet")
	ErrDecodeSubmit    = errors.New("could not send packet to decoder")
	ErrDecodeRetrieve  = errors.New("could not receive frame from decoder")
	ErrConvert         = errors.New("could not convert frame")
	ErrOutputOpen      = errors.New("could not open output file")
	ErrWrite           = errors.New("could not write output file")
	ErrSessionDone     = errors.New("session already ran")
)

// Error is a capture failure. Kind is one of the sentinels above and Code
// the backend's native error code, if it reported one.
type Error struct {
	Kind error
	Code int
	Err  error
}

func newError(kind, err error) *Error {
	return &Error{Kind: kind, Code: media.Code(err), Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ExitCode maps the result of a capture to a process exit status: 0 on
// success, the backend error code when there is one and -1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	if code := media.Code(err); code != 0 {
		return code
	}
	return -1
}
