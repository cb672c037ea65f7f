package media

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestCode(t *testing.T) {
	err := fmt.Errorf("open: %w", &Error{Op: "avformat_open_input", Code: -2, Err: io.ErrUnexpectedEOF})
	if got := Code(err); got != -2 {
		t.Errorf("Code() = %d, want -2", got)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is(err, io.ErrUnexpectedEOF) = false, want true")
	}
	if got := Code(io.EOF); got != 0 {
		t.Errorf("Code(io.EOF) = %d, want 0", got)
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{Op: "VIDIOC_DQBUF", Code: -5}
	if got, want := e.Error(), "VIDIOC_DQBUF failed: -5"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
