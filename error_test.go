package framegrab

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

func TestError(t *testing.T) {
	cause := &media.Error{Op: "avformat_open_input", Code: -2}
	err := newError(ErrSourceOpen, fmt.Errorf("/dev/video9: %w", cause))

	if !errors.Is(err, ErrSourceOpen) {
		t.Error("errors.Is(err, ErrSourceOpen) = false")
	}
	if errors.Is(err, ErrRead) {
		t.Error("errors.Is(err, ErrRead) = true")
	}
	var me *media.Error
	if !errors.As(err, &me) || me != cause {
		t.Error("errors.As did not find the backend error")
	}
	if err.Code != -2 {
		t.Errorf("Code = %d, want -2", err.Code)
	}
	want := "could not open input device: /dev/video9: avformat_open_input failed: -2"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{newError(ErrRead, io.EOF), -1},
		{newError(ErrSourceOpen, &media.Error{Op: "open", Code: -13}), -13},
		{&Error{Kind: ErrFormatNotFound}, -1},
		{fmt.Errorf("wrapped: %w", newError(ErrDecodeSubmit, &media.Error{Op: "send", Code: -22})), -22},
		{errors.New("plain"), -1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
