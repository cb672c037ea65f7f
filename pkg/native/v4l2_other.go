//go:build !linux

package native

import (
	"errors"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

var deviceFormats []string

func openDevice(path string) (media.Source, error) {
	return nil, errors.New("video4linux2 is not supported on this platform")
}
