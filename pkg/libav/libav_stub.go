//go:build nolibav

// Package libav is a media backend on top of FFmpeg. This build was made with
// the nolibav tag, so every operation fails with ErrNotAvailable.
package libav

import (
	"errors"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

var ErrNotAvailable = errors.New("libav backend not compiled in (build without -tags nolibav)")

type Backend struct{}

var _ media.Backend = (*Backend)(nil)

func New() (*Backend, error) {
	return nil, ErrNotAvailable
}

func (b *Backend) Name() string { return "libav" }

func (b *Backend) RegisterDevices() {}

func (b *Backend) FindInputFormat(name string) (media.InputFormat, bool) {
	return nil, false
}

func (b *Backend) OpenInput(device string, format media.InputFormat) (media.Source, error) {
	return nil, ErrNotAvailable
}

func (b *Backend) FindDecoder(par media.CodecParameters) (media.Codec, bool) {
	return nil, false
}

func (b *Backend) NewConverter(src, dst media.PictureFormat, interp media.Interpolation) (media.Converter, error) {
	return nil, ErrNotAvailable
}

func (b *Backend) AllocPicture(f media.PictureFormat) (media.Frame, error) {
	return nil, ErrNotAvailable
}

func (b *Backend) AllocFrame() (media.Frame, error) { return nil, ErrNotAvailable }

func (b *Backend) AllocPacket() (media.Packet, error) { return nil, ErrNotAvailable }
