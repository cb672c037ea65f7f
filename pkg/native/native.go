// Package native is a pure Go media backend. It decodes MJPEG and raw video
// and scales planes with golang.org/x/image/draw. Input formats are the
// synthetic "testsrc" source and, once devices are registered on Linux,
// "video4linux2".
package native

import (
	"fmt"
	"image"
	"sync"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

// maxDimension bounds picture allocations.
const maxDimension = 16384

type opener func(device string) (media.Source, error)

type inputFormat struct {
	name string
	open opener
}

func (f *inputFormat) Name() string { return f.name }

type Backend struct {
	mu       sync.Mutex
	devices  sync.Once
	registry map[string]*inputFormat
}

var _ media.Backend = (*Backend)(nil)

func New() *Backend {
	b := &Backend{registry: make(map[string]*inputFormat)}
	b.register("testsrc", openTestSource)
	return b
}

func (b *Backend) register(name string, open opener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry[name] = &inputFormat{name: name, open: open}
}

func (b *Backend) Name() string { return "native" }

func (b *Backend) RegisterDevices() {
	b.devices.Do(func() {
		for _, name := range deviceFormats {
			b.register(name, openDevice)
		}
	})
}

func (b *Backend) FindInputFormat(name string) (media.InputFormat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.registry[name]
	if !ok {
		return nil, false
	}
	return f, true
}

func (b *Backend) OpenInput(device string, format media.InputFormat) (media.Source, error) {
	f, ok := format.(*inputFormat)
	if !ok {
		return nil, fmt.Errorf("input format %T does not belong to the native backend", format)
	}
	return f.open(device)
}

func (b *Backend) FindDecoder(par media.CodecParameters) (media.Codec, bool) {
	switch par.CodecID {
	case media.CodecIDMJPEG, media.CodecIDRawVideo:
		return &codec{id: par.CodecID}, true
	}
	return nil, false
}

func (b *Backend) NewConverter(src, dst media.PictureFormat, interp media.Interpolation) (media.Converter, error) {
	return newConverter(src, dst, interp)
}

func (b *Backend) AllocPicture(f media.PictureFormat) (media.Frame, error) {
	if f.Width <= 0 || f.Height <= 0 || f.Width > maxDimension || f.Height > maxDimension {
		return nil, fmt.Errorf("cannot allocate %dx%d picture", f.Width, f.Height)
	}
	r := image.Rect(0, 0, f.Width, f.Height)
	switch f.PixelFormat {
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P:
		return &frame{img: image.NewYCbCr(r, image.YCbCrSubsampleRatio420), pinned: true}, nil
	case media.PixelFormatYUV422P, media.PixelFormatYUVJ422P:
		return &frame{img: image.NewYCbCr(r, image.YCbCrSubsampleRatio422), pinned: true}, nil
	case media.PixelFormatYUV444P, media.PixelFormatYUVJ444P:
		return &frame{img: image.NewYCbCr(r, image.YCbCrSubsampleRatio444), pinned: true}, nil
	case media.PixelFormatGray:
		return &frame{img: image.NewGray(r), pinned: true}, nil
	}
	return nil, fmt.Errorf("cannot allocate picture in pixel format %q", f.PixelFormat)
}

func (b *Backend) AllocFrame() (media.Frame, error) { return &frame{}, nil }

func (b *Backend) AllocPacket() (media.Packet, error) { return &packet{stream: -1}, nil }
