// Package yuv describes raw planar picture layouts and reads and writes them
// as headerless byte streams.
package yuv

import (
	"fmt"
	"image"
	"io"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

// Plane is the size of one 8-bit plane. Rows are Width bytes long.
type Plane struct {
	Width, Height int
}

func (p Plane) Size() int { return p.Width * p.Height }

// Layout returns the planes of f in storage order.
func Layout(f media.PictureFormat) ([]Plane, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid picture size %dx%d", f.Width, f.Height)
	}
	luma := Plane{f.Width, f.Height}
	switch f.PixelFormat {
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P:
		c := Plane{(f.Width + 1) / 2, (f.Height + 1) / 2}
		return []Plane{luma, c, c}, nil
	case media.PixelFormatYUV422P, media.PixelFormatYUVJ422P:
		c := Plane{(f.Width + 1) / 2, f.Height}
		return []Plane{luma, c, c}, nil
	case media.PixelFormatYUV444P, media.PixelFormatYUVJ444P:
		return []Plane{luma, luma, luma}, nil
	case media.PixelFormatGray:
		return []Plane{luma}, nil
	}
	return nil, fmt.Errorf("unsupported planar format: %q", f.PixelFormat)
}

// Size returns the number of bytes of one picture in format f.
func Size(f media.PictureFormat) (int, error) {
	planes, err := Layout(f)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range planes {
		n += p.Size()
	}
	return n, nil
}

// Split slices buf, holding one tightly packed picture of format f, into its
// planes. The returned planes share memory with buf.
func Split(buf []byte, f media.PictureFormat) ([][]byte, error) {
	layout, err := Layout(f)
	if err != nil {
		return nil, err
	}
	planes := make([][]byte, len(layout))
	off := 0
	for i, p := range layout {
		if off+p.Size() > len(buf) {
			return nil, io.ErrShortBuffer
		}
		planes[i] = buf[off : off+p.Size() : off+p.Size()]
		off += p.Size()
	}
	return planes, nil
}

// WritePlanes writes the planes of fr to w in storage order without any header.
func WritePlanes(w io.Writer, fr media.Frame) (int64, error) {
	layout, err := Layout(fr.Format())
	if err != nil {
		return 0, err
	}
	planes, err := fr.Planes()
	if err != nil {
		return 0, err
	}
	if len(planes) != len(layout) {
		return 0, fmt.Errorf("got %d planes, want %d", len(planes), len(layout))
	}
	var n int64
	for i, p := range layout {
		if len(planes[i]) < p.Size() {
			return n, fmt.Errorf("plane %d: %w", i, io.ErrShortBuffer)
		}
		m, err := w.Write(planes[i][:p.Size()])
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadImage reads one headerless 4:2:0 picture of the given size from r.
func ReadImage(r io.Reader, width, height int) (*image.YCbCr, error) {
	f := media.PictureFormat{Width: width, Height: height, PixelFormat: media.PixelFormatYUV420P}
	size, err := Size(f)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	planes, err := Split(buf, f)
	if err != nil {
		return nil, err
	}
	return &image.YCbCr{
		Y:              planes[0],
		Cb:             planes[1],
		Cr:             planes[2],
		YStride:        width,
		CStride:        (width + 1) / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, width, height),
	}, nil
}
