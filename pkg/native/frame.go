package native

import (
	"fmt"
	"image"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

type packet struct {
	stream int
	data   []byte
}

func (p *packet) StreamIndex() int { return p.stream }
func (p *packet) Data() []byte     { return p.data }

func (p *packet) Unref() {
	p.stream = -1
	p.data = p.data[:0]
}

func (p *packet) Free() {
	p.stream = -1
	p.data = nil
}

func (p *packet) fill(stream int, data []byte) {
	p.stream = stream
	p.data = append(p.data[:0], data...)
}

func asPacket(p media.Packet) (*packet, error) {
	pkt, ok := p.(*packet)
	if !ok || pkt == nil {
		return nil, fmt.Errorf("packet %T does not belong to the native backend", p)
	}
	return pkt, nil
}

// frame holds a decoded or allocated picture. Pinned frames own a buffer
// allocated up front that survives Unref.
type frame struct {
	img    image.Image
	pinned bool
}

func asFrame(f media.Frame) (*frame, error) {
	fr, ok := f.(*frame)
	if !ok || fr == nil {
		return nil, fmt.Errorf("frame %T does not belong to the native backend", f)
	}
	return fr, nil
}

func (f *frame) Format() media.PictureFormat {
	if f.img == nil {
		return media.PictureFormat{}
	}
	b := f.img.Bounds()
	return media.PictureFormat{Width: b.Dx(), Height: b.Dy(), PixelFormat: pixelFormatOf(f.img)}
}

func (f *frame) Planes() ([][]byte, error) {
	switch img := f.img.(type) {
	case nil:
		return nil, fmt.Errorf("frame has no picture")
	case *image.YCbCr:
		b := img.Rect
		cw, ch := chromaSize(b.Dx(), b.Dy(), img.SubsampleRatio)
		return [][]byte{
			compact(img.Y[img.YOffset(b.Min.X, b.Min.Y):], img.YStride, b.Dx(), b.Dy()),
			compact(img.Cb[img.COffset(b.Min.X, b.Min.Y):], img.CStride, cw, ch),
			compact(img.Cr[img.COffset(b.Min.X, b.Min.Y):], img.CStride, cw, ch),
		}, nil
	case *image.Gray:
		b := img.Rect
		return [][]byte{compact(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], img.Stride, b.Dx(), b.Dy())}, nil
	case *RGB:
		b := img.Rect
		return [][]byte{compact(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], img.Stride, b.Dx()*3, b.Dy())}, nil
	case *BGR:
		b := img.Rect
		return [][]byte{compact(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], img.Stride, b.Dx()*3, b.Dy())}, nil
	}
	return nil, fmt.Errorf("unsupported picture type %T", f.img)
}

func (f *frame) Unref() {
	if !f.pinned {
		f.img = nil
	}
}

func (f *frame) Free() {
	f.img = nil
	f.pinned = false
}

// compact copies h rows of w bytes out of a strided buffer.
func compact(pix []byte, stride, w, h int) []byte {
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(out[y*w:(y+1)*w], pix[y*stride:y*stride+w])
	}
	return out
}

func chromaSize(w, h int, ratio image.YCbCrSubsampleRatio) (int, int) {
	switch ratio {
	case image.YCbCrSubsampleRatio422:
		return (w + 1) / 2, h
	case image.YCbCrSubsampleRatio420:
		return (w + 1) / 2, (h + 1) / 2
	case image.YCbCrSubsampleRatio440:
		return w, (h + 1) / 2
	case image.YCbCrSubsampleRatio411:
		return (w + 3) / 4, h
	case image.YCbCrSubsampleRatio410:
		return (w + 3) / 4, (h + 1) / 2
	}
	return w, h
}

func pixelFormatOf(img image.Image) media.PixelFormat {
	switch img := img.(type) {
	case *image.YCbCr:
		switch img.SubsampleRatio {
		case image.YCbCrSubsampleRatio420:
			return media.PixelFormatYUV420P
		case image.YCbCrSubsampleRatio422:
			return media.PixelFormatYUV422P
		case image.YCbCrSubsampleRatio444:
			return media.PixelFormatYUV444P
		}
	case *image.Gray:
		return media.PixelFormatGray
	case *RGB:
		return media.PixelFormatRGB24
	case *BGR:
		return media.PixelFormatBGR24
	}
	return media.PixelFormatNone
}
