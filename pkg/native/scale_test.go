package native

import (
	"image"
	"testing"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

var vga420 = media.PictureFormat{Width: 640, Height: 480, PixelFormat: media.PixelFormatYUV420P}

func TestConvert_Downscale(t *testing.T) {
	b := New()
	src := media.PictureFormat{Width: 1280, Height: 720, PixelFormat: media.PixelFormatYUV420P}
	conv, err := b.NewConverter(src, vga420, media.InterpolationBicubic)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	defer conv.Close()

	in := &frame{img: image.NewYCbCr(image.Rect(0, 0, 1280, 720), image.YCbCrSubsampleRatio420)}
	out, err := b.AllocPicture(vga420)
	if err != nil {
		t.Fatalf("AllocPicture failed: %v", err)
	}
	if err := conv.Convert(in, out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	planes, err := out.Planes()
	if err != nil {
		t.Fatalf("Planes failed: %v", err)
	}
	want := []int{307200, 76800, 76800}
	if len(planes) != len(want) {
		t.Fatalf("len(planes) = %d, want %d", len(planes), len(want))
	}
	for i, p := range planes {
		if len(p) != want[i] {
			t.Errorf("plane %d size = %d, want %d", i, len(p), want[i])
		}
	}
}

func TestConvert_GrayFillsChroma(t *testing.T) {
	b := New()
	src := media.PictureFormat{Width: 8, Height: 8, PixelFormat: media.PixelFormatGray}
	dst := media.PictureFormat{Width: 4, Height: 4, PixelFormat: media.PixelFormatYUV420P}
	conv, err := b.NewConverter(src, dst, media.InterpolationNearest)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = 200
	}
	out, _ := b.AllocPicture(dst)
	if err := conv.Convert(&frame{img: gray}, out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	planes, _ := out.Planes()
	for i, v := range planes[0] {
		if v != 200 {
			t.Fatalf("Y[%d] = %d, want 200", i, v)
		}
	}
	for p := 1; p < 3; p++ {
		for i, v := range planes[p] {
			if v != 0x80 {
				t.Fatalf("plane %d [%d] = %#x, want 0x80", p, i, v)
			}
		}
	}
}

func TestConvert_RGBSource(t *testing.T) {
	b := New()
	src := media.PictureFormat{Width: 4, Height: 4, PixelFormat: media.PixelFormatRGB24}
	dst := media.PictureFormat{Width: 2, Height: 2, PixelFormat: media.PixelFormatYUV444P}
	conv, err := b.NewConverter(src, dst, media.InterpolationBilinear)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	out, _ := b.AllocPicture(dst)
	if err := conv.Convert(&frame{img: NewRGB(image.Rect(0, 0, 4, 4))}, out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	planes, _ := out.Planes()
	if planes[0][0] != 0 || planes[1][0] != 0x80 || planes[2][0] != 0x80 {
		t.Errorf("pixel = %d,%d,%d, want 0,128,128", planes[0][0], planes[1][0], planes[2][0])
	}
}

func TestConvert_SizeMismatch(t *testing.T) {
	b := New()
	src := media.PictureFormat{Width: 16, Height: 16, PixelFormat: media.PixelFormatYUV420P}
	conv, err := b.NewConverter(src, vga420, media.InterpolationBicubic)
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}
	out, _ := b.AllocPicture(vga420)
	in := &frame{img: image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)}
	if err := conv.Convert(in, out); err == nil {
		t.Error("Convert() succeeded for an 8x8 frame on a 16x16 converter, want error")
	}
	if err := conv.Convert(&frame{}, out); err == nil {
		t.Error("Convert() succeeded for an empty frame, want error")
	}
}

func TestNewConverter_Rejects(t *testing.T) {
	b := New()
	ok := media.PictureFormat{Width: 16, Height: 16, PixelFormat: media.PixelFormatYUV420P}
	tests := []struct {
		name     string
		src, dst media.PictureFormat
		interp   media.Interpolation
	}{
		{"interpolation", ok, vga420, media.Interpolation("lanczos")},
		{"source size", media.PictureFormat{PixelFormat: media.PixelFormatYUV420P}, vga420, media.InterpolationBicubic},
		{"source format", media.PictureFormat{Width: 16, Height: 16, PixelFormat: "nv12"}, vga420, media.InterpolationBicubic},
		{"destination size", ok, media.PictureFormat{Width: 0, Height: 480, PixelFormat: media.PixelFormatYUV420P}, media.InterpolationBicubic},
		{"destination format", ok, media.PictureFormat{Width: 640, Height: 480, PixelFormat: media.PixelFormatRGB24}, media.InterpolationBicubic},
	}
	for _, tt := range tests {
		if _, err := b.NewConverter(tt.src, tt.dst, tt.interp); err == nil {
			t.Errorf("NewConverter(%s) succeeded, want error", tt.name)
		}
	}
}
