package native

import (
	"bytes"
	"errors"
	"io"
	"syscall"
	"testing"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

func TestOpenTestSource_Defaults(t *testing.T) {
	src, err := openTestSource("video")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	streams := src.Streams()
	if len(streams) != 1 {
		t.Fatalf("len(Streams()) = %d, want 1", len(streams))
	}
	par := streams[0].Parameters
	if par.Width != 320 || par.Height != 240 {
		t.Errorf("size = %dx%d, want 320x240", par.Width, par.Height)
	}
	if par.CodecID != media.CodecIDRawVideo {
		t.Errorf("CodecID = %q, want %q", par.CodecID, media.CodecIDRawVideo)
	}
	if par.PixelFormat != media.PixelFormatYUV420P {
		t.Errorf("PixelFormat = %q, want %q", par.PixelFormat, media.PixelFormatYUV420P)
	}
}

func TestOpenTestSource_MJPEG(t *testing.T) {
	src, err := openTestSource("video=64x32:mjpeg")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	par := src.Streams()[0].Parameters
	if par.CodecID != media.CodecIDMJPEG {
		t.Errorf("CodecID = %q, want %q", par.CodecID, media.CodecIDMJPEG)
	}
	if par.Width != 64 || par.Height != 32 {
		t.Errorf("size = %dx%d, want 64x32", par.Width, par.Height)
	}
}

func TestOpenTestSource_BadGrammar(t *testing.T) {
	for _, device := range []string{
		"video=abc",
		"video=10xq",
		"video=16x16:bogus",
		"video=100000x100000",
		"video=16385x16",
		"packets=-1",
		"packets=x",
		"microphone",
	} {
		_, err := openTestSource(device)
		if err == nil {
			t.Errorf("openTestSource(%q) succeeded, want error", device)
			continue
		}
		if code := media.Code(err); code != -int(syscall.EINVAL) {
			t.Errorf("openTestSource(%q) code = %d, want %d", device, code, -int(syscall.EINVAL))
		}
	}
}

func TestFindStreamInfo_ZeroSize(t *testing.T) {
	src, err := openTestSource("video=0x240")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	if err := src.FindStreamInfo(); err == nil {
		t.Error("FindStreamInfo() succeeded for a 0x240 stream, want error")
	}
}

func TestFindBestStream(t *testing.T) {
	tests := []struct {
		device string
		want   int
	}{
		{"video=64x48,video=64x48,video=32x32", 0},
		{"video=32x32,video=64x48", 1},
		{"audio,video=16x16", 1},
	}
	for _, tt := range tests {
		src, err := openTestSource(tt.device)
		if err != nil {
			t.Fatalf("openTestSource(%q) failed: %v", tt.device, err)
		}
		got, err := src.FindBestStream(media.MediaTypeVideo)
		if err != nil {
			t.Errorf("FindBestStream(%q) failed: %v", tt.device, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FindBestStream(%q) = %d, want %d", tt.device, got, tt.want)
		}
	}
}

func TestFindBestStream_AudioOnly(t *testing.T) {
	src, err := openTestSource("audio")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	if _, err := src.FindBestStream(media.MediaTypeVideo); !errors.Is(err, media.ErrStreamNotFound) {
		t.Errorf("FindBestStream() error = %v, want %v", err, media.ErrStreamNotFound)
	}
}

func TestReadPacket_Interleaved(t *testing.T) {
	src, err := openTestSource("audio,video=16x16,packets=3")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	pkt := &packet{stream: -1}
	want := []struct {
		stream, size int
	}{
		{0, audioPacketSize},
		{1, 16*16 + 2*8*8},
		{0, audioPacketSize},
	}
	for i, w := range want {
		if err := src.ReadPacket(pkt); err != nil {
			t.Fatalf("ReadPacket #%d failed: %v", i, err)
		}
		if pkt.StreamIndex() != w.stream {
			t.Errorf("packet #%d StreamIndex() = %d, want %d", i, pkt.StreamIndex(), w.stream)
		}
		if len(pkt.Data()) != w.size {
			t.Errorf("packet #%d len(Data()) = %d, want %d", i, len(pkt.Data()), w.size)
		}
		pkt.Unref()
	}
	if err := src.ReadPacket(pkt); err != io.EOF {
		t.Errorf("ReadPacket after limit = %v, want io.EOF", err)
	}
}

func TestReadPacket_NoStreams(t *testing.T) {
	src, err := openTestSource("packets=5")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	if err := src.ReadPacket(&packet{}); err != io.EOF {
		t.Errorf("ReadPacket() = %v, want io.EOF", err)
	}
}

func TestReadPacket_Closed(t *testing.T) {
	src, err := openTestSource("video=8x8")
	if err != nil {
		t.Fatalf("openTestSource failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.ReadPacket(&packet{}); err == nil {
		t.Error("ReadPacket() after Close succeeded, want error")
	}
}

func TestTestPattern_Deterministic(t *testing.T) {
	par := media.CodecParameters{
		MediaType:   media.MediaTypeVideo,
		CodecID:     media.CodecIDRawVideo,
		Width:       64,
		Height:      16,
		PixelFormat: media.PixelFormatYUV420P,
	}
	a, err := TestPattern(par, 3)
	if err != nil {
		t.Fatalf("TestPattern failed: %v", err)
	}
	b, err := TestPattern(par, 3)
	if err != nil {
		t.Fatalf("TestPattern failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("TestPattern output differs for the same frame")
	}
	c, err := TestPattern(par, 4)
	if err != nil {
		t.Fatalf("TestPattern failed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Error("TestPattern output identical for consecutive frames")
	}
}

func TestTestPattern_Sizes(t *testing.T) {
	tests := []struct {
		pf   media.PixelFormat
		want int
	}{
		{media.PixelFormatYUV420P, 10*6 + 2*5*3},
		{media.PixelFormatYUV422P, 10*6 + 2*5*6},
		{media.PixelFormatYUV444P, 10 * 6 * 3},
		{media.PixelFormatYUYV422, 10 * 6 * 2},
		{media.PixelFormatGray, 10 * 6},
		{media.PixelFormatRGB24, 10 * 6 * 3},
		{media.PixelFormatBGR24, 10 * 6 * 3},
	}
	for _, tt := range tests {
		par := media.CodecParameters{CodecID: media.CodecIDRawVideo, Width: 10, Height: 6, PixelFormat: tt.pf}
		data, err := TestPattern(par, 0)
		if err != nil {
			t.Errorf("TestPattern(%s) failed: %v", tt.pf, err)
			continue
		}
		if len(data) != tt.want {
			t.Errorf("TestPattern(%s) len = %d, want %d", tt.pf, len(data), tt.want)
		}
	}
}
