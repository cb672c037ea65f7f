//go:build integration && !nolibav

package libav

import (
	"errors"
	"os"
	"testing"

	"github.com/kevmo314/go-framegrab/pkg/media"
	"github.com/kevmo314/go-framegrab/pkg/yuv"
)

func TestRegisterDevices(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	b.RegisterDevices()
	b.RegisterDevices()
	if _, ok := b.FindInputFormat("video4linux2"); !ok {
		t.Error("video4linux2 not found after RegisterDevices")
	}
	if _, ok := b.FindInputFormat("not-a-real-format"); ok {
		t.Error("FindInputFormat found a bogus format")
	}
}

func TestOpenInput_MissingDevice(t *testing.T) {
	b, _ := New()
	b.RegisterDevices()
	f, ok := b.FindInputFormat("video4linux2")
	if !ok {
		t.Skip("video4linux2 not available")
	}
	_, err := b.OpenInput("/dev/does-not-exist", f)
	if err == nil {
		t.Fatal("OpenInput succeeded for a missing device")
	}
	if code := media.Code(err); code >= 0 {
		t.Errorf("Code = %d, want a negative AVERROR", code)
	}
}

func openLavfi(t *testing.T, graph string) media.Source {
	t.Helper()
	b, _ := New()
	b.RegisterDevices()
	f, ok := b.FindInputFormat("lavfi")
	if !ok {
		t.Skip("lavfi not available")
	}
	src, err := b.OpenInput(graph, f)
	if err != nil {
		t.Fatalf("OpenInput(%q) failed: %v", graph, err)
	}
	t.Cleanup(func() { src.Close() })
	if err := src.FindStreamInfo(); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestFindBestStream_AudioFirst(t *testing.T) {
	src := openLavfi(t, "sine=frequency=440[out0];testsrc=size=320x240[out1]")
	idx, err := src.FindBestStream(media.MediaTypeVideo)
	if err != nil {
		t.Fatal(err)
	}
	par := src.Streams()[idx].Parameters
	if par.MediaType != media.MediaTypeVideo {
		t.Errorf("stream %d media type = %v, want video", idx, par.MediaType)
	}
	if idx != 1 {
		t.Errorf("FindBestStream() = %d, want 1", idx)
	}
}

func TestFindBestStream_AudioOnly(t *testing.T) {
	src := openLavfi(t, "sine=frequency=440")
	_, err := src.FindBestStream(media.MediaTypeVideo)
	if !errors.Is(err, media.ErrStreamNotFound) {
		t.Fatalf("FindBestStream() error = %v, want %v", err, media.ErrStreamNotFound)
	}
	if code := media.Code(err); code >= 0 {
		t.Errorf("Code = %d, want AVERROR_STREAM_NOT_FOUND", code)
	}
}

func TestCaptureOneFrame(t *testing.T) {
	device := os.Getenv("FRAMEGRAB_DEVICE")
	if device == "" {
		device = "/dev/video0"
	}
	b, _ := New()
	b.RegisterDevices()
	f, ok := b.FindInputFormat("video4linux2")
	if !ok {
		t.Skip("video4linux2 not available")
	}
	src, err := b.OpenInput(device, f)
	if err != nil {
		t.Skipf("no camera at %s: %v", device, err)
	}
	defer src.Close()

	if err := src.FindStreamInfo(); err != nil {
		t.Fatal(err)
	}
	idx, err := src.FindBestStream(media.MediaTypeVideo)
	if err != nil {
		t.Fatal(err)
	}
	par := src.Streams()[idx].Parameters

	c, ok := b.FindDecoder(par)
	if !ok {
		t.Fatalf("no decoder for %s", par.CodecID)
	}
	dec, err := c.NewDecoder()
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	if err := dec.SetParameters(par); err != nil {
		t.Fatal(err)
	}
	if err := dec.Open(); err != nil {
		t.Fatal(err)
	}

	dst := media.PictureFormat{Width: 640, Height: 480, PixelFormat: media.PixelFormatYUV420P}
	conv, err := b.NewConverter(media.PictureFormat{Width: par.Width, Height: par.Height, PixelFormat: par.PixelFormat}, dst, media.InterpolationBicubic)
	if err != nil {
		t.Fatal(err)
	}
	defer conv.Close()

	pkt, _ := b.AllocPacket()
	defer pkt.Free()
	fr, _ := b.AllocFrame()
	defer fr.Free()
	pic, err := b.AllocPicture(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer pic.Free()

	for {
		if err := src.ReadPacket(pkt); err != nil {
			t.Fatal(err)
		}
		if pkt.StreamIndex() != idx {
			pkt.Unref()
			continue
		}
		if err := dec.SendPacket(pkt); err != nil {
			t.Fatal(err)
		}
		pkt.Unref()
		err := dec.ReceiveFrame(fr)
		if errors.Is(err, media.ErrAgain) {
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		break
	}
	if err := conv.Convert(fr, pic); err != nil {
		t.Fatal(err)
	}
	planes, err := pic.Planes()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := yuv.Size(dst)
	got := 0
	for _, p := range planes {
		got += len(p)
	}
	if got != want {
		t.Errorf("picture size = %d, want %d", got, want)
	}
}
