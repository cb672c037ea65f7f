//go:build linux

package native

import (
	"errors"
	"fmt"

	"github.com/blackjack/webcam"
	"golang.org/x/sys/unix"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

var deviceFormats = []string{"video4linux2", "v4l2"}

const (
	v4l2BufferCount = 4
	// v4l2FrameTimeout is in seconds.
	v4l2FrameTimeout = 5
)

func fourcc(a, b, c, d byte) webcam.PixelFormat {
	return webcam.PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

func fourccString(v webcam.PixelFormat) string {
	return string([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

type v4l2Codec struct {
	fourcc webcam.PixelFormat
	codec  media.CodecID
	pix    media.PixelFormat
}

// v4l2Codecs lists the decodable device formats, most preferred first.
var v4l2Codecs = []v4l2Codec{
	{fourcc('M', 'J', 'P', 'G'), media.CodecIDMJPEG, media.PixelFormatNone},
	{fourcc('J', 'P', 'E', 'G'), media.CodecIDMJPEG, media.PixelFormatNone},
	{fourcc('Y', 'U', 'Y', 'V'), media.CodecIDRawVideo, media.PixelFormatYUYV422},
	{fourcc('Y', 'U', '1', '2'), media.CodecIDRawVideo, media.PixelFormatYUV420P},
	{fourcc('4', '2', '2', 'P'), media.CodecIDRawVideo, media.PixelFormatYUV422P},
	{fourcc('G', 'R', 'E', 'Y'), media.CodecIDRawVideo, media.PixelFormatGray},
	{fourcc('R', 'G', 'B', '3'), media.CodecIDRawVideo, media.PixelFormatRGB24},
	{fourcc('B', 'G', 'R', '3'), media.CodecIDRawVideo, media.PixelFormatBGR24},
}

func lookupCodec(f webcam.PixelFormat) (v4l2Codec, bool) {
	for _, c := range v4l2Codecs {
		if c.fourcc == f {
			return c, true
		}
	}
	return v4l2Codec{}, false
}

// v4l2error wraps an errno the way FFmpeg reports it, as a negative code.
func v4l2error(op string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return &media.Error{Op: op, Code: -int(errno), Err: err}
	}
	return &media.Error{Op: op, Code: -int(unix.EIO), Err: err}
}

// largestSize picks the biggest frame size a device offers within
// maxDimension. Stepwise ranges contribute their clamped maximum.
func largestSize(sizes []webcam.FrameSize) (uint32, uint32, bool) {
	var w, h uint32
	for _, s := range sizes {
		sw, sh := min(s.MaxWidth, maxDimension), min(s.MaxHeight, maxDimension)
		if sw < s.MinWidth || sh < s.MinHeight || sw == 0 || sh == 0 {
			continue
		}
		if uint64(sw)*uint64(sh) > uint64(w)*uint64(h) {
			w, h = sw, sh
		}
	}
	return w, h, w > 0
}

// negotiate chooses the most preferred decodable format the device supports
// and its largest frame size.
func negotiate(formats map[webcam.PixelFormat]string, sizes func(webcam.PixelFormat) []webcam.FrameSize) (webcam.PixelFormat, uint32, uint32, error) {
	for _, c := range v4l2Codecs {
		if _, ok := formats[c.fourcc]; !ok {
			continue
		}
		if w, h, ok := largestSize(sizes(c.fourcc)); ok {
			return c.fourcc, w, h, nil
		}
	}
	var names []string
	for f := range formats {
		names = append(names, fourccString(f))
	}
	return 0, 0, 0, fmt.Errorf("no decodable format among %v", names)
}

// v4l2Source captures from a V4L2 device. ReadPacket blocks for at most
// v4l2FrameTimeout seconds waiting for the next frame.
type v4l2Source struct {
	cam       *webcam.Webcam
	path      string
	streams   []media.StreamInfo
	streaming bool
}

func openDevice(path string) (media.Source, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, v4l2error("open "+path, err)
	}
	return &v4l2Source{cam: cam, path: path}, nil
}

func (s *v4l2Source) FindStreamInfo() error {
	f, w, h, err := negotiate(s.cam.GetSupportedFormats(), s.cam.GetSupportedFrameSizes)
	if err != nil {
		return &media.Error{Op: "VIDIOC_ENUM_FMT " + s.path, Code: -int(unix.EINVAL), Err: err}
	}
	f, w, h, err = s.cam.SetImageFormat(f, w, h)
	if err != nil {
		return v4l2error("VIDIOC_S_FMT", err)
	}
	if w == 0 || h == 0 {
		return &media.Error{Op: "VIDIOC_S_FMT", Code: -int(unix.EINVAL), Err: fmt.Errorf("device reports %dx%d", w, h)}
	}
	par := media.CodecParameters{
		MediaType: media.MediaTypeVideo,
		Width:     int(w),
		Height:    int(h),
	}
	if c, ok := lookupCodec(f); ok {
		par.CodecID, par.PixelFormat = c.codec, c.pix
	} else {
		par.CodecID = media.CodecID("v4l2:" + fourccString(f))
	}
	s.streams = []media.StreamInfo{{Index: 0, Parameters: par}}
	return nil
}

func (s *v4l2Source) Streams() []media.StreamInfo { return s.streams }

func (s *v4l2Source) FindBestStream(t media.MediaType) (int, error) {
	return media.BestStream(s.streams, t)
}

func (s *v4l2Source) start() error {
	if err := s.cam.SetBufferCount(v4l2BufferCount); err != nil {
		return v4l2error("VIDIOC_REQBUFS", err)
	}
	if err := s.cam.StartStreaming(); err != nil {
		return v4l2error("VIDIOC_STREAMON", err)
	}
	s.streaming = true
	return nil
}

func (s *v4l2Source) ReadPacket(p media.Packet) error {
	pkt, err := asPacket(p)
	if err != nil {
		return err
	}
	if s.streams == nil {
		return errors.New("v4l2: stream info not probed")
	}
	if !s.streaming {
		if err := s.start(); err != nil {
			return err
		}
	}

	for {
		err := s.cam.WaitForFrame(v4l2FrameTimeout)
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			return &media.Error{Op: "select " + s.path, Code: -int(unix.ETIMEDOUT), Err: err}
		}
		if err != nil {
			return v4l2error("select "+s.path, err)
		}
		frame, err := s.cam.ReadFrame()
		if err != nil {
			return v4l2error("VIDIOC_DQBUF", err)
		}
		if len(frame) == 0 {
			continue
		}
		pkt.fill(0, frame)
		return nil
	}
}

func (s *v4l2Source) Close() error {
	if s.cam == nil {
		return nil
	}
	var errs []error
	if s.streaming {
		if err := s.cam.StopStreaming(); err != nil {
			errs = append(errs, v4l2error("VIDIOC_STREAMOFF", err))
		}
		s.streaming = false
	}
	if err := s.cam.Close(); err != nil {
		errs = append(errs, v4l2error("close", err))
	}
	s.cam = nil
	return errors.Join(errs...)
}
