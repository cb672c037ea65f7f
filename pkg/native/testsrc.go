package native

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

// audioPacketSize is the size of one silent pcm_s16le packet.
const audioPacketSize = 1024

// testSource is a deterministic synthetic source. Its device string is a
// comma separated list of entries:
//
//	video[=WxH[:pixfmt]]  a video stream, 320x240 yuv420p by default
//	audio                 a silent pcm_s16le stream
//	packets=N             end the stream after N packets
//
// Packets are produced round-robin in stream order. Pixel format "mjpeg"
// selects an MJPEG coded stream.
type testSource struct {
	streams []media.StreamInfo
	limit   int
	sent    int
	frames  int
	closed  bool
}

func openTestSource(device string) (media.Source, error) {
	s := &testSource{limit: -1}
	for _, entry := range strings.Split(device, ",") {
		entry = strings.TrimSpace(entry)
		kind, arg, _ := strings.Cut(entry, "=")
		switch kind {
		case "video":
			par, err := parseVideoEntry(arg)
			if err != nil {
				return nil, invalidDevice(device, err)
			}
			s.streams = append(s.streams, media.StreamInfo{Index: len(s.streams), Parameters: par})
		case "audio":
			s.streams = append(s.streams, media.StreamInfo{
				Index:      len(s.streams),
				Parameters: media.CodecParameters{MediaType: media.MediaTypeAudio, CodecID: media.CodecIDPCMS16LE},
			})
		case "packets":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return nil, invalidDevice(device, fmt.Errorf("bad packet count %q", arg))
			}
			s.limit = n
		default:
			return nil, invalidDevice(device, fmt.Errorf("unknown entry %q", entry))
		}
	}
	return s, nil
}

func invalidDevice(device string, err error) error {
	return &media.Error{Op: "testsrc open " + strconv.Quote(device), Code: -int(syscall.EINVAL), Err: err}
}

func parseVideoEntry(arg string) (media.CodecParameters, error) {
	par := media.CodecParameters{
		MediaType:   media.MediaTypeVideo,
		CodecID:     media.CodecIDRawVideo,
		Width:       320,
		Height:      240,
		PixelFormat: media.PixelFormatYUV420P,
	}
	if arg == "" {
		return par, nil
	}
	size, pf, hasFormat := strings.Cut(arg, ":")
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return par, fmt.Errorf("bad video size %q", size)
	}
	var err error
	if par.Width, err = strconv.Atoi(w); err != nil {
		return par, fmt.Errorf("bad video width %q", w)
	}
	if par.Height, err = strconv.Atoi(h); err != nil {
		return par, fmt.Errorf("bad video height %q", h)
	}
	if par.Width > maxDimension || par.Height > maxDimension {
		return par, fmt.Errorf("video size %dx%d exceeds %d", par.Width, par.Height, maxDimension)
	}
	if !hasFormat {
		return par, nil
	}
	if pf == string(media.CodecIDMJPEG) {
		par.CodecID = media.CodecIDMJPEG
		par.PixelFormat = media.PixelFormatYUVJ420P
		return par, nil
	}
	par.PixelFormat = media.PixelFormat(pf)
	if _, err := rawDecoder(2, 2, par.PixelFormat); err != nil {
		return par, err
	}
	return par, nil
}

func (s *testSource) FindStreamInfo() error {
	for _, st := range s.streams {
		p := st.Parameters
		if p.MediaType == media.MediaTypeVideo && (p.Width <= 0 || p.Height <= 0) {
			return &media.Error{Op: "testsrc probe", Code: -int(syscall.EINVAL), Err: fmt.Errorf("stream %d: could not determine video size", st.Index)}
		}
	}
	return nil
}

func (s *testSource) Streams() []media.StreamInfo { return s.streams }

func (s *testSource) FindBestStream(t media.MediaType) (int, error) {
	return media.BestStream(s.streams, t)
}

func (s *testSource) ReadPacket(p media.Packet) error {
	pkt, err := asPacket(p)
	if err != nil {
		return err
	}
	if s.closed {
		return errors.New("testsrc: source closed")
	}
	if len(s.streams) == 0 || (s.limit >= 0 && s.sent >= s.limit) {
		return io.EOF
	}
	st := s.streams[s.sent%len(s.streams)]
	s.sent++
	if st.Parameters.MediaType != media.MediaTypeVideo {
		pkt.fill(st.Index, make([]byte, audioPacketSize))
		return nil
	}
	data, err := TestPattern(st.Parameters, s.frames)
	if err != nil {
		return err
	}
	s.frames++
	pkt.fill(st.Index, data)
	return nil
}

func (s *testSource) Close() error {
	s.closed = true
	return nil
}

// TestPattern encodes frame n of the synthetic pattern for a video stream
// with parameters par. The output depends only on par and n.
func TestPattern(par media.CodecParameters, n int) ([]byte, error) {
	w, h := par.Width, par.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", w, h)
	}
	img := patternImage(w, h, n)
	if par.CodecID == media.CodecIDMJPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	switch par.PixelFormat {
	case media.PixelFormatYUV444P, media.PixelFormatYUVJ444P:
		return concat(img.Y, img.Cb, img.Cr), nil
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P, media.PixelFormatYUV422P, media.PixelFormatYUVJ422P:
		ratio := subsampleRatio(par.PixelFormat)
		sub := image.NewYCbCr(img.Rect, ratio)
		copy(sub.Y, img.Y)
		cw, ch := chromaSize(w, h, ratio)
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				sx, sy := x*w/cw, y*h/ch
				sub.Cb[y*sub.CStride+x] = img.Cb[img.COffset(sx, sy)]
				sub.Cr[y*sub.CStride+x] = img.Cr[img.COffset(sx, sy)]
			}
		}
		return concat(sub.Y, sub.Cb, sub.Cr), nil
	case media.PixelFormatYUYV422:
		out := make([]byte, 0, w*h*2)
		for y := 0; y < h; y++ {
			for x := 0; x+1 < w; x += 2 {
				c := img.COffset(x, y)
				out = append(out, img.Y[img.YOffset(x, y)], img.Cb[c], img.Y[img.YOffset(x+1, y)], img.Cr[c])
			}
		}
		return out, nil
	case media.PixelFormatGray:
		return concat(img.Y), nil
	case media.PixelFormatRGB24, media.PixelFormatBGR24:
		out := make([]byte, 0, w*h*3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := color.YCbCrToRGB(img.Y[img.YOffset(x, y)], img.Cb[img.COffset(x, y)], img.Cr[img.COffset(x, y)])
				if par.PixelFormat == media.PixelFormatBGR24 {
					r, b = b, r
				}
				out = append(out, r, g, b)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported pattern pixel format %q", par.PixelFormat)
}

// patternImage draws eight vertical luma bars over horizontal and vertical
// chroma ramps. The bars shift right by four pixels per frame.
func patternImage(w, h, n int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio444)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bar := ((x + 4*n) * 8 / w) % 8
			img.Y[img.YOffset(x, y)] = uint8(16 + bar*219/7)
			img.Cb[img.COffset(x, y)] = uint8(16 + x*224/w)
			img.Cr[img.COffset(x, y)] = uint8(16 + y*224/h)
		}
	}
	return img
}

func concat(planes ...[]byte) []byte {
	var out []byte
	for _, p := range planes {
		out = append(out, p...)
	}
	return out
}
