package media

import "fmt"

type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeData
	MediaTypeSubtitle
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	}
	return "unknown"
}

// CodecID is a codec name as registered with FFmpeg, e.g. "mjpeg" or "rawvideo".
type CodecID string

const (
	CodecIDMJPEG    CodecID = "mjpeg"
	CodecIDRawVideo CodecID = "rawvideo"
	CodecIDH264     CodecID = "h264"
	CodecIDPCMS16LE CodecID = "pcm_s16le"
)

// PixelFormat is a pixel format name as used by FFmpeg, e.g. "yuv420p".
type PixelFormat string

const (
	PixelFormatNone     PixelFormat = ""
	PixelFormatYUV420P  PixelFormat = "yuv420p"
	PixelFormatYUVJ420P PixelFormat = "yuvj420p"
	PixelFormatYUV422P  PixelFormat = "yuv422p"
	PixelFormatYUVJ422P PixelFormat = "yuvj422p"
	PixelFormatYUV444P  PixelFormat = "yuv444p"
	PixelFormatYUVJ444P PixelFormat = "yuvj444p"
	PixelFormatYUYV422  PixelFormat = "yuyv422"
	PixelFormatGray     PixelFormat = "gray"
	PixelFormatRGB24    PixelFormat = "rgb24"
	PixelFormatBGR24    PixelFormat = "bgr24"
)

type Interpolation string

const (
	InterpolationNearest  Interpolation = "nearest"
	InterpolationBilinear Interpolation = "bilinear"
	InterpolationBicubic  Interpolation = "bicubic"
)

func (i Interpolation) Valid() bool {
	switch i {
	case InterpolationNearest, InterpolationBilinear, InterpolationBicubic:
		return true
	}
	return false
}

// CodecParameters describes how a stream is encoded.
type CodecParameters struct {
	MediaType   MediaType
	CodecID     CodecID
	Width       int
	Height      int
	PixelFormat PixelFormat

	// Handle is the backend's own parameter object, if any.
	Handle any
}

func (p CodecParameters) String() string {
	if p.MediaType != MediaTypeVideo {
		return fmt.Sprintf("%s %s", p.MediaType, p.CodecID)
	}
	return fmt.Sprintf("%s %s %dx%d %s", p.MediaType, p.CodecID, p.Width, p.Height, p.PixelFormat)
}

type StreamInfo struct {
	Index      int
	Parameters CodecParameters
}

// PictureFormat is the geometry and pixel layout of a raw picture.
type PictureFormat struct {
	Width       int
	Height      int
	PixelFormat PixelFormat
}

func (f PictureFormat) String() string {
	return fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.PixelFormat)
}
