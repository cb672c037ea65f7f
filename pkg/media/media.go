// Package media defines the backend contract consumed by the capture session:
// device registration, input formats, demuxing, decoding and pixel conversion.
package media

// Backend is a multimedia framework capable of opening capture devices. Values
// returned by a backend (packets, frames, formats) are only valid with that
// same backend.
type Backend interface {
	Name() string

	// RegisterDevices registers device input formats. It is process-wide and
	// safe to call more than once.
	RegisterDevices()

	FindInputFormat(name string) (InputFormat, bool)
	OpenInput(device string, format InputFormat) (Source, error)

	FindDecoder(par CodecParameters) (Codec, bool)
	NewConverter(src, dst PictureFormat, interp Interpolation) (Converter, error)

	// AllocPicture allocates a frame with a pixel buffer sized for f.
	AllocPicture(f PictureFormat) (Frame, error)
	AllocFrame() (Frame, error)
	AllocPacket() (Packet, error)
}

type InputFormat interface {
	Name() string
}

// Source is an opened capture device.
type Source interface {
	FindStreamInfo() error
	Streams() []StreamInfo

	// FindBestStream returns the index of the best stream of type t or
	// ErrStreamNotFound.
	FindBestStream(t MediaType) (int, error)

	// ReadPacket fills pkt with the next packet. It returns io.EOF at the end
	// of the stream.
	ReadPacket(pkt Packet) error

	Close() error
}

type Codec interface {
	Name() string
	NewDecoder() (Decoder, error)
}

// Decoder follows the push/pull model: SendPacket submits encoded input and
// ReceiveFrame returns decoded output or ErrAgain when more input is needed.
type Decoder interface {
	SetParameters(par CodecParameters) error
	Open() error
	SendPacket(pkt Packet) error
	ReceiveFrame(f Frame) error
	Close() error
}

type Converter interface {
	// Convert scales and converts src into the pre-allocated dst.
	Convert(src, dst Frame) error
	Close() error
}

type Packet interface {
	StreamIndex() int
	Data() []byte
	Unref()
	Free()
}

type Frame interface {
	Format() PictureFormat
	// Planes returns copies of the picture planes, tightly packed and in
	// storage order.
	Planes() ([][]byte, error)
	Unref()
	Free()
}

// BestStream picks the stream of type t with the largest picture, preferring
// the first one on ties.
func BestStream(streams []StreamInfo, t MediaType) (int, error) {
	best, area := -1, -1
	for _, st := range streams {
		p := st.Parameters
		if p.MediaType != t {
			continue
		}
		if a := p.Width * p.Height; a > area {
			best, area = st.Index, a
		}
	}
	if best < 0 {
		return -1, ErrStreamNotFound
	}
	return best, nil
}
