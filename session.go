// Package framegrab captures a single video frame from a capture device,
// converts it to a fixed planar picture and writes the raw planes to a file.
package framegrab

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kevmo314/go-framegrab/pkg/media"
	"github.com/kevmo314/go-framegrab/pkg/yuv"
)

type State int

const (
	StateIdle State = iota
	StateReading
	StateDecoding
	StateConverting
	StateWritten
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateDecoding:
		return "decoding"
	case StateConverting:
		return "converting"
	case StateWritten:
		return "written"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns every handle needed to capture one frame. It is not safe for
// concurrent use and runs at most once.
type Session struct {
	be  media.Backend
	cfg Config
	log logrus.FieldLogger

	source    media.Source
	stream    int
	params    media.CodecParameters
	decoder   media.Decoder
	converter media.Converter
	packet    media.Packet
	frame     media.Frame
	converted media.Frame
	output    *os.File

	state   State
	ran     bool
	created bool
	skipped int
}

func NewSession(be media.Backend, cfg Config, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		be:     be,
		cfg:    cfg,
		log:    log.WithField("session", uuid.NewString()),
		stream: -1,
	}
}

// Capture runs a new session for cfg on be.
func Capture(be media.Backend, cfg Config) error {
	return NewSession(be, cfg, nil).Run()
}

func (s *Session) State() State { return s.state }

func (s *Session) setState(st State) {
	if s.state != st {
		s.log.WithField("state", st).Debug("transition")
	}
	s.state = st
}

// Run captures one frame and releases everything it acquired, whether or not
// the capture succeeded. The returned error is the first failure.
func (s *Session) Run() (err error) {
	if s.ran {
		return ErrSessionDone
	}
	s.ran = true
	if err := s.cfg.Validate(); err != nil {
		s.state = StateFailed
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.cfg.RetryOnNeedMoreInput {
		s.log.Warn("retry_on_need_more_input is set, the decoder may consume several packets")
	}

	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			s.state = StateFailed
			s.removePartial()
		}
	}()

	if err := s.openSource(); err != nil {
		return err
	}
	if err := s.selectStream(); err != nil {
		return err
	}
	if err := s.openDecoder(); err != nil {
		return err
	}
	if err := s.openConverter(); err != nil {
		return err
	}
	if err := s.openOutput(); err != nil {
		return err
	}
	return s.capture()
}

func (s *Session) openSource() error {
	log := s.log.WithField("phase", "source")

	s.be.RegisterDevices()
	format, ok := s.be.FindInputFormat(s.cfg.InputFormat)
	if !ok {
		return &Error{Kind: ErrFormatNotFound, Err: fmt.Errorf("input format %q is not registered with %s", s.cfg.InputFormat, s.be.Name())}
	}
	src, err := s.be.OpenInput(s.cfg.Device, format)
	if err != nil {
		return newError(ErrSourceOpen, fmt.Errorf("%s: %w", s.cfg.Device, err))
	}
	s.source = src
	if err := src.FindStreamInfo(); err != nil {
		return newError(ErrStreamProbe, err)
	}
	log.WithFields(logrus.Fields{
		"device":  s.cfg.Device,
		"format":  format.Name(),
		"streams": len(src.Streams()),
	}).Debug("opened source")
	return nil
}

func (s *Session) selectStream() error {
	idx, err := s.source.FindBestStream(media.MediaTypeVideo)
	if err != nil {
		return newError(ErrNoVideoStream, err)
	}
	for _, st := range s.source.Streams() {
		if st.Index == idx {
			s.stream = idx
			s.params = st.Parameters
			s.log.WithFields(logrus.Fields{"phase": "stream", "index": idx}).Debugf("selected %s", st.Parameters)
			return nil
		}
	}
	return &Error{Kind: ErrNoVideoStream, Err: fmt.Errorf("best stream %d is not listed", idx)}
}

func (s *Session) openDecoder() error {
	c, ok := s.be.FindDecoder(s.params)
	if !ok {
		return &Error{Kind: ErrDecoderNotFound, Err: fmt.Errorf("codec %q", s.params.CodecID)}
	}
	dec, err := c.NewDecoder()
	if err != nil {
		return newError(ErrAllocation, fmt.Errorf("decoder context: %w", err))
	}
	s.decoder = dec
	if err := dec.SetParameters(s.params); err != nil {
		return newError(ErrDecoderOpen, err)
	}
	if err := dec.Open(); err != nil {
		return newError(ErrDecoderOpen, err)
	}
	s.log.WithFields(logrus.Fields{"phase": "decoder", "codec": c.Name()}).Debug("opened decoder")
	return nil
}

func (s *Session) openConverter() error {
	dst := s.cfg.Picture()
	pic, err := s.be.AllocPicture(dst)
	if err != nil {
		return newError(ErrAllocation, fmt.Errorf("%s picture: %w", dst, err))
	}
	s.converted = pic

	src := media.PictureFormat{Width: s.params.Width, Height: s.params.Height, PixelFormat: s.params.PixelFormat}
	conv, err := s.be.NewConverter(src, dst, s.cfg.Interpolation)
	if err != nil {
		return newError(ErrConverterInit, fmt.Errorf("%s to %s: %w", src, dst, err))
	}
	s.converter = conv

	fr, err := s.be.AllocFrame()
	if err != nil {
		return newError(ErrAllocation, fmt.Errorf("frame: %w", err))
	}
	s.frame = fr
	pkt, err := s.be.AllocPacket()
	if err != nil {
		return newError(ErrAllocation, fmt.Errorf("packet: %w", err))
	}
	s.packet = pkt

	s.log.WithFields(logrus.Fields{"phase": "converter", "interpolation": s.cfg.Interpolation}).Debugf("converting %s to %s", src, dst)
	return nil
}

func (s *Session) openOutput() error {
	f, err := os.Create(s.cfg.Output)
	if err != nil {
		return newError(ErrOutputOpen, err)
	}
	s.output = f
	s.created = true
	return nil
}

func (s *Session) capture() error {
	s.setState(StateReading)
	for {
		if err := s.source.ReadPacket(s.packet); err != nil {
			return newError(ErrRead, err)
		}
		if s.packet.StreamIndex() != s.stream {
			s.packet.Unref()
			s.skipped++
			continue
		}

		s.setState(StateDecoding)
		if err := s.decoder.SendPacket(s.packet); err != nil {
			return newError(ErrDecodeSubmit, err)
		}
		err := s.decoder.ReceiveFrame(s.frame)
		if errors.Is(err, media.ErrAgain) && s.cfg.RetryOnNeedMoreInput {
			s.packet.Unref()
			s.setState(StateReading)
			continue
		}
		if err != nil {
			return newError(ErrDecodeRetrieve, err)
		}
		s.packet.Unref()

		s.setState(StateConverting)
		if err := s.converter.Convert(s.frame, s.converted); err != nil {
			return newError(ErrConvert, err)
		}
		n, err := yuv.WritePlanes(s.output, s.converted)
		if err != nil {
			return newError(ErrWrite, err)
		}
		s.setState(StateWritten)

		if s.skipped > 0 {
			s.log.WithField("phase", "capture").Debugf("skipped %d packets from other streams", s.skipped)
		}
		s.log.WithFields(logrus.Fields{"output": s.cfg.Output, "bytes": n}).Info("wrote frame")
		return nil
	}
}

// Close releases every handle the session holds. It is safe to call more
// than once and on a session that never ran.
func (s *Session) Close() error {
	if s.packet != nil {
		s.packet.Free()
		s.packet = nil
	}
	if s.frame != nil {
		s.frame.Free()
		s.frame = nil
	}
	if s.converted != nil {
		s.converted.Free()
		s.converted = nil
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close source")
		}
		s.source = nil
	}
	if s.decoder != nil {
		if err := s.decoder.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close decoder")
		}
		s.decoder = nil
	}
	if s.converter != nil {
		if err := s.converter.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close converter")
		}
		s.converter = nil
	}
	if s.output != nil {
		err := s.output.Close()
		s.output = nil
		if err != nil {
			return newError(ErrWrite, err)
		}
	}
	return nil
}

func (s *Session) removePartial() {
	if !s.created || s.cfg.KeepPartialOutput {
		return
	}
	if err := os.Remove(s.cfg.Output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.WithError(err).Warn("failed to remove partial output")
		return
	}
	s.log.WithField("output", s.cfg.Output).Debug("removed partial output")
}
