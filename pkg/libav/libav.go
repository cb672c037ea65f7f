//go:build !nolibav

// Package libav is a media backend on top of FFmpeg's libavdevice,
// libavformat, libavcodec and libswscale through go-astiav.
package libav

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/asticode/go-astiav"

	"github.com/kevmo314/go-framegrab/pkg/media"
	"github.com/kevmo314/go-framegrab/pkg/yuv"
)

type Backend struct {
	devices sync.Once
}

var _ media.Backend = (*Backend)(nil)

func New() (*Backend, error) {
	return &Backend{}, nil
}

func (b *Backend) Name() string { return "libav" }

func (b *Backend) RegisterDevices() {
	b.devices.Do(astiav.RegisterAllDevices)
}

// averror wraps an FFmpeg error with its AVERROR code.
func averror(op string, err error) error {
	var e astiav.Error
	if errors.As(err, &e) {
		return &media.Error{Op: op, Code: int(e), Err: err}
	}
	return &media.Error{Op: op, Code: -int(syscall.EINVAL), Err: err}
}

func allocError(op string) error {
	return &media.Error{Op: op, Code: -int(syscall.ENOMEM), Err: errors.New("cannot allocate memory")}
}

type inputFormat struct {
	f *astiav.InputFormat
}

func (f *inputFormat) Name() string { return f.f.Name() }

func (b *Backend) FindInputFormat(name string) (media.InputFormat, bool) {
	f := astiav.FindInputFormat(name)
	if f == nil {
		return nil, false
	}
	return &inputFormat{f: f}, true
}

func (b *Backend) OpenInput(device string, format media.InputFormat) (media.Source, error) {
	f, ok := format.(*inputFormat)
	if !ok {
		return nil, fmt.Errorf("input format %T does not belong to the libav backend", format)
	}
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, allocError("avformat_alloc_context")
	}
	if err := fc.OpenInput(device, f.f, nil); err != nil {
		fc.Free()
		return nil, averror("avformat_open_input", err)
	}
	return &source{fc: fc}, nil
}

type source struct {
	fc *astiav.FormatContext
}

func (s *source) FindStreamInfo() error {
	if err := s.fc.FindStreamInfo(nil); err != nil {
		return averror("avformat_find_stream_info", err)
	}
	return nil
}

func (s *source) Streams() []media.StreamInfo {
	var out []media.StreamInfo
	for _, st := range s.fc.Streams() {
		out = append(out, media.StreamInfo{Index: st.Index(), Parameters: parameters(st.CodecParameters())})
	}
	return out
}

// FindBestStream asks libavformat for the best stream of type t.
func (s *source) FindBestStream(t media.MediaType) (int, error) {
	mt, ok := avMediaType(t)
	if !ok {
		return -1, media.ErrStreamNotFound
	}
	st, _, err := s.fc.FindBestStream(mt, -1, -1)
	if errors.Is(err, astiav.ErrStreamNotFound) {
		return -1, &media.Error{Op: "av_find_best_stream", Code: int(astiav.ErrStreamNotFound), Err: media.ErrStreamNotFound}
	}
	if err != nil {
		return -1, averror("av_find_best_stream", err)
	}
	return st.Index(), nil
}

func (s *source) ReadPacket(p media.Packet) error {
	pkt, err := asPacket(p)
	if err != nil {
		return err
	}
	if err := s.fc.ReadFrame(pkt.p); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return io.EOF
		}
		return averror("av_read_frame", err)
	}
	return nil
}

func (s *source) Close() error {
	if s.fc == nil {
		return nil
	}
	s.fc.CloseInput()
	s.fc.Free()
	s.fc = nil
	return nil
}

func parameters(par *astiav.CodecParameters) media.CodecParameters {
	p := media.CodecParameters{
		MediaType: mediaType(par.MediaType()),
		CodecID:   media.CodecID(par.CodecID().Name()),
		Handle:    par,
	}
	if p.MediaType == media.MediaTypeVideo {
		p.Width = par.Width()
		p.Height = par.Height()
		p.PixelFormat = media.PixelFormat(par.PixelFormat().Name())
	}
	return p
}

func mediaType(t astiav.MediaType) media.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return media.MediaTypeVideo
	case astiav.MediaTypeAudio:
		return media.MediaTypeAudio
	case astiav.MediaTypeData:
		return media.MediaTypeData
	case astiav.MediaTypeSubtitle:
		return media.MediaTypeSubtitle
	}
	return media.MediaTypeUnknown
}

func avMediaType(t media.MediaType) (astiav.MediaType, bool) {
	switch t {
	case media.MediaTypeVideo:
		return astiav.MediaTypeVideo, true
	case media.MediaTypeAudio:
		return astiav.MediaTypeAudio, true
	case media.MediaTypeData:
		return astiav.MediaTypeData, true
	case media.MediaTypeSubtitle:
		return astiav.MediaTypeSubtitle, true
	}
	return astiav.MediaTypeUnknown, false
}

type codec struct {
	c *astiav.Codec
}

func (c *codec) Name() string { return c.c.Name() }

func (c *codec) NewDecoder() (media.Decoder, error) {
	cc := astiav.AllocCodecContext(c.c)
	if cc == nil {
		return nil, allocError("avcodec_alloc_context3")
	}
	return &decoder{codec: c.c, cc: cc}, nil
}

func (b *Backend) FindDecoder(par media.CodecParameters) (media.Codec, bool) {
	h, ok := par.Handle.(*astiav.CodecParameters)
	if !ok || h == nil {
		return nil, false
	}
	c := astiav.FindDecoder(h.CodecID())
	if c == nil {
		return nil, false
	}
	return &codec{c: c}, true
}

type decoder struct {
	codec *astiav.Codec
	cc    *astiav.CodecContext
}

func (d *decoder) SetParameters(par media.CodecParameters) error {
	h, ok := par.Handle.(*astiav.CodecParameters)
	if !ok || h == nil {
		return fmt.Errorf("codec parameters for %s were not produced by the libav backend", par.CodecID)
	}
	if err := h.ToCodecContext(d.cc); err != nil {
		return averror("avcodec_parameters_to_context", err)
	}
	return nil
}

func (d *decoder) Open() error {
	if err := d.cc.Open(d.codec, nil); err != nil {
		return averror("avcodec_open2", err)
	}
	return nil
}

func (d *decoder) SendPacket(p media.Packet) error {
	pkt, err := asPacket(p)
	if err != nil {
		return err
	}
	if err := d.cc.SendPacket(pkt.p); err != nil {
		return averror("avcodec_send_packet", err)
	}
	return nil
}

func (d *decoder) ReceiveFrame(f media.Frame) error {
	fr, err := asFrame(f)
	if err != nil {
		return err
	}
	if err := d.cc.ReceiveFrame(fr.f); err != nil {
		if errors.Is(err, astiav.ErrEagain) {
			return &media.Error{Op: "avcodec_receive_frame", Code: -int(syscall.EAGAIN), Err: media.ErrAgain}
		}
		return averror("avcodec_receive_frame", err)
	}
	return nil
}

func (d *decoder) Close() error {
	if d.cc != nil {
		d.cc.Free()
		d.cc = nil
	}
	return nil
}

var interpolationFlags = map[media.Interpolation]astiav.SoftwareScaleContextFlag{
	media.InterpolationNearest:  astiav.SoftwareScaleContextFlagPoint,
	media.InterpolationBilinear: astiav.SoftwareScaleContextFlagBilinear,
	media.InterpolationBicubic:  astiav.SoftwareScaleContextFlagBicubic,
}

func pixelFormat(pf media.PixelFormat) (astiav.PixelFormat, error) {
	if pf == media.PixelFormatNone {
		return astiav.PixelFormatNone, errors.New("pixel format not set")
	}
	p := astiav.FindPixelFormatByName(string(pf))
	if p == astiav.PixelFormatNone {
		return p, fmt.Errorf("unknown pixel format %q", pf)
	}
	return p, nil
}

type converter struct {
	ssc *astiav.SoftwareScaleContext
}

func (b *Backend) NewConverter(src, dst media.PictureFormat, interp media.Interpolation) (media.Converter, error) {
	flag, ok := interpolationFlags[interp]
	if !ok {
		return nil, fmt.Errorf("unsupported interpolation %q", interp)
	}
	spf, err := pixelFormat(src.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dpf, err := pixelFormat(dst.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	ssc, err := astiav.CreateSoftwareScaleContext(
		src.Width, src.Height, spf,
		dst.Width, dst.Height, dpf,
		astiav.NewSoftwareScaleContextFlags(flag),
	)
	if err != nil {
		return nil, averror("sws_getContext", err)
	}
	return &converter{ssc: ssc}, nil
}

func (c *converter) Convert(src, dst media.Frame) error {
	in, err := asFrame(src)
	if err != nil {
		return err
	}
	out, err := asFrame(dst)
	if err != nil {
		return err
	}
	if err := c.ssc.ScaleFrame(in.f, out.f); err != nil {
		return averror("sws_scale", err)
	}
	return nil
}

func (c *converter) Close() error {
	if c.ssc != nil {
		c.ssc.Free()
		c.ssc = nil
	}
	return nil
}

type packet struct {
	p *astiav.Packet
}

func asPacket(p media.Packet) (*packet, error) {
	pkt, ok := p.(*packet)
	if !ok || pkt == nil || pkt.p == nil {
		return nil, fmt.Errorf("packet %T does not belong to the libav backend", p)
	}
	return pkt, nil
}

func (p *packet) StreamIndex() int { return p.p.StreamIndex() }
func (p *packet) Data() []byte     { return p.p.Data() }
func (p *packet) Unref()           { p.p.Unref() }

func (p *packet) Free() {
	if p.p != nil {
		p.p.Free()
		p.p = nil
	}
}

func (b *Backend) AllocPacket() (media.Packet, error) {
	p := astiav.AllocPacket()
	if p == nil {
		return nil, allocError("av_packet_alloc")
	}
	return &packet{p: p}, nil
}

type frame struct {
	f *astiav.Frame
}

func asFrame(f media.Frame) (*frame, error) {
	fr, ok := f.(*frame)
	if !ok || fr == nil || fr.f == nil {
		return nil, fmt.Errorf("frame %T does not belong to the libav backend", f)
	}
	return fr, nil
}

func (f *frame) Format() media.PictureFormat {
	return media.PictureFormat{
		Width:       f.f.Width(),
		Height:      f.f.Height(),
		PixelFormat: media.PixelFormat(f.f.PixelFormat().Name()),
	}
}

func (f *frame) Planes() ([][]byte, error) {
	n, err := f.f.ImageBufferSize(1)
	if err != nil {
		return nil, averror("av_image_get_buffer_size", err)
	}
	buf := make([]byte, n)
	if _, err := f.f.ImageCopyToBuffer(buf, 1); err != nil {
		return nil, averror("av_image_copy_to_buffer", err)
	}
	planes, err := yuv.Split(buf, f.Format())
	if err != nil {
		// Packed formats are a single plane.
		return [][]byte{buf}, nil
	}
	return planes, nil
}

func (f *frame) Unref() { f.f.Unref() }

func (f *frame) Free() {
	if f.f != nil {
		f.f.Free()
		f.f = nil
	}
}

func (b *Backend) AllocFrame() (media.Frame, error) {
	f := astiav.AllocFrame()
	if f == nil {
		return nil, allocError("av_frame_alloc")
	}
	return &frame{f: f}, nil
}

func (b *Backend) AllocPicture(pf media.PictureFormat) (media.Frame, error) {
	p, err := pixelFormat(pf.PixelFormat)
	if err != nil {
		return nil, err
	}
	f := astiav.AllocFrame()
	if f == nil {
		return nil, allocError("av_frame_alloc")
	}
	f.SetWidth(pf.Width)
	f.SetHeight(pf.Height)
	f.SetPixelFormat(p)
	if err := f.AllocBuffer(1); err != nil {
		f.Free()
		return nil, averror("av_frame_get_buffer", err)
	}
	return &frame{f: f}, nil
}
