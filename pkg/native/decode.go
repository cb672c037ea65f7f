package native

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

type codec struct {
	id media.CodecID
}

func (c *codec) Name() string { return string(c.id) }

func (c *codec) NewDecoder() (media.Decoder, error) {
	return &decoder{codec: c.id}, nil
}

type decodeFunc func(data []byte) (image.Image, error)

// decoder buffers decoded pictures until they are received, in the same way
// a libavcodec context holds frames between send and receive.
type decoder struct {
	codec  media.CodecID
	par    media.CodecParameters
	set    bool
	decode decodeFunc
	images []image.Image
}

func (d *decoder) SetParameters(par media.CodecParameters) error {
	if par.CodecID != d.codec {
		return fmt.Errorf("parameters are for codec %q, decoder is %q", par.CodecID, d.codec)
	}
	d.par = par
	d.set = true
	return nil
}

func (d *decoder) Open() error {
	if !d.set {
		return errors.New("codec parameters not set")
	}
	switch d.codec {
	case media.CodecIDMJPEG:
		d.decode = decodeMJPEG
		return nil
	case media.CodecIDRawVideo:
		dec, err := rawDecoder(d.par.Width, d.par.Height, d.par.PixelFormat)
		if err != nil {
			return err
		}
		d.decode = dec
		return nil
	}
	return fmt.Errorf("unsupported codec %q", d.codec)
}

func (d *decoder) SendPacket(p media.Packet) error {
	if d.decode == nil {
		return errors.New("decoder not opened")
	}
	pkt, err := asPacket(p)
	if err != nil {
		return err
	}
	img, err := d.decode(pkt.data)
	if err != nil {
		return err
	}
	d.images = append(d.images, img)
	return nil
}

func (d *decoder) ReceiveFrame(f media.Frame) error {
	fr, err := asFrame(f)
	if err != nil {
		return err
	}
	if len(d.images) == 0 {
		return media.ErrAgain
	}
	fr.img = d.images[0]
	d.images = d.images[1:]
	return nil
}

func (d *decoder) Close() error {
	d.images = nil
	d.decode = nil
	return nil
}

func decodeMJPEG(data []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}

func rawDecoder(width, height int, pf media.PixelFormat) (decodeFunc, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid raw video size %dx%d", width, height)
	}
	r := image.Rect(0, 0, width, height)
	switch pf {
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P,
		media.PixelFormatYUV422P, media.PixelFormatYUVJ422P,
		media.PixelFormatYUV444P, media.PixelFormatYUVJ444P:
		ratio := subsampleRatio(pf)
		cw, ch := chromaSize(width, height, ratio)
		ysize, csize := width*height, cw*ch
		return func(data []byte) (image.Image, error) {
			if len(data) < ysize+2*csize {
				return nil, fmt.Errorf("short %s packet: %d bytes, want %d", pf, len(data), ysize+2*csize)
			}
			img := image.NewYCbCr(r, ratio)
			copy(img.Y, data[:ysize])
			copy(img.Cb, data[ysize:ysize+csize])
			copy(img.Cr, data[ysize+csize:ysize+2*csize])
			return img, nil
		}, nil
	case media.PixelFormatYUYV422:
		if width%2 != 0 {
			return nil, fmt.Errorf("yuyv422 requires an even width, got %d", width)
		}
		return func(data []byte) (image.Image, error) {
			if len(data) < width*height*2 {
				return nil, fmt.Errorf("short yuyv422 packet: %d bytes, want %d", len(data), width*height*2)
			}
			img := image.NewYCbCr(r, image.YCbCrSubsampleRatio422)
			for y := 0; y < height; y++ {
				row := data[y*width*2 : (y+1)*width*2]
				for x := 0; x < width; x += 2 {
					s := row[x*2 : x*2+4 : x*2+4]
					img.Y[y*img.YStride+x] = s[0]
					img.Y[y*img.YStride+x+1] = s[2]
					img.Cb[y*img.CStride+x/2] = s[1]
					img.Cr[y*img.CStride+x/2] = s[3]
				}
			}
			return img, nil
		}, nil
	case media.PixelFormatGray:
		return func(data []byte) (image.Image, error) {
			if len(data) < width*height {
				return nil, fmt.Errorf("short gray packet: %d bytes, want %d", len(data), width*height)
			}
			img := image.NewGray(r)
			copy(img.Pix, data)
			return img, nil
		}, nil
	case media.PixelFormatRGB24:
		return func(data []byte) (image.Image, error) {
			img := NewRGB(r)
			if len(data) < len(img.Pix) {
				return nil, fmt.Errorf("short rgb24 packet: %d bytes, want %d", len(data), len(img.Pix))
			}
			copy(img.Pix, data)
			return img, nil
		}, nil
	case media.PixelFormatBGR24:
		return func(data []byte) (image.Image, error) {
			img := NewBGR(r)
			if len(data) < len(img.Pix) {
				return nil, fmt.Errorf("short bgr24 packet: %d bytes, want %d", len(data), len(img.Pix))
			}
			copy(img.Pix, data)
			return img, nil
		}, nil
	}
	return nil, fmt.Errorf("unsupported raw pixel format %q", pf)
}

func subsampleRatio(pf media.PixelFormat) image.YCbCrSubsampleRatio {
	switch pf {
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P:
		return image.YCbCrSubsampleRatio420
	case media.PixelFormatYUV422P, media.PixelFormatYUVJ422P:
		return image.YCbCrSubsampleRatio422
	}
	return image.YCbCrSubsampleRatio444
}
