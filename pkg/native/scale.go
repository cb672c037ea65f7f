package native

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/kevmo314/go-framegrab/pkg/media"
)

// Source pixel formats the decoders in this package can produce pictures for.
var convertible = map[media.PixelFormat]bool{
	media.PixelFormatNone:     true, // decided by the decoder, e.g. mjpeg
	media.PixelFormatYUV420P:  true,
	media.PixelFormatYUVJ420P: true,
	media.PixelFormatYUV422P:  true,
	media.PixelFormatYUVJ422P: true,
	media.PixelFormatYUV444P:  true,
	media.PixelFormatYUVJ444P: true,
	media.PixelFormatYUYV422:  true,
	media.PixelFormatGray:     true,
	media.PixelFormatRGB24:    true,
	media.PixelFormatBGR24:    true,
}

func interpolator(interp media.Interpolation) (draw.Interpolator, error) {
	switch interp {
	case media.InterpolationNearest:
		return draw.NearestNeighbor, nil
	case media.InterpolationBilinear:
		return draw.BiLinear, nil
	case media.InterpolationBicubic:
		return draw.CatmullRom, nil
	}
	return nil, fmt.Errorf("unsupported interpolation %q", interp)
}

// converter scales each plane independently, so chroma is resampled at its
// own resolution rather than going through RGB.
type converter struct {
	src, dst media.PictureFormat
	interp   draw.Interpolator
}

func newConverter(src, dst media.PictureFormat, interp media.Interpolation) (*converter, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return nil, fmt.Errorf("invalid source size %dx%d", src.Width, src.Height)
	}
	if !convertible[src.PixelFormat] {
		return nil, fmt.Errorf("unsupported source pixel format %q", src.PixelFormat)
	}
	if dst.Width <= 0 || dst.Height <= 0 || dst.Width > maxDimension || dst.Height > maxDimension {
		return nil, fmt.Errorf("invalid destination size %dx%d", dst.Width, dst.Height)
	}
	switch dst.PixelFormat {
	case media.PixelFormatYUV420P, media.PixelFormatYUVJ420P,
		media.PixelFormatYUV422P, media.PixelFormatYUVJ422P,
		media.PixelFormatYUV444P, media.PixelFormatYUVJ444P,
		media.PixelFormatGray:
	default:
		return nil, fmt.Errorf("unsupported destination pixel format %q", dst.PixelFormat)
	}
	ip, err := interpolator(interp)
	if err != nil {
		return nil, err
	}
	return &converter{src: src, dst: dst, interp: ip}, nil
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
	if in.img == nil {
		return fmt.Errorf("source frame has no picture")
	}
	if b := in.img.Bounds(); b.Dx() != c.src.Width || b.Dy() != c.src.Height {
		return fmt.Errorf("source frame is %dx%d, converter expects %dx%d", b.Dx(), b.Dy(), c.src.Width, c.src.Height)
	}

	var luma, cb, cr *image.Gray
	switch img := in.img.(type) {
	case *image.YCbCr:
		luma, cb, cr = splitYCbCr(img)
	case *image.Gray:
		luma = img
	default:
		luma, cb, cr = splitYCbCr(toYCbCr(in.img))
	}

	switch img := out.img.(type) {
	case *image.YCbCr:
		dy, dcb, dcr := splitYCbCr(img)
		c.scale(dy, luma)
		if cb == nil {
			fill(dcb, 0x80)
			fill(dcr, 0x80)
			return nil
		}
		c.scale(dcb, cb)
		c.scale(dcr, cr)
		return nil
	case *image.Gray:
		c.scale(img, luma)
		return nil
	}
	return fmt.Errorf("unsupported destination picture %T", out.img)
}

func (c *converter) scale(dst, src *image.Gray) {
	c.interp.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
}

func (c *converter) Close() error { return nil }

// splitYCbCr views the planes of img as gray images sharing its memory.
func splitYCbCr(img *image.YCbCr) (y, cb, cr *image.Gray) {
	b := img.Rect
	cw, ch := chromaSize(b.Dx(), b.Dy(), img.SubsampleRatio)
	yo, co := img.YOffset(b.Min.X, b.Min.Y), img.COffset(b.Min.X, b.Min.Y)
	y = &image.Gray{Pix: img.Y[yo:], Stride: img.YStride, Rect: image.Rect(0, 0, b.Dx(), b.Dy())}
	cb = &image.Gray{Pix: img.Cb[co:], Stride: img.CStride, Rect: image.Rect(0, 0, cw, ch)}
	cr = &image.Gray{Pix: img.Cr[co:], Stride: img.CStride, Rect: image.Rect(0, 0, cw, ch)}
	return y, cb, cr
}

func toYCbCr(src image.Image) *image.YCbCr {
	b := src.Bounds()
	img := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio444)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			img.Y[img.YOffset(x, y)] = yy
			img.Cb[img.COffset(x, y)] = cb
			img.Cr[img.COffset(x, y)] = cr
		}
	}
	return img
}

func fill(img *image.Gray, v uint8) {
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()]
		for i := range row {
			row[i] = v
		}
	}
}
