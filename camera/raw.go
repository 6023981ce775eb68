package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Image decodes the frame without copying where the pixel layout allows it.
// The returned image must not outlive the frame.
func (f *Frame) Image() (image.Image, error) {
	if f.released {
		return nil, ErrReleased
	}

	if f.Format == JPEG {
		return jpeg.Decode(bytes.NewReader(f.Data))
	}

	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid %s frame size %dx%d", f.Format, w, h)
	}

	if n := f.Format.FrameLen(w, h); n == 0 || len(f.Data) != n {
		return nil, fmt.Errorf(
			"%s frame of %d bytes, expected %d for %dx%d",
			f.Format,
			len(f.Data),
			n,
			w,
			h,
		)
	}

	rect := image.Rect(0, 0, w, h)
	switch f.Format {
	case Grayscale:
		return &image.Gray{Pix: f.Data, Stride: w, Rect: rect}, nil
	case RGBA:
		return &image.RGBA{Pix: f.Data, Stride: w * 4, Rect: rect}, nil
	case RGB565:
		return rgb565(f.Data, rect), nil
	case YUYV:
		if w%2 != 0 {
			return nil, fmt.Errorf("yuyv frame width %d is odd", w)
		}
		return yuyv(f.Data, rect), nil
	}

	return nil, fmt.Errorf("unsupported pixel format %s", f.Format)
}

// big endian, as the sensor emits it
func rgb565(d []byte, rect image.Rectangle) *image.RGBA {
	img := image.NewRGBA(rect)
	for i, o := 0, 0; i < len(d); i, o = i+2, o+4 {
		p := uint16(d[i])<<8 | uint16(d[i+1])
		r := byte(p >> 11 & 0x1f)
		g := byte(p >> 5 & 0x3f)
		b := byte(p & 0x1f)
		img.Pix[o] = r<<3 | r>>2
		img.Pix[o+1] = g<<2 | g>>4
		img.Pix[o+2] = b<<3 | b>>2
		img.Pix[o+3] = 0xff
	}
	return img
}

func yuyv(d []byte, rect image.Rectangle) *image.YCbCr {
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio422)
	for i, j := 0, 0; i < len(d); i, j = i+4, j+1 {
		img.Y[j*2] = d[i]
		img.Cb[j] = d[i+1]
		img.Y[j*2+1] = d[i+2]
		img.Cr[j] = d[i+3]
	}
	return img
}
