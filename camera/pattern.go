package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync/atomic"
	"time"
)

type patternBuf struct {
	img *image.RGBA
	jpg bytes.Buffer
}

// Pattern is a camera stand-in that renders a numbered test card into a
// fixed pool of buffers.
type Pattern struct {
	name    string
	format  PixelFormat
	w, h    int
	quality int
	timeout time.Duration

	// Delay simulates the sensor exposure and transfer time.
	Delay time.Duration

	text *textWriter
	free chan *patternBuf
	seq  uint64
}

func NewPattern(c Config) (*Pattern, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.PixelFormat != JPEG && c.PixelFormat != RGBA {
		return nil, fmt.Errorf("%w: pattern source cannot emit %s", ErrInit, c.PixelFormat)
	}

	size := float64(c.Height) / 20
	if size < 8 {
		size = 8
	}
	text, err := newTextWriter(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInit, err)
	}

	p := &Pattern{
		name:    c.Name,
		format:  c.PixelFormat,
		w:       c.Width,
		h:       c.Height,
		quality: c.JPEGQuality,
		timeout: c.AcquireTimeout,
		text:    text,
		free:    make(chan *patternBuf, c.BufferCount),
	}

	if c.FPS > 0 {
		p.Delay = time.Second / time.Duration(c.FPS)
	}

	for i := 0; i < c.BufferCount; i++ {
		p.free <- &patternBuf{img: image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))}
	}

	return p, nil
}

func (p *Pattern) Acquire() (*Frame, error) {
	var b *patternBuf
	t := time.NewTimer(p.timeout)
	select {
	case b = <-p.free:
		t.Stop()
	case <-t.C:
		return nil, fmt.Errorf("%w: no free buffer within %s", ErrCapture, p.timeout)
	}

	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}

	seq := atomic.AddUint64(&p.seq, 1)
	now := time.Now()
	if err := p.render(b.img, seq, now); err != nil {
		p.free <- b
		return nil, captureErr(err)
	}

	data := b.img.Pix
	if p.format == JPEG {
		b.jpg.Reset()
		if err := jpeg.Encode(&b.jpg, b.img, &jpeg.Options{Quality: p.quality}); err != nil {
			p.free <- b
			return nil, captureErr(err)
		}
		data = b.jpg.Bytes()
	}

	f := NewFrame(data, p.format, p.w, p.h, func() { p.free <- b })
	f.Seq = seq
	f.Time = now
	return f, nil
}

func (p *Pattern) render(img *image.RGBA, seq uint64, now time.Time) error {
	c := uint8(seq % 255)
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{255 - c, 128, c, 255}), image.Point{}, draw.Src)

	pt, err := p.text.write(img, fmt.Sprintf("%s - Frame %d", p.name, seq), image.Pt(10, 10))
	if err != nil {
		return err
	}
	_, err = p.text.write(img, now.Format("2006-01-02 15:04:05.000"), image.Pt(10, pt.Y+4))
	return err
}

func (p *Pattern) Close() error { return nil }
