//go:build linux

package camera

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blackjack/webcam"
)

var fourccs = map[PixelFormat]webcam.PixelFormat{
	JPEG:      0x47504a4d, // MJPG
	YUYV:      0x56595559, // YUYV
	RGB565:    0x50424752, // RGBP
	Grayscale: 0x59455247, // GREY
}

// V4L2 captures from a video4linux device using the driver's mmap buffers as
// the frame pool.
type V4L2 struct {
	l       *log.Logger
	cam     *webcam.Webcam
	format  PixelFormat
	w, h    int
	wait    uint32
	timeout time.Duration
	free    chan struct{}
	seq     uint64
}

func openV4L2(l *log.Logger, c Config) (Source, error) {
	v, err := OpenV4L2(l, c)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func OpenV4L2(l *log.Logger, c Config) (*V4L2, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	fourcc, ok := fourccs[c.PixelFormat]
	if !ok {
		return nil, fmt.Errorf("%w: v4l2 cannot capture %s", ErrInit, c.PixelFormat)
	}

	cam, err := webcam.Open(c.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInit, c.Device, err)
	}

	v, err := setupV4L2(l, cam, fourcc, c)
	if err != nil {
		cam.Close()
		return nil, err
	}
	return v, nil
}

func setupV4L2(l *log.Logger, cam *webcam.Webcam, fourcc webcam.PixelFormat, c Config) (*V4L2, error) {
	if _, ok := cam.GetSupportedFormats()[fourcc]; !ok {
		return nil, fmt.Errorf("%w: %s does not support %s", ErrInit, c.Device, c.PixelFormat)
	}

	if err := cam.SetBufferCount(uint32(c.BufferCount)); err != nil {
		return nil, fmt.Errorf("%w: buffer count: %v", ErrInit, err)
	}

	f, w, h, err := cam.SetImageFormat(fourcc, uint32(c.Width), uint32(c.Height))
	if err != nil {
		return nil, fmt.Errorf("%w: image format: %v", ErrInit, err)
	}
	if f != fourcc {
		return nil, fmt.Errorf("%w: device picked format %x instead of %s", ErrInit, uint32(f), c.PixelFormat)
	}
	if int(w) != c.Width || int(h) != c.Height {
		l.Printf("%s: requested %dx%d, got %dx%d", c.Device, c.Width, c.Height, w, h)
	}

	if c.FPS > 0 {
		if err := cam.SetFramerate(float32(c.FPS)); err != nil {
			l.Printf("%s: framerate: %v", c.Device, err)
		}
	}

	if err := c.Tuning.Apply(l, &v4l2Controls{cam: cam}); err != nil {
		l.Printf("%s: tuning: %v", c.Device, err)
	}

	if err := cam.StartStreaming(); err != nil {
		return nil, fmt.Errorf("%w: start streaming: %v", ErrInit, err)
	}

	wait := uint32((c.AcquireTimeout + time.Second - 1) / time.Second)
	v := &V4L2{
		l:       l,
		cam:     cam,
		format:  c.PixelFormat,
		w:       int(w),
		h:       int(h),
		wait:    wait,
		timeout: c.AcquireTimeout,
		free:    make(chan struct{}, c.BufferCount),
	}
	for i := 0; i < c.BufferCount; i++ {
		v.free <- struct{}{}
	}

	return v, nil
}

func (v *V4L2) Acquire() (*Frame, error) {
	t := time.NewTimer(v.timeout)
	select {
	case <-v.free:
		t.Stop()
	case <-t.C:
		return nil, fmt.Errorf("%w: no free buffer within %s", ErrCapture, v.timeout)
	}

	err := v.cam.WaitForFrame(v.wait)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		v.free <- struct{}{}
		return nil, fmt.Errorf("%w: no frame within %ds", ErrCapture, v.wait)
	default:
		v.free <- struct{}{}
		return nil, captureErr(err)
	}

	data, index, err := v.cam.GetFrame()
	if err != nil {
		v.free <- struct{}{}
		return nil, captureErr(err)
	}

	release := func() {
		if err := v.cam.ReleaseFrame(index); err != nil {
			v.l.Println(err)
		}
		v.free <- struct{}{}
	}

	if len(data) == 0 {
		release()
		return nil, fmt.Errorf("%w: empty frame", ErrCapture)
	}

	f := NewFrame(data, v.format, v.w, v.h, release)
	f.Seq = atomic.AddUint64(&v.seq, 1)
	return f, nil
}

func (v *V4L2) Close() error {
	return errors.Join(v.cam.StopStreaming(), v.cam.Close())
}

type v4l2Controls struct {
	cam *webcam.Webcam
	ids map[string]webcam.ControlID
}

func (c *v4l2Controls) Controls() map[string]Control {
	raw := c.cam.GetControls()
	c.ids = make(map[string]webcam.ControlID, len(raw))
	controls := make(map[string]Control, len(raw))
	for id, ctrl := range raw {
		name := strings.ToLower(ctrl.Name)
		c.ids[name] = id
		controls[name] = Control{Min: ctrl.Min, Max: ctrl.Max}
	}
	return controls
}

func (c *v4l2Controls) SetControl(name string, value int32) error {
	id, ok := c.ids[name]
	if !ok {
		return fmt.Errorf("unknown control %q", name)
	}
	return c.cam.SetControl(id, value)
}
