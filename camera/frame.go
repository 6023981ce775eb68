package camera

import (
	"errors"
	"time"
)

var ErrReleased = errors.New("frame already released")

// Frame is an exclusively owned handle to one pool buffer. The buffer goes
// back to its pool on the first Release, after which Data is nil.
type Frame struct {
	Data   []byte
	Format PixelFormat
	Width  int
	Height int
	Seq    uint64
	Time   time.Time

	release  func()
	released bool
}

func NewFrame(data []byte, format PixelFormat, w, h int, release func()) *Frame {
	return &Frame{
		Data:    data,
		Format:  format,
		Width:   w,
		Height:  h,
		Time:    time.Now(),
		release: release,
	}
}

func (f *Frame) Len() int { return len(f.Data) }

func (f *Frame) Released() bool { return f.released }

func (f *Frame) Release() error {
	if f.released {
		return ErrReleased
	}
	f.released = true
	f.Data = nil
	if f.release != nil {
		f.release()
		f.release = nil
	}
	return nil
}
