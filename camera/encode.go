package camera

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"sync"
)

var jpegBufs = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(nil)
	},
}

// Encoded is a JPEG payload. It either aliases the Frame it came from or owns
// a buffer of its own, Release returns whichever holds the memory.
type Encoded struct {
	Data       []byte
	Transcoded bool

	release  func()
	released bool
}

func (e *Encoded) Len() int { return len(e.Data) }

func (e *Encoded) Release() error {
	if e.released {
		return ErrReleased
	}
	e.released = true
	e.Data = nil
	if e.release != nil {
		e.release()
		e.release = nil
	}
	return nil
}

// Encode takes ownership of f. A JPEG frame is passed through untouched,
// anything else is transcoded at the given quality and f is released right
// away. On error f has been released.
func Encode(f *Frame, quality int) (*Encoded, error) {
	if f.released {
		return nil, fmt.Errorf("%w: %v", ErrEncode, ErrReleased)
	}

	if f.Format == JPEG {
		return &Encoded{Data: f.Data, release: func() { f.Release() }}, nil
	}

	img, err := f.Image()
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	buf := jpegBufs.Get().(*bytes.Buffer)
	buf.Reset()
	err = jpeg.Encode(buf, img, &jpeg.Options{Quality: quality})
	f.Release()
	if err != nil {
		jpegBufs.Put(buf)
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return &Encoded{
		Data:       buf.Bytes(),
		Transcoded: true,
		release:    func() { jpegBufs.Put(buf) },
	}, nil
}
