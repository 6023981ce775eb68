package camera

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	ErrInit    = errors.New("camera init failed")
	ErrCapture = errors.New("capture failed")
	ErrEncode  = errors.New("encode failed")
)

// Source hands out frames from a fixed pool. Every acquired Frame must be
// released exactly once before the pool can reuse its buffer.
type Source interface {
	Acquire() (*Frame, error)
	Close() error
}

type serialized struct {
	mu sync.Mutex
	Source
}

// Serialized guards Acquire with a mutex so several streams can share src.
func Serialized(src Source) Source {
	if s, ok := src.(*serialized); ok {
		return s
	}
	return &serialized{Source: src}
}

func (s *serialized) Acquire() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Source.Acquire()
}

func Open(l *log.Logger, c Config) (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Driver {
	case DriverV4L2:
		return openV4L2(l, c)
	case DriverPattern:
		return NewPattern(c)
	}

	return nil, fmt.Errorf("%w: unknown driver %q", ErrInit, c.Driver)
}

func captureErr(err error) error {
	if errors.Is(err, ErrCapture) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrCapture, err)
}
