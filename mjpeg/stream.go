package mjpeg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frizinak/homecam/camera"
	"github.com/google/uuid"
)

var ErrWrite = errors.New("write failed")

type State int

const (
	Negotiating State = iota
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Negotiating:
		return "negotiating"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is one viewer connection. It is owned by the goroutine serving it.
type Session struct {
	ID      string
	Remote  string
	Kind    string
	Started time.Time

	State  State
	Frames uint64
	Bytes  uint64
	Err    error
}

func (s *Session) String() string {
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s %s %s", id, s.Kind, s.Remote)
}

type Streamer struct {
	src      camera.Source
	quality  int
	interval time.Duration

	// OnFrame is called after every frame that was written in full.
	OnFrame func(s *Session, n int)
}

// NewStreamer streams from src, transcoding raw frames at quality. maxFPS
// bounds the frame rate of each session, 0 leaves it unpaced.
func NewStreamer(src camera.Source, quality, maxFPS int) *Streamer {
	s := &Streamer{src: src, quality: quality}
	if maxFPS > 0 {
		s.interval = time.Second / time.Duration(maxFPS)
	}
	return s
}

func (s *Streamer) NewSession(remote, kind string) *Session {
	return &Session{
		ID:      uuid.New().String(),
		Remote:  remote,
		Kind:    kind,
		Started: time.Now(),
	}
}

// Stream runs sess until the first failure and returns it. The error wraps
// camera.ErrCapture, camera.ErrEncode or ErrWrite. Nothing is retried.
func (s *Streamer) Stream(ctx context.Context, sess *Session, sink Sink) error {
	sess.State = Negotiating
	if err := sink.Open(); err != nil {
		return s.close(sess, fmt.Errorf("%w: %v", ErrWrite, err))
	}

	sess.State = Streaming
	for {
		if err := ctx.Err(); err != nil {
			return s.close(sess, fmt.Errorf("%w: %v", ErrWrite, err))
		}

		start := time.Now()
		n, err := s.frame(sink)
		if err != nil {
			return s.close(sess, err)
		}

		sess.Frames++
		sess.Bytes += uint64(n)
		if s.OnFrame != nil {
			s.OnFrame(sess, n)
		}

		if err := s.pace(ctx, start); err != nil {
			return s.close(sess, fmt.Errorf("%w: %v", ErrWrite, err))
		}
	}
}

// frame moves a single frame from the source to the sink. The acquired
// buffer is released exactly once on every path.
func (s *Streamer) frame(sink Sink) (int, error) {
	enc, err := s.Capture()
	if err != nil {
		return 0, err
	}

	n := enc.Len()
	err = sink.WriteFrame(enc.Data)
	enc.Release()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return n, nil
}

func (s *Streamer) pace(ctx context.Context, start time.Time) error {
	wait := s.interval - time.Since(start)
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Streamer) close(sess *Session, err error) error {
	sess.State = Closed
	sess.Err = err
	return err
}

// Capture grabs a single JPEG. The caller must Release it.
func (s *Streamer) Capture() (*camera.Encoded, error) {
	f, err := s.src.Acquire()
	if err != nil {
		if !errors.Is(err, camera.ErrCapture) {
			err = fmt.Errorf("%w: %v", camera.ErrCapture, err)
		}
		return nil, err
	}
	return camera.Encode(f, s.quality)
}
