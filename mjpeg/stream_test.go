package mjpeg

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/frizinak/homecam/camera"
)

type testSource struct {
	frames   []func(release func()) *camera.Frame
	loop     bool
	acquired int
	released int
}

func (s *testSource) Acquire() (*camera.Frame, error) {
	if len(s.frames) == 0 {
		return nil, errors.New("sensor timeout")
	}
	i := s.acquired
	if s.loop {
		i %= len(s.frames)
	} else if i >= len(s.frames) {
		return nil, errors.New("sensor timeout")
	}
	s.acquired++
	return s.frames[i](func() { s.released++ }), nil
}

func (s *testSource) Close() error { return nil }

func jpegFrame(n int, fill byte) func(func()) *camera.Frame {
	return func(release func()) *camera.Frame {
		d := bytes.Repeat([]byte{fill}, n)
		d[0], d[1] = 0xff, 0xd8
		d[n-2], d[n-1] = 0xff, 0xd9
		return camera.NewFrame(d, camera.JPEG, 0, 0, release)
	}
}

func grayFrame(w, h, n int) func(func()) *camera.Frame {
	return func(release func()) *camera.Frame {
		d := make([]byte, n)
		for i := range d {
			d[i] = byte(i % w * 4)
		}
		return camera.NewFrame(d, camera.Grayscale, w, h, release)
	}
}

type testWriter struct {
	header http.Header
	code   int
	buf    bytes.Buffer
	writes int
	failAt int
}

func newTestWriter(failAt int) *testWriter {
	return &testWriter{header: make(http.Header), failAt: failAt}
}

func (w *testWriter) Header() http.Header { return w.header }

func (w *testWriter) WriteHeader(code int) { w.code = code }

func (w *testWriter) Write(b []byte) (int, error) {
	w.writes++
	if w.writes == w.failAt {
		return 0, errors.New("broken pipe")
	}
	return w.buf.Write(b)
}

func (w *testWriter) Flush() {}

type part struct {
	length string
	ctype  string
	body   []byte
}

func readParts(t *testing.T, w *testWriter) []part {
	t.Helper()
	_, params, err := mime.ParseMediaType(w.header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("content type: %v", err)
	}

	mr := multipart.NewReader(bytes.NewReader(w.buf.Bytes()), params["boundary"])
	var parts []part
	for {
		p, err := mr.NextPart()
		if err != nil {
			return parts
		}
		body, err := io.ReadAll(p)
		if err != nil {
			return parts
		}
		parts = append(parts, part{
			length: p.Header.Get("Content-Length"),
			ctype:  p.Header.Get("Content-Type"),
			body:   body,
		})
	}
}

func TestStreamJPEGFramesThenCaptureFailure(t *testing.T) {
	lengths := []int{1200, 1180, 1205}
	src := &testSource{}
	for i, n := range lengths {
		src.frames = append(src.frames, jpegFrame(n, byte('a'+i)))
	}

	s := NewStreamer(src, 80, 0)
	sess := s.NewSession("test", "multipart")
	w := newTestWriter(0)
	err := s.Stream(context.Background(), sess, NewMultipart(w, 0))
	if !errors.Is(err, camera.ErrCapture) {
		t.Fatalf("Expected capture failure, got %v", err)
	}
	if sess.State != Closed {
		t.Errorf("Expected closed session, got %s", sess.State)
	}
	if sess.Frames != 3 {
		t.Errorf("Expected 3 frames, got %d", sess.Frames)
	}

	if w.code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.code)
	}
	if got := w.header.Get("Content-Type"); got != ContentType {
		t.Errorf("Content-Type %q", got)
	}
	if got := w.header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin %q", got)
	}
	if got := w.header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control %q", got)
	}

	parts := readParts(t, w)
	if len(parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(parts))
	}
	for i, p := range parts {
		if p.length != strconv.Itoa(lengths[i]) {
			t.Errorf("part %d: Content-Length %s, expected %d", i, p.length, lengths[i])
		}
		if len(p.body) != lengths[i] {
			t.Errorf("part %d: body of %d bytes, expected %d", i, len(p.body), lengths[i])
		}
		if p.ctype != "image/jpeg" {
			t.Errorf("part %d: Content-Type %q", i, p.ctype)
		}
	}

	if src.acquired != 3 || src.released != 3 {
		t.Errorf("acquired %d released %d, expected 3 and 3", src.acquired, src.released)
	}
}

func TestStreamTranscodesRawFrames(t *testing.T) {
	src := &testSource{frames: []func(func()) *camera.Frame{grayFrame(64, 32, 64*32)}}
	s := NewStreamer(src, 90, 0)
	w := newTestWriter(0)
	err := s.Stream(context.Background(), s.NewSession("test", "multipart"), NewMultipart(w, 0))
	if !errors.Is(err, camera.ErrCapture) {
		t.Fatalf("Expected capture failure, got %v", err)
	}

	parts := readParts(t, w)
	if len(parts) != 1 {
		t.Fatalf("Expected 1 part, got %d", len(parts))
	}
	p := parts[0]
	if p.length != strconv.Itoa(len(p.body)) {
		t.Errorf("Content-Length %s for a %d byte payload", p.length, len(p.body))
	}
	if p.length == strconv.Itoa(64*32) {
		t.Errorf("Content-Length matches the raw buffer")
	}

	img, err := jpeg.Decode(bytes.NewReader(p.body))
	if err != nil {
		t.Fatalf("payload is not a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("Expected 64x32, got %v", b)
	}
	if src.released != 1 {
		t.Errorf("Expected 1 release, got %d", src.released)
	}
}

func TestStreamEncodeFailure(t *testing.T) {
	src := &testSource{frames: []func(func()) *camera.Frame{grayFrame(32, 16, 100)}}
	s := NewStreamer(src, 80, 0)
	w := newTestWriter(0)
	sess := s.NewSession("test", "multipart")
	err := s.Stream(context.Background(), sess, NewMultipart(w, 0))
	if !errors.Is(err, camera.ErrEncode) {
		t.Fatalf("Expected encode failure, got %v", err)
	}

	if n := len(readParts(t, w)); n != 0 {
		t.Errorf("Expected 0 parts, got %d", n)
	}
	if sess.Frames != 0 {
		t.Errorf("Expected 0 frames, got %d", sess.Frames)
	}
	if src.acquired != 1 || src.released != 1 {
		t.Errorf("acquired %d released %d, expected 1 and 1", src.acquired, src.released)
	}
}

func TestStreamWriteFailure(t *testing.T) {
	// write 1 is the opening delimiter, 2..4 are the first frame's parts
	for _, failAt := range []int{2, 3, 4, 5} {
		src := &testSource{frames: []func(func()) *camera.Frame{jpegFrame(500, 'x')}, loop: true}
		s := NewStreamer(src, 80, 0)
		w := newTestWriter(failAt)
		err := s.Stream(context.Background(), s.NewSession("test", "multipart"), NewMultipart(w, 0))
		if !errors.Is(err, ErrWrite) {
			t.Fatalf("failAt %d: Expected write failure, got %v", failAt, err)
		}
		if w.writes != failAt {
			t.Errorf("failAt %d: %d writes attempted", failAt, w.writes)
		}

		expect := (failAt-2)/3 + 1
		if src.acquired != expect || src.released != expect {
			t.Errorf(
				"failAt %d: acquired %d released %d, expected %d",
				failAt,
				src.acquired,
				src.released,
				expect,
			)
		}
	}
}

func TestStreamNegotiationFailure(t *testing.T) {
	src := &testSource{frames: []func(func()) *camera.Frame{jpegFrame(500, 'x')}, loop: true}
	s := NewStreamer(src, 80, 0)
	sess := s.NewSession("test", "multipart")
	err := s.Stream(context.Background(), sess, NewMultipart(newTestWriter(1), 0))
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Expected write failure, got %v", err)
	}
	if src.acquired != 0 {
		t.Errorf("Expected no acquisition, got %d", src.acquired)
	}
	if sess.State != Closed {
		t.Errorf("Expected closed session, got %s", sess.State)
	}
}

func TestStreamPacingStopsOnCancel(t *testing.T) {
	src := &testSource{frames: []func(func()) *camera.Frame{jpegFrame(100, 'x')}, loop: true}
	s := NewStreamer(src, 80, 10)

	var seen int
	s.OnFrame = func(_ *Session, n int) {
		seen++
		if n != 100 {
			t.Errorf("OnFrame with %d bytes", n)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Stream(ctx, s.NewSession("test", "multipart"), NewMultipart(newTestWriter(0), 0))
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Expected write failure, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stream kept running for %s after cancel", elapsed)
	}
	if seen < 1 || seen > 4 {
		t.Errorf("Expected 1 to 4 paced frames, got %d", seen)
	}
	if src.acquired != src.released {
		t.Errorf("acquired %d released %d", src.acquired, src.released)
	}
}

func TestCapture(t *testing.T) {
	src := &testSource{frames: []func(func()) *camera.Frame{jpegFrame(300, 'c')}}
	s := NewStreamer(src, 80, 0)
	enc, err := s.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if enc.Len() != 300 {
		t.Errorf("Expected 300 bytes, got %d", enc.Len())
	}
	if src.released != 0 {
		t.Errorf("released before the caller was done")
	}
	enc.Release()
	if src.released != 1 {
		t.Errorf("Expected 1 release, got %d", src.released)
	}

	if _, err := s.Capture(); !errors.Is(err, camera.ErrCapture) {
		t.Errorf("Expected capture failure, got %v", err)
	}
}

func TestSessionString(t *testing.T) {
	for _, sess := range []*Session{
		{Kind: "multipart", Remote: "10.0.0.2:5000"},
		{ID: "abc", Kind: "websocket", Remote: "10.0.0.3:5000"},
	} {
		if str := sess.String(); !strings.Contains(str, sess.Remote) {
			t.Errorf("Expected %s in %q", sess.Remote, str)
		}
	}

	sess := NewStreamer(&testSource{}, 80, 0).NewSession("10.0.0.4:5000", "multipart")
	str := sess.String()
	if !strings.HasPrefix(str, sess.ID[:8]+" ") || strings.Contains(str, sess.ID) {
		t.Errorf("Expected a short id prefix, got %q", str)
	}
}
