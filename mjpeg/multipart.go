package mjpeg

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

const Boundary = "123456789000000000000987654321"

const ContentType = "multipart/x-mixed-replace;boundary=" + Boundary

var (
	opening   = []byte("--" + Boundary + "\r\n")
	delimiter = []byte("\r\n--" + Boundary + "\r\n")
)

// Sink is the transport a session writes its frames to.
type Sink interface {
	// Open sends whatever has to precede the first frame.
	Open() error
	WriteFrame(jpeg []byte) error
}

// Multipart writes frames as parts of a multipart/x-mixed-replace response.
type Multipart struct {
	rw      http.ResponseWriter
	rc      *http.ResponseController
	w       *countWriter
	timeout time.Duration
}

// NewMultipart writes to rw. A writeTimeout above 0 bounds the negotiation
// and every frame, a client that stops reading fails the write once it
// expires.
func NewMultipart(rw http.ResponseWriter, writeTimeout time.Duration) *Multipart {
	return &Multipart{
		rw:      rw,
		rc:      http.NewResponseController(rw),
		w:       &countWriter{w: rw},
		timeout: writeTimeout,
	}
}

func (m *Multipart) Open() error {
	if err := m.deadline(); err != nil {
		return err
	}

	h := m.rw.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	m.rw.WriteHeader(http.StatusOK)

	if err := m.w.writeAll(opening); err != nil {
		return err
	}
	return m.flush()
}

func PartHeader(n int) []byte {
	b := make([]byte, 0, 64)
	b = append(b, "Content-Type: image/jpeg\r\nContent-Length: "...)
	b = strconv.AppendInt(b, int64(n), 10)
	return append(b, "\r\n\r\n"...)
}

// WriteFrame writes header, payload and delimiter, giving up at the first
// failing write.
func (m *Multipart) WriteFrame(jpeg []byte) error {
	if err := m.deadline(); err != nil {
		return err
	}
	if err := m.w.writeAll(PartHeader(len(jpeg))); err != nil {
		return err
	}
	if err := m.w.writeAll(jpeg); err != nil {
		return err
	}
	if err := m.w.writeAll(delimiter); err != nil {
		return err
	}
	return m.flush()
}

func (m *Multipart) Written() uint64 { return m.w.n }

func (m *Multipart) deadline() error {
	if m.timeout <= 0 {
		return nil
	}
	return supported(m.rc.SetWriteDeadline(time.Now().Add(m.timeout)))
}

func (m *Multipart) flush() error { return supported(m.rc.Flush()) }

// supported drops http.ErrNotSupported, writers without deadlines or
// flushing still get every byte.
func supported(err error) error {
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
