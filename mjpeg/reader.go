package mjpeg

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

var (
	soi = []byte{0xff, 0xd8}
	eoi = []byte{0xff, 0xd9}
)

const maxFrameSize = 16 << 20

// Reader splits an MJPEG response body into JPEG frames.
type Reader struct {
	mr *multipart.Reader
	sc *bufio.Scanner
}

// NewReader reads parts using the boundary from contentType and falls back to
// scanning for JPEG start and end markers when there is none.
func NewReader(r io.Reader, contentType string) *Reader {
	mt, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mt, "multipart/") && params["boundary"] != "" {
		return &Reader{mr: multipart.NewReader(r, params["boundary"])}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)
	sc.Split(splitJPEG)
	return &Reader{sc: sc}
}

// Next returns the next frame. The end of the stream, closed or truncated,
// is reported as io.EOF.
func (r *Reader) Next() ([]byte, error) {
	if r.sc != nil {
		if r.sc.Scan() {
			return append([]byte(nil), r.sc.Bytes()...), nil
		}
		if err := r.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	for {
		p, err := r.mr.NextPart()
		if err != nil {
			return nil, eof(err)
		}

		d, err := io.ReadAll(io.LimitReader(p, maxFrameSize))
		p.Close()
		if err != nil {
			return nil, eof(err)
		}
		if len(d) != 0 {
			return d, nil
		}
	}
}

func eof(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	start := bytes.Index(data, soi)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// keep a trailing 0xff, it may start the next marker
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}

	if i := bytes.Index(data[start+2:], eoi); i >= 0 {
		end := start + 2 + i + 2
		return end, data[start:end], nil
	}

	if atEOF {
		return len(data), nil, nil
	}
	return start, nil, nil
}
