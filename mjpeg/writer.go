package mjpeg

import (
	"io"
)

type countWriter struct {
	n uint64
	w io.Writer
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += uint64(n)
	return n, err
}

// writeAll fails on a short write as well as on an error.
func (c *countWriter) writeAll(b []byte) error {
	n, err := c.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	return err
}
