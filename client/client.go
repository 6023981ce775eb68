package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/frizinak/homecam/mjpeg"
)

type Info int

const (
	InfoConnecting Info = iota
	InfoReconnecting
	InfoConnected
	InfoError
)

func (i Info) String() string {
	switch i {
	case InfoConnecting:
		return "Connecting..."
	case InfoReconnecting:
		return "Reconnecting..."
	case InfoConnected:
		return "Connected"
	case InfoError:
		return "Something went wrong!"
	}
	return fmt.Sprintf("Info(%d)", int(i))
}

type Client struct {
	l    *log.Logger
	url  string
	http *http.Client

	retry time.Duration
	info  chan Info
}

func New(l *log.Logger, url string) (*Client, <-chan Info) {
	info := make(chan Info, 8)
	return &Client{
		l:     l,
		url:   url,
		http:  &http.Client{},
		retry: time.Second,
		info:  info,
	}, info
}

func (c *Client) notify(i Info) {
	select {
	case c.info <- i:
	default:
	}
}

func (c *Client) connErr(err error) {
	if err == io.EOF {
		return
	}
	c.notify(InfoError)
	c.l.Println(err)
}

type Data struct {
	*bytes.Buffer
	created time.Time
}

func (d *Data) Created() time.Time { return d.created }

// Connect streams frames into data, reconnecting until ctx is done.
func (c *Client) Connect(ctx context.Context, data chan<- *Data) error {
	first := true
	for {
		if !first {
			c.notify(InfoReconnecting)
			t := time.NewTimer(c.retry)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		first = false

		c.notify(InfoConnecting)
		if err := c.stream(ctx, data); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.connErr(err)
		}
	}
}

func (c *Client) stream(ctx context.Context, data chan<- *Data) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", c.url, res.Status)
	}

	c.notify(InfoConnected)
	r := mjpeg.NewReader(res.Body, res.Header.Get("Content-Type"))
	for {
		d, err := r.Next()
		if err != nil {
			return err
		}

		select {
		case data <- &Data{Buffer: bytes.NewBuffer(d), created: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
