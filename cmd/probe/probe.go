package main

import (
	"context"
	"flag"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/frizinak/homecam/client"
)

func main() {
	limit := flag.Int("n", 0, "stop after n frames (0: no limit)")
	duration := flag.Duration("d", 5*time.Second, "stream duration")
	flag.Parse()

	l := log.New(os.Stderr, "", 0)
	if flag.NArg() != 1 {
		l.Fatal("usage: probe [-n frames] [-d duration] http://camera[:port]")
	}

	base, err := url.Parse(flag.Arg(0))
	if err != nil {
		l.Fatal(err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/stream")

	status := *base
	status.Path += "/"
	if err := probeStatus(status.String()); err != nil {
		l.Println("Status page:", err)
	}

	stream := *base
	stream.Path += "/stream"

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	c, info := client.New(l, stream.String())
	go func() {
		var last client.Info = -1
		for i := range info {
			if i != last {
				last = i
				l.Println(i)
			}
		}
	}()

	frames := make(chan *client.Data)
	go c.Connect(ctx, frames)

	var n, total, errs int
	start := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case d := <-frames:
			n++
			total += d.Len()
			cfg, err := jpeg.DecodeConfig(d)
			if err != nil {
				errs++
				l.Printf("frame %d: %v", n, err)
			} else if n == 1 {
				l.Printf("First frame: %dx%d", cfg.Width, cfg.Height)
			}
			if *limit > 0 && n >= *limit {
				break loop
			}
		}
	}

	elapsed := time.Since(start).Seconds()
	fmt.Printf("frames received: %d\n", n)
	if n > 0 {
		fmt.Printf("avg frame size:  %d bytes\n", total/n)
	}
	fmt.Printf("fps:             %.1f\n", float64(n)/elapsed)
	fmt.Printf("decode errors:   %d\n", errs)
	if n == 0 {
		os.Exit(1)
	}
}

func probeStatus(u string) error {
	c := &http.Client{Timeout: 5 * time.Second}
	res, err := c.Get(u)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	fmt.Printf("status page: %s, %s, %d bytes\n", res.Status, res.Header.Get("Content-Type"), len(b))
	return nil
}
