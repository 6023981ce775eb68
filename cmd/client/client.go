package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/frizinak/homecam/client"
	"github.com/frizinak/homecam/view"
)

func streamURL(arg string) (*url.URL, error) {
	if !strings.Contains(arg, "://") {
		arg = "http://" + arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return nil, err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/stream"
	}
	return u, nil
}

func main() {
	dir := flag.String("o", "captures", "directory for frames saved with s")
	flag.Parse()

	l := log.New(os.Stderr, "", 0)
	if flag.NArg() == 0 {
		l.Fatal("usage: client [-o dir] camera...")
	}

	urls := make([]string, flag.NArg())
	names := make([]string, flag.NArg())
	for i, arg := range flag.Args() {
		u, err := streamURL(arg)
		if err != nil {
			l.Fatal(err)
		}
		urls[i], names[i] = u.String(), u.Host
	}

	v := view.New(l, *dir, names...)
	for i := range urls {
		c, info := client.New(l, urls[i])
		data := make(chan *client.Data)

		go func() {
			var last client.Info = -1
			for msg := range info {
				if msg != last {
					last = msg
					v.SetStatus(i, msg.String())
					l.Printf("%s: %s", names[i], msg)
				}
			}
		}()

		go func() {
			for d := range data {
				if err := v.Feed(i, d); err != nil {
					l.Println(err)
				}
			}
		}()

		go c.Connect(context.Background(), data)
	}

	l.Println("Press q to quit, s to save the current frames")
	if err := v.Start(strings.Join(names, " | ")); err != nil {
		l.Fatal(err)
	}
}
