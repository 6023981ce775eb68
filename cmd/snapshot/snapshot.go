package main

import (
	"flag"
	"log"
	"os"

	"github.com/frizinak/homecam/camera"
	"github.com/frizinak/homecam/config"
)

func main() {
	file := flag.String("c", "", "config file (default ~/.config/homecam/config.json)")
	out := flag.String("o", "snapshot.jpg", "output file")
	flag.Parse()

	l := log.New(os.Stderr, "", 0)
	if *file == "" {
		var err error
		if *file, err = config.DefaultConfigFile(); err != nil {
			l.Fatal(err)
		}
	}

	conf, err := config.LoadConfig(*file)
	if err != nil {
		l.Fatal(err)
	}

	camConf, err := conf.ToCameraConfig()
	if err != nil {
		l.Fatal(err)
	}

	src, err := camera.Open(l, camConf)
	if err != nil {
		l.Fatal(err)
	}
	defer src.Close()

	f, err := src.Acquire()
	if err != nil {
		l.Fatal(err)
	}

	enc, err := camera.Encode(f, conf.Stream.Quality)
	if err != nil {
		l.Fatal(err)
	}
	defer enc.Release()

	if err := os.WriteFile(*out, enc.Data, 0644); err != nil {
		l.Fatal(err)
	}
	l.Printf("Wrote %d bytes to %s", enc.Len(), *out)
}
