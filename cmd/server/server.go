package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frizinak/homecam/camera"
	"github.com/frizinak/homecam/config"
	"github.com/frizinak/homecam/netwait"
	"github.com/frizinak/homecam/server"
)

func main() {
	file := flag.String("c", "", "config file (default ~/.config/homecam/config.json)")
	flag.Parse()

	l := log.New(os.Stderr, "", log.Ldate|log.Ltime)
	if *file == "" {
		var err error
		if *file, err = config.DefaultConfigFile(); err != nil {
			l.Fatal(err)
		}
	}

	conf, err := config.LoadConfig(*file)
	if err != nil {
		if !os.IsNotExist(err) {
			l.Fatal(err)
		}

		if err := config.EnsureConfig(*file); err != nil {
			l.Fatal(err)
		}

		l.Printf("Created example config file in %s", *file)
		return
	}

	camConf, err := conf.ToCameraConfig()
	if err != nil {
		l.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link, err := netwait.Wait(ctx, conf.Network.ToNetwaitConfig(), l)
	if err != nil {
		l.Fatal(err)
	}
	l.Println("Network connected:", link)

	l.Printf(
		"Camera %s %s: %s %dx%d, %d buffers, xclk %dHz, pins %+v",
		camConf.Driver,
		camConf.Device,
		camConf.PixelFormat,
		camConf.Width,
		camConf.Height,
		camConf.BufferCount,
		camConf.XCLKFreqHz,
		camConf.Pins,
	)
	src, err := camera.Open(l, camConf)
	if err != nil {
		l.Fatal(err)
	}
	defer src.Close()

	s := server.New(l, conf.ToServerConfig(), src, camConf, link)
	errs, err := s.Start()
	if err != nil {
		l.Fatal(err)
	}
	l.Printf("Camera stream ready on http://%s%s", link.IP, conf.Address)

	select {
	case err := <-errs:
		if err != nil {
			l.Fatal(err)
		}
	case <-ctx.Done():
		l.Println("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Println(err)
		}
	}
}
