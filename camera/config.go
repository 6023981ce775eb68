package camera

import (
	"fmt"
	"time"
)

const (
	DriverV4L2    = "v4l2"
	DriverPattern = "pattern"
)

const MaxBuffers = 8

// Pins is the parallel camera bus wiring. -1 marks an unconnected pin.
type Pins struct {
	D0, D1, D2, D3, D4, D5, D6, D7 int

	XCLK  int
	PCLK  int
	VSYNC int
	HREF  int
	SDA   int
	SCL   int
	PWDN  int
	Reset int
}

var DefaultPins = Pins{
	D0: 17, D1: 35, D2: 34, D3: 5, D4: 39, D5: 18, D6: 36, D7: 19,

	XCLK:  0,
	PCLK:  21,
	VSYNC: 25,
	HREF:  23,
	SDA:   26,
	SCL:   27,
	PWDN:  32,
	Reset: -1,
}

type Config struct {
	Driver string
	Device string
	Name   string

	Pins       Pins
	XCLKFreqHz int

	PixelFormat PixelFormat
	Width       int
	Height      int
	FPS         int

	BufferCount    int
	JPEGQuality    int
	AcquireTimeout time.Duration

	Tuning Tuning
}

func DefaultConfig() Config {
	return Config{
		Driver:         DriverV4L2,
		Device:         "/dev/video0",
		Name:           "homecam",
		Pins:           DefaultPins,
		XCLKFreqHz:     20000000,
		PixelFormat:    JPEG,
		Width:          800,
		Height:         600,
		FPS:            20,
		BufferCount:    1,
		JPEGQuality:    85,
		AcquireTimeout: 2 * time.Second,
	}
}

func (c Config) Validate() error {
	if _, ok := formatNames[c.PixelFormat]; !ok {
		return fmt.Errorf("%w: unknown pixel format %s", ErrInit, c.PixelFormat)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: invalid resolution %dx%d", ErrInit, c.Width, c.Height)
	}
	if c.BufferCount < 1 || c.BufferCount > MaxBuffers {
		return fmt.Errorf("%w: buffer count %d not in 1..%d", ErrInit, c.BufferCount, MaxBuffers)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d not in 1..100", ErrInit, c.JPEGQuality)
	}
	if c.XCLKFreqHz <= 0 {
		return fmt.Errorf("%w: invalid xclk frequency %d", ErrInit, c.XCLKFreqHz)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("%w: acquire timeout must be positive", ErrInit)
	}
	return nil
}
