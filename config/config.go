package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frizinak/homecam/camera"
	"github.com/frizinak/homecam/netwait"
	"github.com/frizinak/homecam/server"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address    string
	DeviceName string

	Network Network
	Camera  Camera
	Stream  Stream
}

type Network struct {
	Interface  string
	Attempts   int
	IntervalMS int
}

type Camera struct {
	// Driver is v4l2 or pattern.
	Driver string
	Device string

	PixelFormat string
	// FrameSize overrides Width and Height when set, e.g. svga.
	FrameSize string
	Width     int
	Height    int
	FPS       int

	BufferCount      int
	JPEGQuality      int
	XCLKFreqHz       int
	AcquireTimeoutMS int

	Pins   camera.Pins
	Tuning camera.Tuning
}

type Stream struct {
	Quality        int
	MaxFPS         int
	MaxStreams     int
	MaxConns       int
	WriteTimeoutMS int
}

func (c Config) ToCameraConfig() (camera.Config, error) {
	conf := camera.Config{
		Driver:         c.Camera.Driver,
		Device:         c.Camera.Device,
		Name:           c.DeviceName,
		Pins:           c.Camera.Pins,
		XCLKFreqHz:     c.Camera.XCLKFreqHz,
		Width:          c.Camera.Width,
		Height:         c.Camera.Height,
		FPS:            c.Camera.FPS,
		BufferCount:    c.Camera.BufferCount,
		JPEGQuality:    c.Camera.JPEGQuality,
		AcquireTimeout: time.Duration(c.Camera.AcquireTimeoutMS) * time.Millisecond,
		Tuning:         c.Camera.Tuning,
	}

	var err error
	if conf.PixelFormat, err = camera.ParsePixelFormat(c.Camera.PixelFormat); err != nil {
		return conf, err
	}

	if c.Camera.FrameSize != "" {
		fs, err := camera.ParseFrameSize(c.Camera.FrameSize)
		if err != nil {
			return conf, err
		}
		conf.Width, conf.Height = fs.Width, fs.Height
	}

	return conf, conf.Validate()
}

func (c Config) ToServerConfig() server.Config {
	return server.Config{
		Address:      c.Address,
		DeviceName:   c.DeviceName,
		Quality:      c.Stream.Quality,
		MaxFPS:       c.Stream.MaxFPS,
		MaxStreams:   c.Stream.MaxStreams,
		MaxConns:     c.Stream.MaxConns,
		WriteTimeout: time.Duration(c.Stream.WriteTimeoutMS) * time.Millisecond,
	}
}

func (n Network) ToNetwaitConfig() netwait.Config {
	return netwait.Config{
		Interface: n.Interface,
		Attempts:  n.Attempts,
		Interval:  time.Duration(n.IntervalMS) * time.Millisecond,
	}
}

func Default() Config {
	return Config{
		Address:    ":80",
		DeviceName: "homecam",
		Network: Network{
			Attempts:   120,
			IntervalMS: 500,
		},
		Camera: Camera{
			Driver:           camera.DriverV4L2,
			Device:           "/dev/video0",
			PixelFormat:      "jpeg",
			FrameSize:        "svga",
			FPS:              20,
			BufferCount:      2,
			JPEGQuality:      85,
			XCLKFreqHz:       20000000,
			AcquireTimeoutMS: 2000,
			Pins:             camera.DefaultPins,
		},
		Stream: Stream{
			Quality:        80,
			MaxFPS:         20,
			MaxStreams:     2,
			MaxConns:       16,
			WriteTimeoutMS: 5000,
		},
	}
}

func DefaultConfigFile() (string, error) {
	home, err := os.UserHomeDir()
	return filepath.Join(home, ".config", "homecam", "config.json"), err
}

func isYAML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig reads a json or, going by the extension, yaml config. Missing
// keys keep their Default value.
func LoadConfig(file string) (Config, error) {
	c := Default()
	f, err := os.Open(file)
	if err != nil {
		return c, err
	}
	defer f.Close()

	if isYAML(file) {
		err = yaml.NewDecoder(f).Decode(&c)
	} else {
		err = json.NewDecoder(f).Decode(&c)
	}
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return c, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}

// EnsureConfig writes an example config to file unless it already exists.
func EnsureConfig(file string) error {
	c := Default()

	dirs := filepath.Dir(file)
	os.MkdirAll(dirs, 0755)
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if os.IsExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(file) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(4)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}
