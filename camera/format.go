package camera

import (
	"fmt"
	"strings"
)

type PixelFormat uint8

const (
	JPEG PixelFormat = iota
	YUYV
	RGB565
	Grayscale
	RGBA
)

var formatNames = map[PixelFormat]string{
	JPEG:      "jpeg",
	YUYV:      "yuyv",
	RGB565:    "rgb565",
	Grayscale: "grayscale",
	RGBA:      "rgba",
}

func (p PixelFormat) String() string {
	if n, ok := formatNames[p]; ok {
		return n
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(p))
}

// FrameLen is the exact byte length of an uncompressed w x h frame, or 0 for
// JPEG whose length varies per frame.
func (p PixelFormat) FrameLen(w, h int) int {
	switch p {
	case YUYV, RGB565:
		return w * h * 2
	case Grayscale:
		return w * h
	case RGBA:
		return w * h * 4
	}
	return 0
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "mjpeg", "mjpg":
		return JPEG, nil
	case "gray", "grey":
		return Grayscale, nil
	}
	for p, n := range formatNames {
		if n == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

type FrameSize struct {
	Width  int
	Height int
}

var frameSizes = map[string]FrameSize{
	"qqvga": {160, 120},
	"qvga":  {320, 240},
	"cif":   {400, 296},
	"vga":   {640, 480},
	"svga":  {800, 600},
	"xga":   {1024, 768},
	"sxga":  {1280, 1024},
	"uxga":  {1600, 1200},
}

func ParseFrameSize(s string) (FrameSize, error) {
	fs, ok := frameSizes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return fs, fmt.Errorf("unknown frame size %q", s)
	}
	return fs, nil
}
