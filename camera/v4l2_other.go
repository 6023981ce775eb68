//go:build !linux

package camera

import (
	"fmt"
	"log"
)

func openV4L2(l *log.Logger, c Config) (Source, error) {
	return nil, fmt.Errorf("%w: v4l2 is only available on linux", ErrInit)
}
