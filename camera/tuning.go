package camera

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// Tuning is applied to the sensor once at startup. Nil values keep the
// driver default.
type Tuning struct {
	Brightness *int
	Contrast   *int
	Saturation *int
	Gain       *int
	Exposure   *int

	HMirror bool
	VFlip   bool
}

type Control struct {
	Min int32
	Max int32
}

// Controller exposes sensor controls keyed by lower case name.
type Controller interface {
	Controls() map[string]Control
	SetControl(name string, value int32) error
}

var controlNames = map[string][]string{
	"brightness": {"brightness"},
	"contrast":   {"contrast"},
	"saturation": {"saturation"},
	"gain":       {"gain", "analogue gain"},
	"exposure":   {"exposure (absolute)", "exposure time, absolute", "exposure"},
	"hmirror":    {"horizontal flip", "hflip"},
	"vflip":      {"vertical flip", "vflip"},
}

func (t Tuning) values() map[string]int {
	v := make(map[string]int, 7)
	set := func(k string, p *int) {
		if p != nil {
			v[k] = *p
		}
	}
	set("brightness", t.Brightness)
	set("contrast", t.Contrast)
	set("saturation", t.Saturation)
	set("gain", t.Gain)
	set("exposure", t.Exposure)
	v["hmirror"] = boolInt(t.HMirror)
	v["vflip"] = boolInt(t.VFlip)
	return v
}

func (t Tuning) Apply(l *log.Logger, c Controller) error {
	controls := c.Controls()
	var errs []error
	for key, value := range t.values() {
		name, ctrl, ok := lookupControl(controls, key)
		if !ok {
			if value != 0 {
				l.Printf("Sensor has no %s control, skipping", key)
			}
			continue
		}

		if value < int(ctrl.Min) {
			value = int(ctrl.Min)
		} else if value > int(ctrl.Max) {
			value = int(ctrl.Max)
		}

		if err := c.SetControl(name, int32(value)); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func lookupControl(controls map[string]Control, key string) (string, Control, bool) {
	for _, n := range controlNames[key] {
		if c, ok := controls[n]; ok {
			return n, c, true
		}
	}
	for n, c := range controls {
		if strings.HasPrefix(n, key) {
			return n, c, true
		}
	}
	return "", Control{}, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
