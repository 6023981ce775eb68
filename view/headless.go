//go:build !viewer

package view

import "errors"

var ErrNoDisplay = errors.New("built without the viewer tag, rebuild with -tags viewer")

func (v *View) Start(title string) error { return ErrNoDisplay }
