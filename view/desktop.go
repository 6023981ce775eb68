//go:build viewer

package view

import (
	"image"
	"image/draw"
	"time"

	"golang.org/x/exp/shiny/driver/gldriver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/exp/gl/glutil"
	"golang.org/x/mobile/geom"
	"golang.org/x/mobile/gl"
)

type stage struct {
	images *glutil.Images
	frames []*glutil.Image
}

func (v *View) initStage(glctx gl.Context) *stage {
	return &stage{
		images: glutil.NewImages(glctx),
		frames: make([]*glutil.Image, len(v.tiles)),
	}
}

func (s *stage) release() {
	for _, f := range s.frames {
		if f != nil {
			f.Release()
		}
	}
	s.images.Release()
}

// upload copies new frames into their textures, on the GL goroutine.
func (v *View) upload(s *stage) {
	v.each(func(i int, img *image.RGBA) {
		b := img.Bounds()
		f := s.frames[i]
		if f == nil || f.RGBA.Bounds().Size() != b.Size() {
			if f != nil {
				f.Release()
			}
			f = s.images.NewImage(b.Dx(), b.Dy())
			s.frames[i] = f
		}
		draw.Draw(f.RGBA, f.RGBA.Bounds(), img, b.Min, draw.Src)
		f.Upload()
	})
}

func (v *View) paint(glctx gl.Context, s *stage, sz size.Event) {
	glctx.ClearColor(0.2, 0.2, 0.2, 1)
	glctx.Clear(gl.COLOR_BUFFER_BIT)

	now := time.Now()
	pppt := float64(sz.PixelsPerPt)
	pt := func(px int) geom.Pt { return geom.Pt(float64(px) / pppt) }
	cells := Grid(len(s.frames), image.Rect(0, 0, sz.WidthPx, sz.HeightPx))
	for i, cell := range cells {
		if v.Stale(i, now) {
			// gl scissor boxes start bottom left
			glctx.Enable(gl.SCISSOR_TEST)
			glctx.Scissor(int32(cell.Min.X), int32(sz.HeightPx-cell.Max.Y), int32(cell.Dx()), int32(cell.Dy()))
			glctx.ClearColor(0.6, 0.2, 0.2, 1)
			glctx.Clear(gl.COLOR_BUFFER_BIT)
			glctx.Disable(gl.SCISSOR_TEST)
		}

		f := s.frames[i]
		if f == nil {
			continue
		}
		src := f.RGBA.Bounds()
		r := Fit(src, cell)
		f.Draw(
			sz,
			geom.Point{X: pt(r.Min.X), Y: pt(r.Min.Y)},
			geom.Point{X: pt(r.Max.X), Y: pt(r.Min.Y)},
			geom.Point{X: pt(r.Min.X), Y: pt(r.Max.Y)},
			src,
		)
	}
}

// Start opens a window and blocks until it is closed or q is pressed.
func (v *View) Start(title string) error {
	var err error
	gldriver.Main(func(s screen.Screen) {
		w, werr := s.NewWindow(&screen.NewWindowOptions{
			Width:  640 * len(v.tiles),
			Height: 480,
			Title:  title,
		})
		if werr != nil {
			err = werr
			return
		}
		defer w.Release()
		v.loop(w)
	})
	return err
}

func (v *View) loop(w screen.Window) {
	var glctx gl.Context
	var st *stage
	var sz size.Event
	defer func() {
		if st != nil {
			st.release()
		}
	}()

	for {
		switch e := w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
			switch e.Crosses(lifecycle.StageVisible) {
			case lifecycle.CrossOn:
				glctx, _ = e.DrawContext.(gl.Context)
				if glctx == nil {
					continue
				}
				st = v.initStage(glctx)
				if sz.WidthPx > 0 {
					glctx.Viewport(0, 0, sz.WidthPx, sz.HeightPx)
				}
				w.Send(paint.Event{})
			case lifecycle.CrossOff:
				if st != nil {
					st.release()
				}
				st, glctx = nil, nil
			}
		case key.Event:
			if e.Direction == key.DirPress && v.Key(e.Rune, time.Now()) {
				return
			}
		case size.Event:
			sz = e
			if glctx != nil {
				glctx.Viewport(0, 0, sz.WidthPx, sz.HeightPx)
			}
		case paint.Event:
			if glctx == nil || e.External {
				continue
			}
			v.upload(st)
			v.paint(glctx, st, sz)
			w.Publish()
			w.Send(paint.Event{})
		}
	}
}
