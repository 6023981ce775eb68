// Package view shows one or more camera streams side by side.
package view

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// A camera that sent nothing for this long is drawn as stale.
const staleAfter = time.Second

type tile struct {
	name    string
	status  string
	img     *image.RGBA
	raw     []byte
	created time.Time
	dirty   bool
}

type View struct {
	l   *log.Logger
	dir string

	mu    sync.Mutex
	tiles []*tile
}

// New creates a view with one tile per camera name. Saved frames go to dir.
func New(l *log.Logger, dir string, names ...string) *View {
	v := &View{l: l, dir: dir, tiles: make([]*tile, len(names))}
	for i, n := range names {
		v.tiles[i] = &tile{name: n}
	}
	return v
}

func (v *View) Len() int { return len(v.tiles) }

// Feed decodes a JPEG frame for camera i.
func (v *View) Feed(i int, r Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", v.tiles[i].name, err)
	}

	b := img.Bounds()
	v.mu.Lock()
	defer v.mu.Unlock()
	t := v.tiles[i]
	if t.img == nil || t.img.Bounds() != b {
		t.img = image.NewRGBA(b)
	}
	draw.Draw(t.img, b, img, b.Min, draw.Src)
	t.raw = raw
	t.created = r.Created()
	t.dirty = true
	return nil
}

func (v *View) SetStatus(i int, status string) {
	v.mu.Lock()
	v.tiles[i].status = status
	v.mu.Unlock()
}

func (v *View) Status(i int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tiles[i].status
}

func (v *View) Stale(i int, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := v.tiles[i].created
	return c.IsZero() || now.Sub(c) > staleAfter
}

// each calls f for every tile that got a new frame since the last call.
func (v *View) each(f func(i int, img *image.RGBA)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, t := range v.tiles {
		if t.dirty {
			f(i, t.img)
			t.dirty = false
		}
	}
}

// Key handles a key press and reports whether the viewer should quit.
// q quits, s saves the latest frame of every camera.
func (v *View) Key(r rune, now time.Time) bool {
	switch r {
	case 'q', 'Q':
		return true
	case 's', 'S':
		files, err := v.Save(now)
		if err != nil {
			v.l.Println(err)
		}
		for _, f := range files {
			v.l.Println("Saved", f)
		}
	}
	return false
}

// Save writes the last received JPEG of every camera to the view's
// directory, all stamped with now.
func (v *View) Save(now time.Time) ([]string, error) {
	if err := os.MkdirAll(v.dir, 0755); err != nil {
		return nil, err
	}

	stamp := now.Format("20060102_150405.000")
	v.mu.Lock()
	defer v.mu.Unlock()
	files := make([]string, 0, len(v.tiles))
	for _, t := range v.tiles {
		if t.raw == nil {
			continue
		}
		file := filepath.Join(v.dir, fmt.Sprintf("%s_%s.jpg", fileName(t.name), stamp))
		if err := os.WriteFile(file, t.raw, 0644); err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}

func fileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// Grid splits win into n cells, as square as possible, filled row by row.
func Grid(n int, win image.Rectangle) []image.Rectangle {
	if n < 1 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	w, h := win.Dx()/cols, win.Dy()/rows

	cells := make([]image.Rectangle, n)
	for i := range cells {
		x := win.Min.X + (i%cols)*w
		y := win.Min.Y + (i/cols)*h
		cells[i] = image.Rect(x, y, x+w, y+h)
	}
	return cells
}

// Fit scales src to the largest size that fits cell and centers it.
func Fit(src, cell image.Rectangle) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	if sw == 0 || sh == 0 {
		return image.Rectangle{Min: cell.Min, Max: cell.Min}
	}
	scale := math.Min(float64(cell.Dx())/sw, float64(cell.Dy())/sh)
	w, h := int(sw*scale), int(sh*scale)
	x := cell.Min.X + (cell.Dx()-w)/2
	y := cell.Min.Y + (cell.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
