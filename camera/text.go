package camera

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

type textWriter struct {
	ctx    *freetype.Context
	tt     *truetype.Font
	bounds fixed.Rectangle26_6
}

func newTextWriter(size float64) (*textWriter, error) {
	tt, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, err
	}

	t := &textWriter{ctx: freetype.NewContext(), tt: tt}
	t.ctx.SetFont(tt)
	t.ctx.SetFontSize(size)
	t.ctx.SetDPI(72)
	t.bounds = tt.Bounds(fixed.Int26_6(0.5 + size*64))
	t.setColor(color.White)
	return t, nil
}

func (t *textWriter) setColor(c color.Color) { t.ctx.SetSrc(image.NewUniform(c)) }

// write draws text with its top left corner at pt and returns the bottom
// right corner of the drawn line.
func (t *textWriter) write(img draw.Image, text string, pt image.Point) (image.Point, error) {
	t.ctx.SetDst(img)
	t.ctx.SetClip(img.Bounds())
	f := fixed.P(pt.X, pt.Y)
	min := -t.bounds.Max.Y
	max := -t.bounds.Min.Y - 63

	f.Y -= min
	p, err := t.ctx.DrawString(text, f)
	return image.Pt(int(p.X)>>6, int(p.Y+max-min)>>6), err
}
