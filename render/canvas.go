package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// canvas wraps an RGBA image with the few drawing primitives a timeline needs.
// All drawing is alpha-composited over what is already there.
type canvas struct {
	img  *image.RGBA
	face font.Face
}

func newCanvas(width, height int, background color.Color) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background),
		image.Point{}, draw.Src)

	return &canvas{
		img:  img,
		face: basicfont.Face7x13,
	}
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// stroke draws the 1 px outline of r. Degenerate rectangles become a single
// line.
func (c *canvas) stroke(r image.Rectangle, col color.Color) {
	if r.Empty() {
		return
	}

	if r.Dx() <= 2 || r.Dy() <= 2 {
		c.fill(r, col)
		return
	}

	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), col)
	c.fill(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), col)
	c.fill(image.Rect(r.Min.X, r.Min.Y+1, r.Min.X+1, r.Max.Y-1), col)
	c.fill(image.Rect(r.Max.X-1, r.Min.Y+1, r.Max.X, r.Max.Y-1), col)
}

// dashedVLine draws a vertical dashed line at x between y0 and y1.
func (c *canvas) dashedVLine(x, y0, y1 int, col color.Color) {
	const dash, gap = 6, 4

	for y := y0; y < y1; y += dash + gap {
		end := y + dash
		if end > y1 {
			end = y1
		}

		c.fill(image.Rect(x, y, x+1, end), col)
	}
}

func (c *canvas) hLine(x0, x1, y int, col color.Color) {
	c.fill(image.Rect(x0, y, x1, y+1), col)
}

func (c *canvas) vLine(x, y0, y1 int, col color.Color) {
	c.fill(image.Rect(x, y0, x+1, y1), col)
}

func (c *canvas) textWidth(s string) int {
	return font.MeasureString(c.face, s).Ceil()
}

func (c *canvas) textHeight() int {
	m := c.face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// text draws s with its baseline starting at (x, y).
func (c *canvas) text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// textCentered draws s horizontally centred on cx, vertically centred on cy.
func (c *canvas) textCentered(cx, cy int, s string, col color.Color) {
	m := c.face.Metrics()
	x := cx - c.textWidth(s)/2
	y := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	c.text(x, y, s, col)
}

// textRightAligned draws s ending at x, vertically centred on cy.
func (c *canvas) textRightAligned(x, cy int, s string, col color.Color) {
	m := c.face.Metrics()
	y := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	c.text(x-c.textWidth(s), y, s, col)
}

// textVertical draws s rotated a quarter turn counter-clockwise, centred on
// (cx, cy).
func (c *canvas) textVertical(cx, cy int, s string, col color.Color) {
	w, h := c.textWidth(s), c.textHeight()
	if w == 0 {
		return
	}

	tmp := &canvas{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		face: c.face,
	}
	tmp.text(0, c.face.Metrics().Ascent.Ceil(), s, col)

	x0, y0 := cx-h/2, cy-w/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := tmp.img.RGBAAt(x, y)
			if px.A == 0 {
				continue
			}

			dst := image.Rect(x0+y, y0+w-1-x, x0+y+1, y0+w-x)
			draw.Draw(c.img, dst, image.NewUniform(px), image.Point{}, draw.Over)
		}
	}
}
