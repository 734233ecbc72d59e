// Package render lays out a timeline of intervals and draws it into a raster
// image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sarchlab/threadviz/timeline"
	"github.com/sarchlab/threadviz/tracing"
)

// A Figure is everything that goes onto one timeline image.
type Figure struct {
	Intervals []timeline.Interval
	Lanes     *timeline.LaneTable

	// Span is the length of the horizontal axis. The axis always starts at 0.
	Span float64

	// Boundaries are the times where the dashed accelerator guides go.
	Boundaries []float64

	Title  string
	XLabel string
	YLabel string
}

// A LegendEntry names one phase that appears in the image.
type LegendEntry struct {
	Phase timeline.Phase `json:"phase"`
	Label string         `json:"label"`
}

// A Mark is where an interval landed on the image, after clipping to the plot
// area. Rect is empty if the interval is entirely outside the visible window.
type Mark struct {
	Phase timeline.Phase  `json:"phase"`
	Lane  int             `json:"lane"`
	Rect  image.Rectangle `json:"rect"`
}

// A Range is a closed interval of an axis, in data units.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Layout describes the geometry of a rendered timeline.
type Layout struct {
	Width, Height int
	PlotArea      image.Rectangle

	// XRange is the visible time window. YRange is the visible lane window,
	// with Min at the top.
	XRange Range
	YRange Range

	XTicks     []Tick
	LaneLabels []string
	Legend     []LegendEntry
	Marks      []Mark
	Guides     []int
}

// A Plot is a rendered timeline.
type Plot struct {
	Layout
	Image *image.RGBA
}

// Renderer draws figures.
type Renderer struct {
	width, height int
	styles        map[timeline.Phase]Style
	background    color.NRGBA
	foreground    color.NRGBA
}

// NewRenderer creates a renderer that produces images of the given size, in
// pixels.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 || height <= 0 {
		panic("image size must be positive")
	}

	return &Renderer{
		width:      width,
		height:     height,
		styles:     DefaultStyles(),
		background: colorWhite,
		foreground: colorBlack,
	}
}

// WithStyle overrides the style of one phase.
func (r *Renderer) WithStyle(phase timeline.Phase, style Style) *Renderer {
	r.styles[phase] = style
	return r
}

// Style returns the style used for a phase.
func (r *Renderer) Style(phase timeline.Phase) (Style, bool) {
	s, ok := r.styles[phase]
	return s, ok
}

const (
	marginTop    = 32
	marginBottom = 48
	marginRight  = 16
	tickLength   = 5
	targetTicks  = 10
)

// Render lays out and draws the figure. The figure is checked before anything
// is drawn, so a failed render never produces a partial image.
func (r *Renderer) Render(fig Figure) (*Plot, error) {
	err := r.check(fig)
	if err != nil {
		return nil, err
	}

	c := newCanvas(r.width, r.height, r.background)
	p := &Plot{Image: c.img}
	p.Width, p.Height = r.width, r.height
	p.LaneLabels = fig.Lanes.Labels()

	p.PlotArea, err = r.plotArea(c, p.LaneLabels)
	if err != nil {
		return nil, err
	}

	span := fig.Span
	if !(span > 0) {
		span = 1
	}
	p.XRange = Range{Min: 0, Max: span}
	p.YRange = Range{Min: -1, Max: float64(fig.Lanes.NumLanes())}
	p.XTicks = timeTicks(0, span, targetTicks)

	tr := transform{area: p.PlotArea, x: p.XRange, y: p.YRange}

	r.drawGuides(c, p, tr, fig.Boundaries)
	r.drawIntervals(c, p, tr, fig.Intervals)
	r.drawAxes(c, p, tr, fig)
	r.drawLegend(c, p)

	return p, nil
}

func (r *Renderer) check(fig Figure) error {
	if fig.Lanes == nil {
		return fmt.Errorf("figure has no lane table")
	}

	if !isFinite(fig.Span) {
		return fmt.Errorf("timeline span %g is not finite", fig.Span)
	}

	for i, t := range fig.Boundaries {
		if !isFinite(t) {
			return fmt.Errorf("boundary %d at %g is not finite", i, t)
		}
	}

	for i, interval := range fig.Intervals {
		if !isFinite(interval.Start) || !isFinite(interval.End) {
			return &tracing.DataError{
				Kind: tracing.ErrMalformedValue,
				Row:  -1,
				Detail: fmt.Sprintf("interval %d (%s) spans %g to %g",
					i, interval.Phase, interval.Start, interval.End),
			}
		}

		if interval.End < interval.Start {
			return &tracing.DataError{
				Kind: tracing.ErrInvalidInterval,
				Row:  -1,
				Detail: fmt.Sprintf("interval %d (%s) ends at %g before it starts at %g",
					i, interval.Phase, interval.End, interval.Start),
			}
		}

		if _, ok := r.styles[interval.Phase]; !ok {
			return fmt.Errorf("no style for phase %q", interval.Phase)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (r *Renderer) plotArea(c *canvas, labels []string) (image.Rectangle, error) {
	labelWidth := 0
	for _, l := range labels {
		if w := c.textWidth(l); w > labelWidth {
			labelWidth = w
		}
	}

	left := labelWidth + tickLength + 8 + c.textHeight() + 8
	right, bottom := r.width-marginRight, r.height-marginBottom

	if right-left < 10 || bottom-marginTop < 10 {
		return image.Rectangle{}, fmt.Errorf(
			"image of %dx%d is too small for the timeline", r.width, r.height)
	}

	return image.Rect(left, marginTop, right, bottom), nil
}

// transform maps data coordinates to pixels. The y range is given top first,
// so lane 0 ends up above the workers.
type transform struct {
	area image.Rectangle
	x, y Range
}

func (t transform) px(v float64) int {
	f := (v - t.x.Min) / (t.x.Max - t.x.Min)
	return t.area.Min.X + int(math.Round(f*float64(t.area.Dx())))
}

func (t transform) py(v float64) int {
	f := (v - t.y.Min) / (t.y.Max - t.y.Min)
	return t.area.Min.Y + int(math.Round(f*float64(t.area.Dy())))
}

func (r *Renderer) drawGuides(c *canvas, p *Plot, tr transform, at []float64) {
	for _, t := range at {
		x := tr.px(t)
		if x < p.PlotArea.Min.X || x > p.PlotArea.Max.X {
			continue
		}

		if x == p.PlotArea.Max.X {
			x--
		}

		c.dashedVLine(x, p.PlotArea.Min.Y, p.PlotArea.Max.Y, guideStyle)
		p.Guides = append(p.Guides, x)
	}
}

func (r *Renderer) drawIntervals(
	c *canvas,
	p *Plot,
	tr transform,
	intervals []timeline.Interval,
) {
	seen := make(map[timeline.Phase]bool)

	for _, interval := range intervals {
		style := r.styles[interval.Phase]
		lane := float64(interval.Lane)

		rect := image.Rect(
			tr.px(interval.Start), tr.py(lane-style.HalfHeight),
			tr.px(interval.End), tr.py(lane+style.HalfHeight),
		)
		if rect.Dx() < 1 {
			rect.Max.X = rect.Min.X + 1
			if rect.Min.X == p.PlotArea.Max.X {
				rect = rect.Sub(image.Pt(1, 0))
			}
		}
		rect = rect.Intersect(p.PlotArea)

		c.fill(rect, style.fill())
		c.stroke(rect, style.edge())

		p.Marks = append(p.Marks, Mark{
			Phase: interval.Phase,
			Lane:  interval.Lane,
			Rect:  rect,
		})

		if !seen[interval.Phase] {
			seen[interval.Phase] = true
			p.Legend = append(p.Legend, LegendEntry{
				Phase: interval.Phase,
				Label: string(interval.Phase),
			})
		}
	}
}

func (r *Renderer) drawAxes(c *canvas, p *Plot, tr transform, fig Figure) {
	area := p.PlotArea
	fg := r.foreground

	c.stroke(area, fg)

	for _, tick := range p.XTicks {
		x := tr.px(tick.Value)
		c.vLine(x, area.Max.Y, area.Max.Y+tickLength, fg)
		c.textCentered(x, area.Max.Y+tickLength+9, tick.Label, fg)
	}

	for lane, label := range p.LaneLabels {
		y := tr.py(float64(lane))
		c.hLine(area.Min.X-tickLength, area.Min.X, y, fg)
		c.textRightAligned(area.Min.X-tickLength-3, y, label, fg)
	}

	if fig.XLabel != "" {
		c.textCentered((area.Min.X+area.Max.X)/2, r.height-12, fig.XLabel, fg)
	}

	if fig.YLabel != "" {
		c.textVertical(4+c.textHeight()/2, (area.Min.Y+area.Max.Y)/2,
			fig.YLabel, fg)
	}

	if fig.Title != "" {
		c.textCentered((area.Min.X+area.Max.X)/2, marginTop/2, fig.Title, fg)
	}
}

func (r *Renderer) drawLegend(c *canvas, p *Plot) {
	if len(p.Legend) == 0 {
		return
	}

	const (
		pad      = 6
		swatchW  = 20
		swatchH  = 10
		rowH     = 16
		spacing  = 6
		inset    = 8
		boxAlpha = 0.8
	)

	textW := 0
	for _, e := range p.Legend {
		if w := c.textWidth(e.Label); w > textW {
			textW = w
		}
	}

	w := pad + swatchW + spacing + textW + pad
	h := pad + rowH*len(p.Legend) + pad
	x0 := p.PlotArea.Max.X - inset - w
	y0 := p.PlotArea.Min.Y + inset
	box := image.Rect(x0, y0, x0+w, y0+h)

	c.fill(box, withAlpha(r.background, boxAlpha))
	c.stroke(box, withAlpha(colorGrey, boxAlpha))

	for i, e := range p.Legend {
		style := r.styles[e.Phase]
		cy := y0 + pad + i*rowH + rowH/2

		swatch := image.Rect(x0+pad, cy-swatchH/2, x0+pad+swatchW, cy+swatchH/2)
		c.fill(swatch, style.fill())
		c.stroke(swatch, style.edge())

		c.text(x0+pad+swatchW+spacing, cy+4, e.Label, r.foreground)
	}
}
