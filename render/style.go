package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/sarchlab/threadviz/timeline"
)

// A Style decides how the rectangles of one phase look.
type Style struct {
	Edge  color.NRGBA
	Fill  color.NRGBA
	Alpha float64

	// HalfHeight is half of the band height, in lane units.
	HalfHeight float64
}

func (s Style) edge() color.NRGBA {
	return withAlpha(s.Edge, s.Alpha)
}

func (s Style) fill() color.NRGBA {
	return withAlpha(s.Fill, s.Alpha)
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(float64(c.A)*clamp01(alpha) + 0.5)
	return c
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ParseColor parses a CSS hex colour such as "#ffa500" or "fa0".
func ParseColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	if len(hex) != 3 && len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", hex)
	}

	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return color.NRGBA{}, fmt.Errorf("invalid colour %q", hex)
		}
	}

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	c := drawing.ColorFromHex(hex)

	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
}

func mustParseColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}

	return c
}

// Named colours used by the default styles.
var (
	colorBlack        = mustParseColor("000000")
	colorOrange       = mustParseColor("ffa500")
	colorPurple       = mustParseColor("800080")
	colorMediumPurple = mustParseColor("9370db")
	colorBrown        = mustParseColor("a52a2a")
	colorPeru         = mustParseColor("cd853f")
	colorBlue         = mustParseColor("0000ff")
	colorSkyBlue      = mustParseColor("87ceeb")
	colorGrey         = mustParseColor("808080")
	colorGreen        = mustParseColor("008000")
	colorLightGreen   = mustParseColor("90ee90")
	colorWhite        = mustParseColor("ffffff")
)

// DefaultStyles returns the style of every phase. The accelerator's compute
// band is taller than the others.
func DefaultStyles() map[timeline.Phase]Style {
	return map[timeline.Phase]Style{
		timeline.PhaseCompute: {
			Edge: colorBlack, Fill: colorOrange, Alpha: 0.7, HalfHeight: 0.4,
		},
		timeline.PhasePush: {
			Edge: colorPurple, Fill: colorMediumPurple, Alpha: 0.7, HalfHeight: 0.3,
		},
		timeline.PhasePull: {
			Edge: colorBrown, Fill: colorPeru, Alpha: 0.7, HalfHeight: 0.3,
		},
		timeline.PhasePreAccelerator: {
			Edge: colorBlue, Fill: colorSkyBlue, Alpha: 0.7, HalfHeight: 0.3,
		},
		timeline.PhaseWaiting: {
			Edge: colorGrey, Fill: colorGrey, Alpha: 0.2, HalfHeight: 0.3,
		},
		timeline.PhasePostAccelerator: {
			Edge: colorGreen, Fill: colorLightGreen, Alpha: 0.7, HalfHeight: 0.3,
		},
	}
}

// guideStyle is the colour of the accelerator boundary guide lines.
var guideStyle = withAlpha(colorGrey, 0.5)
