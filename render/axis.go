package render

import (
	"math"
	"strconv"
)

// A Tick is a labelled position on an axis.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// timeTicks picks round tick positions within [min, max]. It aims for about
// target ticks with steps of 1, 2 or 5 times a power of ten.
func timeTicks(min, max float64, target int) []Tick {
	if !(max > min) || math.IsInf(max-min, 0) || target < 1 {
		return []Tick{{Value: min, Label: formatTick(min, 1)}}
	}

	step := niceStep((max - min) / float64(target))
	first := math.Ceil(min/step) * step

	var ticks []Tick
	for i := 0; ; i++ {
		v := first + float64(i)*step
		if v > max+step*1e-9 {
			break
		}

		// Avoid printing -0 and accumulated float noise.
		v = math.Round(v/step) * step
		if v == 0 {
			v = 0
		}

		ticks = append(ticks, Tick{Value: v, Label: formatTick(v, step)})
	}

	return ticks
}

func niceStep(raw float64) float64 {
	exp := math.Floor(math.Log10(raw) + 1e-12)
	base := math.Pow(10, exp)
	frac := raw / base

	switch {
	case frac <= 1:
		return base
	case frac <= 2:
		return 2 * base
	case frac <= 5:
		return 5 * base
	default:
		return 10 * base
	}
}

// formatTick prints v with just enough decimals for the given step.
func formatTick(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}

	return strconv.FormatFloat(v, 'f', decimals, 64)
}
