package sampler

import (
	"fmt"

	"lorikeet/internal/colorspace"
)

const (
	channelSpan   = 127.0
	primaryBoost  = 63.5
	channelLevels = 255.0
)

// Blend folds the accepted colors into a running average and draws a
// matching color around it.
type Blend struct {
	Type ColorType `json:"type"`
}

func (b Blend) Validate() error {
	return b.Type.Validate()
}

func (b Blend) Sample(seed colorspace.Color, accepted []colorspace.Color, src Source) (colorspace.Color, error) {
	return MatchingColor(RunningAverage(seed, accepted), b.Type, src)
}

// RunningAverage halves toward each accepted color in turn, starting from
// the seed, so later colors weigh more than earlier ones.
func RunningAverage(seed colorspace.Color, accepted []colorspace.Color) colorspace.Color {
	r, g, b, a := seed.Channels()
	for _, c := range accepted {
		cr, cg, cb, ca := c.Channels()
		r = (r + cr) / 2
		g = (g + cg) / 2
		b = (b + cb) / 2
		a = (a + ca) / 2
	}
	return colorspace.MustRGBA(r, g, b, a)
}

// MatchingColor draws a random color in 0..255 space, lifted by the
// brightness factor, and averages it with base. Flat colors also push one
// or two primaries further. The result keeps base's alpha.
func MatchingColor(base colorspace.Color, colorType ColorType, src Source) (colorspace.Color, error) {
	if err := colorType.Validate(); err != nil {
		return colorspace.Color{}, err
	}

	var additions [3]float64
	if colorType.Style == StyleFlat {
		primary := drawIndex(src, 3)
		additions[primary] += primaryBoost

		next := (primary + drawIndex(src, 3)) % 3
		if next != primary {
			additions[next] += primaryBoost
		}

		for channel := range additions {
			additions[channel] *= colorType.Brightness
		}
	}

	lift := channelSpan * colorType.Brightness
	br, bg, bb, ba := base.Channels()
	baseChannels := [3]float64{br, bg, bb}

	var out [3]float64
	for channel := range out {
		random := float64(drawIndex(src, int(channelSpan))) + lift + additions[channel]
		out[channel] = clampUnit((baseChannels[channel]*channelLevels + random) / 2 / channelLevels)
	}

	candidate, err := colorspace.FromRGBA(out[0], out[1], out[2], ba)
	if err != nil {
		return colorspace.Color{}, fmt.Errorf("build matching color: %w", err)
	}
	return candidate, nil
}

// drawIndex maps a uniform draw onto [0,n).
func drawIndex(src Source, n int) int {
	index := int(src.Float64() * float64(n))
	if index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	return index
}
