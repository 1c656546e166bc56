package sampler

import (
	"fmt"

	"lorikeet/internal/colorspace"
)

// Jitter perturbs the seed in HSV space. It never looks at accepted colors.
type Jitter struct {
	Range HSVRange `json:"range"`
}

func (j Jitter) Validate() error {
	return j.Range.Validate()
}

func (j Jitter) Sample(seed colorspace.Color, _ []colorspace.Color, src Source) (colorspace.Color, error) {
	if err := j.Range.Validate(); err != nil {
		return colorspace.Color{}, err
	}

	_, saturation, brightness, alpha := seed.HSV()
	r := j.Range

	hue := r.HueMin + src.Float64()*(r.HueMax-r.HueMin)
	saturation = clampUnit(saturation - r.SaturationOffset + src.Float64()*2*r.SaturationOffset)
	brightness = clampUnit(brightness - r.BrightnessOffset + src.Float64()*2*r.BrightnessOffset)

	candidate, err := colorspace.FromHSVA(clampUnit(hue), saturation, brightness, alpha)
	if err != nil {
		return colorspace.Color{}, fmt.Errorf("build jittered color: %w", err)
	}
	return candidate, nil
}
