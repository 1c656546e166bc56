// Package sampler draws candidate colors for scheme generation.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"lorikeet/internal/colorspace"
)

var ErrInvalidStrategy = errors.New("invalid sampling strategy")

// Source yields uniform values in [0,1). *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() float64

func (f SourceFunc) Float64() float64 {
	return f()
}

// Sampler proposes the next candidate given the seed and every color
// accepted so far (the seed is always accepted[0]).
type Sampler interface {
	Sample(seed colorspace.Color, accepted []colorspace.Color, src Source) (colorspace.Color, error)
	Validate() error
}

type Style string

const (
	StyleFlat   Style = "flat"
	StylePastel Style = "pastel"
)

func ParseStyle(value string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(StyleFlat):
		return StyleFlat, nil
	case string(StylePastel):
		return StylePastel, nil
	default:
		return "", fmt.Errorf("%w: unknown style %q", ErrInvalidStrategy, value)
	}
}

// ColorType configures MatchingColor. Brightness lifts every channel and,
// for flat colors, scales the boost given to one or two primaries.
type ColorType struct {
	Style      Style   `json:"style" toml:"style"`
	Brightness float64 `json:"brightness" toml:"brightness"`
}

func Flat(brightness float64) ColorType {
	return ColorType{Style: StyleFlat, Brightness: brightness}
}

func Pastel(brightness float64) ColorType {
	return ColorType{Style: StylePastel, Brightness: brightness}
}

func (t ColorType) Validate() error {
	if t.Style != StyleFlat && t.Style != StylePastel {
		return fmt.Errorf("%w: unknown style %q", ErrInvalidStrategy, t.Style)
	}
	if !inUnit(t.Brightness) {
		return fmt.Errorf("%w: brightness %v outside [0,1]", ErrInvalidStrategy, t.Brightness)
	}
	return nil
}

// HSVRange bounds HSV jitter around a seed. The hue window is absolute;
// saturation and brightness offsets are relative to the seed.
type HSVRange struct {
	HueMin           float64 `json:"hueMin" toml:"hueMin"`
	HueMax           float64 `json:"hueMax" toml:"hueMax"`
	SaturationOffset float64 `json:"saturationOffset" toml:"saturationOffset"`
	BrightnessOffset float64 `json:"brightnessOffset" toml:"brightnessOffset"`
}

func FullHueRange(saturationOffset float64, brightnessOffset float64) HSVRange {
	return HSVRange{HueMin: 0, HueMax: 1, SaturationOffset: saturationOffset, BrightnessOffset: brightnessOffset}
}

func (r HSVRange) Validate() error {
	if !inUnit(r.HueMin) || !inUnit(r.HueMax) || r.HueMin > r.HueMax {
		return fmt.Errorf("%w: hue window [%v,%v] not within [0,1]", ErrInvalidStrategy, r.HueMin, r.HueMax)
	}
	if math.IsNaN(r.SaturationOffset) || r.SaturationOffset < 0 {
		return fmt.Errorf("%w: saturation offset %v must not be negative", ErrInvalidStrategy, r.SaturationOffset)
	}
	if math.IsNaN(r.BrightnessOffset) || r.BrightnessOffset < 0 {
		return fmt.Errorf("%w: brightness offset %v must not be negative", ErrInvalidStrategy, r.BrightnessOffset)
	}
	return nil
}

func inUnit(value float64) bool {
	return !math.IsNaN(value) && value >= 0 && value <= 1
}

func clampUnit(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
