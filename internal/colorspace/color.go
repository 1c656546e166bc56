package colorspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var ErrChannelOutOfRange = errors.New("color channel out of range")

// Color is an immutable device RGB color with alpha. All channels are in [0,1].
type Color struct {
	rgb   colorful.Color
	alpha float64
}

func FromRGBA(red float64, green float64, blue float64, alpha float64) (Color, error) {
	if err := checkChannels("rgba", red, green, blue, alpha); err != nil {
		return Color{}, err
	}

	return Color{rgb: colorful.Color{R: red, G: green, B: blue}, alpha: alpha}, nil
}

func FromHSVA(hue float64, saturation float64, value float64, alpha float64) (Color, error) {
	if err := checkChannels("hsva", hue, saturation, value, alpha); err != nil {
		return Color{}, err
	}

	red, green, blue := HSVToRGB(hue, saturation, value)
	return Color{rgb: colorful.Color{R: red, G: green, B: blue}, alpha: alpha}, nil
}

// MustRGBA is FromRGBA for constant inputs known to be valid.
func MustRGBA(red float64, green float64, blue float64, alpha float64) Color {
	c, err := FromRGBA(red, green, blue, alpha)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHex reads "#rrggbb" into an opaque color.
func ParseHex(value string) (Color, error) {
	parsed, err := colorful.Hex(value)
	if err != nil {
		return Color{}, fmt.Errorf("parse hex color %q: %w", value, err)
	}

	return FromRGBA(parsed.R, parsed.G, parsed.B, 1)
}

func ParseHexAlpha(value string, alpha float64) (Color, error) {
	parsed, err := ParseHex(value)
	if err != nil {
		return Color{}, err
	}
	return FromRGBA(parsed.rgb.R, parsed.rgb.G, parsed.rgb.B, alpha)
}

func (c Color) Channels() (float64, float64, float64, float64) {
	return c.rgb.R, c.rgb.G, c.rgb.B, c.alpha
}

// HSV returns hue, saturation, brightness and alpha, all in [0,1].
func (c Color) HSV() (float64, float64, float64, float64) {
	hue, saturation, value := c.rgb.Hsv()
	hue /= 360
	if hue >= 1 {
		hue = 0
	}
	return hue, saturation, value, c.alpha
}

func (c Color) Alpha() float64 {
	return c.alpha
}

func (c Color) Hex() string {
	return c.rgb.Hex()
}

func (c Color) String() string {
	if c.alpha >= 1 {
		return c.Hex()
	}
	return fmt.Sprintf("%s@%.3f", c.Hex(), c.alpha)
}

// colorJSON carries the exact channels next to the display hex. Hex alone
// rounds each channel to 8 bits, which can move a color closer to its
// neighbours than the threshold it was accepted at.
type colorJSON struct {
	Hex   string   `json:"hex"`
	Red   *float64 `json:"r,omitempty"`
	Green *float64 `json:"g,omitempty"`
	Blue  *float64 `json:"b,omitempty"`
	Alpha float64  `json:"alpha"`
}

func (c Color) MarshalJSON() ([]byte, error) {
	red, green, blue := c.rgb.R, c.rgb.G, c.rgb.B
	return json.Marshal(colorJSON{Hex: c.Hex(), Red: &red, Green: &green, Blue: &blue, Alpha: c.alpha})
}

// UnmarshalJSON prefers the r/g/b channels and falls back to hex when any
// of them is missing.
func (c *Color) UnmarshalJSON(data []byte) error {
	var decoded colorJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var (
		parsed Color
		err    error
	)
	if decoded.Red != nil && decoded.Green != nil && decoded.Blue != nil {
		parsed, err = FromRGBA(*decoded.Red, *decoded.Green, *decoded.Blue, decoded.Alpha)
	} else {
		parsed, err = ParseHexAlpha(decoded.Hex, decoded.Alpha)
	}
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

func checkChannels(kind string, values ...float64) error {
	for index, value := range values {
		if math.IsNaN(value) || value < 0 || value > 1 {
			return fmt.Errorf("%w: %s[%d] = %v", ErrChannelOutOfRange, kind, index, value)
		}
	}
	return nil
}
