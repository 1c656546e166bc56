package colorspace

import (
	"math"

	"github.com/chewxy/math32"
)

// D65 reference white.
const (
	whiteX float32 = 95.047
	whiteY float32 = 100.0
	whiteZ float32 = 108.883
)

type XYZ struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Lab is a CIE L*a*b* vector. It is always derived from a Color and never cached here.
type Lab struct {
	L float32 `json:"l"`
	A float32 `json:"a"`
	B float32 `json:"b"`
}

// ToXYZ converts sRGB channels to CIEXYZ scaled so that white has Y = 100.
// Channels outside [0,1] are extrapolated, not clamped.
func ToXYZ(red float32, green float32, blue float32) XYZ {
	r := linearize(red)
	g := linearize(green)
	b := linearize(blue)

	return XYZ{
		X: r*0.4124 + g*0.3576 + b*0.1805,
		Y: r*0.2126 + g*0.7152 + b*0.0722,
		Z: r*0.0193 + g*0.1192 + b*0.9505,
	}
}

func ToLab(xyz XYZ) Lab {
	fx := labCompand(xyz.X / whiteX)
	fy := labCompand(xyz.Y / whiteY)
	fz := labCompand(xyz.Z / whiteZ)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

func LabOf(c Color) Lab {
	r, g, b, _ := c.Channels()
	return ToLab(ToXYZ(float32(r), float32(g), float32(b)))
}

// HSVToRGB maps hue, saturation and value in [0,1] onto RGB using the
// six-sector formula.
func HSVToRGB(hue float64, saturation float64, value float64) (float64, float64, float64) {
	scaled := hue * 6
	sector := int(math.Floor(scaled))
	fraction := scaled - math.Floor(scaled)

	p := value * (1 - saturation)
	q := value * (1 - fraction*saturation)
	t := value * (1 - (1-fraction)*saturation)

	switch ((sector % 6) + 6) % 6 {
	case 0:
		return value, t, p
	case 1:
		return q, value, p
	case 2:
		return p, value, t
	case 3:
		return p, q, value
	case 4:
		return t, p, value
	default:
		return value, p, q
	}
}

func linearize(channel float32) float32 {
	if channel > 0.04045 {
		return math32.Pow((channel+0.055)/1.055, 2.4) * 100
	}
	return channel / 12.92 * 100
}

func labCompand(t float32) float32 {
	if t > 0.008856 {
		return math32.Pow(t, 1.0/3.0)
	}
	return 7.787*t + 16.0/116.0
}
