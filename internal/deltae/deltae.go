// Package deltae implements the CIE76, CIE94 and CIE2000 color difference
// formulas. Every metric returns the squared distance; take the square root
// (or call DeltaE) for a displayable value.
package deltae

import (
	"lorikeet/internal/colorspace"

	"github.com/chewxy/math32"
)

// pow25to7 is 25^7.
const pow25to7 float32 = 6103515625

// Squared dispatches to the metric named by the algorithm. An algorithm
// with an unknown kind yields NaN; call Validate beforehand.
func Squared(algorithm Algorithm, lab1 colorspace.Lab, lab2 colorspace.Lab) float32 {
	switch algorithm.Kind {
	case KindCIE76:
		return SquaredCIE76(lab1, lab2)
	case KindCIE94:
		return SquaredCIE94(lab1, lab2, DefaultWeights())
	case KindCIE2000:
		return SquaredCIE2000(lab1, lab2, DefaultWeights())
	case KindAdvancedCIE94:
		return SquaredCIE94(lab1, lab2, algorithm.Weights)
	case KindAdvancedCIE2000:
		return SquaredCIE2000(lab1, lab2, algorithm.Weights)
	default:
		return math32.NaN()
	}
}

// Between converts both colors to Lab and returns their squared distance.
func Between(algorithm Algorithm, from colorspace.Color, to colorspace.Color) float32 {
	return Squared(algorithm, colorspace.LabOf(from), colorspace.LabOf(to))
}

func DeltaE(algorithm Algorithm, lab1 colorspace.Lab, lab2 colorspace.Lab) float32 {
	squared := Squared(algorithm, lab1, lab2)
	if squared <= 0 {
		return 0
	}
	return math32.Sqrt(squared)
}

func SquaredCIE76(lab1 colorspace.Lab, lab2 colorspace.Lab) float32 {
	dL := lab2.L - lab1.L
	dA := lab2.A - lab1.A
	dB := lab2.B - lab1.B
	return dL*dL + dA*dA + dB*dB
}

// SquaredCIE94 weights chroma and hue by the first color's chroma, so
// swapping the arguments generally changes the result.
func SquaredCIE94(lab1 colorspace.Lab, lab2 colorspace.Lab, w Weights) float32 {
	deltaL := lab1.L - lab2.L

	c1 := chroma(lab1.A, lab1.B)
	c2 := chroma(lab2.A, lab2.B)
	deltaC := c1 - c2

	dA := lab1.A - lab2.A
	dB := lab1.B - lab2.B
	radicand := dA*dA + dB*dB - deltaC*deltaC
	if radicand < 0 {
		radicand = 0
	}
	deltaH := math32.Sqrt(radicand)

	sl := float32(1)
	sc := 1 + w.K1*c1
	sh := 1 + w.K2*c1

	lTerm := deltaL / (w.KL * sl)
	cTerm := deltaC / (w.KC * sc)
	hTerm := deltaH / (w.KH * sh)
	return lTerm*lTerm + cTerm*cTerm + hTerm*hTerm
}

func SquaredCIE2000(lab1 colorspace.Lab, lab2 colorspace.Lab, w Weights) float32 {
	deltaLp := lab2.L - lab1.L
	meanL := (lab1.L + lab2.L) / 2

	meanC := (chroma(lab1.A, lab1.B) + chroma(lab2.A, lab2.B)) / 2
	meanC7 := math32.Pow(meanC, 7)
	g := (1 - math32.Sqrt(meanC7/(meanC7+pow25to7))) / 2

	a1p := lab1.A * (1 + g)
	a2p := lab2.A * (1 + g)

	c1p := chroma(a1p, lab1.B)
	c2p := chroma(a2p, lab2.B)
	deltaCp := c2p - c1p
	meanCp := (c1p + c2p) / 2

	h1p := hueAngle(a1p, lab1.B)
	h2p := hueAngle(a2p, lab2.B)
	hueGap := math32.Abs(h1p - h2p)

	var deltahp float32
	switch {
	case c1p == 0 || c2p == 0:
		deltahp = 0
	case hueGap <= 180:
		deltahp = h2p - h1p
	case h2p <= h1p:
		deltahp = h2p - h1p + 360
	default:
		deltahp = h2p - h1p - 360
	}

	deltaHp := 2 * math32.Sqrt(c1p*c2p) * math32.Sin(radians(deltahp/2))

	var meanHp float32
	switch {
	case c1p == 0 || c2p == 0:
		meanHp = h1p + h2p
	case hueGap > 180:
		meanHp = (h1p + h2p + 360) / 2
	default:
		meanHp = (h1p + h2p) / 2
	}

	t := 1 -
		0.17*math32.Cos(radians(meanHp-30)) +
		0.24*math32.Cos(radians(2*meanHp)) +
		0.32*math32.Cos(radians(3*meanHp+6)) -
		0.20*math32.Cos(radians(4*meanHp-63))

	lOffset := (meanL - 50) * (meanL - 50)
	sl := 1 + 0.015*lOffset/math32.Sqrt(20+lOffset)
	sc := 1 + 0.045*meanCp
	sh := 1 + 0.015*meanCp*t

	hueRatio := (meanHp - 275) / 25
	deltaTheta := 30 * math32.Exp(-hueRatio*hueRatio)
	meanCp7 := math32.Pow(meanCp, 7)
	rc := 2 * math32.Sqrt(meanCp7/(meanCp7+pow25to7))
	rt := -rc * math32.Sin(radians(2*deltaTheta))

	lTerm := deltaLp / (w.KL * sl)
	cTerm := deltaCp / (w.KC * sc)
	hTerm := deltaHp / (w.KH * sh)
	return lTerm*lTerm + cTerm*cTerm + hTerm*hTerm + rt*cTerm*hTerm
}

func chroma(a float32, b float32) float32 {
	return math32.Sqrt(a*a + b*b)
}

// hueAngle is atan2(b, a) in degrees within [0,360), with 0 for the neutral axis.
func hueAngle(a float32, b float32) float32 {
	if a == 0 && b == 0 {
		return 0
	}
	degrees := math32.Atan2(b, a) * 180 / math32.Pi
	if degrees < 0 {
		degrees += 360
	}
	return math32.Mod(degrees, 360)
}

func radians(degrees float32) float32 {
	return degrees * math32.Pi / 180
}
