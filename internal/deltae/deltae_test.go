package deltae

import (
	"errors"
	"testing"

	"lorikeet/internal/colorspace"

	"github.com/chewxy/math32"
)

var allAlgorithms = []Algorithm{
	CIE76(),
	CIE94(),
	CIE2000(),
	AdvancedCIE94(2, 1, 1, 0.048, 0.014),
	AdvancedCIE2000(2, 1, 1),
}

var primaries = []colorspace.Color{
	colorspace.MustRGBA(1, 0, 0, 1),
	colorspace.MustRGBA(0, 1, 0, 1),
	colorspace.MustRGBA(0, 0, 1, 1),
}

func TestIdenticalColorsHaveZeroDistance(t *testing.T) {
	t.Parallel()

	colors := append([]colorspace.Color{
		colorspace.MustRGBA(0.5, 0.5, 0.5, 1),
		colorspace.MustRGBA(0.13, 0.72, 0.41, 0.5),
		colorspace.MustRGBA(0, 0, 0, 1),
	}, primaries...)

	for _, algorithm := range allAlgorithms {
		for _, c := range colors {
			if got := Between(algorithm, c, c); got != 0 {
				t.Fatalf("%s: expected 0 for %s against itself, got %v", algorithm.Name(), c, got)
			}
		}
	}
}

func TestNeutralGrayLabAgainstItself(t *testing.T) {
	t.Parallel()

	gray := colorspace.Lab{L: 50, A: 0, B: 0}
	for _, algorithm := range allAlgorithms {
		if got := Squared(algorithm, gray, gray); got != 0 {
			t.Fatalf("%s: expected 0, got %v", algorithm.Name(), got)
		}
	}
}

func TestLabRoundTripThroughMetric(t *testing.T) {
	t.Parallel()

	c := colorspace.MustRGBA(0.31, 0.62, 0.93, 1)
	first := colorspace.LabOf(c)
	second := colorspace.LabOf(c)

	for _, algorithm := range allAlgorithms {
		if got := Squared(algorithm, first, second); got != 0 {
			t.Fatalf("%s: expected 0 after round trip, got %v", algorithm.Name(), got)
		}
	}
}

func TestPrimariesArePositivelyDistant(t *testing.T) {
	t.Parallel()

	for _, algorithm := range allAlgorithms {
		for i := range primaries {
			for j := range primaries {
				if i == j {
					continue
				}
				if got := Between(algorithm, primaries[i], primaries[j]); !(got > 0) {
					t.Fatalf("%s: expected positive distance between primaries %d and %d, got %v", algorithm.Name(), i, j, got)
				}
			}
		}
	}
}

func TestCIE76IsSymmetric(t *testing.T) {
	t.Parallel()

	labs := []colorspace.Lab{
		{L: 50, A: 2.6772, B: -79.7751},
		{L: 73, A: 25, B: -18},
		{L: 12.5, A: -40, B: 3},
		{L: 99, A: 0.1, B: 0.2},
	}
	for _, left := range labs {
		for _, right := range labs {
			if SquaredCIE76(left, right) != SquaredCIE76(right, left) {
				t.Fatalf("expected symmetric CIE76 for %+v and %+v", left, right)
			}
		}
	}
}

func TestCIE94IsAsymmetric(t *testing.T) {
	t.Parallel()

	low := colorspace.Lab{L: 50, A: 10, B: 10}
	high := colorspace.Lab{L: 50, A: 40, B: -20}

	forward := SquaredCIE94(low, high, DefaultWeights())
	backward := SquaredCIE94(high, low, DefaultWeights())
	if math32.Abs(forward-backward) < 1 {
		t.Fatalf("expected CIE94 asymmetry, got %v and %v", forward, backward)
	}
	// the first color's chroma scales the denominators, so the less
	// saturated reference reports the larger difference
	if forward <= backward {
		t.Fatalf("expected forward %v > backward %v", forward, backward)
	}
}

func TestCIE94SymmetricForEqualChroma(t *testing.T) {
	t.Parallel()

	left := colorspace.Lab{L: 40, A: 30, B: 40}
	right := colorspace.Lab{L: 60, A: 40, B: 30}

	forward := SquaredCIE94(left, right, DefaultWeights())
	backward := SquaredCIE94(right, left, DefaultWeights())
	if math32.Abs(forward-backward) > 1e-3 {
		t.Fatalf("expected symmetry for equal chroma, got %v and %v", forward, backward)
	}
}

func TestCIE94ClampsNegativeRadicand(t *testing.T) {
	t.Parallel()

	left := colorspace.Lab{L: 50, A: 30.000002, B: 40}
	right := colorspace.Lab{L: 50, A: 30, B: 40.000001}

	got := SquaredCIE94(left, right, DefaultWeights())
	if math32.IsNaN(got) || got < 0 {
		t.Fatalf("expected a finite non-negative distance, got %v", got)
	}
}

func TestCIE2000PublishedVectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lab1 colorspace.Lab
		lab2 colorspace.Lab
		want float32
	}{
		{lab1: colorspace.Lab{L: 50, A: 2.6772, B: -79.7751}, lab2: colorspace.Lab{L: 50, A: 0, B: -82.7485}, want: 2.0425},
		{lab1: colorspace.Lab{L: 50, A: 3.1571, B: -77.2803}, lab2: colorspace.Lab{L: 50, A: 0, B: -82.7485}, want: 2.8615},
		{lab1: colorspace.Lab{L: 50, A: 0, B: 0}, lab2: colorspace.Lab{L: 50, A: -1, B: 2}, want: 2.3669},
		{lab1: colorspace.Lab{L: 50, A: 2.5, B: 0}, lab2: colorspace.Lab{L: 73, A: 25, B: -18}, want: 27.1492},
		{lab1: colorspace.Lab{L: 60.2574, A: -34.0099, B: 36.2677}, lab2: colorspace.Lab{L: 60.4626, A: -34.1751, B: 39.4387}, want: 1.2644},
		{lab1: colorspace.Lab{L: 22.7233, A: 20.0904, B: -46.6940}, lab2: colorspace.Lab{L: 23.0331, A: 14.9730, B: -42.5619}, want: 2.0373},
	}

	for _, tc := range cases {
		squared := SquaredCIE2000(tc.lab1, tc.lab2, DefaultWeights())
		if math32.Abs(squared-tc.want*tc.want) > 1e-3*tc.want*tc.want+1e-3 {
			t.Fatalf("%+v vs %+v: expected squared %v, got %v", tc.lab1, tc.lab2, tc.want*tc.want, squared)
		}
		if got := DeltaE(CIE2000(), tc.lab1, tc.lab2); math32.Abs(got-tc.want) > 1e-3 {
			t.Fatalf("%+v vs %+v: expected delta e %v, got %v", tc.lab1, tc.lab2, tc.want, got)
		}
	}
}

func TestCIE2000ReferencePairSquaredWithinTolerance(t *testing.T) {
	t.Parallel()

	lab1 := colorspace.Lab{L: 50, A: 2.6772, B: -79.7751}
	lab2 := colorspace.Lab{L: 50, A: 0, B: -82.7485}

	got := Squared(CIE2000(), lab1, lab2)
	want := float32(2.0425 * 2.0425)
	if math32.Abs(got-want) > 1e-3 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAdvancedWeightsScaleTerms(t *testing.T) {
	t.Parallel()

	lab1 := colorspace.Lab{L: 30, A: 0, B: 0}
	lab2 := colorspace.Lab{L: 70, A: 0, B: 0}

	plain := Squared(CIE2000(), lab1, lab2)
	weighted := Squared(AdvancedCIE2000(2, 1, 1), lab1, lab2)
	if math32.Abs(weighted-plain/4) > 1e-3 {
		t.Fatalf("expected kL=2 to quarter a lightness-only distance, got %v vs %v", weighted, plain)
	}

	plain94 := Squared(CIE94(), lab1, lab2)
	if got := Squared(AdvancedCIE94(1, 1, 1, 0.045, 0.015), lab1, lab2); got != plain94 {
		t.Fatalf("expected default advanced CIE94 to equal CIE94, got %v vs %v", got, plain94)
	}
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	algorithm, err := ParseAlgorithm(" CIE94 ", nil)
	if err != nil || algorithm.Kind != KindCIE94 {
		t.Fatalf("expected cie94, got %+v, %v", algorithm, err)
	}

	algorithm, err = ParseAlgorithm("cie2000", &Weights{KL: 2, KC: 1, KH: 1})
	if err != nil || algorithm.Kind != KindAdvancedCIE2000 || algorithm.Weights.KL != 2 {
		t.Fatalf("expected advanced cie2000, got %+v, %v", algorithm, err)
	}

	if _, err := ParseAlgorithm("cmc", nil); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected unknown algorithm error, got %v", err)
	}
	if _, err := ParseAlgorithm("cie94", &Weights{KL: 0, KC: 1, KH: 1}); !errors.Is(err, ErrInvalidWeight) {
		t.Fatalf("expected invalid weight error, got %v", err)
	}
}

func TestParseAlgorithmAcceptsKindNames(t *testing.T) {
	t.Parallel()

	for _, original := range allAlgorithms {
		weights := original.EffectiveWeights()
		parsed, err := ParseAlgorithm(original.Name(), &weights)
		if err != nil {
			t.Fatalf("%s: parse: %v", original.Name(), err)
		}
		if original.Kind == KindCIE76 || original.Kind >= KindAdvancedCIE94 {
			if parsed != original {
				t.Fatalf("%s: expected %+v, got %+v", original.Name(), original, parsed)
			}
		}
	}

	parsed, err := ParseAlgorithm("advanced-cie2000", nil)
	if err != nil || parsed.Kind != KindAdvancedCIE2000 || parsed.Weights != DefaultWeights() {
		t.Fatalf("expected default-weighted advanced cie2000, got %+v, %v", parsed, err)
	}
}
