package scheme

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"
	"lorikeet/internal/sampler"

	"github.com/google/go-cmp/cmp"
)

type repeatSampler struct {
	calls int
}

func (s *repeatSampler) Sample(seed colorspace.Color, _ []colorspace.Color, _ sampler.Source) (colorspace.Color, error) {
	s.calls++
	return seed, nil
}

func (s *repeatSampler) Validate() error {
	return nil
}

func newGeneratorForTest(t *testing.T, options Options, seed uint64) *Generator {
	t.Helper()

	generator, err := NewGenerator(options, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), nil)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return generator
}

func TestGenerateZeroCountReturnsSeedWithoutSampling(t *testing.T) {
	t.Parallel()

	seed := colorspace.MustRGBA(0.8, 0.1, 0.1, 1)
	candidates := &repeatSampler{}
	generator := newGeneratorForTest(t, DefaultOptions(), 1)

	colors, err := generator.Generate(context.Background(), seed, 0, candidates, deltae.CIE2000())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(colors) != 1 || colors[0] != seed {
		t.Fatalf("expected only the seed, got %v", colors)
	}
	if candidates.calls != 0 {
		t.Fatalf("expected sampler to stay unused, got %d calls", candidates.calls)
	}
}

func TestGenerateRejectsNegativeCount(t *testing.T) {
	t.Parallel()

	generator := newGeneratorForTest(t, DefaultOptions(), 1)
	_, err := generator.Generate(context.Background(), colorspace.MustRGBA(0, 0, 0, 1), -1, &repeatSampler{}, deltae.CIE76())
	if !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected invalid count, got %v", err)
	}
}

func TestGenerateSatisfiesPairwiseThresholds(t *testing.T) {
	t.Parallel()

	options := DefaultOptions()
	options.ThresholdFloor = 10

	strategies := []struct {
		name    string
		sampler sampler.Sampler
	}{
		{name: "flat", sampler: sampler.Blend{Type: sampler.Flat(1)}},
		{name: "pastel", sampler: sampler.Blend{Type: sampler.Pastel(0.5)}},
		{name: "hsv", sampler: sampler.Jitter{Range: sampler.FullHueRange(0.3, 0.3)}},
	}
	algorithms := []deltae.Algorithm{deltae.CIE76(), deltae.CIE94(), deltae.CIE2000()}
	seed := colorspace.MustRGBA(0.2, 0.45, 0.8, 1)

	for _, strategy := range strategies {
		for _, algorithm := range algorithms {
			for _, count := range []int{3, 5} {
				generator := newGeneratorForTest(t, options, uint64(count))
				result, err := generator.GenerateWithStats(context.Background(), seed, count, strategy.sampler, algorithm)
				if err != nil {
					t.Fatalf("%s/%s/%d: generate: %v", strategy.name, algorithm.Name(), count, err)
				}

				colors := result.Colors
				if len(colors) != count+1 {
					t.Fatalf("%s/%s: expected %d colors, got %d", strategy.name, algorithm.Name(), count+1, len(colors))
				}
				if colors[0] != seed {
					t.Fatalf("%s/%s: expected seed first, got %s", strategy.name, algorithm.Name(), colors[0])
				}

				for later := 1; later < len(colors); later++ {
					passed := result.Stats.Thresholds[later]
					if passed < options.ThresholdFloor {
						t.Fatalf("%s/%s: threshold %v below floor", strategy.name, algorithm.Name(), passed)
					}
					for earlier := 0; earlier < later; earlier++ {
						distance := float64(deltae.Between(algorithm, colors[earlier], colors[later]))
						if distance < passed {
							t.Fatalf("%s/%s: colors %d and %d are %v apart, threshold %v",
								strategy.name, algorithm.Name(), earlier, later, distance, passed)
						}
					}
				}
			}
		}
	}
}

func TestGenerateIsDeterministicForSeededSource(t *testing.T) {
	t.Parallel()

	seed := colorspace.MustRGBA(0.9, 0.6, 0.1, 1)
	run := func() []string {
		generator := newGeneratorForTest(t, DefaultOptions(), 42)
		colors, err := generator.Generate(context.Background(), seed, 6, sampler.Blend{Type: sampler.Flat(0.8)}, deltae.CIE2000())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		hexes := make([]string, 0, len(colors))
		for _, c := range colors {
			hexes = append(hexes, c.String())
		}
		return hexes
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("expected identical runs (-first +second):\n%s", diff)
	}
}

func TestGenerateDecaysThresholdUntilAccepted(t *testing.T) {
	t.Parallel()

	options := Options{
		BaseThreshold: 10,
		MaxRetries:    2,
		ShrinkStep:    3,
		ShrinkDecay:   1,
		MinShrinkStep: 1,
	}
	generator := newGeneratorForTest(t, options, 3)
	seed := colorspace.MustRGBA(0.5, 0.5, 0.5, 1)

	result, err := generator.GenerateWithStats(context.Background(), seed, 1, &repeatSampler{}, deltae.CIE76())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 10 -> 7 -> 5 -> 4 -> 3 -> 2 -> 1 -> 0, two rejections per step
	want := Stats{Attempts: 15, Decays: 7, Thresholds: []float64{0, 0}}
	if diff := cmp.Diff(want, result.Stats); diff != "" {
		t.Fatalf("unexpected stats (-want +got):\n%s", diff)
	}
}

func TestGenerateTerminatesInSaturatedNeighborhood(t *testing.T) {
	t.Parallel()

	generator := newGeneratorForTest(t, DefaultOptions(), 5)
	seed := colorspace.MustRGBA(0.3, 0.3, 0.3, 1)

	result, err := generator.GenerateWithStats(context.Background(), seed, 3, &repeatSampler{}, deltae.CIE2000())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.Colors) != 4 {
		t.Fatalf("expected 4 colors, got %d", len(result.Colors))
	}
	if result.Stats.Decays == 0 {
		t.Fatal("expected the threshold to decay")
	}
}

func TestGenerateReportsNonConvergence(t *testing.T) {
	t.Parallel()

	options := DefaultOptions()
	options.ThresholdFloor = 5
	options.MaxAttempts = 1000
	generator := newGeneratorForTest(t, options, 9)
	seed := colorspace.MustRGBA(0.3, 0.3, 0.3, 1)

	result, err := generator.GenerateWithStats(context.Background(), seed, 2, &repeatSampler{}, deltae.CIE2000())
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("expected non-convergence, got %v", err)
	}
	if len(result.Colors) != 1 {
		t.Fatalf("expected partial result with only the seed, got %d colors", len(result.Colors))
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	generator := newGeneratorForTest(t, DefaultOptions(), 1)
	_, err := generator.Generate(ctx, colorspace.MustRGBA(0, 0, 0, 1), 3, sampler.Blend{Type: sampler.Flat(1)}, deltae.CIE2000())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestGenerateReportsAcceptedColors(t *testing.T) {
	t.Parallel()

	generator := newGeneratorForTest(t, DefaultOptions(), 8)
	var indexes []int
	generator.SetOnAccept(func(index int, target int, _ colorspace.Color) {
		if target != 3 {
			t.Errorf("expected target 3, got %d", target)
		}
		indexes = append(indexes, index)
	})

	_, err := generator.Generate(context.Background(), colorspace.MustRGBA(0.1, 0.7, 0.3, 1), 3, sampler.Blend{Type: sampler.Flat(1)}, deltae.CIE94())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, indexes); diff != "" {
		t.Fatalf("unexpected accept indexes (-want +got):\n%s", diff)
	}
}

func TestGenerateRejectsInvalidStrategy(t *testing.T) {
	t.Parallel()

	generator := newGeneratorForTest(t, DefaultOptions(), 1)
	_, err := generator.Generate(context.Background(), colorspace.MustRGBA(0, 0, 0, 1), 2,
		sampler.Jitter{Range: sampler.HSVRange{HueMin: 0.9, HueMax: 0.1}}, deltae.CIE76())
	if !errors.Is(err, sampler.ErrInvalidStrategy) {
		t.Fatalf("expected invalid strategy, got %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("expected defaults to be valid: %v", err)
	}

	mutations := map[string]func(*Options){
		"zero base":           func(o *Options) { o.BaseThreshold = 0 },
		"no retries":          func(o *Options) { o.MaxRetries = 0 },
		"negative step":       func(o *Options) { o.ShrinkStep = -1 },
		"min above step":      func(o *Options) { o.MinShrinkStep = o.ShrinkStep + 1 },
		"floor above base":    func(o *Options) { o.ThresholdFloor = o.BaseThreshold + 1 },
		"negative attempts":   func(o *Options) { o.MaxAttempts = -1 },
		"unbounded, no decay": func(o *Options) { o.MaxAttempts = 0; o.ShrinkStep = 0; o.MinShrinkStep = 0 },
		"unbounded, floored":  func(o *Options) { o.MaxAttempts = 0; o.ThresholdFloor = 1 },
	}
	for name, mutate := range mutations {
		options := DefaultOptions()
		mutate(&options)
		if err := options.Validate(); !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("%s: expected invalid options, got %v", name, err)
		}
	}
}

func requireThresholdsHold(t *testing.T, colors []colorspace.Color, thresholds []float64, algorithm deltae.Algorithm) {
	t.Helper()

	for i := 1; i < len(colors); i++ {
		candidate := colorspace.LabOf(colors[i])
		for j := 0; j < i; j++ {
			distance := float64(deltae.Squared(algorithm, colorspace.LabOf(colors[j]), candidate))
			if distance < thresholds[i] {
				t.Fatalf("color %d is %v from color %d, below its threshold %v", i, distance, j, thresholds[i])
			}
		}
	}
}

func TestResultSurvivesJSONWithAcceptanceIntact(t *testing.T) {
	t.Parallel()

	candidates := sampler.Jitter{Range: sampler.FullHueRange(0.4, 0.4)}
	for run := range 40 {
		generator := newGeneratorForTest(t, DefaultOptions(), uint64(run+1))
		seed := colorspace.MustRGBA(0.54436, 0.31, 0.77, 1)

		result, err := generator.GenerateWithStats(context.Background(), seed, 8, candidates, deltae.CIE2000())
		if err != nil {
			t.Fatalf("run %d: generate: %v", run, err)
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("run %d: marshal: %v", run, err)
		}
		var decoded Result
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			t.Fatalf("run %d: unmarshal: %v", run, err)
		}

		if diff := cmp.Diff(result.Stats, decoded.Stats); diff != "" {
			t.Fatalf("run %d: stats changed (-want +got):\n%s", run, diff)
		}
		for index := range result.Colors {
			if decoded.Colors[index] != result.Colors[index] {
				t.Fatalf("run %d: color %d changed from %v to %v", run, index, result.Colors[index], decoded.Colors[index])
			}
		}
		requireThresholdsHold(t, decoded.Colors, decoded.Stats.Thresholds, deltae.CIE2000())
	}
}
