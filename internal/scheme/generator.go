// Package scheme generates sets of mutually distinguishable colors.
package scheme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"
	"lorikeet/internal/sampler"
)

var ErrInvalidCount = errors.New("invalid color count")

var ErrNotConverged = errors.New("scheme generation did not converge")

// AcceptFunc observes each accepted color. index counts generated colors
// from 1; the seed is never reported.
type AcceptFunc func(index int, target int, accepted colorspace.Color)

type Stats struct {
	Attempts   int       `json:"attempts"`
	Decays     int       `json:"decays"`
	Thresholds []float64 `json:"thresholds"`
}

type Result struct {
	Colors []colorspace.Color `json:"colors"`
	Stats  Stats              `json:"stats"`
}

// Generator runs greedy threshold acceptance. It is not safe for
// concurrent use because the random source is shared between runs.
type Generator struct {
	options  Options
	source   sampler.Source
	logger   *slog.Logger
	onAccept AcceptFunc
}

func NewGenerator(options Options, source sampler.Source, logger *slog.Logger) (*Generator, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("random source is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Generator{options: options, source: source, logger: logger}, nil
}

func (g *Generator) Options() Options {
	return g.options
}

func (g *Generator) SetOnAccept(listener AcceptFunc) {
	g.onAccept = listener
}

// Generate returns the seed followed by targetCount generated colors.
func (g *Generator) Generate(
	ctx context.Context,
	seed colorspace.Color,
	targetCount int,
	candidates sampler.Sampler,
	algorithm deltae.Algorithm,
) ([]colorspace.Color, error) {
	result, err := g.GenerateWithStats(ctx, seed, targetCount, candidates, algorithm)
	if err != nil {
		return nil, err
	}
	return result.Colors, nil
}

// GenerateWithStats is Generate plus bookkeeping. On error the result holds
// the colors accepted so far.
func (g *Generator) GenerateWithStats(
	ctx context.Context,
	seed colorspace.Color,
	targetCount int,
	candidates sampler.Sampler,
	algorithm deltae.Algorithm,
) (Result, error) {
	if targetCount < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidCount, targetCount)
	}

	state := newGenerationState(seed, targetCount, g.options)
	if targetCount == 0 {
		return state.result(), nil
	}

	if candidates == nil {
		return Result{}, errors.New("sampler is required")
	}
	if err := candidates.Validate(); err != nil {
		return Result{}, err
	}
	if err := algorithm.Validate(); err != nil {
		return Result{}, err
	}

	for !state.complete() {
		if err := ctx.Err(); err != nil {
			return state.result(), fmt.Errorf("generate scheme: %w", err)
		}
		if g.options.MaxAttempts > 0 && state.pendingAttempts >= g.options.MaxAttempts {
			return state.result(), fmt.Errorf(
				"%w: color %d of %d rejected %d candidates, threshold %.3f",
				ErrNotConverged,
				len(state.colors),
				targetCount,
				state.pendingAttempts,
				state.threshold,
			)
		}

		candidate, err := candidates.Sample(seed, state.colors, g.source)
		if err != nil {
			return state.result(), fmt.Errorf("sample candidate: %w", err)
		}
		state.attempts++
		state.pendingAttempts++

		lab := colorspace.LabOf(candidate)
		if state.nearest(algorithm, lab) < state.threshold {
			if state.reject() {
				g.logger.Debug("acceptance threshold decayed",
					"threshold", state.threshold,
					"shrinkStep", state.shrinkStep,
					"accepted", len(state.colors),
				)
			}
			continue
		}

		threshold := state.accept(candidate, lab)
		g.logger.Debug("color accepted",
			"color", candidate.String(),
			"index", len(state.colors)-1,
			"threshold", threshold,
		)
		if g.onAccept != nil {
			g.onAccept(len(state.colors)-1, targetCount, candidate)
		}
	}

	result := state.result()
	g.logger.Info("scheme generated",
		"seed", seed.String(),
		"algorithm", algorithm.Name(),
		"colors", len(result.Colors),
		"attempts", result.Stats.Attempts,
		"decays", result.Stats.Decays,
	)
	return result, nil
}

type generationState struct {
	options         Options
	target          int
	colors          []colorspace.Color
	labs            []colorspace.Lab
	thresholds      []float64
	threshold       float64
	shrinkStep      float64
	retries         int
	attempts        int
	pendingAttempts int
	decays          int
}

func newGenerationState(seed colorspace.Color, targetCount int, options Options) *generationState {
	state := &generationState{
		options:    options,
		target:     targetCount + 1,
		colors:     make([]colorspace.Color, 0, targetCount+1),
		labs:       make([]colorspace.Lab, 0, targetCount+1),
		thresholds: make([]float64, 0, targetCount+1),
		threshold:  options.BaseThreshold,
		shrinkStep: options.ShrinkStep,
	}
	state.colors = append(state.colors, seed)
	state.labs = append(state.labs, colorspace.LabOf(seed))
	state.thresholds = append(state.thresholds, 0)
	return state
}

func (s *generationState) complete() bool {
	return len(s.colors) >= s.target
}

// nearest measures from each accepted color toward the candidate, which
// matters for asymmetric metrics.
func (s *generationState) nearest(algorithm deltae.Algorithm, candidate colorspace.Lab) float64 {
	best := math.MaxFloat64
	for _, lab := range s.labs {
		distance := float64(deltae.Squared(algorithm, lab, candidate))
		if distance < best {
			best = distance
		}
	}
	return best
}

// reject counts a stall and reports whether the threshold decayed.
func (s *generationState) reject() bool {
	s.retries++
	if s.retries < s.options.MaxRetries {
		return false
	}

	s.retries = 0
	s.decays++
	s.threshold = math.Max(s.threshold-s.shrinkStep, s.options.ThresholdFloor)
	s.shrinkStep = math.Max(s.shrinkStep-s.options.ShrinkDecay, s.options.MinShrinkStep)
	return true
}

// accept records the candidate and returns the threshold it passed.
func (s *generationState) accept(candidate colorspace.Color, lab colorspace.Lab) float64 {
	passed := s.threshold
	s.colors = append(s.colors, candidate)
	s.labs = append(s.labs, lab)
	s.thresholds = append(s.thresholds, passed)
	s.threshold = s.options.BaseThreshold
	s.retries = 0
	s.pendingAttempts = 0
	return passed
}

func (s *generationState) result() Result {
	return Result{
		Colors: append([]colorspace.Color(nil), s.colors...),
		Stats: Stats{
			Attempts:   s.attempts,
			Decays:     s.decays,
			Thresholds: append([]float64(nil), s.thresholds...),
		},
	}
}
