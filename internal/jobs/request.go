package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"
	"lorikeet/internal/sampler"
	"lorikeet/internal/scheme"
)

// Request describes one generation. A zero RandomSeed draws a fresh seed
// from the clock.
type Request struct {
	Seed       colorspace.Color
	Count      int
	Algorithm  deltae.Algorithm
	Sampler    sampler.Config
	Options    scheme.Options
	RandomSeed uint64
}

func (r Request) Validate() error {
	if r.Count < 0 {
		return fmt.Errorf("%w: %d", scheme.ErrInvalidCount, r.Count)
	}
	if err := r.Algorithm.Validate(); err != nil {
		return err
	}
	if _, err := r.Sampler.Build(); err != nil {
		return err
	}
	return r.Options.Validate()
}

// Execute runs a request on the calling goroutine.
func Execute(ctx context.Context, request Request, logger *slog.Logger, onAccept scheme.AcceptFunc) (scheme.Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	candidates, err := request.Sampler.Build()
	if err != nil {
		return scheme.Result{}, err
	}

	randomSeed := request.RandomSeed
	if randomSeed == 0 {
		randomSeed = uint64(time.Now().UnixNano())
	}

	generator, err := scheme.NewGenerator(
		request.Options,
		rand.New(rand.NewPCG(randomSeed, randomSeed>>1|1)),
		logger,
	)
	if err != nil {
		return scheme.Result{}, err
	}
	generator.SetOnAccept(onAccept)

	result, err := generator.GenerateWithStats(ctx, request.Seed, request.Count, candidates, request.Algorithm)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("scheme generation failed", "error", err, "accepted", len(result.Colors))
	}
	return result, err
}
