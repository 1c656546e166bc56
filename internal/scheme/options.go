package scheme

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidOptions = errors.New("invalid generation options")

// Options control the acceptance threshold and how it decays while the
// generator stalls. Thresholds are squared distances in the chosen metric.
type Options struct {
	// BaseThreshold is re-armed after every accepted color.
	BaseThreshold float64 `json:"baseThreshold" toml:"baseThreshold"`
	// MaxRetries consecutive rejections trigger one decay step.
	MaxRetries int `json:"maxRetries" toml:"maxRetries"`
	// ShrinkStep is subtracted from the threshold on the first decay.
	ShrinkStep float64 `json:"shrinkStep" toml:"shrinkStep"`
	// ShrinkDecay is subtracted from the step after each decay.
	ShrinkDecay float64 `json:"shrinkDecay" toml:"shrinkDecay"`
	// MinShrinkStep bounds the step from below.
	MinShrinkStep float64 `json:"minShrinkStep" toml:"minShrinkStep"`
	// ThresholdFloor bounds the threshold from below. Zero lets it reach
	// the point where any candidate is accepted.
	ThresholdFloor float64 `json:"thresholdFloor" toml:"thresholdFloor"`
	// MaxAttempts caps the draws spent on a single acceptance. Zero means
	// unbounded, which Validate only allows when the threshold can decay
	// to zero.
	MaxAttempts int `json:"maxAttempts" toml:"maxAttempts"`
}

var defaultOptions = Options{
	BaseThreshold:  45,
	MaxRetries:     20,
	ShrinkStep:     1.5,
	ShrinkDecay:    0.01,
	MinShrinkStep:  1.3,
	ThresholdFloor: 0,
	MaxAttempts:    200000,
}

func DefaultOptions() Options {
	return defaultOptions
}

func (o Options) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"base threshold", o.BaseThreshold},
		{"shrink step", o.ShrinkStep},
		{"shrink decay", o.ShrinkDecay},
		{"min shrink step", o.MinShrinkStep},
		{"threshold floor", o.ThresholdFloor},
	}
	for _, field := range fields {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidOptions, field.name)
		}
		if field.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidOptions, field.name, field.value)
		}
	}

	if o.BaseThreshold <= 0 {
		return fmt.Errorf("%w: base threshold must be positive", ErrInvalidOptions)
	}
	if o.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidOptions, o.MaxRetries)
	}
	if o.MinShrinkStep > o.ShrinkStep {
		return fmt.Errorf("%w: min shrink step %v exceeds shrink step %v", ErrInvalidOptions, o.MinShrinkStep, o.ShrinkStep)
	}
	if o.ThresholdFloor > o.BaseThreshold {
		return fmt.Errorf("%w: threshold floor %v exceeds base threshold %v", ErrInvalidOptions, o.ThresholdFloor, o.BaseThreshold)
	}
	if o.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts must not be negative", ErrInvalidOptions)
	}
	if o.MaxAttempts == 0 && !o.decaysToZero() {
		return fmt.Errorf("%w: threshold cannot decay to zero, set max attempts", ErrInvalidOptions)
	}

	return nil
}

// decaysToZero reports whether repeated stalls eventually admit any candidate.
func (o Options) decaysToZero() bool {
	return o.ThresholdFloor == 0 && o.MinShrinkStep > 0
}
