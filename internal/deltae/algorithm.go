package deltae

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidWeight = errors.New("invalid delta e weight")

var ErrUnknownAlgorithm = errors.New("unknown delta e algorithm")

type Kind int

const (
	KindCIE76 Kind = iota
	KindCIE94
	KindCIE2000
	KindAdvancedCIE94
	KindAdvancedCIE2000
)

func (k Kind) String() string {
	switch k {
	case KindCIE76:
		return "cie76"
	case KindCIE94:
		return "cie94"
	case KindCIE2000:
		return "cie2000"
	case KindAdvancedCIE94:
		return "advanced-cie94"
	case KindAdvancedCIE2000:
		return "advanced-cie2000"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Weights are the parametric factors of CIE94 and CIE2000. K1 and K2 are
// only read by CIE94.
type Weights struct {
	KL float32 `json:"kL" toml:"kL"`
	KC float32 `json:"kC" toml:"kC"`
	KH float32 `json:"kH" toml:"kH"`
	K1 float32 `json:"k1" toml:"k1"`
	K2 float32 `json:"k2" toml:"k2"`
}

func DefaultWeights() Weights {
	return Weights{KL: 1, KC: 1, KH: 1, K1: 0.045, K2: 0.015}
}

// Algorithm selects a metric. The plain kinds ignore Weights and use
// DefaultWeights.
type Algorithm struct {
	Kind    Kind
	Weights Weights
}

func CIE76() Algorithm {
	return Algorithm{Kind: KindCIE76}
}

func CIE94() Algorithm {
	return Algorithm{Kind: KindCIE94}
}

func CIE2000() Algorithm {
	return Algorithm{Kind: KindCIE2000}
}

func AdvancedCIE94(kL float32, kC float32, kH float32, k1 float32, k2 float32) Algorithm {
	return Algorithm{
		Kind:    KindAdvancedCIE94,
		Weights: Weights{KL: kL, KC: kC, KH: kH, K1: k1, K2: k2},
	}
}

func AdvancedCIE2000(kL float32, kC float32, kH float32) Algorithm {
	defaults := DefaultWeights()
	return Algorithm{
		Kind:    KindAdvancedCIE2000,
		Weights: Weights{KL: kL, KC: kC, KH: kH, K1: defaults.K1, K2: defaults.K2},
	}
}

// ParseAlgorithm maps a configuration name onto an algorithm. If weights is
// non-nil, cie94 and cie2000 become their advanced variants. The names
// returned by Kind.String are accepted too, so stored names round-trip.
func ParseAlgorithm(name string, weights *Weights) (Algorithm, error) {
	var algorithm Algorithm
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cie76", "76":
		return CIE76(), nil
	case "cie94", "94":
		algorithm = CIE94()
		if weights != nil {
			algorithm = AdvancedCIE94(weights.KL, weights.KC, weights.KH, weights.K1, weights.K2)
		}
	case "", "cie2000", "ciede2000", "2000":
		algorithm = CIE2000()
		if weights != nil {
			algorithm = AdvancedCIE2000(weights.KL, weights.KC, weights.KH)
		}
	case "advanced-cie94":
		w := DefaultWeights()
		if weights != nil {
			w = *weights
		}
		algorithm = AdvancedCIE94(w.KL, w.KC, w.KH, w.K1, w.K2)
	case "advanced-cie2000":
		w := DefaultWeights()
		if weights != nil {
			w = *weights
		}
		algorithm = AdvancedCIE2000(w.KL, w.KC, w.KH)
	default:
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}

	if err := algorithm.Validate(); err != nil {
		return Algorithm{}, err
	}
	return algorithm, nil
}

func (a Algorithm) Name() string {
	return a.Kind.String()
}

// EffectiveWeights returns the weights the metric will actually use.
func (a Algorithm) EffectiveWeights() Weights {
	switch a.Kind {
	case KindAdvancedCIE94, KindAdvancedCIE2000:
		return a.Weights
	default:
		return DefaultWeights()
	}
}

func (a Algorithm) Validate() error {
	switch a.Kind {
	case KindCIE76, KindCIE94, KindCIE2000:
		return nil
	case KindAdvancedCIE94:
		w := a.Weights
		if w.KL <= 0 || w.KC <= 0 || w.KH <= 0 {
			return fmt.Errorf("%w: kL, kC and kH must be positive, got %v/%v/%v", ErrInvalidWeight, w.KL, w.KC, w.KH)
		}
		if w.K1 < 0 || w.K2 < 0 {
			return fmt.Errorf("%w: K1 and K2 must not be negative, got %v/%v", ErrInvalidWeight, w.K1, w.K2)
		}
		return nil
	case KindAdvancedCIE2000:
		w := a.Weights
		if w.KL <= 0 || w.KC <= 0 || w.KH <= 0 {
			return fmt.Errorf("%w: kL, kC and kH must be positive, got %v/%v/%v", ErrInvalidWeight, w.KL, w.KC, w.KH)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a.Kind)
	}
}
