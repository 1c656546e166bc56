package sampler

import (
	"fmt"
	"strings"
)

const (
	KindBlend = "blend"
	KindHSV   = "hsv"
)

// Config is the serializable form of a sampling strategy.
type Config struct {
	Kind      string    `json:"kind" toml:"kind"`
	ColorType ColorType `json:"colorType" toml:"colorType"`
	Range     HSVRange  `json:"range" toml:"range"`
}

func DefaultConfig() Config {
	return Config{
		Kind:      KindBlend,
		ColorType: Flat(1),
		Range:     FullHueRange(0.2, 0.2),
	}
}

func (c Config) Build() (Sampler, error) {
	var built Sampler
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case "", KindBlend:
		colorType := c.ColorType
		if colorType.Style == "" {
			colorType.Style = StyleFlat
		}
		built = Blend{Type: colorType}
	case KindHSV, "jitter":
		built = Jitter{Range: c.Range}
	default:
		return nil, fmt.Errorf("%w: unknown sampler %q", ErrInvalidStrategy, c.Kind)
	}

	if err := built.Validate(); err != nil {
		return nil, err
	}
	return built, nil
}
