package palette

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"runtime"
	"sort"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

const (
	minSwatchCount   = 1
	maxSwatchCount   = 32
	defaultWorkerCap = 8
	maxWorkerCap     = 12
)

var ErrNoPixels = errors.New("no eligible pixels in image")

var defaultOptions = Options{
	MaxDimension:     220,
	Quality:          2,
	SwatchCount:      8,
	QuantizationBits: 5,
	AlphaThreshold:   16,
	IgnoreNearWhite:  true,
	IgnoreNearBlack:  true,
	MinDelta:         8,
	MinSeedChroma:    12,
	WorkerCount:      0,
}

type Options struct {
	MaxDimension     int  `json:"maxDimension"`
	Quality          int  `json:"quality"`
	SwatchCount      int  `json:"swatchCount"`
	QuantizationBits int  `json:"quantizationBits"`
	AlphaThreshold   int  `json:"alphaThreshold"`
	IgnoreNearWhite  bool `json:"ignoreNearWhite"`
	IgnoreNearBlack  bool `json:"ignoreNearBlack"`
	// MinDelta merges swatches closer than this CIE76 distance.
	MinDelta float64 `json:"minDelta"`
	// MinSeedChroma is the Lab chroma a swatch needs to be preferred as seed.
	MinSeedChroma float64 `json:"minSeedChroma"`
	WorkerCount   int     `json:"workerCount"`
}

type Swatch struct {
	Color      colorspace.Color `json:"color"`
	Hex        string           `json:"hex"`
	Lab        colorspace.Lab   `json:"lab"`
	Chroma     float64          `json:"chroma"`
	Population int              `json:"population"`
	Share      float64          `json:"share"`
}

// Extraction is the ranked swatch list of an image plus the color chosen
// to seed a scheme.
type Extraction struct {
	Seed         Swatch   `json:"seed"`
	Swatches     []Swatch `json:"swatches"`
	SourceWidth  int      `json:"sourceWidth"`
	SourceHeight int      `json:"sourceHeight"`
	SampleWidth  int      `json:"sampleWidth"`
	SampleHeight int      `json:"sampleHeight"`
	Format       string   `json:"format,omitempty"`
	Options      Options  `json:"options"`
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func DefaultOptions() Options {
	return defaultOptions
}

func (e *Extractor) ExtractFromPath(path string, options Options) (Extraction, error) {
	file, err := os.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	return e.ExtractFromReader(file, options)
}

// ExtractFromReader decodes PNG, JPEG, GIF, WebP or AVIF data.
func (e *Extractor) ExtractFromReader(reader io.Reader, options Options) (Extraction, error) {
	decoded, format, err := image.Decode(reader)
	if err != nil {
		return Extraction{}, fmt.Errorf("decode image: %w", err)
	}

	extraction, err := e.ExtractFromImage(decoded, options)
	if err != nil {
		return Extraction{}, err
	}
	extraction.Format = format
	return extraction, nil
}

func (e *Extractor) ExtractFromImage(img image.Image, options Options) (Extraction, error) {
	normalized := options.normalized()
	if img.Bounds().Empty() {
		return Extraction{}, errors.New("image has no pixels")
	}

	source := toNRGBA(img)
	sampled := downscaleNRGBA(source, normalized.MaxDimension, normalized.WorkerCount)

	bins, total, err := buildColorBins(sampled, normalized)
	if err != nil {
		return Extraction{}, err
	}

	boxes := buildBoxes(bins, normalized.SwatchCount*3)
	swatches := deduplicateSwatches(boxesToSwatches(boxes, total), normalized.MinDelta)
	if len(swatches) == 0 {
		return Extraction{}, ErrNoPixels
	}
	if len(swatches) > normalized.SwatchCount {
		swatches = swatches[:normalized.SwatchCount]
	}

	return Extraction{
		Seed:         chooseSeed(swatches, normalized.MinSeedChroma),
		Swatches:     swatches,
		SourceWidth:  source.Bounds().Dx(),
		SourceHeight: source.Bounds().Dy(),
		SampleWidth:  sampled.Bounds().Dx(),
		SampleHeight: sampled.Bounds().Dy(),
		Options:      normalized,
	}, nil
}

func (o Options) normalized() Options {
	normalized := o

	if normalized.MaxDimension <= 0 {
		normalized.MaxDimension = defaultOptions.MaxDimension
	}
	normalized.MaxDimension = clampInt(normalized.MaxDimension, 16, 1024)

	if normalized.Quality <= 0 {
		normalized.Quality = defaultOptions.Quality
	}
	normalized.Quality = clampInt(normalized.Quality, 1, 12)

	if normalized.SwatchCount <= 0 {
		normalized.SwatchCount = defaultOptions.SwatchCount
	}
	normalized.SwatchCount = clampInt(normalized.SwatchCount, minSwatchCount, maxSwatchCount)

	if normalized.QuantizationBits <= 0 {
		normalized.QuantizationBits = defaultOptions.QuantizationBits
	}
	normalized.QuantizationBits = clampInt(normalized.QuantizationBits, 4, 6)

	normalized.AlphaThreshold = clampInt(normalized.AlphaThreshold, 0, 254)

	if normalized.MinDelta <= 0 || math.IsNaN(normalized.MinDelta) {
		normalized.MinDelta = defaultOptions.MinDelta
	}
	if normalized.MinSeedChroma <= 0 || math.IsNaN(normalized.MinSeedChroma) {
		normalized.MinSeedChroma = defaultOptions.MinSeedChroma
	}

	if normalized.WorkerCount <= 0 {
		normalized.WorkerCount = min(max(runtime.GOMAXPROCS(0)-1, 1), defaultWorkerCap)
	}
	normalized.WorkerCount = clampInt(normalized.WorkerCount, 1, max(1, min(runtime.GOMAXPROCS(0), maxWorkerCap)))

	return normalized
}

// deduplicateSwatches folds each swatch into the first kept one within
// minDelta, keeping the more populous color and summing populations.
func deduplicateSwatches(swatches []Swatch, minDelta float64) []Swatch {
	unique := make([]Swatch, 0, len(swatches))
	for _, candidate := range swatches {
		merged := false
		for index := range unique {
			distance := float64(deltae.DeltaE(deltae.CIE76(), unique[index].Lab, candidate.Lab))
			if distance > minDelta {
				continue
			}
			if candidate.Population > unique[index].Population {
				candidate.Population += unique[index].Population
				candidate.Share += unique[index].Share
				unique[index] = candidate
			} else {
				unique[index].Population += candidate.Population
				unique[index].Share += candidate.Share
			}
			merged = true
			break
		}
		if !merged {
			unique = append(unique, candidate)
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Population > unique[j].Population
	})
	return unique
}

// chooseSeed prefers the most populous swatch with visible chroma so a
// grey background does not seed the scheme.
func chooseSeed(swatches []Swatch, minChroma float64) Swatch {
	for _, candidate := range swatches {
		if candidate.Chroma >= minChroma {
			return candidate
		}
	}
	return swatches[0]
}

func newSwatch(r uint8, g uint8, b uint8, population int, total int) Swatch {
	c := colorspace.MustRGBA(float64(r)/255, float64(g)/255, float64(b)/255, 1)
	lab := colorspace.LabOf(c)
	share := 0.0
	if total > 0 {
		share = float64(population) / float64(total)
	}

	return Swatch{
		Color:      c,
		Hex:        c.Hex(),
		Lab:        lab,
		Chroma:     math.Hypot(float64(lab.A), float64(lab.B)),
		Population: population,
		Share:      share,
	}
}

func clampInt(value int, minimum int, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}
