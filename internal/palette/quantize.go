package palette

import (
	"image"
	"image/draw"
	"math"
	"sort"
	"sync"
)

type colorBin struct {
	rq    uint8
	gq    uint8
	bq    uint8
	r     uint8
	g     uint8
	b     uint8
	count int
}

type colorBox struct {
	bins       []colorBin
	population int
	rMin       uint8
	rMax       uint8
	gMin       uint8
	gMax       uint8
	bMin       uint8
	bMax       uint8
	volume     int
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}

	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// downscaleNRGBA bilinearly resamples src so its longest side is at most
// maxDimension. Rows are split across workers.
func downscaleNRGBA(src *image.NRGBA, maxDimension int, workerCount int) *image.NRGBA {
	sourceWidth := src.Bounds().Dx()
	sourceHeight := src.Bounds().Dy()
	longest := max(sourceWidth, sourceHeight)
	if sourceWidth <= 0 || sourceHeight <= 0 || longest <= maxDimension {
		return src
	}

	scale := float64(maxDimension) / float64(longest)
	targetWidth := max(int(math.Round(float64(sourceWidth)*scale)), 1)
	targetHeight := max(int(math.Round(float64(sourceHeight)*scale)), 1)
	xScale := float64(sourceWidth) / float64(targetWidth)
	yScale := float64(sourceHeight) / float64(targetHeight)

	dst := image.NewNRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	workers := clampInt(workerCount, 1, targetHeight)

	var wg sync.WaitGroup
	for worker := range workers {
		start, end := splitRange(targetHeight, workers, worker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := start; y < end; y++ {
				sampleY := (float64(y)+0.5)*yScale - 0.5
				row := y * dst.Stride
				for x := range targetWidth {
					sampleX := (float64(x)+0.5)*xScale - 0.5
					copy(dst.Pix[row+x*4:row+x*4+4], bilinearSample(src, sampleX, sampleY))
				}
			}
		}()
	}

	wg.Wait()
	return dst
}

func bilinearSample(src *image.NRGBA, x float64, y float64) []uint8 {
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()

	x = math.Min(math.Max(x, 0), float64(width-1))
	y = math.Min(math.Max(y, 0), float64(height-1))

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, width-1)
	y1 := min(y0+1, height-1)
	tx := x - float64(x0)
	ty := y - float64(y0)

	offsets := [4]int{
		y0*src.Stride + x0*4,
		y0*src.Stride + x1*4,
		y1*src.Stride + x0*4,
		y1*src.Stride + x1*4,
	}
	weights := [4]float64{
		(1 - tx) * (1 - ty),
		tx * (1 - ty),
		(1 - tx) * ty,
		tx * ty,
	}

	out := make([]uint8, 4)
	for channel := range 4 {
		sum := 0.0
		for corner, offset := range offsets {
			sum += weights[corner] * float64(src.Pix[offset+channel])
		}
		out[channel] = uint8(math.Round(sum))
	}
	return out
}

// buildColorBins builds a quantized RGB histogram over every Quality-th
// pixel, skipping transparent and optionally near-white/near-black pixels.
func buildColorBins(img *image.NRGBA, options Options) ([]colorBin, int, error) {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, ErrNoPixels
	}

	bits := options.QuantizationBits
	channelMask := (1 << bits) - 1
	channelShift := 8 - bits
	indexShift := bits * 2
	histogramSize := 1 << (bits * 3)

	workers := clampInt(options.WorkerCount, 1, height)
	localHistograms := make([][]int, workers)

	var wg sync.WaitGroup
	for worker := range workers {
		start, end := splitRange(height, workers, worker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int, histogramSize)

			first := start
			if remainder := first % options.Quality; remainder != 0 {
				first += options.Quality - remainder
			}

			for y := first; y < end; y += options.Quality {
				row := y * img.Stride
				for x := 0; x < width; x += options.Quality {
					offset := row + x*4
					r, g, b, a := img.Pix[offset], img.Pix[offset+1], img.Pix[offset+2], img.Pix[offset+3]

					if int(a) <= options.AlphaThreshold {
						continue
					}
					if options.IgnoreNearWhite && r >= 245 && g >= 245 && b >= 245 {
						continue
					}
					if options.IgnoreNearBlack && r <= 10 && g <= 10 && b <= 10 {
						continue
					}

					rq := (int(r) >> channelShift) & channelMask
					gq := (int(g) >> channelShift) & channelMask
					bq := (int(b) >> channelShift) & channelMask
					local[(rq<<indexShift)|(gq<<bits)|bq]++
				}
			}

			localHistograms[worker] = local
		}()
	}

	wg.Wait()

	histogram := make([]int, histogramSize)
	total := 0
	for _, local := range localHistograms {
		for index, count := range local {
			histogram[index] += count
			total += count
		}
	}
	if total == 0 {
		return nil, 0, ErrNoPixels
	}

	bins := make([]colorBin, 0, 64)
	for index, count := range histogram {
		if count == 0 {
			continue
		}

		rq := uint8((index >> indexShift) & channelMask)
		gq := uint8((index >> bits) & channelMask)
		bq := uint8(index & channelMask)
		bins = append(bins, colorBin{
			rq:    rq,
			gq:    gq,
			bq:    bq,
			r:     quantizedToRGB(rq, bits),
			g:     quantizedToRGB(gq, bits),
			b:     quantizedToRGB(bq, bits),
			count: count,
		})
	}

	return bins, total, nil
}

func quantizedToRGB(value uint8, bits int) uint8 {
	bucketSize := 256 >> bits
	return uint8(min(int(value)*bucketSize+bucketSize/2, 255))
}

// buildBoxes median-cuts the histogram until targetCount boxes exist or
// nothing can be split. The box with the largest population-weighted
// volume is split first.
func buildBoxes(bins []colorBin, targetCount int) []colorBox {
	if len(bins) == 0 {
		return nil
	}

	boxes := []colorBox{newColorBox(bins)}
	for len(boxes) < targetCount {
		best := -1
		bestScore := -1.0
		for index, box := range boxes {
			if !box.canSplit() {
				continue
			}
			score := float64(box.population) * math.Log(float64(box.volume)+1)
			if score > bestScore {
				best = index
				bestScore = score
			}
		}
		if best < 0 {
			break
		}

		left, right, ok := splitColorBox(boxes[best])
		if !ok {
			break
		}
		boxes[best] = left
		boxes = append(boxes, right)
	}

	return boxes
}

func newColorBox(bins []colorBin) colorBox {
	box := colorBox{
		bins: bins,
		rMin: math.MaxUint8,
		gMin: math.MaxUint8,
		bMin: math.MaxUint8,
	}
	for _, bin := range bins {
		box.population += bin.count
		box.rMin, box.rMax = min(box.rMin, bin.rq), max(box.rMax, bin.rq)
		box.gMin, box.gMax = min(box.gMin, bin.gq), max(box.gMax, bin.gq)
		box.bMin, box.bMax = min(box.bMin, bin.bq), max(box.bMax, bin.bq)
	}
	if len(bins) > 0 {
		box.volume = int(box.rMax-box.rMin+1) * int(box.gMax-box.gMin+1) * int(box.bMax-box.bMin+1)
	}
	return box
}

func (b colorBox) canSplit() bool {
	return len(b.bins) > 1 && (b.rMax > b.rMin || b.gMax > b.gMin || b.bMax > b.bMin)
}

func splitColorBox(box colorBox) (colorBox, colorBox, bool) {
	if !box.canSplit() {
		return colorBox{}, colorBox{}, false
	}

	axis := longestAxis(box)
	ordered := append([]colorBin(nil), box.bins...)
	sort.Slice(ordered, func(i, j int) bool {
		left := axisValue(ordered[i], axis)
		right := axisValue(ordered[j], axis)
		if left == right {
			return ordered[i].count > ordered[j].count
		}
		return left < right
	})

	splitIndex := -1
	cumulative := 0
	for index, bin := range ordered {
		cumulative += bin.count
		if cumulative >= box.population/2 {
			splitIndex = index + 1
			break
		}
	}
	if splitIndex <= 0 || splitIndex >= len(ordered) {
		splitIndex = len(ordered) / 2
	}
	if splitIndex <= 0 || splitIndex >= len(ordered) {
		return colorBox{}, colorBox{}, false
	}

	return newColorBox(ordered[:splitIndex]), newColorBox(ordered[splitIndex:]), true
}

func longestAxis(box colorBox) int {
	rRange := box.rMax - box.rMin
	gRange := box.gMax - box.gMin
	bRange := box.bMax - box.bMin

	switch {
	case rRange >= gRange && rRange >= bRange:
		return 0
	case gRange >= bRange:
		return 1
	default:
		return 2
	}
}

func axisValue(bin colorBin, axis int) uint8 {
	switch axis {
	case 0:
		return bin.rq
	case 1:
		return bin.gq
	default:
		return bin.bq
	}
}

// boxesToSwatches averages each box into one swatch, most populous first.
func boxesToSwatches(boxes []colorBox, total int) []Swatch {
	swatches := make([]Swatch, 0, len(boxes))
	for _, box := range boxes {
		if box.population <= 0 {
			continue
		}

		var rSum, gSum, bSum int
		for _, bin := range box.bins {
			rSum += int(bin.r) * bin.count
			gSum += int(bin.g) * bin.count
			bSum += int(bin.b) * bin.count
		}

		swatches = append(swatches, newSwatch(
			uint8(rSum/box.population),
			uint8(gSum/box.population),
			uint8(bSum/box.population),
			box.population,
			total,
		))
	}

	sort.SliceStable(swatches, func(i, j int) bool {
		return swatches[i].Population > swatches[j].Population
	})
	return swatches
}

func splitRange(length int, workers int, workerIndex int) (int, int) {
	chunkSize := length / workers
	remainder := length % workers
	start := workerIndex*chunkSize + min(workerIndex, remainder)
	end := start + chunkSize
	if workerIndex < remainder {
		end++
	}
	return start, end
}
