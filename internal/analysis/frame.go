package analysis

import (
	"context"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region frame-config
// FrameConfig tunes the classical frame scoring.
type FrameConfig struct {
	MaxDimension     int     // longer side is subsampled down to this
	SharpVariance    float64 // Laplacian variance at or above which blur is 0
	BlockSize        int     // side of the blocks used for glare/shadow
	GlareLuma        float64 // block mean at or above this counts as glare
	GlareSaturation  float64 // glare block fraction that maps to a score of 1
	ShadowLuma       float64 // block mean at or below this counts as shadow
	ShadowSaturation float64 // shadow block fraction that maps to a score of 1
	EdgeMagnitude    float64 // Sobel magnitude for an edge pixel
	EdgeDensity      float64 // edge pixel fraction that marks a row/column as document
}

// DefaultFrameConfig returns values tuned for phone-camera document frames.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxDimension:     1024,
		SharpVariance:    1000,
		BlockSize:        16,
		GlareLuma:        240,
		GlareSaturation:  0.15,
		ShadowLuma:       50,
		ShadowSaturation: 0.5,
		EdgeMagnitude:    100,
		EdgeDensity:      0.05,
	}
}

// #endregion frame-config

// #region frame-analyzer
// FrameAnalyzer scores frames with classical image statistics: Laplacian
// variance for blur, block luminance for glare and shadow, and the Sobel edge
// bounding box for coverage. It is stateless and safe for concurrent use.
type FrameAnalyzer struct {
	config FrameConfig
}

// NewFrameAnalyzer creates an analyzer with the given configuration.
func NewFrameAnalyzer(config FrameConfig) *FrameAnalyzer {
	return &FrameAnalyzer{config: config}
}

// Analyze decodes frame and scores it.
func (a *FrameAnalyzer) Analyze(ctx context.Context, frame []byte) (gate.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return gate.Metrics{}, err
	}
	img, _, err := DecodeFrame(frame)
	if err != nil {
		return gate.Metrics{}, err
	}
	return a.Score(img)
}

// Score computes metrics for an already decoded image.
func (a *FrameAnalyzer) Score(img image.Image) (gate.Metrics, error) {
	p := lumaPlane(img, a.config.MaxDimension)
	if p.w < 3 || p.h < 3 {
		return gate.Metrics{}, fmt.Errorf("%w: %dx%d", ErrFrameTooSmall, p.w, p.h)
	}

	glare, shadow := a.exposure(p)
	m := gate.Metrics{
		Blur:     a.blur(p),
		Glare:    glare,
		Shadow:   shadow,
		Coverage: a.coverage(p),
	}
	if err := m.Validate(); err != nil {
		return gate.Metrics{}, fmt.Errorf("score frame: %w", err)
	}
	return m, nil
}

// #endregion frame-analyzer

// #region luma
type plane struct {
	w, h int
	pix  []float64
}

func (p plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

// lumaPlane converts img to Rec. 601 luminance in [0, 255], subsampling so
// that neither side exceeds maxDim.
func lumaPlane(img image.Image, maxDim int) plane {
	b := img.Bounds()
	step := 1
	if maxDim > 0 {
		longest := max(b.Dx(), b.Dy())
		step = (longest + maxDim - 1) / maxDim
		if step < 1 {
			step = 1
		}
	}

	w := (b.Dx() + step - 1) / step
	h := (b.Dy() + step - 1) / step
	pix := make([]float64, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, _ := img.At(x, y).RGBA()
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			pix = append(pix, luma)
		}
	}
	return plane{w: w, h: h, pix: pix}
}

// #endregion luma

// #region blur
// blur maps the variance of the 4-neighbour Laplacian to [0, 1]; sharp
// frames have a wide Laplacian spread and score near 0.
func (a *FrameAnalyzer) blur(p plane) float64 {
	lap := make([]float64, 0, (p.w-2)*(p.h-2))
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			v := 4*p.at(x, y) - p.at(x-1, y) - p.at(x+1, y) - p.at(x, y-1) - p.at(x, y+1)
			lap = append(lap, v)
		}
	}
	_, variance := stat.MeanVariance(lap, nil)
	if a.config.SharpVariance <= 0 {
		return 0
	}
	return clamp01(1 - variance/a.config.SharpVariance)
}

// #endregion blur

// #region exposure
// exposure returns the glare and shadow scores from block mean luminance.
// Working on block means keeps dark print on a bright page from reading as shadow.
func (a *FrameAnalyzer) exposure(p plane) (glare, shadow float64) {
	size := a.config.BlockSize
	if size <= 0 {
		size = 1
	}

	var blocks, bright, dark int
	block := make([]float64, 0, size*size)
	for by := 0; by < p.h; by += size {
		for bx := 0; bx < p.w; bx += size {
			block = block[:0]
			for y := by; y < min(by+size, p.h); y++ {
				for x := bx; x < min(bx+size, p.w); x++ {
					block = append(block, p.at(x, y))
				}
			}
			mean := stat.Mean(block, nil)
			blocks++
			if mean >= a.config.GlareLuma {
				bright++
			}
			if mean <= a.config.ShadowLuma {
				dark++
			}
		}
	}

	glare = saturate(float64(bright)/float64(blocks), a.config.GlareSaturation)
	shadow = saturate(float64(dark)/float64(blocks), a.config.ShadowSaturation)
	return glare, shadow
}

// #endregion exposure

// #region coverage
// coverage is the area of the bounding box of rows and columns dense in Sobel
// edges, relative to the frame. A frame without edges has coverage 0.
func (a *FrameAnalyzer) coverage(p plane) float64 {
	rowEdges := make([]int, p.h)
	colEdges := make([]int, p.w)
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := -p.at(x-1, y-1) - 2*p.at(x-1, y) - p.at(x-1, y+1) +
				p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1)
			gy := -p.at(x-1, y-1) - 2*p.at(x, y-1) - p.at(x+1, y-1) +
				p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)
			if math.Hypot(gx, gy) >= a.config.EdgeMagnitude {
				rowEdges[y]++
				colEdges[x]++
			}
		}
	}

	top, bottom, ok := denseSpan(rowEdges, float64(p.w)*a.config.EdgeDensity)
	if !ok {
		return 0
	}
	left, right, ok := denseSpan(colEdges, float64(p.h)*a.config.EdgeDensity)
	if !ok {
		return 0
	}

	area := float64(bottom-top+1) * float64(right-left+1)
	return clamp01(area / float64(p.w*p.h))
}

// denseSpan returns the first and last index whose count reaches minCount.
func denseSpan(counts []int, minCount float64) (first, last int, ok bool) {
	first, last = -1, -1
	for i, c := range counts {
		if c > 0 && float64(c) >= minCount {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last, first >= 0
}

// #endregion coverage

// #region helpers
func saturate(fraction, saturation float64) float64 {
	if saturation <= 0 {
		return clamp01(fraction)
	}
	return clamp01(fraction / saturation)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// #endregion helpers
