package analysis

import (
	"context"
	"math/rand"
	"sync"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region random-analyzer
// RandomAnalyzer ignores frame content and draws scores from fixed ranges.
// It stands in for real analysis in demos and load tests.
type RandomAnalyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Score ranges drawn by RandomAnalyzer, as [low, high).
var (
	RandomBlurRange     = [2]float64{0.3, 0.9}
	RandomGlareRange    = [2]float64{0.2, 0.8}
	RandomShadowRange   = [2]float64{0.1, 0.7}
	RandomCoverageRange = [2]float64{0.7, 1.0}
)

// NewRandomAnalyzer creates a RandomAnalyzer with a fixed seed.
func NewRandomAnalyzer(seed int64) *RandomAnalyzer {
	return &RandomAnalyzer{rng: rand.New(rand.NewSource(seed))}
}

// Analyze returns random metrics for any non-empty frame.
func (a *RandomAnalyzer) Analyze(ctx context.Context, frame []byte) (gate.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return gate.Metrics{}, err
	}
	if len(frame) == 0 {
		return gate.Metrics{}, ErrEmptyFrame
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return gate.Metrics{
		Blur:     a.draw(RandomBlurRange),
		Glare:    a.draw(RandomGlareRange),
		Shadow:   a.draw(RandomShadowRange),
		Coverage: a.draw(RandomCoverageRange),
	}, nil
}

func (a *RandomAnalyzer) draw(r [2]float64) float64 {
	return r[0] + a.rng.Float64()*(r[1]-r[0])
}

// #endregion random-analyzer
