package gate

import "errors"

// ErrOutOfRange is returned by Metrics.Validate for scores outside [0, 1].
var ErrOutOfRange = errors.New("quality metric out of range")

// #region gate
// Gate turns frame Metrics into an accept/reject Verdict.
// It holds no mutable state and is safe for concurrent use.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a gate with the given thresholds.
func NewGate(thresholds Thresholds) *Gate {
	return &Gate{thresholds: thresholds}
}

// Thresholds returns the limits this gate evaluates against.
func (g *Gate) Thresholds() Thresholds {
	return g.thresholds
}

// Evaluate checks blur, glare, shadow and coverage in that order. The first
// exceeded threshold decides the verdict and the remaining checks are skipped,
// so a rejected frame always carries exactly one reason.
func (g *Gate) Evaluate(m Metrics) Verdict {
	t := g.thresholds

	switch {
	case m.Blur > t.MaxBlur:
		return reject(ReasonBlurry)
	case m.Glare > t.MaxGlare:
		return reject(ReasonGlare)
	case m.Shadow > t.MaxShadow:
		return reject(ReasonShadow)
	case m.Coverage < t.MinCoverage:
		return reject(ReasonInsufficientCoverage)
	}
	return Verdict{Accepted: true}
}

// #endregion gate

// #region default
var defaultGate = NewGate(DefaultThresholds())

// Evaluate applies the production thresholds to m.
func Evaluate(m Metrics) Verdict {
	return defaultGate.Evaluate(m)
}

// #endregion default

// #region helpers
func reject(reason ReasonCode) Verdict {
	return Verdict{
		Accepted: false,
		Reason:   reason,
		Message:  reason.Message(),
	}
}

// #endregion helpers
