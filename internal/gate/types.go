package gate

import (
	"fmt"
	"math"
)

// #region metrics
// Metrics holds the four quality scores for one captured frame, each in [0, 1].
// Blur, Glare and Shadow grow with the defect; Coverage is the fraction of the
// frame occupied by the document.
type Metrics struct {
	Blur     float64 `json:"blur"`
	Glare    float64 `json:"glare"`
	Shadow   float64 `json:"shadow"`
	Coverage float64 `json:"coverage"`
}

// Validate reports scores outside [0, 1]. Producers of Metrics call it before
// handing a value to the gate; the gate itself assumes a valid input.
func (m Metrics) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"blur", m.Blur},
		{"glare", m.Glare},
		{"shadow", m.Shadow},
		{"coverage", m.Coverage},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrOutOfRange, f.name, f.v)
		}
	}
	return nil
}

// #endregion metrics

// #region reason-code
// ReasonCode names the single quality problem reported for a rejected frame.
// The zero value means no problem.
type ReasonCode string

const (
	ReasonNone                 ReasonCode = ""
	ReasonBlurry               ReasonCode = "blurry"
	ReasonGlare                ReasonCode = "glare"
	ReasonShadow               ReasonCode = "shadow"
	ReasonInsufficientCoverage ReasonCode = "insufficient_coverage"
)

var messages = map[ReasonCode]string{
	ReasonBlurry:               "Image is blurry, please hold steady and retake.",
	ReasonGlare:                "Too much glare detected. Please adjust lighting and retake.",
	ReasonShadow:               "Shadow detected. Please ensure even lighting and retake.",
	ReasonInsufficientCoverage: "Document not fully visible. Please align it within the frame.",
}

// Message returns the retry prompt shown to the user for this reason.
func (r ReasonCode) Message() string {
	return messages[r]
}

// Reasons lists every reason code in evaluation priority order.
func Reasons() []ReasonCode {
	return []ReasonCode{ReasonBlurry, ReasonGlare, ReasonShadow, ReasonInsufficientCoverage}
}

// #endregion reason-code

// #region thresholds
// Thresholds holds the per-metric limits. A frame is rejected when
// Blur > MaxBlur, Glare > MaxGlare, Shadow > MaxShadow or Coverage < MinCoverage.
type Thresholds struct {
	MaxBlur     float64 `json:"max_blur"`
	MaxGlare    float64 `json:"max_glare"`
	MaxShadow   float64 `json:"max_shadow"`
	MinCoverage float64 `json:"min_coverage"`
}

// DefaultThresholds returns the production capture policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxBlur:     0.7,
		MaxGlare:    0.6,
		MaxShadow:   0.5,
		MinCoverage: 0.8,
	}
}

// #endregion thresholds

// #region verdict
// Verdict is the outcome of evaluating one frame's Metrics.
// Reason and Message are set if and only if Accepted is false.
type Verdict struct {
	Accepted bool       `json:"accepted"`
	Reason   ReasonCode `json:"reason,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// #endregion verdict
