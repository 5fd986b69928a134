package orchestrator

import (
	"errors"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/kyc"
)

// CaptureFailedMessage is shown to the user when a frame could not be analyzed.
const CaptureFailedMessage = "Failed to capture image. Please try again."

// ErrCaptureFailed wraps any analyzer failure. Callers show CaptureFailedMessage.
var ErrCaptureFailed = errors.New("capture failed")

// #region capture-result
// CaptureResult is the outcome of one document capture.
// Application is the stored application after the capture; on a rejected
// frame it is unchanged.
type CaptureResult struct {
	Application *kyc.Application   `json:"application"`
	Attempt     kyc.CaptureAttempt `json:"attempt"`
	Verdict     gate.Verdict       `json:"verdict"`
}

// FrameResult is the outcome of a stateless frame check.
type FrameResult struct {
	Metrics gate.Metrics `json:"metrics"`
	Verdict gate.Verdict `json:"verdict"`
}

// #endregion capture-result
