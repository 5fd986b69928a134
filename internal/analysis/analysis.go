// Package analysis derives gate.Metrics from a captured document frame.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// MinFrameSide is the smallest width or height accepted for analysis.
const MinFrameSide = 16

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrFrameTooSmall = errors.New("frame too small")
	ErrDecode        = errors.New("decode frame")
)

// #region analyzer
// Analyzer scores one encoded frame (JPEG, PNG, GIF, BMP or WebP).
// Implementations must return Metrics that pass gate.Metrics.Validate.
type Analyzer interface {
	Analyze(ctx context.Context, frame []byte) (gate.Metrics, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, frame []byte) (gate.Metrics, error)

// Analyze calls f(ctx, frame).
func (f AnalyzerFunc) Analyze(ctx context.Context, frame []byte) (gate.Metrics, error) {
	return f(ctx, frame)
}

// #endregion analyzer

// #region decode
// DecodeFrame decodes an encoded frame and returns the image and its format name.
func DecodeFrame(frame []byte) (image.Image, string, error) {
	if len(frame) == 0 {
		return nil, "", ErrEmptyFrame
	}
	img, format, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() < MinFrameSide || b.Dy() < MinFrameSide {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrFrameTooSmall, b.Dx(), b.Dy())
	}
	return img, format, nil
}

// #endregion decode
