package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// #region helpers
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uniform(size int, luma uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = luma
	}
	return img
}

// document draws a bright page with dark print lines on a mid-grey background.
func document(size int, page image.Rectangle) *image.Gray {
	img := uniform(size, 128)
	for y := page.Min.Y; y < page.Max.Y; y++ {
		for x := page.Min.X; x < page.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 230})
			inMargin := x >= page.Min.X+10 && x < page.Max.X-10
			if inMargin && (y-page.Min.Y)%8 >= 4 && (y-page.Min.Y)%8 < 6 {
				img.SetGray(x, y, color.Gray{Y: 60})
			}
		}
	}
	return img
}

func boxBlur(src *image.Gray, radius int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum, n int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					p := image.Pt(x+dx, y+dy)
					if p.In(b) {
						sum += int(src.GrayAt(p.X, p.Y).Y)
						n++
					}
				}
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(sum / n)})
		}
	}
	return dst
}

// #endregion helpers

// #region decode-tests
func TestDecodeFrameErrors(t *testing.T) {
	if _, _, err := DecodeFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	if _, _, err := DecodeFrame([]byte("not an image")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	tiny := encodePNG(t, uniform(8, 100))
	if _, _, err := DecodeFrame(tiny); !errors.Is(err, ErrFrameTooSmall) {
		t.Fatalf("expected ErrFrameTooSmall, got %v", err)
	}
}

func TestDecodeFramePNG(t *testing.T) {
	img, format, err := DecodeFrame(encodePNG(t, uniform(32, 100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("width = %d, want 32", img.Bounds().Dx())
	}
}

// #endregion decode-tests

// #region frame-analyzer-tests
func TestFrameAnalyzerBlurOrdersSharpBeforeBlurred(t *testing.T) {
	config := DefaultFrameConfig()
	config.SharpVariance = 1e6 // keep both frames off the clamp
	a := NewFrameAnalyzer(config)

	sharp := document(200, image.Rect(5, 5, 195, 195))
	blurred := boxBlur(sharp, 2)

	ms, err := a.Score(sharp)
	if err != nil {
		t.Fatalf("score sharp: %v", err)
	}
	mb, err := a.Score(blurred)
	if err != nil {
		t.Fatalf("score blurred: %v", err)
	}
	if mb.Blur <= ms.Blur {
		t.Fatalf("blurred frame blur %.4f should exceed sharp frame blur %.4f", mb.Blur, ms.Blur)
	}
}

func TestFrameAnalyzerAcceptsCleanDocument(t *testing.T) {
	a := NewFrameAnalyzer(DefaultFrameConfig())
	frame := encodePNG(t, document(200, image.Rect(5, 5, 195, 195)))

	m, err := a.Analyze(context.Background(), frame)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if v := gate.Evaluate(m); !v.Accepted {
		t.Fatalf("clean document rejected: %s (%+v)", v.Reason, m)
	}
}

func TestFrameAnalyzerGlare(t *testing.T) {
	a := NewFrameAnalyzer(DefaultFrameConfig())
	m, err := a.Score(uniform(64, 255))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if m.Glare != 1 {
		t.Errorf("glare = %.4f, want 1", m.Glare)
	}
	if m.Shadow != 0 {
		t.Errorf("shadow = %.4f, want 0", m.Shadow)
	}
}

func TestFrameAnalyzerShadow(t *testing.T) {
	a := NewFrameAnalyzer(DefaultFrameConfig())
	m, err := a.Score(uniform(64, 5))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if m.Shadow != 1 {
		t.Errorf("shadow = %.4f, want 1", m.Shadow)
	}
	if m.Glare != 0 {
		t.Errorf("glare = %.4f, want 0", m.Glare)
	}
}

func TestFrameAnalyzerCoverage(t *testing.T) {
	a := NewFrameAnalyzer(DefaultFrameConfig())

	full, err := a.Score(document(200, image.Rect(5, 5, 195, 195)))
	if err != nil {
		t.Fatalf("score full: %v", err)
	}
	corner, err := a.Score(document(200, image.Rect(0, 0, 60, 60)))
	if err != nil {
		t.Fatalf("score corner: %v", err)
	}
	blank, err := a.Score(uniform(200, 128))
	if err != nil {
		t.Fatalf("score blank: %v", err)
	}

	if full.Coverage < 0.8 {
		t.Errorf("full-frame document coverage = %.4f, want >= 0.8", full.Coverage)
	}
	if corner.Coverage > 0.2 {
		t.Errorf("corner document coverage = %.4f, want <= 0.2", corner.Coverage)
	}
	if blank.Coverage != 0 {
		t.Errorf("blank frame coverage = %.4f, want 0", blank.Coverage)
	}
	if v := gate.Evaluate(corner); v.Reason != gate.ReasonInsufficientCoverage {
		t.Errorf("corner document reason = %q, want insufficient_coverage", v.Reason)
	}
}

func TestFrameAnalyzerSubsamplesLargeFrames(t *testing.T) {
	config := DefaultFrameConfig()
	config.MaxDimension = 50
	a := NewFrameAnalyzer(config)

	m, err := a.Score(document(200, image.Rect(5, 5, 195, 195)))
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid metrics: %v", err)
	}
}

func TestFrameAnalyzerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewFrameAnalyzer(DefaultFrameConfig())
	if _, err := a.Analyze(ctx, encodePNG(t, uniform(32, 100))); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// #endregion frame-analyzer-tests

// #region random-analyzer-tests
func TestRandomAnalyzerRanges(t *testing.T) {
	a := NewRandomAnalyzer(42)
	in := func(v float64, r [2]float64) bool { return v >= r[0] && v < r[1] }

	for i := 0; i < 500; i++ {
		m, err := a.Analyze(context.Background(), []byte{1})
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if !in(m.Blur, RandomBlurRange) || !in(m.Glare, RandomGlareRange) ||
			!in(m.Shadow, RandomShadowRange) || !in(m.Coverage, RandomCoverageRange) {
			t.Fatalf("metrics out of range: %+v", m)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("invalid metrics: %v", err)
		}
	}
}

func TestRandomAnalyzerDeterministic(t *testing.T) {
	a, b := NewRandomAnalyzer(7), NewRandomAnalyzer(7)
	for i := 0; i < 10; i++ {
		ma, _ := a.Analyze(context.Background(), []byte{1})
		mb, _ := b.Analyze(context.Background(), []byte{1})
		if ma != mb {
			t.Fatalf("same seed diverged at %d: %+v vs %+v", i, ma, mb)
		}
	}
}

func TestRandomAnalyzerEmptyFrame(t *testing.T) {
	a := NewRandomAnalyzer(1)
	if _, err := a.Analyze(context.Background(), nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestAnalyzerFunc(t *testing.T) {
	want := gate.Metrics{Blur: 0.2, Glare: 0.3, Shadow: 0.1, Coverage: 0.9}
	var a Analyzer = AnalyzerFunc(func(context.Context, []byte) (gate.Metrics, error) {
		return want, nil
	})
	got, err := a.Analyze(context.Background(), nil)
	if err != nil || got != want {
		t.Fatalf("got %+v, %v", got, err)
	}
}

// #endregion random-analyzer-tests
