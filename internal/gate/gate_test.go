package gate

import (
	"errors"
	"math"
	"sync"
	"testing"
)

var sweep = []float64{0, 0.1, 0.3, 0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.9, 1}

// forEachMetrics calls fn for every combination of sweep values.
func forEachMetrics(fn func(Metrics)) {
	for _, b := range sweep {
		for _, g := range sweep {
			for _, s := range sweep {
				for _, c := range sweep {
					fn(Metrics{Blur: b, Glare: g, Shadow: s, Coverage: c})
				}
			}
		}
	}
}

// #region scenario-tests
func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name     string
		metrics  Metrics
		accepted bool
		reason   ReasonCode
	}{
		{"blur short-circuits everything", Metrics{Blur: 0.8, Glare: 0.9, Shadow: 0.9, Coverage: 0.5}, false, ReasonBlurry},
		{"glare", Metrics{Blur: 0.1, Glare: 0.9, Shadow: 0.9, Coverage: 0.5}, false, ReasonGlare},
		{"shadow", Metrics{Blur: 0.1, Glare: 0.1, Shadow: 0.9, Coverage: 0.5}, false, ReasonShadow},
		{"coverage", Metrics{Blur: 0.1, Glare: 0.1, Shadow: 0.1, Coverage: 0.5}, false, ReasonInsufficientCoverage},
		{"clean frame", Metrics{Blur: 0.1, Glare: 0.1, Shadow: 0.1, Coverage: 0.95}, true, ReasonNone},
		{"all at boundary", Metrics{Blur: 0.7, Glare: 0.6, Shadow: 0.5, Coverage: 0.8}, true, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.metrics)
			if v.Accepted != tt.accepted {
				t.Fatalf("accepted = %v, want %v", v.Accepted, tt.accepted)
			}
			if v.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", v.Reason, tt.reason)
			}
			if v.Message != tt.reason.Message() {
				t.Fatalf("message = %q, want %q", v.Message, tt.reason.Message())
			}
		})
	}
}

func TestEvaluateBoundariesAcceptSide(t *testing.T) {
	base := Metrics{Blur: 0.1, Glare: 0.1, Shadow: 0.1, Coverage: 0.95}

	atBlur := base
	atBlur.Blur = 0.7
	if v := Evaluate(atBlur); !v.Accepted {
		t.Fatalf("blur=0.7 should be accepted, got %q", v.Reason)
	}

	atCoverage := base
	atCoverage.Coverage = 0.8
	if v := Evaluate(atCoverage); !v.Accepted {
		t.Fatalf("coverage=0.8 should be accepted, got %q", v.Reason)
	}

	justOver := base
	justOver.Blur = math.Nextafter(0.7, 1)
	if v := Evaluate(justOver); v.Reason != ReasonBlurry {
		t.Fatalf("blur just above 0.7 should be blurry, got %q", v.Reason)
	}

	justUnder := base
	justUnder.Coverage = math.Nextafter(0.8, 0)
	if v := Evaluate(justUnder); v.Reason != ReasonInsufficientCoverage {
		t.Fatalf("coverage just below 0.8 should be insufficient, got %q", v.Reason)
	}
}

// #endregion scenario-tests

// #region property-tests
func TestEvaluatePriorityOrder(t *testing.T) {
	forEachMetrics(func(m Metrics) {
		v := Evaluate(m)

		var want ReasonCode
		switch {
		case m.Blur > 0.7:
			want = ReasonBlurry
		case m.Glare > 0.6:
			want = ReasonGlare
		case m.Shadow > 0.5:
			want = ReasonShadow
		case m.Coverage < 0.8:
			want = ReasonInsufficientCoverage
		}

		if v.Reason != want {
			t.Fatalf("%+v: reason = %q, want %q", m, v.Reason, want)
		}
	})
}

func TestEvaluateVerdictInvariant(t *testing.T) {
	forEachMetrics(func(m Metrics) {
		v := Evaluate(m)
		if v.Accepted == (v.Reason != ReasonNone) {
			t.Fatalf("%+v: accepted=%v with reason %q", m, v.Accepted, v.Reason)
		}
		if v.Accepted && v.Message != "" {
			t.Fatalf("%+v: accepted verdict carries message %q", m, v.Message)
		}
		if !v.Accepted && v.Message == "" {
			t.Fatalf("%+v: rejected verdict has no message", m)
		}
	})
}

func TestEvaluateConcurrent(t *testing.T) {
	m := Metrics{Blur: 0.1, Glare: 0.9, Shadow: 0.1, Coverage: 0.9}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v := Evaluate(m); v.Reason != ReasonGlare {
				t.Errorf("reason = %q, want glare", v.Reason)
			}
		}()
	}
	wg.Wait()
}

// #endregion property-tests

// #region gate-config-tests
func TestGateCustomThresholds(t *testing.T) {
	strict := DefaultThresholds()
	strict.MaxBlur = 0.2
	g := NewGate(strict)

	m := Metrics{Blur: 0.3, Glare: 0.1, Shadow: 0.1, Coverage: 0.9}
	if v := g.Evaluate(m); v.Reason != ReasonBlurry {
		t.Fatalf("strict gate: reason = %q, want blurry", v.Reason)
	}
	if v := Evaluate(m); !v.Accepted {
		t.Fatalf("default gate should accept, got %q", v.Reason)
	}
	if g.Thresholds() != strict {
		t.Fatalf("thresholds = %+v, want %+v", g.Thresholds(), strict)
	}
}

func TestReasonsOrderAndMessages(t *testing.T) {
	want := []ReasonCode{ReasonBlurry, ReasonGlare, ReasonShadow, ReasonInsufficientCoverage}
	got := Reasons()
	if len(got) != len(want) {
		t.Fatalf("got %d reasons, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reason[%d] = %q, want %q", i, got[i], want[i])
		}
		if got[i].Message() == "" {
			t.Errorf("reason %q has no message", got[i])
		}
	}
	if ReasonNone.Message() != "" {
		t.Errorf("ReasonNone should have no message")
	}
}

// #endregion gate-config-tests

// #region validate-tests
func TestMetricsValidate(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
		wantErr bool
	}{
		{"zero", Metrics{}, false},
		{"ones", Metrics{Blur: 1, Glare: 1, Shadow: 1, Coverage: 1}, false},
		{"negative blur", Metrics{Blur: -0.01}, true},
		{"glare above one", Metrics{Glare: 1.2}, true},
		{"nan shadow", Metrics{Shadow: math.NaN()}, true},
		{"coverage above one", Metrics{Coverage: 1.0001}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metrics.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("expected ErrOutOfRange, got %v", err)
			}
		})
	}
}

// #endregion validate-tests
