package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/logging"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string              `json:"description"`
	Thresholds  *ThresholdsOverride `json:"thresholds,omitempty"`
	Captures    []FixtureCapture    `json:"captures"`
}

// FixtureCapture is one recorded evaluation with its recorded verdict.
type FixtureCapture struct {
	CaptureID     string          `json:"capture_id"`
	ApplicationID string          `json:"application_id,omitempty"`
	DocumentType  string          `json:"document_type,omitempty"`
	Metrics       gate.Metrics    `json:"metrics"`
	Accepted      bool            `json:"accepted"`
	Reason        gate.ReasonCode `json:"reason,omitempty"`
}

// ThresholdsOverride replaces individual thresholds of the default policy.
// Unset fields keep their default.
type ThresholdsOverride struct {
	MaxBlur     *float64 `json:"max_blur,omitempty"`
	MaxGlare    *float64 `json:"max_glare,omitempty"`
	MaxShadow   *float64 `json:"max_shadow,omitempty"`
	MinCoverage *float64 `json:"min_coverage,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Records converts the fixture captures to replay records.
func (f *Fixture) Records() []Record {
	records := make([]Record, len(f.Captures))
	for i, c := range f.Captures {
		records[i] = Record{
			ID:           c.CaptureID,
			DocumentType: c.DocumentType,
			Metrics:      c.Metrics,
			Recorded: gate.Verdict{
				Accepted: c.Accepted,
				Reason:   c.Reason,
				Message:  c.Reason.Message(),
			},
		}
	}
	return records
}

// Gate returns the gate the fixture should be replayed with.
func (f *Fixture) Gate() *gate.Gate {
	return gate.NewGate(f.Thresholds.Apply(gate.DefaultThresholds()))
}

// Apply returns base with the set fields of o replaced. A nil o returns base.
func (o *ThresholdsOverride) Apply(base gate.Thresholds) gate.Thresholds {
	if o == nil {
		return base
	}
	if o.MaxBlur != nil {
		base.MaxBlur = *o.MaxBlur
	}
	if o.MaxGlare != nil {
		base.MaxGlare = *o.MaxGlare
	}
	if o.MaxShadow != nil {
		base.MaxShadow = *o.MaxShadow
	}
	if o.MinCoverage != nil {
		base.MinCoverage = *o.MinCoverage
	}
	return base
}

// #endregion fixture-loader

// #region fixture-export

// FixtureFromStore builds a fixture from stored capture attempts, oldest
// first. An empty appID exports every application.
func FixtureFromStore(st *store.Store, appID string, limit int) (*Fixture, error) {
	captures, err := st.ListCaptures(appID, limit)
	if err != nil {
		return nil, err
	}
	f := &Fixture{Captures: make([]FixtureCapture, 0, len(captures))}
	for i := len(captures) - 1; i >= 0; i-- {
		c := captures[i]
		f.Captures = append(f.Captures, FixtureCapture{
			CaptureID:     c.ID,
			ApplicationID: c.ApplicationID,
			DocumentType:  string(c.DocumentType),
			Metrics:       c.Metrics,
			Accepted:      c.Verdict.Accepted,
			Reason:        c.Verdict.Reason,
		})
	}
	return f, nil
}

// FixtureFromProvenance builds a fixture from quality-gate provenance rows.
// Rows whose signals cannot be decoded are skipped and counted.
func FixtureFromProvenance(st *store.Store, appID string, limit int) (*Fixture, int, error) {
	entries, err := logging.ListDecisions(st.DB(), appID, logging.StageQualityGate, limit)
	if err != nil {
		return nil, 0, err
	}
	f := &Fixture{Captures: make([]FixtureCapture, 0, len(entries))}
	skipped := 0
	for _, e := range entries {
		rec, err := logging.DecodeQualityRecord(e.SignalsJSON)
		if err != nil {
			skipped++
			continue
		}
		id := rec.CaptureID
		if id == "" {
			id = fmt.Sprintf("provenance-%d", e.ID)
		}
		f.Captures = append(f.Captures, FixtureCapture{
			CaptureID:     id,
			ApplicationID: rec.ApplicationID,
			DocumentType:  rec.DocumentType,
			Metrics:       rec.Metrics,
			Accepted:      rec.Accepted,
			Reason:        rec.Reason,
		})
	}
	return f, skipped, nil
}

// #endregion fixture-export
