package logging

import (
	"time"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// Stages recorded in the provenance log.
const (
	StageQualityGate = "quality_gate"
	StageDocument    = "document"
	StageBiometrics  = "biometrics"
	StageRisk        = "risk"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ID            int64
	ApplicationID string
	Stage         string
	TriggerType   string // "capture" | "upload" | "evaluate" | "analyze"
	SignalsJSON   string
	Decision      string // "accept" | "reject" | status or risk decision
	Reason        string
	CreatedAt     time.Time
}

// #endregion provenance-entry

// #region quality-record
// QualityRecord captures the complete gate evaluation inputs for one frame.
// Serialized as JSON into provenance_log.signals_json for deterministic replay.
type QualityRecord struct {
	CaptureID     string `json:"capture_id,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`

	// Exact metrics as evaluated at runtime
	Metrics gate.Metrics `json:"metrics"`

	// Gate thresholds active at decision time
	Thresholds gate.Thresholds `json:"thresholds"`

	// Gate output
	Accepted bool            `json:"accepted"`
	Reason   gate.ReasonCode `json:"reason,omitempty"`
}

// #endregion quality-record
