package kyc

import (
	"time"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
)

// #region status
// Status is the position of an application in the verification workflow.
type Status string

const (
	StatusPendingDocuments     Status = "PENDING_DOCUMENTS"
	StatusPendingIDDocument    Status = "PENDING_ID_DOCUMENT"
	StatusPendingAddressProof  Status = "PENDING_ADDRESS_PROOF"
	StatusPendingSelfie        Status = "PENDING_SELFIE"
	StatusPendingRiskAnalysis  Status = "PENDING_RISK_ANALYSIS"
	StatusRejectedIDDocument   Status = "REJECTED_ID_DOCUMENT"
	StatusRejectedAddressProof Status = "REJECTED_ADDRESS_PROOF"
)

// #endregion status

// #region storage-key
// StorageKey names the document slot a document type fills.
type StorageKey string

const (
	KeyIDDocument   StorageKey = "id_document"
	KeyAddressProof StorageKey = "address_proof"
)

// #endregion storage-key

// #region document
// Document is one processed upload.
type Document struct {
	FilePath      string             `json:"file_path"`
	UploadedAt    time.Time          `json:"uploaded_at"`
	Status        string             `json:"status"`
	DocumentType  intel.DocumentType `json:"document_type"`
	Forensics     intel.Forensics    `json:"forensics"`
	ExtractedData map[string]string  `json:"extracted_data"`
	ModelInfo     intel.ModelInfo    `json:"model_info"`
	Quality       gate.Metrics       `json:"quality"`
}

// Documents holds the two document slots of an application.
type Documents struct {
	IDDocument   *Document `json:"id_document"`
	AddressProof *Document `json:"address_proof"`
}

// Selfie is the biometric upload and its analysis.
type Selfie struct {
	FilePath   string                `json:"file_path"`
	UploadedAt time.Time             `json:"uploaded_at"`
	Status     string                `json:"status"`
	Analysis   intel.BiometricResult `json:"ai_analysis"`
}

// #endregion document

// #region application
// Application is one customer's verification case.
type Application struct {
	ID            string            `json:"application_id"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	RiskScore     *int              `json:"risk_score"`
	Explanations  []string          `json:"explanations"`
	Documents     Documents         `json:"documents"`
	Selfie        *Selfie           `json:"selfie"`
	ExtractedData map[string]string `json:"extracted_data"`
	RiskAnalysis  *intel.RiskResult `json:"risk_analysis,omitempty"`
}

// #endregion application

// #region capture-attempt
// CaptureAttempt records one quality-gate evaluation of a document frame.
type CaptureAttempt struct {
	ID            string             `json:"id"`
	ApplicationID string             `json:"application_id,omitempty"`
	DocumentType  intel.DocumentType `json:"document_type,omitempty"`
	Metrics       gate.Metrics       `json:"metrics"`
	Verdict       gate.Verdict       `json:"verdict"`
	CreatedAt     time.Time          `json:"created_at"`
}

// #endregion capture-attempt
