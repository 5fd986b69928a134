package intel

import "time"

// #region document-type
// DocumentType is the kind of document a user uploads.
type DocumentType string

const (
	DocPassport        DocumentType = "PASSPORT"
	DocDriverLicense   DocumentType = "DRIVER_LICENSE"
	DocUtilityBill     DocumentType = "UTILITY_BILL"
	DocTamperedExample DocumentType = "TAMPERED_EXAMPLE"
)

// #endregion document-type

// #region statuses
const (
	StatusClear       = "CLEAR"
	StatusTampered    = "TAMPERED"
	StatusUnsupported = "UNSUPPORTED_DOCUMENT"

	StatusRejectedMismatch = "REJECTED_MISMATCH"
	StatusRejectedLiveness = "REJECTED_LIVENESS"

	LivenessReal = "REAL"
	LivenessFake = "FAKE"

	FaceMatch        = "MATCH"
	FaceMismatch     = "MISMATCH"
	FaceNotAttempted = "NOT_ATTEMPTED"
)

// Decision is the final outcome of risk analysis.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// #endregion statuses

// #region model-info
// ModelInfo names the models behind a result and how long processing took.
type ModelInfo struct {
	OCRModel          string  `json:"ocr_model,omitempty"`
	ForensicsModel    string  `json:"forensics_model,omitempty"`
	FaceMatchModel    string  `json:"face_match_model,omitempty"`
	LivenessModel     string  `json:"liveness_model,omitempty"`
	RiskModel         string  `json:"risk_model,omitempty"`
	XAIModel          string  `json:"xai_model,omitempty"`
	ProcessingTimeSec float64 `json:"processing_time_sec"`
}

// #endregion model-info

// #region document-result
// Forensics is the tamper analysis of one document.
type Forensics struct {
	Status          string   `json:"status"`
	ConfidenceScore float64  `json:"confidence_score,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	ChecksPassed    []string `json:"checks_passed,omitempty"`
	ChecksFailed    []string `json:"checks_failed,omitempty"`
}

// DocumentResult is the output of document intelligence.
type DocumentResult struct {
	ExtractedData map[string]string `json:"extracted_data"`
	Forensics     Forensics         `json:"forensics"`
	ModelInfo     ModelInfo         `json:"model_info"`
}

// #endregion document-result

// #region biometric-result
// LivenessCheck reports whether the selfie shows a live person.
type LivenessCheck struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

// FaceMatchResult compares the selfie with the face on the ID document.
type FaceMatchResult struct {
	Status            string  `json:"status"`
	MatchScore        float64 `json:"match_score"`
	IDDocumentFaceRef string  `json:"id_document_face_ref"`
	SelfieFaceRef     string  `json:"selfie_face_ref"`
}

// BiometricResult is the output of selfie verification.
type BiometricResult struct {
	Status        string          `json:"status"`
	Reason        string          `json:"reason"`
	LivenessCheck LivenessCheck   `json:"liveness_check"`
	FaceMatch     FaceMatchResult `json:"face_match"`
	ModelInfo     ModelInfo       `json:"model_info"`
}

// #endregion biometric-result

// #region risk
// RiskInput is everything risk analysis looks at. Nil pointers mark data
// that was never collected.
type RiskInput struct {
	ApplicationID    string
	IDForensics      *Forensics
	AddressForensics *Forensics
	Biometrics       *BiometricResult
	ExtractedData    map[string]string
}

// RiskResult is the final risk decision with its explanations.
type RiskResult struct {
	Decision        Decision  `json:"decision"`
	RiskScore       int       `json:"risk_score"`
	XAIExplanations []string  `json:"xai_explanations"`
	ModelInfo       ModelInfo `json:"model_info"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// #endregion risk
