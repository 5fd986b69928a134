package kyc

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// #region helpers
func passportResult() intel.DocumentResult {
	return intel.DocumentResult{
		ExtractedData: map[string]string{"first_name": "JANE", "last_name": "DOE", "document_number": "P01234567"},
		Forensics:     intel.Forensics{Status: intel.StatusClear},
	}
}

func billResult() intel.DocumentResult {
	return intel.DocumentResult{
		ExtractedData: map[string]string{
			"name":       "JANE DOE",
			"address":    "123 MAIN ST",
			"issue_date": "2026-01-30",
			"provider":   "City Electric & Gas",
		},
		Forensics: intel.Forensics{Status: intel.StatusClear},
	}
}

func tamperedResult() intel.DocumentResult {
	return intel.DocumentResult{
		ExtractedData: map[string]string{"first_name": "J0HN"},
		Forensics:     intel.Forensics{Status: intel.StatusTampered, Reason: "Digital alteration detected."},
	}
}

var goodQuality = gate.Metrics{Blur: 0.1, Glare: 0.1, Shadow: 0.1, Coverage: 0.9}

func readyForSelfie(t *testing.T) *Application {
	t.Helper()
	app := NewApplication("app-1", t0)
	ApplyDocument(app, KeyIDDocument, intel.DocPassport, "uploads/app-1/p.jpg", passportResult(), goodQuality, t0)
	ApplyDocument(app, KeyAddressProof, intel.DocUtilityBill, "uploads/app-1/b.jpg", billResult(), goodQuality, t0)
	if app.Status != StatusPendingSelfie {
		t.Fatalf("status = %s, want PENDING_SELFIE", app.Status)
	}
	return app
}

// #endregion helpers

// #region storage-key-tests
func TestStorageKeyFor(t *testing.T) {
	tests := []struct {
		docType intel.DocumentType
		want    StorageKey
		wantErr bool
	}{
		{intel.DocPassport, KeyIDDocument, false},
		{intel.DocDriverLicense, KeyIDDocument, false},
		{intel.DocTamperedExample, KeyIDDocument, false},
		{intel.DocUtilityBill, KeyAddressProof, false},
		{intel.DocumentType("SELFIE"), "", true},
	}
	for _, tt := range tests {
		got, err := StorageKeyFor(tt.docType)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tt.docType, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidDocumentType) {
			t.Fatalf("%s: expected ErrInvalidDocumentType, got %v", tt.docType, err)
		}
		if got != tt.want {
			t.Errorf("%s: key = %s, want %s", tt.docType, got, tt.want)
		}
	}
}

// #endregion storage-key-tests

// #region document-tests
func TestApplyDocumentOrderIndependent(t *testing.T) {
	app := NewApplication("app-1", t0)
	ApplyDocument(app, KeyAddressProof, intel.DocUtilityBill, "b.jpg", billResult(), goodQuality, t0)
	if app.Status != StatusPendingIDDocument {
		t.Fatalf("status = %s, want PENDING_ID_DOCUMENT", app.Status)
	}

	ApplyDocument(app, KeyIDDocument, intel.DocPassport, "p.jpg", passportResult(), goodQuality, t0.Add(time.Minute))
	if app.Status != StatusPendingSelfie {
		t.Fatalf("status = %s, want PENDING_SELFIE", app.Status)
	}
	if !app.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("updated_at = %v", app.UpdatedAt)
	}
	if app.Documents.IDDocument.Quality != goodQuality {
		t.Errorf("quality metrics not stored: %+v", app.Documents.IDDocument.Quality)
	}
}

func TestApplyDocumentIDFirst(t *testing.T) {
	app := NewApplication("app-1", t0)
	ApplyDocument(app, KeyIDDocument, intel.DocPassport, "p.jpg", passportResult(), goodQuality, t0)
	if app.Status != StatusPendingAddressProof {
		t.Fatalf("status = %s, want PENDING_ADDRESS_PROOF", app.Status)
	}
	if len(app.Explanations) != 1 {
		t.Fatalf("explanations = %v", app.Explanations)
	}
}

func TestApplyDocumentTamperedRejects(t *testing.T) {
	app := NewApplication("app-1", t0)
	ApplyDocument(app, KeyIDDocument, intel.DocTamperedExample, "t.jpg", tamperedResult(), goodQuality, t0)
	if app.Status != StatusRejectedIDDocument {
		t.Fatalf("status = %s, want REJECTED_ID_DOCUMENT", app.Status)
	}
	if app.Documents.IDDocument.Status != "REJECTED_TAMPERED" {
		t.Errorf("document status = %s", app.Documents.IDDocument.Status)
	}

	// Re-uploading the same rejected document must not duplicate the explanation.
	ApplyDocument(app, KeyIDDocument, intel.DocTamperedExample, "t.jpg", tamperedResult(), goodQuality, t0)
	want := []string{"id_document was rejected. Reason: Digital alteration detected."}
	if diff := cmp.Diff(want, app.Explanations); diff != "" {
		t.Errorf("explanations mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeExtractedData(t *testing.T) {
	app := readyForSelfie(t)
	want := map[string]string{
		"first_name":         "JANE",
		"last_name":          "DOE",
		"document_number":    "P01234567",
		"name":               "JANE DOE",
		"address":            "123 MAIN ST",
		"address_issue_date": "2026-01-30",
		"address_provider":   "City Electric & Gas",
	}
	if diff := cmp.Diff(want, app.ExtractedData); diff != "" {
		t.Errorf("extracted data mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeKeepsExistingName(t *testing.T) {
	app := NewApplication("app-1", t0)
	app.ExtractedData["name"] = "Jane Q. Doe"
	app.Documents.AddressProof = &Document{ExtractedData: billResult().ExtractedData}

	MergeExtractedData(app)
	if app.ExtractedData["name"] != "Jane Q. Doe" {
		t.Errorf("name overwritten: %s", app.ExtractedData["name"])
	}
}

// #endregion document-tests

// #region selfie-tests
func TestApplySelfieBeforeDocuments(t *testing.T) {
	app := NewApplication("app-1", t0)
	err := ApplySelfie(app, "s.jpg", intel.BiometricResult{Status: intel.StatusClear}, t0)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if app.Selfie != nil {
		t.Error("selfie should not be stored")
	}
}

func TestApplySelfieClear(t *testing.T) {
	app := readyForSelfie(t)
	if err := ApplySelfie(app, "s.jpg", intel.BiometricResult{Status: intel.StatusClear}, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != StatusPendingRiskAnalysis {
		t.Fatalf("status = %s, want PENDING_RISK_ANALYSIS", app.Status)
	}
	if len(app.Explanations) != 4 {
		t.Errorf("explanations = %v", app.Explanations)
	}
}

func TestApplySelfieRejected(t *testing.T) {
	app := readyForSelfie(t)
	res := intel.BiometricResult{Status: intel.StatusRejectedLiveness, Reason: "Liveness check failed."}
	if err := ApplySelfie(app, "spoof.jpg", res, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != Status("REJECTED_LIVENESS") {
		t.Fatalf("status = %s, want REJECTED_LIVENESS", app.Status)
	}
}

// #endregion selfie-tests

// #region risk-tests
func TestApplyRiskAnalysis(t *testing.T) {
	app := readyForSelfie(t)
	if err := ApplyRiskAnalysis(app, intel.RiskResult{Decision: intel.DecisionApproved}, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before selfie, got %v", err)
	}

	bio := intel.BiometricResult{Status: intel.StatusClear, FaceMatch: intel.FaceMatchResult{MatchScore: 0.97}}
	if err := ApplySelfie(app, "s.jpg", bio, t0); err != nil {
		t.Fatalf("selfie: %v", err)
	}

	in := RiskInputFor(app)
	if in.IDForensics == nil || in.AddressForensics == nil || in.Biometrics == nil {
		t.Fatalf("risk input incomplete: %+v", in)
	}

	res := intel.RiskResult{Decision: intel.DecisionManualReview, RiskScore: 42, XAIExplanations: []string{"x"}}
	if err := ApplyRiskAnalysis(app, res, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != Status(intel.DecisionManualReview) {
		t.Errorf("status = %s", app.Status)
	}
	if app.RiskScore == nil || *app.RiskScore != 42 {
		t.Errorf("risk score = %v", app.RiskScore)
	}
	if diff := cmp.Diff([]string{"x"}, app.Explanations); diff != "" {
		t.Errorf("explanations mismatch (-want +got):\n%s", diff)
	}
}

func TestRiskInputForEmptyApplication(t *testing.T) {
	in := RiskInputFor(NewApplication("app-2", t0))
	if in.IDForensics != nil || in.AddressForensics != nil || in.Biometrics != nil {
		t.Fatalf("expected nil inputs, got %+v", in)
	}
	if in.ApplicationID != "app-2" {
		t.Errorf("application id = %s", in.ApplicationID)
	}
}

// #endregion risk-tests
