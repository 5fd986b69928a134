// Package kyc holds the verification application model and the rules that
// move an application through its workflow. Functions here mutate the
// application in memory; persisting it is the caller's job.
package kyc

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
)

var (
	ErrNotFound            = errors.New("application not found")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrInvalidTransition   = errors.New("invalid status for this step")
)

const documentProcessed = "PROCESSED"

// #region new-application
// NewApplication returns an application waiting for documents.
func NewApplication(id string, now time.Time) *Application {
	return &Application{
		ID:            id,
		Status:        StatusPendingDocuments,
		CreatedAt:     now,
		UpdatedAt:     now,
		Explanations:  []string{},
		ExtractedData: map[string]string{},
	}
}

// #endregion new-application

// #region storage-key-for
// StorageKeyFor maps a document type to its slot.
func StorageKeyFor(docType intel.DocumentType) (StorageKey, error) {
	switch docType {
	case intel.DocPassport, intel.DocDriverLicense, intel.DocTamperedExample:
		return KeyIDDocument, nil
	case intel.DocUtilityBill:
		return KeyAddressProof, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDocumentType, docType)
}

// #endregion storage-key-for

// #region apply-document
// ApplyDocument stores a processed document, merges its extracted data and
// advances the status. A document that fails forensics rejects the
// application for that slot.
func ApplyDocument(app *Application, key StorageKey, docType intel.DocumentType, filePath string, res intel.DocumentResult, quality gate.Metrics, now time.Time) {
	status := documentProcessed
	if res.Forensics.Status != intel.StatusClear {
		status = "REJECTED_" + res.Forensics.Status
	}

	doc := &Document{
		FilePath:      filePath,
		UploadedAt:    now,
		Status:        status,
		DocumentType:  docType,
		Forensics:     res.Forensics,
		ExtractedData: res.ExtractedData,
		ModelInfo:     res.ModelInfo,
		Quality:       quality,
	}
	switch key {
	case KeyIDDocument:
		app.Documents.IDDocument = doc
	case KeyAddressProof:
		app.Documents.AddressProof = doc
	}

	MergeExtractedData(app)

	if status != documentProcessed {
		app.Status = Status("REJECTED_" + strings.ToUpper(string(key)))
		reason := res.Forensics.Reason
		if reason == "" {
			reason = "See document forensics."
		}
		appendExplanation(app, fmt.Sprintf("%s was rejected. Reason: %s", key, reason))
		app.UpdatedAt = now
		return
	}

	idOK := processed(app.Documents.IDDocument)
	addressOK := processed(app.Documents.AddressProof)
	switch {
	case idOK && addressOK:
		app.Status = StatusPendingSelfie
		app.Explanations = []string{"All documents processed. Please proceed to liveness check."}
	case idOK:
		app.Status = StatusPendingAddressProof
		app.Explanations = []string{"ID document processed. Please upload proof of address."}
	case addressOK:
		app.Status = StatusPendingIDDocument
		app.Explanations = []string{"Proof of address processed. Please upload an ID document."}
	default:
		app.Status = StatusPendingDocuments
	}
	app.UpdatedAt = now
}

// #endregion apply-document

// #region merge
// MergeExtractedData fuses the fields extracted from both documents into
// app.ExtractedData. Identity fields overwrite; the address proof only fills
// name and address when they are missing.
func MergeExtractedData(app *Application) {
	fused := maps.Clone(app.ExtractedData)
	if fused == nil {
		fused = map[string]string{}
	}

	if id := app.Documents.IDDocument; id != nil {
		maps.Copy(fused, id.ExtractedData)
	}

	if addr := app.Documents.AddressProof; addr != nil && addr.ExtractedData != nil {
		for _, k := range []string{"name", "address"} {
			if _, ok := fused[k]; !ok {
				fused[k] = addr.ExtractedData[k]
			}
		}
		fused["address_issue_date"] = addr.ExtractedData["issue_date"]
		fused["address_provider"] = addr.ExtractedData["provider"]
	}

	app.ExtractedData = fused
}

// #endregion merge

// #region apply-selfie
// ApplySelfie records biometric verification. Only valid once both documents
// are processed.
func ApplySelfie(app *Application, filePath string, res intel.BiometricResult, now time.Time) error {
	if app.Status != StatusPendingSelfie {
		return fmt.Errorf("%w: cannot upload selfie, application status is '%s'", ErrInvalidTransition, app.Status)
	}

	app.Selfie = &Selfie{
		FilePath:   filePath,
		UploadedAt: now,
		Status:     res.Status,
		Analysis:   res,
	}

	if res.Status == intel.StatusClear {
		app.Status = StatusPendingRiskAnalysis
		app.Explanations = []string{
			"ID document processed.",
			"Address proof processed.",
			"Biometric verification successful.",
			"Proceeding to final risk analysis.",
		}
	} else {
		reason := res.Reason
		if reason == "" {
			reason = "Selfie processed."
		}
		appendExplanation(app, reason)
		status := res.Status
		if status == "" {
			status = "SELFIE"
		}
		app.Status = Status("REJECTED_" + strings.TrimPrefix(status, "REJECTED_"))
	}
	app.UpdatedAt = now
	return nil
}

// #endregion apply-selfie

// #region apply-risk
// ApplyRiskAnalysis stores the final decision. Only valid after a clear selfie.
func ApplyRiskAnalysis(app *Application, res intel.RiskResult, now time.Time) error {
	if app.Status != StatusPendingRiskAnalysis {
		return fmt.Errorf("%w: cannot analyze, application status is '%s'", ErrInvalidTransition, app.Status)
	}

	score := res.RiskScore
	app.RiskAnalysis = &res
	app.RiskScore = &score
	app.Status = Status(res.Decision)
	app.Explanations = slices.Clone(res.XAIExplanations)
	app.UpdatedAt = now
	return nil
}

// RiskInputFor collects what risk analysis needs from app.
func RiskInputFor(app *Application) intel.RiskInput {
	in := intel.RiskInput{
		ApplicationID: app.ID,
		ExtractedData: app.ExtractedData,
	}
	if d := app.Documents.IDDocument; d != nil {
		f := d.Forensics
		in.IDForensics = &f
	}
	if d := app.Documents.AddressProof; d != nil {
		f := d.Forensics
		in.AddressForensics = &f
	}
	if app.Selfie != nil {
		b := app.Selfie.Analysis
		in.Biometrics = &b
	}
	return in
}

// #endregion apply-risk

// #region helpers
func processed(d *Document) bool {
	return d != nil && d.Status == documentProcessed
}

func appendExplanation(app *Application, explanation string) {
	if !slices.Contains(app.Explanations, explanation) {
		app.Explanations = append(app.Explanations, explanation)
	}
}

// #endregion helpers
