// Package orchestrator runs a verification application through capture,
// document intelligence, biometrics and risk analysis.
package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/smartkyc/internal/analysis"
	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
	"github.com/danielpatrickdp/smartkyc/internal/kyc"
	"github.com/danielpatrickdp/smartkyc/internal/logging"
	"github.com/danielpatrickdp/smartkyc/internal/store"
)

// #endregion

// #region service-struct

// Service is the top-level coordinator for applications. Every
// read-modify-write of an application holds that application's lock.
type Service struct {
	store    *store.Store
	analyzer analysis.Analyzer
	gate     *gate.Gate
	intel    *intel.Engine
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*appLock
}

// appLock is dropped from the map once no caller holds or waits on it.
type appLock struct {
	mu   sync.Mutex
	refs int
}

// #endregion

// #region constructor

// NewService wires a service. A nil gate uses the default thresholds.
func NewService(st *store.Store, analyzer analysis.Analyzer, g *gate.Gate, engine *intel.Engine) *Service {
	if g == nil {
		g = gate.NewGate(gate.DefaultThresholds())
	}
	return &Service{
		store:    st,
		analyzer: analyzer,
		gate:     g,
		intel:    engine,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[string]*appLock),
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Gate returns the gate the service evaluates captures with.
func (s *Service) Gate() *gate.Gate {
	return s.gate
}

// #endregion

// #region applications

// Start creates a new application waiting for documents.
func (s *Service) Start(ctx context.Context) (*kyc.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	app := kyc.NewApplication(uuid.New().String(), s.now())
	if err := s.store.CreateApplication(app); err != nil {
		return nil, err
	}
	log.Printf("[orchestrator] start: app=%s", app.ID)
	return app, nil
}

// Get returns the stored application.
func (s *Service) Get(ctx context.Context, id string) (*kyc.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetApplication(id)
}

// Captures lists the capture attempts recorded for an application.
func (s *Service) Captures(ctx context.Context, id string, limit int) ([]kyc.CaptureAttempt, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListCaptures(id, limit)
}

// #endregion

// #region capture-document

// CaptureDocument analyzes a document frame and runs it through the quality
// gate. A rejected frame is recorded and returned with the unchanged
// application; the caller may retry any number of times. An accepted frame
// is handed to document intelligence and advances the workflow.
func (s *Service) CaptureDocument(ctx context.Context, id string, docType intel.DocumentType, fileName string, frame []byte) (CaptureResult, error) {
	unlock := s.lock(id)
	defer unlock()

	app, err := s.store.GetApplication(id)
	if err != nil {
		return CaptureResult{}, err
	}
	key, err := kyc.StorageKeyFor(docType)
	if err != nil {
		return CaptureResult{}, err
	}

	metrics, err := s.measure(ctx, frame)
	if err != nil {
		return CaptureResult{}, err
	}

	verdict := s.gate.Evaluate(metrics)
	attempt, err := s.record(app.ID, docType, metrics, verdict, "capture")
	if err != nil {
		return CaptureResult{}, err
	}
	log.Printf("[orchestrator] capture: app=%s doc=%s accepted=%v reason=%s",
		app.ID, docType, verdict.Accepted, verdict.Reason)

	if !verdict.Accepted {
		return CaptureResult{Application: app, Attempt: attempt, Verdict: verdict}, nil
	}

	res, err := s.intel.ProcessDocument(ctx, docType, fileName)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("document intelligence: %w", err)
	}

	kyc.ApplyDocument(app, key, docType, uploadPath(app.ID, fileName), res, metrics, s.now())
	if err := s.store.SaveApplication(app); err != nil {
		return CaptureResult{}, err
	}
	s.provenance(logging.ProvenanceEntry{
		ApplicationID: app.ID,
		Stage:         logging.StageDocument,
		TriggerType:   "upload",
		Decision:      res.Forensics.Status,
		Reason:        res.Forensics.Reason,
	})

	return CaptureResult{Application: app, Attempt: attempt, Verdict: verdict}, nil
}

// #endregion

// #region upload-selfie

// UploadSelfie runs biometric verification. The application must be waiting
// for a selfie.
func (s *Service) UploadSelfie(ctx context.Context, id, fileName string, triggerFail bool) (*kyc.Application, error) {
	unlock := s.lock(id)
	defer unlock()

	app, err := s.store.GetApplication(id)
	if err != nil {
		return nil, err
	}
	if app.Status != kyc.StatusPendingSelfie {
		return nil, fmt.Errorf("%w: cannot upload selfie, application status is '%s'", kyc.ErrInvalidTransition, app.Status)
	}

	res, err := s.intel.VerifyBiometrics(ctx, app.ID, fileName, triggerFail)
	if err != nil {
		return nil, fmt.Errorf("biometric verification: %w", err)
	}
	if err := kyc.ApplySelfie(app, uploadPath(app.ID, fileName), res, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveApplication(app); err != nil {
		return nil, err
	}

	log.Printf("[orchestrator] selfie: app=%s status=%s", app.ID, res.Status)
	s.provenance(logging.ProvenanceEntry{
		ApplicationID: app.ID,
		Stage:         logging.StageBiometrics,
		TriggerType:   "upload",
		Decision:      res.Status,
		Reason:        res.Reason,
	})
	return app, nil
}

// #endregion

// #region analyze

// Analyze runs the final risk analysis. The application must be waiting for
// it.
func (s *Service) Analyze(ctx context.Context, id string) (*kyc.Application, error) {
	unlock := s.lock(id)
	defer unlock()

	app, err := s.store.GetApplication(id)
	if err != nil {
		return nil, err
	}
	if app.Status != kyc.StatusPendingRiskAnalysis {
		return nil, fmt.Errorf("%w: cannot analyze, application status is '%s'", kyc.ErrInvalidTransition, app.Status)
	}

	res, err := s.intel.ScoreRisk(ctx, kyc.RiskInputFor(app))
	if err != nil {
		return nil, fmt.Errorf("risk analysis: %w", err)
	}
	if err := kyc.ApplyRiskAnalysis(app, res, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveApplication(app); err != nil {
		return nil, err
	}

	log.Printf("[orchestrator] analyze: app=%s decision=%s score=%d", app.ID, res.Decision, res.RiskScore)
	s.provenance(logging.ProvenanceEntry{
		ApplicationID: app.ID,
		Stage:         logging.StageRisk,
		TriggerType:   "analyze",
		Decision:      string(res.Decision),
		Reason:        fmt.Sprintf("risk_score=%d", res.RiskScore),
	})
	return app, nil
}

// #endregion

// #region stateless

// EvaluateMetrics runs caller-supplied metrics through the gate.
func (s *Service) EvaluateMetrics(ctx context.Context, m gate.Metrics) (gate.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return gate.Verdict{}, err
	}
	if err := m.Validate(); err != nil {
		return gate.Verdict{}, err
	}
	v := s.gate.Evaluate(m)
	if _, err := s.record("", "", m, v, "evaluate"); err != nil {
		return gate.Verdict{}, err
	}
	return v, nil
}

// AnalyzeFrame measures a frame and runs it through the gate without touching
// any application.
func (s *Service) AnalyzeFrame(ctx context.Context, frame []byte) (FrameResult, error) {
	m, err := s.measure(ctx, frame)
	if err != nil {
		return FrameResult{}, err
	}
	v := s.gate.Evaluate(m)
	if _, err := s.record("", "", m, v, "analyze"); err != nil {
		return FrameResult{}, err
	}
	return FrameResult{Metrics: m, Verdict: v}, nil
}

// #endregion

// #region helpers

func (s *Service) measure(ctx context.Context, frame []byte) (gate.Metrics, error) {
	m, err := s.analyzer.Analyze(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return gate.Metrics{}, ctx.Err()
		}
		return gate.Metrics{}, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if err := m.Validate(); err != nil {
		return gate.Metrics{}, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	return m, nil
}

// record stores the capture attempt and its provenance row.
func (s *Service) record(appID string, docType intel.DocumentType, m gate.Metrics, v gate.Verdict, trigger string) (kyc.CaptureAttempt, error) {
	attempt, err := s.store.RecordCapture(kyc.CaptureAttempt{
		ApplicationID: appID,
		DocumentType:  docType,
		Metrics:       m,
		Verdict:       v,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return kyc.CaptureAttempt{}, err
	}

	rec := logging.NewQualityRecord(m, s.gate.Thresholds(), v)
	rec.CaptureID = attempt.ID
	rec.ApplicationID = appID
	rec.DocumentType = string(docType)
	entry, err := logging.QualityEntry(rec, trigger)
	if err != nil {
		log.Printf("[orchestrator] logging error: %v", err)
		return attempt, nil
	}
	entry.CreatedAt = attempt.CreatedAt
	s.provenance(entry)
	return attempt, nil
}

func (s *Service) provenance(entry logging.ProvenanceEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := logging.LogDecision(s.store.DB(), entry); err != nil {
		log.Printf("[orchestrator] logging error: %v", err)
	}
}

// lock serializes work on one application and returns the unlock func.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &appLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func uploadPath(appID, fileName string) string {
	return path.Join("uploads", appID, path.Base(fileName))
}

// #endregion
