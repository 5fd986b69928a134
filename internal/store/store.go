// Package store persists verification applications and capture attempts in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
	"github.com/danielpatrickdp/smartkyc/internal/intel"
	"github.com/danielpatrickdp/smartkyc/internal/kyc"
)

// TimeLayout is the fixed-width UTC layout of every stored timestamp, so
// TEXT ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store manages applications and capture attempts in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// Open opens the SQLite database at path and applies migrations.
// The pool is limited to one connection so per-connection pragmas hold and
// ":memory:" databases are shared by every query.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region applications
// CreateApplication inserts a new application.
func (s *Store) CreateApplication(app *kyc.Application) error {
	body, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO applications (application_id, status, created_at, updated_at, body)
		 VALUES (?, ?, ?, ?, ?)`,
		app.ID, string(app.Status), formatTime(app.CreatedAt), formatTime(app.UpdatedAt), string(body),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication reads one application. Unknown IDs return kyc.ErrNotFound.
func (s *Store) GetApplication(id string) (*kyc.Application, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM applications WHERE application_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get application %s: %w", id, kyc.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return decodeApplication(body)
}

// SaveApplication overwrites an existing application.
func (s *Store) SaveApplication(app *kyc.Application) error {
	body, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE applications SET status = ?, updated_at = ?, body = ? WHERE application_id = ?`,
		string(app.Status), formatTime(app.UpdatedAt), string(body), app.ID,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update application %s: %w", app.ID, kyc.ErrNotFound)
	}
	return nil
}

// ListApplications returns the most recently created applications.
func (s *Store) ListApplications(limit int) ([]*kyc.Application, error) {
	rows, err := s.db.Query(
		`SELECT body FROM applications ORDER BY created_at DESC, application_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []*kyc.Application
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		app, err := decodeApplication(body)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// #endregion applications

// #region captures
// RecordCapture stores one gate evaluation. An empty ID is filled in.
func (s *Store) RecordCapture(c kyc.CaptureAttempt) (kyc.CaptureAttempt, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO capture_attempts (id, application_id, document_type, blur, glare, shadow, coverage, accepted, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullIfEmpty(c.ApplicationID), nullIfEmpty(string(c.DocumentType)),
		c.Metrics.Blur, c.Metrics.Glare, c.Metrics.Shadow, c.Metrics.Coverage,
		c.Verdict.Accepted, nullIfEmpty(string(c.Verdict.Reason)), formatTime(c.CreatedAt),
	)
	if err != nil {
		return kyc.CaptureAttempt{}, fmt.Errorf("insert capture: %w", err)
	}
	return c, nil
}

// ListCaptures returns the newest capture attempts for appID, or for all
// applications when appID is empty.
func (s *Store) ListCaptures(appID string, limit int) ([]kyc.CaptureAttempt, error) {
	query := `SELECT id, application_id, document_type, blur, glare, shadow, coverage, accepted, reason, created_at
		FROM capture_attempts`
	args := []interface{}{}
	if appID != "" {
		query += ` WHERE application_id = ?`
		args = append(args, appID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var captures []kyc.CaptureAttempt
	for rows.Next() {
		var c kyc.CaptureAttempt
		var appIDCol, docType, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&c.ID, &appIDCol, &docType,
			&c.Metrics.Blur, &c.Metrics.Glare, &c.Metrics.Shadow, &c.Metrics.Coverage,
			&c.Verdict.Accepted, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		c.ApplicationID = appIDCol.String
		c.DocumentType = intel.DocumentType(docType.String)
		c.Verdict.Reason = gate.ReasonCode(reason.String)
		c.Verdict.Message = c.Verdict.Reason.Message()
		c.CreatedAt, _ = time.Parse(TimeLayout, createdStr)
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// #endregion captures

// #region helpers
func decodeApplication(body string) (*kyc.Application, error) {
	var app kyc.Application
	if err := json.Unmarshal([]byte(body), &app); err != nil {
		return nil, fmt.Errorf("unmarshal application: %w", err)
	}
	return &app, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
