package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (application_id, stage, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.ApplicationID),
		entry.Stage,
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region quality-entry
// QualityEntry builds the provenance entry for one gate evaluation.
func QualityEntry(rec QualityRecord, trigger string) (ProvenanceEntry, error) {
	signals, err := json.Marshal(rec)
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal quality record: %w", err)
	}
	decision := "reject"
	if rec.Accepted {
		decision = "accept"
	}
	return ProvenanceEntry{
		ApplicationID: rec.ApplicationID,
		Stage:         StageQualityGate,
		TriggerType:   trigger,
		SignalsJSON:   string(signals),
		Decision:      decision,
		Reason:        string(rec.Reason),
	}, nil
}

// DecodeQualityRecord parses signals_json written by QualityEntry.
func DecodeQualityRecord(signalsJSON string) (QualityRecord, error) {
	var rec QualityRecord
	if err := json.Unmarshal([]byte(signalsJSON), &rec); err != nil {
		return QualityRecord{}, fmt.Errorf("unmarshal quality record: %w", err)
	}
	return rec, nil
}

// NewQualityRecord fills a record from a gate evaluation.
func NewQualityRecord(m gate.Metrics, t gate.Thresholds, v gate.Verdict) QualityRecord {
	return QualityRecord{
		Metrics:    m,
		Thresholds: t,
		Accepted:   v.Accepted,
		Reason:     v.Reason,
	}
}

// #endregion quality-entry

// #region list-decisions
// ListDecisions returns provenance rows oldest first. An empty appID lists
// every application; an empty stage lists every stage.
func ListDecisions(db *sql.DB, appID, stage string, limit int) ([]ProvenanceEntry, error) {
	query := `SELECT id, application_id, stage, trigger_type, signals_json, decision, reason, created_at
		FROM provenance_log WHERE 1=1`
	var args []interface{}
	if appID != "" {
		query += ` AND application_id = ?`
		args = append(args, appID)
	}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var app, signals, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &app, &e.Stage, &e.TriggerType, &signals, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.ApplicationID = app.String
		e.SignalsJSON = signals.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
