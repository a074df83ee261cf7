// Package audit appends immutable change-log entries for every mutation.
// Writes are best-effort: a failed audit insert is logged but never rolls
// back the mutation it documents.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"asset-inventory-api/internal/models"
	"asset-inventory-api/internal/store"
)

// validActions is the closed action vocabulary. Anything else is a
// programming error, not a data error.
var validActions = map[string]bool{
	"insert": true,
	"update": true,
	"delete": true,
	"login":  true,
	"logout": true,
	"import": true,
	"export": true,
}

type Recorder struct {
	log *zap.SugaredLogger
}

func NewRecorder(log *zap.SugaredLogger) *Recorder {
	return &Recorder{log: log}
}

// Entry builds an audit entry from an actor and the change snapshots.
func Entry(tableName string, recordID int64, action string, oldValues, newValues models.JSONB, actor models.Actor) models.AuditEntry {
	e := models.AuditEntry{
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		OldValues: oldValues,
		NewValues: newValues,
		UserID:    actor.UserID,
	}
	if actor.IPAddress != "" {
		e.IPAddress = &actor.IPAddress
	}
	if actor.UserAgent != "" {
		e.UserAgent = &actor.UserAgent
	}
	if actor.RequestMethod != "" {
		e.RequestMethod = &actor.RequestMethod
	}
	if actor.RequestURI != "" {
		e.RequestURI = &actor.RequestURI
	}
	return e
}

// Record appends one audit row. Panics on an action outside the closed
// vocabulary, since that can only come from a coding mistake.
func (r *Recorder) Record(ctx context.Context, q store.Querier, e models.AuditEntry) error {
	if !validActions[e.Action] {
		panic(fmt.Sprintf("audit: invalid action %q", e.Action))
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (
			table_name, record_id, action, old_values, new_values,
			user_id, ip_address, user_agent, request_method, request_uri
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.TableName, e.RecordID, e.Action, e.OldValues, e.NewValues,
		e.UserID, e.IPAddress, e.UserAgent, e.RequestMethod, e.RequestURI,
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// RecordBestEffort logs a failed write instead of propagating it.
func (r *Recorder) RecordBestEffort(ctx context.Context, q store.Querier, e models.AuditEntry) {
	if err := r.Record(ctx, q, e); err != nil {
		r.log.Warnw("audit write failed",
			"table", e.TableName,
			"record_id", e.RecordID,
			"action", e.Action,
			"error", err,
		)
	}
}

// List returns a page of audit entries, newest first, with the total count.
func (r *Recorder) List(ctx context.Context, q store.Querier, page, perPage int) ([]models.AuditEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, table_name, record_id, action, old_values, new_values,
		       user_id, ip_address, user_agent, request_method, request_uri, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var userID sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.TableName, &e.RecordID, &e.Action, &e.OldValues, &e.NewValues,
			&userID, &e.IPAddress, &e.UserAgent, &e.RequestMethod, &e.RequestURI, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
