package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AuditEntry is one immutable change-log row. Entries are only ever
// appended; nothing updates or deletes them.
type AuditEntry struct {
	ID            int64     `json:"id"`
	TableName     string    `json:"table_name"`
	RecordID      int64     `json:"record_id"`
	Action        string    `json:"action"`
	OldValues     JSONB     `json:"old_values,omitempty"`
	NewValues     JSONB     `json:"new_values,omitempty"`
	UserID        *int64    `json:"user_id,omitempty"`
	IPAddress     *string   `json:"ip_address,omitempty"`
	UserAgent     *string   `json:"user_agent,omitempty"`
	RequestMethod *string   `json:"request_method,omitempty"`
	RequestURI    *string   `json:"request_uri,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Actor identifies who performed a mutation and on which request. It is
// passed explicitly into every mutating repository call instead of being
// read from ambient session state.
type Actor struct {
	UserID        *int64
	IPAddress     string
	UserAgent     string
	RequestMethod string
	RequestURI    string
}

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Snapshot converts any JSON-serializable value into a JSONB map, for
// audit before/after captures.
func Snapshot(v interface{}) JSONB {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m JSONB
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
