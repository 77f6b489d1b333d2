package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/herbtrace/ledger/internal/record"
)

// Timestamps are stored as RFC 3339 UTC strings with nanoseconds so
// digest recomputation after a reload sees the exact admitted instant.
const timeLayout = time.RFC3339Nano

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func marshalPayload(p record.Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", p.Kind(), err)
	}
	return string(data), nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// marshalOutcome renders an optional outcome as a nullable column.
// The genesis event carries no outcome.
func marshalOutcome(o *record.Outcome) (sql.NullString, error) {
	if o == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal outcome: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalOutcome(s sql.NullString) (*record.Outcome, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var o record.Outcome
	if err := json.Unmarshal([]byte(s.String), &o); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return &o, nil
}
