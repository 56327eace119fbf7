// Package store provides the SQLite persistence layer for the company
// core: one database file for channels, members, and messages, and one for
// task threads, logs, and dependency edges.
//
// Both files run in WAL mode with foreign keys enforced. Schema creation is
// idempotent on open. Readers are unrestricted; SQLite serializes writers
// internally. Channel creation, task creation, and task updates each run in
// a single transaction. A task heartbeat with a message does not: the
// heartbeat stamp and the heartbeat log entry are two separate writes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the database file at path with WAL
// journaling, enforced foreign keys, and a busy timeout so concurrent
// writers queue instead of failing immediately.
func Open(path string) (*sql.DB, error) {
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	return db, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// encodeMeta serializes a metadata map to its TEXT column form. Nil maps
// store as NULL.
func encodeMeta(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("store: encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// decodeMeta parses a metadata TEXT column. NULL decodes to nil.
func decodeMeta(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode string list: %w", err)
	}
	return string(raw), nil
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	if len(v) == 0 {
		return nil
	}
	return v
}
