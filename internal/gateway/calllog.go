package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CallRecord is one line in the LLM call log.
type CallRecord struct {
	Timestamp      int64  `json:"ts"`
	AgentID        string `json:"agentId,omitempty"`
	SessionKey     string `json:"sessionKey"`
	IdempotencyKey string `json:"idempotencyKey"`
	ChannelID      string `json:"channelId,omitempty"`
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	DurationMs     int64  `json:"durationMs"`
}

// CallLog appends JSON lines to an append-only file, one per outbound
// gateway call. Failures to write are logged and dropped — the call log is
// observability, never a gate on dispatch.
type CallLog struct {
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenCallLog opens (creating parent directories as needed) the JSONL call
// log at path.
func OpenCallLog(path string, logger *slog.Logger) (*CallLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gateway: create call log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("gateway: open call log: %w", err)
	}
	return &CallLog{file: f, logger: logger}, nil
}

// Record appends one record. Safe for concurrent use.
func (l *CallLog) Record(rec CallRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		l.logger.Warn("call log: marshal record", "error", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(raw, '\n')); err != nil {
		l.logger.Warn("call log: write record", "error", err)
	}
}

// Close closes the underlying file.
func (l *CallLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
