package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventIngestStart    AuditEventType = "ingest.start"
	AuditEventIngestComplete AuditEventType = "ingest.complete"
	AuditEventIngestError    AuditEventType = "ingest.error"
	AuditEventUploadComplete AuditEventType = "upload.complete"
	AuditEventChatRequest    AuditEventType = "chat.request"
	AuditEventChatError      AuditEventType = "chat.error"
	AuditEventWebhookResync  AuditEventType = "webhook.resync"
	AuditEventWebhookIgnored AuditEventType = "webhook.ignored"
)

// AuditEvent is a single audit log entry, one JSON object per line.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType AuditEventType    `json:"event_type"`
	SessionID string            `json:"session_id"`
	ContextID string            `json:"context_id,omitempty"`
	Success   bool              `json:"success"`
	Duration  time.Duration     `json:"duration_ms,omitempty"`
	Message   string            `json:"message,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLogger appends audit events to a JSONL file. A nil logger is
// valid and drops every event.
type AuditLogger struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
}

// NewAuditLogger opens (or creates) the audit file in append mode.
func NewAuditLogger(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &AuditLogger{file: f, sessionID: uuid.NewString()}, nil
}

// Log writes one event. Safe for concurrent use.
func (a *AuditLogger) Log(eventType AuditEventType, contextID string, success bool, message string, details map[string]string) {
	if a == nil {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: a.sessionID,
		ContextID: contextID,
		Success:   success,
		Message:   message,
		Details:   details,
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.file.Write(append(line, '\n'))
}

// Close flushes and closes the underlying file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
