// Package analytics provides a fire-and-forget usage event sink for MCP
// queries and index runs.
//
// Events are appended as JSON lines to ~/.axon/events.jsonl. All errors
// are silently swallowed so that a logging failure never affects callers.
package analytics

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	dotDir     = ".axon"
	eventsFile = "events.jsonl"
)

// LogEvent appends a JSON event line to ~/.axon/events.jsonl. kind is the
// event category ("query", "context", "impact", or "index"); fields holds
// arbitrary caller-supplied key/value pairs merged into the record.
//
// Never raises. Any I/O or serialization failure is logged at Debug level.
func LogEvent(kind string, fields map[string]any) {
	event := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		event[k] = v
	}
	event["ts"] = time.Now().UTC().Format(time.RFC3339)
	event["type"] = kind

	line, err := json.Marshal(event)
	if err != nil {
		slog.Debug("failed to marshal analytics event", "type", kind, "error", err)
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("failed to resolve home directory for analytics event", "error", err)
		return
	}

	eventsPath := filepath.Join(home, dotDir, eventsFile)
	if err := os.MkdirAll(filepath.Dir(eventsPath), 0o755); err != nil {
		slog.Debug("failed to create analytics directory", "path", filepath.Dir(eventsPath), "error", err)
		return
	}

	f, err := os.OpenFile(eventsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Debug("failed to open analytics events file", "path", eventsPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Debug("failed to append analytics event", "path", eventsPath, "error", err)
	}
}
