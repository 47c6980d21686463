package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readEntries(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestFileAuditLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	logger := NewFileAuditLogger(path)
	logger.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	defer logger.Close()

	if err := logger.LogAction(ActionAssistantCommand, "summarize", nil, nil,
		map[string]string{"state": "failed", "degraded": "true"}); err != nil {
		t.Fatalf("LogAction() error = %v", err)
	}
	if err := logger.LogAction(ActionClearBuffer, "", map[string]uint64{"generation": 3}, map[string]uint64{"generation": 4}, nil); err != nil {
		t.Fatalf("LogAction() error = %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	cmd := entries[0]
	if cmd.Action != ActionAssistantCommand || cmd.ResourceID != "summarize" {
		t.Errorf("unexpected command entry: %+v", cmd)
	}
	if cmd.Fields["degraded"] != "true" {
		t.Errorf("degraded = %q, want true", cmd.Fields["degraded"])
	}
	if !cmd.Timestamp.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", cmd.Timestamp)
	}

	cleared := entries[1]
	if cleared.Action != ActionClearBuffer {
		t.Errorf("action = %q, want %q", cleared.Action, ActionClearBuffer)
	}
	after, ok := cleared.After.(map[string]interface{})
	if !ok || after["generation"] != float64(4) {
		t.Errorf("after = %v, want generation 4", cleared.After)
	}
}

func TestNopAuditLogger(t *testing.T) {
	var l AuditLogger = NopAuditLogger{}
	if err := l.LogAction(ActionClearBuffer, "", nil, nil, nil); err != nil {
		t.Errorf("NopAuditLogger.LogAction() error = %v", err)
	}
}
