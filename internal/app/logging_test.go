package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantLevel     logrus.Level
		wantJSON      bool
	}{
		{"debug", "json", logrus.DebugLevel, true},
		{"warn", "text", logrus.WarnLevel, false},
		{"loud", "", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := NewLogger(&buf, tt.level, tt.format)
		if logger.GetLevel() != tt.wantLevel {
			t.Errorf("NewLogger(%q).GetLevel() = %v, want %v", tt.level, logger.GetLevel(), tt.wantLevel)
		}

		logger.WithField("request_id", "req_1").Error("boom")
		var entry map[string]any
		isJSON := json.Unmarshal(buf.Bytes(), &entry) == nil
		if isJSON != tt.wantJSON {
			t.Errorf("format %q: JSON output = %v, want %v (%q)", tt.format, isJSON, tt.wantJSON, buf.String())
		}
		if isJSON && entry["request_id"] != "req_1" {
			t.Errorf("request_id field = %v", entry["request_id"])
		}
	}
}
