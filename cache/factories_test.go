package cache

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/huykn/livecache/codec"
)

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}

	// These should not panic
	logger.Debug("test message", "key", "value")
	logger.Info("test message")
	logger.Warn("test message", nil)
	logger.Error("test message", "key")
}

func TestConsoleLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		log   func(Logger)
	}{
		{"[DEBUG]", func(l Logger) { l.Debug("message", "event", "orders") }},
		{"[INFO]", func(l Logger) { l.Info("message", "event", "orders") }},
		{"[WARN]", func(l Logger) { l.Warn("message", "event", "orders") }},
		{"[ERROR]", func(l Logger) { l.Error("message", "event", "orders") }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewConsoleLoggerTo(&buf, "TestPrefix"))

			output := buf.String()
			for _, want := range []string{tt.level, "TestPrefix", "message", "event=orders"} {
				if !strings.Contains(output, want) {
					t.Errorf("Expected %q in output, got: %s", want, output)
				}
			}
			if !strings.HasSuffix(output, "\n") {
				t.Errorf("Expected trailing newline, got: %q", output)
			}
		})
	}
}

func TestConsoleLoggerOddArgs(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleLoggerTo(&buf, "p").Info("msg", "key", "value", "dangling")

	if !strings.Contains(buf.String(), "key=value dangling") {
		t.Fatalf("Unexpected output: %s", buf.String())
	}
}

func TestNewMarshaller(t *testing.T) {
	for _, format := range []string{codec.FormatJSON, codec.FormatMsgpack, codec.FormatCBOR} {
		m, err := NewMarshaller(format)
		if err != nil {
			t.Fatalf("NewMarshaller(%q) failed: %v", format, err)
		}

		data, err := m.Marshal(Message{Type: "data", Action: ActionUpsert, Data: Record{"id": "a"}})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var msg Message
		if err := m.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if msg.Action != ActionUpsert {
			t.Fatalf("%s: expected action upsert, got %q", format, msg.Action)
		}
	}

	if _, err := NewMarshaller("xml"); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
}
