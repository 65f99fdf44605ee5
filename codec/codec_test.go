package codec

import (
	"errors"
	"testing"
)

type listing struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"", FormatJSON, FormatMsgpack, FormatCBOR} {
		m, err := ForFormat(format)
		if err != nil {
			t.Fatalf("ForFormat(%q) failed: %v", format, err)
		}
		if m == nil {
			t.Fatalf("ForFormat(%q) returned nil", format)
		}
	}

	_, err := ForFormat("xml")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRecordsDecodeAsStringMaps(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatMsgpack, FormatCBOR} {
		t.Run(format, func(t *testing.T) {
			m, err := ForFormat(format)
			if err != nil {
				t.Fatalf("ForFormat failed: %v", err)
			}

			data, err := m.Marshal(map[string]any{"type": "data", "data": map[string]any{"id": "1"}})
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result any
			if err := m.Unmarshal(data, &result); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			obj, ok := result.(map[string]any)
			if !ok {
				t.Fatalf("Expected map[string]any, got %T", result)
			}
			inner, ok := obj["data"].(map[string]any)
			if !ok {
				t.Fatalf("Expected nested map[string]any, got %T", obj["data"])
			}
			if inner["id"] != "1" {
				t.Fatalf("Expected id '1', got %v", inner["id"])
			}
		})
	}
}

func TestStructTagsShared(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatMsgpack, FormatCBOR} {
		t.Run(format, func(t *testing.T) {
			m, _ := ForFormat(format)

			data, err := m.Marshal(listing{ID: "l1", Title: "Yoga"})
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var generic map[string]any
			if err := m.Unmarshal(data, &generic); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if generic["id"] != "l1" {
				t.Fatalf("Expected key 'id' from json tag, got %v", generic)
			}

			var back listing
			if err := m.Unmarshal(data, &back); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if back.Title != "Yoga" {
				t.Fatalf("Expected title 'Yoga', got %q", back.Title)
			}
		})
	}
}
