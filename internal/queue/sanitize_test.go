package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSanitizeJobDataPassesScalars(t *testing.T) {
	out, err := SanitizeJobData(map[string]interface{}{
		"s":    "hello",
		"b":    true,
		"i":    42,
		"f":    1.5,
		"none": nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["s"] != "hello" || out["b"] != true || out["i"] != 42 || out["f"] != 1.5 {
		t.Errorf("scalars changed: %#v", out)
	}
	if v, ok := out["none"]; !ok || v != nil {
		t.Errorf("nil should survive as nil, got %#v", v)
	}
}

func TestSanitizeJobDataConvertsTimestamps(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	out, err := SanitizeJobData(map[string]interface{}{
		"at":  ts,
		"ptr": &ts,
		"nil": (*time.Time)(nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2025-03-01T12:00:00Z"
	if out["at"] != want {
		t.Errorf("at = %v, want %s", out["at"], want)
	}
	if out["ptr"] != want {
		t.Errorf("ptr = %v, want %s", out["ptr"], want)
	}
	if out["nil"] != nil {
		t.Errorf("nil time pointer should become nil, got %v", out["nil"])
	}
}

func TestSanitizeJobDataStringifiesIDs(t *testing.T) {
	id := uuid.New()
	out, err := SanitizeJobData(map[string]interface{}{"id": id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["id"] != id.String() {
		t.Errorf("id = %v, want %s", out["id"], id.String())
	}
}

func TestSanitizeJobDataRejectsBinary(t *testing.T) {
	_, err := SanitizeJobData(map[string]interface{}{"blob": []byte{0x1, 0x2}})
	if !errors.Is(err, ErrBinaryPayload) {
		t.Fatalf("expected ErrBinaryPayload, got %v", err)
	}
}

func TestSanitizeJobDataRejectsBinaryNested(t *testing.T) {
	_, err := SanitizeJobData(map[string]interface{}{
		"outer": map[string]interface{}{
			"list": []interface{}{"ok", []byte("nope")},
		},
	})
	if !errors.Is(err, ErrBinaryPayload) {
		t.Fatalf("expected ErrBinaryPayload, got %v", err)
	}
}

func TestSanitizeJobDataRejectsUnsupportedTypes(t *testing.T) {
	_, err := SanitizeJobData(map[string]interface{}{"ch": make(chan int)})
	if err == nil {
		t.Fatal("expected error for channel value")
	}
}

func TestSanitizeJobDataRecursesNested(t *testing.T) {
	ts := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	out, err := SanitizeJobData(map[string]interface{}{
		"meta": map[string]interface{}{
			"sentAt": ts,
			"tags":   []interface{}{"a", 1, ts},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the whole result must round-trip through JSON
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("sanitized data did not marshal: %v", err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("sanitized data did not unmarshal: %v", err)
	}

	meta := out["meta"].(map[string]interface{})
	if meta["sentAt"] != "2025-06-10T08:30:00Z" {
		t.Errorf("nested timestamp = %v", meta["sentAt"])
	}
	tags := meta["tags"].([]interface{})
	if tags[2] != "2025-06-10T08:30:00Z" {
		t.Errorf("timestamp in slice = %v", tags[2])
	}
}

func TestSafeNonNegative(t *testing.T) {
	if got := safeNonNegative(-5, 3); got != 3 {
		t.Errorf("safeNonNegative(-5, 3) = %d", got)
	}
	if got := safeNonNegative(7, 3); got != 7 {
		t.Errorf("safeNonNegative(7, 3) = %d", got)
	}
	if got := safeDelay(-time.Second); got != 0 {
		t.Errorf("safeDelay(-1s) = %v", got)
	}
}
