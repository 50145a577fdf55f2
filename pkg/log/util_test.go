package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestToFields(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		keys []string
	}{
		{"empty", nil, nil},
		{"pairs", []any{"bus_id", int64(7), "speed", 31.5, "stale", true}, []string{"bus_id", "speed", "stale"}},
		{"durations and times", []any{"interval", 3 * time.Second, "at", time.Unix(0, 0)}, []string{"interval", "at"}},
		{"bare error", []any{errors.New("boom"), "bus_id", 1}, []string{"error", "bus_id"}},
		{"named error", []any{"cause", errors.New("boom")}, []string{"cause"}},
		{"zap field passthrough", []any{zap.String("route", "7016"), "n", 2}, []string{"route", "n"}},
		{"dangling value", []any{"bus_id", 1, "orphan"}, []string{"bus_id", badKey}},
		{"non-string key", []any{42, "answer"}, []string{"42"}},
		{"nil value", []any{"selection", nil}, []string{"selection"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.in...)
			if len(fields) != len(tt.keys) {
				t.Fatalf("toFields() returned %d fields, want %d", len(fields), len(tt.keys))
			}
			for i, f := range fields {
				if f.Key != tt.keys[i] {
					t.Errorf("field[%d].Key = %q, want %q", i, f.Key, tt.keys[i])
				}
			}
		})
	}
}
