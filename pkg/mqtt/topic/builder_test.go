package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("fleet/v1/")

	if got, want := b.Build(SegmentStatus, "7"), "fleet/v1/status/7"; got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
	if got, want := b.BuildWildcard(SegmentTelemetry), "fleet/v1/telemetry/+"; got != want {
		t.Errorf("BuildWildcard() = %q, want %q", got, want)
	}
	if got, want := b.Shared("monitor").BuildWildcard(SegmentTelemetry), "$share/monitor/fleet/v1/telemetry/+"; got != want {
		t.Errorf("Shared().BuildWildcard() = %q, want %q", got, want)
	}
}

func TestBuilderID(t *testing.T) {
	b := NewBuilder("fleet/v1")

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"fleet/v1/telemetry/42", "42", true},
		{"fleet/v1/status/42", "", false},
		{"fleet/v1/telemetry/", "", false},
		{"fleet/v1/telemetry/42/raw", "", false},
		{"other/telemetry/42", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := b.ID(SegmentTelemetry, tt.topic)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ID(%q) = (%q, %v), want (%q, %v)", tt.topic, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
