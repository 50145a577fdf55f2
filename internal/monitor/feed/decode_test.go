package feed

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		wantIDs   []int64
		discarded int
		wantErr   bool
	}{
		{name: "single object", frame: `{"bus_id":7,"speed":30}`, wantIDs: []int64{7}},
		{name: "array", frame: `[{"bus_id":3,"speed":10},{"bus_id":3,"speed":20}]`, wantIDs: []int64{3, 3}},
		{name: "object without bus_id", frame: `{"speed":30}`, discarded: 1},
		{name: "null bus_id", frame: `{"bus_id":null}`, discarded: 1},
		{name: "array drops bad records", frame: `[{"bus_id":1},{"speed":2},{"bus_id":"x"},42,{"bus_id":4}]`, wantIDs: []int64{1, 4}, discarded: 3},
		{name: "empty array", frame: ` [] `},
		{name: "not json", frame: `bus 7 at 37.5`, wantErr: true},
		{name: "truncated", frame: `{"bus_id":7`, wantErr: true},
		{name: "empty", frame: ``, wantErr: true},
		{name: "scalar", frame: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, discarded, err := Decode([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("Decode() error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if discarded != tt.discarded {
				t.Errorf("discarded = %d, want %d", discarded, tt.discarded)
			}
			if len(updates) != len(tt.wantIDs) {
				t.Fatalf("got %d updates, want %d", len(updates), len(tt.wantIDs))
			}
			for i, u := range updates {
				if *u.BusID != tt.wantIDs[i] {
					t.Errorf("update %d bus_id = %d, want %d", i, *u.BusID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestDecodeKeepsOrderAndAbsentFields(t *testing.T) {
	updates, _, err := Decode([]byte(`[{"bus_id":3,"speed":10},{"bus_id":3,"speed":20,"driver_name":null}]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *updates[0].Speed != 10 || *updates[1].Speed != 20 {
		t.Errorf("speeds = %v, %v, want 10, 20", *updates[0].Speed, *updates[1].Speed)
	}
	if updates[1].DriverName != nil || updates[1].Latitude != nil {
		t.Error("absent or null fields decoded as present")
	}
}
