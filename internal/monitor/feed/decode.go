package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
)

// ErrMalformedFrame is returned for frames that are neither a JSON object nor an array.
var ErrMalformedFrame = errors.New("malformed telemetry frame")

// Decode normalizes a telemetry frame into a list of updates. A frame holds a
// single record or an array of records. Records that fail to decode or lack a
// bus_id are discarded individually; discarded reports how many.
func Decode(frame []byte) (updates []model.VehicleUpdate, discarded int, err error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, 0, ErrMalformedFrame
	}

	switch frame[0] {
	case '{':
		var u model.VehicleUpdate
		if err := json.Unmarshal(frame, &u); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		if u.BusID == nil {
			return nil, 1, nil
		}
		return []model.VehicleUpdate{u}, 0, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(frame, &raw); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		updates = make([]model.VehicleUpdate, 0, len(raw))
		for _, r := range raw {
			var u model.VehicleUpdate
			if err := json.Unmarshal(r, &u); err != nil || u.BusID == nil {
				discarded++
				continue
			}
			updates = append(updates, u)
		}
		return updates, discarded, nil
	}

	return nil, 0, ErrMalformedFrame
}
