package topic

import (
	"fmt"
	"strings"
)

// Topic segments of the fleet protocol.
// Changing these values breaks compatibility with existing telemetry publishers.
const (
	// SegmentTelemetry carries raw vehicle telemetry (Vehicle -> Monitor).
	// Structure: {root}/telemetry/{busID}
	SegmentTelemetry = "telemetry"

	// SegmentStatus carries operational status transitions (Monitor -> subscribers).
	// Structure: {root}/status/{busID}
	SegmentStatus = "status"
)

// Wildcard is the MQTT single-level wildcard.
const Wildcard = "+"

// Builder encapsulates the logic for constructing MQTT topic strings.
type Builder struct {
	// root is the base namespace for all topics (e.g., "fleet/v1").
	root string

	// group, when set, turns subscriptions into shared subscriptions.
	group string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, "/")}
}

// Shared returns a builder whose wildcard topics use the $share/{group}/ prefix,
// so that several monitor replicas split one telemetry stream.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, group: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, segment, id)
}

// BuildWildcard returns the subscription filter matching every id of a segment.
func (b *Builder) BuildWildcard(segment string) string {
	t := b.Build(segment, Wildcard)
	if b.group != "" {
		return fmt.Sprintf("$share/%s/%s", b.group, t)
	}
	return t
}

// ID extracts the trailing identifier of a topic built for segment.
// It returns false when the topic does not belong to the segment.
func (b *Builder) ID(segment, t string) (string, bool) {
	prefix := b.root + "/" + segment + "/"
	if !strings.HasPrefix(t, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(t, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
