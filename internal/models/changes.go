package models

import "time"

// ChangeKind classifies a detected transition.
type ChangeKind string

const (
	ChangeNew     ChangeKind = "new"
	ChangeUpdate  ChangeKind = "update"
	ChangeRemoved ChangeKind = "removed"
)

// AlertKind classifies an alert-worthy condition attached to a change.
type AlertKind string

const (
	AlertPriceDrop    AlertKind = "price_drop"
	AlertAvailability AlertKind = "availability"
)

// FieldChange holds the old and new value of one tracked field.
// Values are the field's natural type, or nil for absent.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Alert is a flagged condition evaluated from a change record.
// Delivery is the notifier's concern; the detector only flags.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
	PctDrop float64   `json:"pct_drop,omitempty"`
}

// ChangeRecord is an immutable, append-only record of one detected
// transition. Ordering is by DetectedAt, ties broken by insertion order.
type ChangeRecord struct {
	SourceURL     string                 `json:"source_url"`
	Kind          ChangeKind             `json:"change_type"`
	ChangedFields map[string]FieldChange `json:"changed_fields"`
	OldSnapshot   *Book                  `json:"old_snapshot"`
	NewSnapshot   *Book                  `json:"new_snapshot"`
	DetectedAt    time.Time              `json:"detected_at"`

	// Alerts are evaluated after the record is persisted and travel only
	// with the in-memory batch handed to sinks.
	Alerts []Alert `json:"alerts,omitempty"`
}

// CreationMarker is the changed-fields map used for "new" records.
func CreationMarker() map[string]FieldChange {
	return map[string]FieldChange{"created": {Old: nil, New: true}}
}

// CycleSummary aggregates the outcome of one discovery + detection cycle.
type CycleSummary struct {
	NewCount    int
	UpdateCount int
}
