package models

import (
	"strconv"
	"time"
)

// EventTypeProcessStop is the only event subtype mapped into a graph today.
const EventTypeProcessStop = "process_stop"

// RawEvent is one host-telemetry record as delivered by the event feed.
// ProcessID and Timestamp are pointers so a missing field can be told apart
// from a zero value.
type RawEvent struct {
	Type      string  `json:"type,omitempty"`
	ProcessID *uint64 `json:"process_id,omitempty"`
	Name      string  `json:"name"`
	Hostname  string  `json:"hostname"`
	Timestamp *uint64 `json:"timestamp,omitempty"`
}

// NewProcessStop returns a fully populated process-stop event.
func NewProcessStop(processID uint64, name, hostname string, timestamp uint64) *RawEvent {
	return &RawEvent{
		Type:      EventTypeProcessStop,
		ProcessID: &processID,
		Name:      name,
		Hostname:  hostname,
		Timestamp: &timestamp,
	}
}

// EventType returns the subtype, treating an empty type as process_stop.
func (e *RawEvent) EventType() string {
	if e == nil || e.Type == "" {
		return EventTypeProcessStop
	}
	return e.Type
}

// Field returns a field value as a string, or "" when absent.
func (e *RawEvent) Field(name string) string {
	if e == nil {
		return ""
	}
	switch name {
	case "type":
		return e.EventType()
	case "process_id":
		if e.ProcessID == nil {
			return ""
		}
		return strconv.FormatUint(*e.ProcessID, 10)
	case "name":
		return e.Name
	case "hostname":
		return e.Hostname
	case "timestamp":
		if e.Timestamp == nil {
			return ""
		}
		return strconv.FormatUint(*e.Timestamp, 10)
	default:
		return ""
	}
}

// Time converts the event timestamp (milliseconds since the epoch) to a time.
func (e *RawEvent) Time() time.Time {
	if e == nil || e.Timestamp == nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(*e.Timestamp)).UTC()
}
