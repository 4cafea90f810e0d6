// Package events implements the in-process publish/subscribe bus the mirror
// engine reports progress on.
package events

import (
	"strings"
	"time"
)

// Event types emitted by the mirror engine and the score calculator.
const (
	SyncStart         = "sync:start"
	SyncProgress      = "sync:progress"
	SyncConflict      = "sync:conflict"
	SyncComplete      = "sync:complete"
	SyncError         = "sync:error"
	IntegrityPerfect  = "integrity:perfect"
	IntegrityDegraded = "integrity:degraded"
	IntegrityFailed   = "integrity:failed"
	ScoreCalculated   = "score:calculated"
)

// Event is one immutable step record. Handlers must treat Data and Metadata
// as read-only; they are shared by every subscriber of the same emission.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New builds an event stamped with the current time.
func New(typ string, data map[string]any) Event {
	return Event{Type: typ, Timestamp: time.Now(), Data: data}
}

// WithMetadata returns a copy of e carrying md merged over its metadata.
func (e Event) WithMetadata(md map[string]any) Event {
	merged := make(map[string]any, len(e.Metadata)+len(md))
	for k, v := range e.Metadata {
		merged[k] = v
	}
	for k, v := range md {
		merged[k] = v
	}
	e.Metadata = merged
	return e
}

// Category returns the prefix before the first ':' ("sync" for "sync:start"),
// or the whole type when there is none.
func (e Event) Category() string {
	return Category(e.Type)
}

// Category derives the category of an event type string.
func Category(typ string) string {
	if i := strings.IndexByte(typ, ':'); i >= 0 {
		return typ[:i]
	}
	return typ
}
