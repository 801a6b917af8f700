// Package eventbus is the process-wide event fan-out: every service
// and the execution engine publish onto one Bus; subscribers receive
// every event and filter with a glob-style pattern (Matches). It is the Go counterpart of the type registry's
// own broadcast+lag design (pkg/broadcast), reused here for events
// instead of type-catalogue changes.
package eventbus

import (
	"encoding/json"
	"strings"

	"weave/pkg/broadcast"
)

// Event is the wire shape published on the bus.
type Event struct {
	Type      string          `json:"event_type"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Bus is a single broadcast channel of Events, bounded so that a slow
// subscriber drops the oldest buffered events (signalled via
// broadcast.Lagged) rather than stalling the publisher.
type Bus struct {
	tx *broadcast.Sender[Event]
}

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Bus{tx: broadcast.NewSender[Event](capacity)}
}

func (b *Bus) Publish(e Event) { b.tx.Send(e) }

func (b *Bus) Subscribe() *Subscription {
	return &Subscription{recv: b.tx.Subscribe()}
}

// Subscription is one subscriber's cursor; it receives every event and
// applies no pattern of its own. Matches is exposed so callers
// (internal/lifecycle) can filter before deciding whether to wake a
// service loop.
type Subscription struct {
	recv *broadcast.Receiver[Event]
}

func (s *Subscription) Recv() (Event, error) { return s.recv.Recv() }

// Matches implements the pattern language shared by event
// subscriptions and service ServiceSpec.Subscriptions: an exact
// string, "*" (match everything), or "Prefix/*" (match any type
// sharing that slash-delimited prefix).
func Matches(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(eventType, prefix)
	}
	return pattern == eventType
}

// MatchesAny reports whether eventType satisfies any pattern in patterns.
func MatchesAny(patterns []string, eventType string) bool {
	for _, p := range patterns {
		if Matches(p, eventType) {
			return true
		}
	}
	return false
}
