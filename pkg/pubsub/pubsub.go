package pubsub

import (
	"context"
	"encoding/json"
)

// Topic names one event stream
type Topic string

// Topics published by the update runner
const (
	TopicWorkspaceStatus Topic = "workspace_status"
	TopicTriggers        Topic = "triggers"
)

// ParseTopic returns the topic named s
func ParseTopic(s string) (Topic, bool) {
	switch t := Topic(s); t {
	case TopicWorkspaceStatus, TopicTriggers:
		return t, true
	}
	return "", false
}

// Event represents a pub/sub event
type Event struct {
	Topic   Topic           `json:"topic"`
	Type    string          `json:"type"`    // status state, or initial/update/removed for triggers
	Data    json.RawMessage `json:"data"`    // WorkspaceStatus or TriggerEvent
	Version int             `json:"version"` // per topic, starting at 1
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() Topic

	// Events is closed when the subscription ends
	Events() <-chan Event

	Close() error
}

// Publisher distributes workspace status and trigger events
type Publisher interface {
	// Subscribe replays the retained events with a version above after,
	// then delivers new ones. Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic Topic, after int) (Subscription, error)

	PublishStatus(status WorkspaceStatus) error
	PublishTriggers(event TriggerEvent) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// WorkspaceStatus represents the state of the dump directory
type WorkspaceStatus struct {
	State   string `json:"state"`   // loading, ready, updating, error
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}

// TriggerEvent reports the outcome of one module update
type TriggerEvent struct {
	ID         string     `json:"id"`
	Module     string     `json:"module"`
	Initial    bool       `json:"initial"`
	Removed    bool       `json:"removed,omitempty"`
	Triggers   []string   `json:"triggers"`
	Affected   []string   `json:"affected"`
	Groups     [][]string `json:"groups"`
	DurationMs int64      `json:"duration_ms"`
}

// Kind is the event type a trigger event is published under
func (e TriggerEvent) Kind() string {
	switch {
	case e.Removed:
		return "removed"
	case e.Initial:
		return "initial"
	default:
		return "update"
	}
}
