package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/symdiff/pkg/logging"
)

var log = logging.New("pubsub")

// ErrClosed is returned by a publisher that has been closed
var ErrClosed = errors.New("publisher is closed")

const (
	// DefaultTriggerHistory is how many trigger events are kept for replay
	DefaultTriggerHistory = 50

	// subscriberBuffer is the room a subscriber has on top of its replay
	subscriberBuffer = 64
)

// topicState is the retained history and the subscribers of one topic
type topicState struct {
	history []Event // oldest first
	limit   int
	version int
	subs    map[*subscriber]struct{}
}

// SSEPublisher is the in-process Publisher behind the event stream
// endpoints. The status topic retains only the latest state. The triggers
// topic retains a history, so a new subscriber sees the recent updates and a
// reconnecting one resumes after the last version it received.
//
// A subscriber that falls behind is dropped rather than skipping events.
// Its stream ends and the client reconnects with its last version.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[Topic]*topicState
	closed bool
}

// Option configures an SSEPublisher
type Option func(*SSEPublisher)

// WithTriggerHistory sets how many trigger events are retained
func WithTriggerHistory(n int) Option {
	return func(p *SSEPublisher) {
		p.topics[TopicTriggers].limit = max(n, 0)
	}
}

// NewSSEPublisher creates a publisher for the workspace status and trigger
// topics
func NewSSEPublisher(opts ...Option) *SSEPublisher {
	p := &SSEPublisher{
		topics: map[Topic]*topicState{
			TopicWorkspaceStatus: {limit: 1, subs: make(map[*subscriber]struct{})},
			TopicTriggers:        {limit: DefaultTriggerHistory, subs: make(map[*subscriber]struct{})},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe implements Publisher. An after beyond the current version, left
// over from before a restart, replays everything retained.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic Topic, after int) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	t, ok := p.topics[topic]
	if !ok {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	if after > t.version {
		after = 0
	}

	// Replaying under the lock keeps replay and live events in order
	sub := &subscriber{
		topic:     topic,
		publisher: p,
		events:    make(chan Event, subscriberBuffer+len(t.history)),
		done:      make(chan struct{}),
	}
	replayed := 0
	for _, event := range t.history {
		if event.Version > after {
			sub.events <- event
			replayed++
		}
	}
	t.subs[sub] = struct{}{}
	log.Debug("subscribed", "topic", string(topic), "after", after, "replayed", replayed)

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// PublishStatus implements Publisher. The event type is the state.
func (p *SSEPublisher) PublishStatus(status WorkspaceStatus) error {
	return p.publish(TopicWorkspaceStatus, status.State, status)
}

// PublishTriggers implements Publisher
func (p *SSEPublisher) PublishTriggers(event TriggerEvent) error {
	return p.publish(TopicTriggers, event.Kind(), event)
}

func (p *SSEPublisher) publish(topic Topic, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.topics[topic]
	t.version++
	event := Event{Topic: topic, Type: eventType, Data: payload, Version: t.version}

	t.history = append(t.history, event)
	if len(t.history) > t.limit {
		t.history = t.history[len(t.history)-t.limit:]
	}

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			log.Warn("dropping slow subscriber", "topic", string(topic), "version", event.Version)
			p.drop(sub)
		}
	}
	return nil
}

// Close ends every subscription. Later calls fail with ErrClosed.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.topics {
		for sub := range t.subs {
			p.drop(sub)
		}
	}
	return nil
}

// drop ends a subscription. The caller holds p.mu.
func (p *SSEPublisher) drop(sub *subscriber) {
	t := p.topics[sub.topic]
	if _, ok := t.subs[sub]; !ok {
		return
	}
	delete(t.subs, sub)
	close(sub.events)
	close(sub.done)
}

type subscriber struct {
	topic     Topic
	publisher *SSEPublisher
	events    chan Event
	done      chan struct{}
}

func (s *subscriber) Topic() Topic {
	return s.topic
}

func (s *subscriber) Events() <-chan Event {
	return s.events
}

func (s *subscriber) Close() error {
	s.publisher.mu.Lock()
	defer s.publisher.mu.Unlock()
	s.publisher.drop(s)
	return nil
}

// WriteSSE writes one event in text/event-stream framing. The id line
// carries the version, so a reconnecting EventSource sends it back as
// Last-Event-ID.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, payload)
	return err
}
