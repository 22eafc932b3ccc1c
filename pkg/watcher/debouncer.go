package watcher

import (
	"context"
	"time"
)

// Debouncer batches rapid file system events to avoid reloading a dump for
// every intermediate write
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is emitted once no
// event arrived for quietPeriod, or maxWait after its first event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quietTimer  = time.NewTimer(d.quietPeriod)
		maxTimer    = time.NewTimer(d.maxWait)
		quiet       <-chan time.Time
		deadline    <-chan time.Time
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)
	quietTimer.Stop()
	maxTimer.Stop()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	flush := func() {
		quietTimer.Stop()
		maxTimer.Stop()
		quiet, deadline = nil, nil

		if eventCount == 0 {
			return
		}
		log.Debug("flushing accumulated events", "count", eventCount)

		// Dumps first, then removals
		for _, t := range []ChangeType{ChangeTypeDump, ChangeTypeRemoved} {
			if paths := accumulated[t]; len(paths) > 0 {
				select {
				case d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			// Restart the quiet period
			quietTimer.Reset(d.quietPeriod)
			quiet = quietTimer.C

			// Start the max wait on the first event of a batch
			if deadline == nil {
				maxTimer.Reset(d.maxWait)
				deadline = maxTimer.C
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events. It is closed when the
// input closes or the context is cancelled.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
