package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/symdiff/pkg/dump"
	"github.com/ritzau/symdiff/pkg/pubsub"
	"github.com/ritzau/symdiff/pkg/watcher"
)

// EventPublisher receives status and trigger events
type EventPublisher interface {
	PublishStatus(status pubsub.WorkspaceStatus) error
	PublishTriggers(event pubsub.TriggerEvent) error
}

// Runner feeds dump changes into a session, one batch at a time
type Runner struct {
	dir       string
	session   *Session
	publisher EventPublisher
	mu        sync.Mutex // Prevent concurrent updates

	handlers []func(*Result)
}

// NewRunner creates a runner for the dumps in dir. publisher may be nil.
func NewRunner(dir string, session *Session, publisher EventPublisher) *Runner {
	return &Runner{
		dir:       dir,
		session:   session,
		publisher: publisher,
	}
}

// OnResult registers fn to be called for every result that fired triggers
func (r *Runner) OnResult(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, fn)
}

// Session returns the session the runner updates
func (r *Runner) Session() *Session {
	return r.session
}

// LoadBaseline loads every dump in the directory. Modules seen for the
// first time produce no triggers.
func (r *Runner) LoadBaseline(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.InfoContext(ctx, "loading baseline", "dir", r.dir)
	r.publishStatus("loading", "Loading symbol table dumps...", 1, 2)

	modules, err := dump.LoadDir(r.dir)
	if err != nil {
		r.publishStatus("error", fmt.Sprintf("Error loading dumps: %v", err), 1, 2)
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	for _, mod := range modules {
		if _, err := r.session.Update(ctx, mod); err != nil {
			r.publishStatus("error", fmt.Sprintf("Error loading %s: %v", mod.Name, err), 1, 2)
			return err
		}
	}

	r.publishStatus("ready", fmt.Sprintf("Watching %d modules", len(modules)), 2, 2)
	log.InfoContext(ctx, "baseline loaded", "modules", len(modules))
	return nil
}

// Apply reloads and removes modules. A dump that fails to load is logged and
// skipped so one bad write does not stop the others; the first such error is
// returned after the batch.
func (r *Runner) Apply(ctx context.Context, changes *watcher.ChangeAnalysis) ([]*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if changes.Empty() {
		return nil, nil
	}

	total := len(changes.Reload) + len(changes.Remove)
	r.publishStatus("updating", fmt.Sprintf("Updating %d module(s)...", total), 1, 2)

	var (
		results  []*Result
		firstErr error
	)
	for _, path := range changes.Reload {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		mod, err := dump.Load(path)
		if err != nil {
			log.ErrorContext(ctx, "failed to load dump", "path", path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		result, err := r.session.Update(ctx, mod)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		r.emit(result)
	}

	for _, module := range changes.Remove {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if result, ok := r.session.Remove(ctx, module); ok {
			results = append(results, result)
			r.emit(result)
		}
	}

	if firstErr != nil {
		r.publishStatus("error", firstErr.Error(), 2, 2)
	} else {
		r.publishStatus("ready", fmt.Sprintf("Watching %d modules", len(r.session.Modules())), 2, 2)
	}
	return results, firstErr
}

// Run applies every debounced change event until events closes or ctx is
// cancelled
func (r *Runner) Run(ctx context.Context, events <-chan watcher.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}

			changes := watcher.AnalyzeChanges(event)
			log.DebugContext(ctx, "change detected",
				"type", event.Type.String(),
				"reload", len(changes.Reload),
				"remove", len(changes.Remove),
			)

			if _, err := r.Apply(ctx, changes); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				// Already logged and published, keep watching
				continue
			}
		}
	}
}

func (r *Runner) emit(result *Result) {
	if !result.Changed() {
		return
	}

	for _, fn := range r.handlers {
		fn(result)
	}

	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishTriggers(result.Event()); err != nil {
		log.Warn("failed to publish triggers", "module", result.Module, "error", err)
	}
}

func (r *Runner) publishStatus(state, message string, step, total int) {
	if r.publisher == nil {
		return
	}
	status := pubsub.WorkspaceStatus{State: state, Message: message, Step: step, Total: total}
	if err := r.publisher.PublishStatus(status); err != nil {
		log.Warn("failed to publish status", "state", state, "error", err)
	}
}
