package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/symdiff/pkg/finder"
	"github.com/ritzau/symdiff/pkg/logging"
)

var log = logging.New("watcher")

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeDump    ChangeType = iota // dump written or created
	ChangeTypeRemoved                   // dump removed or renamed away
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeDump:
		return "dump"
	case ChangeTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the burst of events a single dump write produces
const batchDelay = 100 * time.Millisecond

// FileWatcher watches a dump directory for changed symbol table dumps
type FileWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan ChangeEvent
	done    chan struct{}
}

// NewFileWatcher creates a new file system watcher for a dump directory
func NewFileWatcher(dir string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan ChangeEvent, 100),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the directory and its subdirectories
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.dir)
	if err != nil {
		_ = fw.watcher.Close()
		return err
	}

	log.Info("started watching dumps", "path", fw.dir, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds root and every non-hidden directory below it
func (fw *FileWatcher) watchTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return count, nil
}

// classify maps an fsnotify event to a change type
func classify(event fsnotify.Event) (ChangeType, bool) {
	if !finder.IsDumpFile(event.Name) {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return ChangeTypeDump, true
	}
	return 0, false
}

// processEvents batches file system events by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.done)
	defer close(fw.events)
	defer func() { _ = fw.watcher.Close() }()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeDump, ChangeTypeRemoved} {
			if paths := pending[t]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				flush()
				return
			}

			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if _, err := fw.watchTree(event.Name); err != nil {
					log.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
				continue
			}

			t, ok := classify(event)
			if !ok {
				continue
			}
			log.Debug("dump event", "path", event.Name, "op", event.Op.String(), "type", t.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Done is closed once the watcher has released its resources
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}
