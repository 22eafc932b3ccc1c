package analysis

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/symdiff/pkg/pubsub"
	"github.com/ritzau/symdiff/pkg/watcher"
)

type fakePublisher struct {
	mu       sync.Mutex
	status   []pubsub.WorkspaceStatus
	triggers []pubsub.TriggerEvent
}

func (f *fakePublisher) PublishStatus(status pubsub.WorkspaceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = append(f.status, status)
	return nil
}

func (f *fakePublisher) PublishTriggers(event pubsub.TriggerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, event)
	return nil
}

func (f *fakePublisher) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var states []string
	for _, s := range f.status {
		states = append(states, s.State)
	}
	return states
}

func (f *fakePublisher) published() []pubsub.TriggerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pubsub.TriggerEvent(nil), f.triggers...)
}

// copyFixture copies a dump from testdata into dir
func copyFixture(t *testing.T, dir, version, module string) string {
	t.Helper()
	name := module + ".symtab.json"
	data, err := os.ReadFile(filepath.Join("..", "dump", "testdata", version, name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestRunner(t *testing.T) (*Runner, *fakePublisher, string) {
	t.Helper()
	dir := t.TempDir()
	copyFixture(t, dir, "before", "pkg.mod")
	copyFixture(t, dir, "before", "pkg.user")

	pub := &fakePublisher{}
	r := NewRunner(dir, NewSession(nil), pub)
	require.NoError(t, r.LoadBaseline(context.Background()))
	return r, pub, dir
}

func TestRunnerLoadBaseline(t *testing.T) {
	r, pub, _ := newTestRunner(t)

	assert.Equal(t, []string{"pkg.mod", "pkg.user"}, r.Session().Modules())
	assert.Equal(t, []string{"loading", "ready"}, pub.statuses())
	assert.Empty(t, pub.published(), "initial load fires nothing")
}

func TestRunnerLoadBaselineMissingDir(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRunner(filepath.Join(t.TempDir(), "missing"), NewSession(nil), pub)

	assert.Error(t, r.LoadBaseline(context.Background()))
	assert.Equal(t, []string{"loading", "error"}, pub.statuses())
}

func TestRunnerApplyReload(t *testing.T) {
	r, pub, dir := newTestRunner(t)

	var handled []*Result
	r.OnResult(func(result *Result) { handled = append(handled, result) })

	path := copyFixture(t, dir, "after", "pkg.mod")
	results, err := r.Apply(context.Background(), &watcher.ChangeAnalysis{Reload: []string{path}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, handled, 1)
	assert.Same(t, results[0], handled[0])

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, "pkg.mod", events[0].Module)
	assert.Equal(t, []string{"pkg.mod.C.method", "pkg.mod.x", "pkg.mod.z"}, events[0].Triggers)
	assert.Equal(t, []string{"pkg.user.g", "pkg.user.h"}, events[0].Affected)
	assert.Equal(t, results[0].ID.String(), events[0].ID)

	assert.Equal(t, []string{"loading", "ready", "updating", "ready"}, pub.statuses())
}

func TestRunnerApplyUnchangedPublishesNoTriggers(t *testing.T) {
	r, pub, dir := newTestRunner(t)

	path := filepath.Join(dir, "pkg.user.symtab.json")
	results, err := r.Apply(context.Background(), &watcher.ChangeAnalysis{Reload: []string{path}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed())
	assert.Empty(t, pub.published())
}

func TestRunnerApplyRemove(t *testing.T) {
	r, pub, _ := newTestRunner(t)

	results, err := r.Apply(context.Background(), &watcher.ChangeAnalysis{Remove: []string{"pkg.user", "pkg.unknown"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Removed)
	assert.Equal(t, []string{"pkg.user.g", "pkg.user.h", "pkg.user.mod"}, results[0].Triggers)

	events := pub.published()
	require.Len(t, events, 1)
	assert.True(t, events[0].Removed)
	assert.NotNil(t, events[0].Affected)
	assert.NotNil(t, events[0].Groups)

	assert.Equal(t, []string{"pkg.mod"}, r.Session().Modules())
}

func TestRunnerApplyBadDump(t *testing.T) {
	r, pub, dir := newTestRunner(t)

	bad := filepath.Join(dir, "pkg.bad.symtab.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	good := copyFixture(t, dir, "after", "pkg.mod")

	results, err := r.Apply(context.Background(), &watcher.ChangeAnalysis{Reload: []string{bad, good}})
	assert.Error(t, err)
	require.Len(t, results, 1, "the good dump is still applied")
	assert.Equal(t, "pkg.mod", results[0].Module)

	statuses := pub.statuses()
	assert.Equal(t, "error", statuses[len(statuses)-1])
}

func TestRunnerApplyEmpty(t *testing.T) {
	r, pub, _ := newTestRunner(t)

	results, err := r.Apply(context.Background(), &watcher.ChangeAnalysis{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, []string{"loading", "ready"}, pub.statuses())
}

func TestRunnerApplyCancelled(t *testing.T) {
	r, _, dir := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := copyFixture(t, dir, "after", "pkg.mod")
	_, err := r.Apply(ctx, &watcher.ChangeAnalysis{Reload: []string{path}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRun(t *testing.T) {
	r, pub, dir := newTestRunner(t)

	events := make(chan watcher.ChangeEvent, 2)
	path := copyFixture(t, dir, "after", "pkg.mod")
	events <- watcher.ChangeEvent{Type: watcher.ChangeTypeDump, Paths: []string{path}}

	require.NoError(t, os.Remove(filepath.Join(dir, "pkg.user.symtab.json")))
	events <- watcher.ChangeEvent{
		Type:  watcher.ChangeTypeRemoved,
		Paths: []string{filepath.Join(dir, "pkg.user.symtab.json")},
	}
	close(events)

	require.NoError(t, r.Run(context.Background(), events))

	got := pub.published()
	require.Len(t, got, 2)
	assert.Equal(t, "pkg.mod", got[0].Module)
	assert.Equal(t, "pkg.user", got[1].Module)
	assert.True(t, got[1].Removed)
}

func TestRunnerRunCancelled(t *testing.T) {
	r, _, _ := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx, make(chan watcher.ChangeEvent)), context.Canceled)
}
