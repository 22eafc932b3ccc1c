package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h).With("component", "watcher", "dir", "/tmp/dumps")

	log.Info("dump changed", "module", "pkg.mod", "durationMs", int64(12), "note", "two words")

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "[INFO]  "), line)
	assert.Contains(t, line, " watcher(pkg.mod): dump changed | ")
	assert.Contains(t, line, "dir=/tmp/dumps")
	assert.Contains(t, line, "duration=12ms")
	assert.Contains(t, line, `note="two words"`)
	assert.NotContains(t, line, "component=")
	assert.NotContains(t, line, "module=")
}

func TestCompactHandlerModuleFromWith(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil)).With("module", "pkg.user")

	log.Info("reloaded")
	assert.Contains(t, buf.String(), " pkg.user: reloaded\n")
}

func TestCompactHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]  ")
}

func TestCompactHandlerTrace(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug - 4)
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: level}))

	log.Log(context.Background(), slog.LevelDebug-4, "edge added")
	assert.True(t, strings.HasPrefix(buf.String(), "[TRACE] "), buf.String())
}

func TestCompactHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil)).WithGroup("diff")

	log.Info("done", "count", 3, slog.Group("graph", "edges", 2))
	assert.Contains(t, buf.String(), "diff.count=3")
	assert.Contains(t, buf.String(), "diff.graph.edges=2")

	// Module is only lifted outside groups
	buf.Reset()
	log.Info("done", "module", "m")
	assert.Contains(t, buf.String(), "diff.module=m")
}

func TestCompactHandlerValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil))

	log.Info("request",
		"requestID", "0123456789abcdef",
		"wait", 2*time.Second,
		"error", errors.New("bad dump"),
		"empty", "",
	)
	assert.Contains(t, buf.String(), "req=01234567 ")
	assert.Contains(t, buf.String(), "wait=2s")
	assert.Contains(t, buf.String(), `error="bad dump"`)
	assert.Contains(t, buf.String(), `empty=""`)
}

func TestCompactHandlerNames(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil))

	log.Info("fired", "names", []string{"m.a", "m.b"})
	assert.Contains(t, buf.String(), "names=[m.a,m.b]")

	buf.Reset()
	log.Info("fired", "names", []string{"m.a", "m.b", "m.c", "m.d", "m.e", "m.f", "m.g"})
	assert.Contains(t, buf.String(), "names=[m.a,m.b,m.c,m.d,m.e,+2]")
}

func TestNewFollowsOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	log := New("session")
	log.Info("module updated", "module", "m", "triggers", 2)

	var later bytes.Buffer
	SetOutput(&later)
	log.Info("second")

	assert.Contains(t, buf.String(), "session(m): module updated | triggers=2")
	assert.Contains(t, later.String(), "session: second")
}
