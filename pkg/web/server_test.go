package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/symdiff/pkg/analysis"
	"github.com/ritzau/symdiff/pkg/deps"
	"github.com/ritzau/symdiff/pkg/dump"
	"github.com/ritzau/symdiff/pkg/logging"
	"github.com/ritzau/symdiff/pkg/output"
	"github.com/ritzau/symdiff/pkg/pubsub"
)

func fixture(t *testing.T, version, module string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "dump", "testdata", version, module+".symtab.json"))
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	session := analysis.NewSession(nil)
	modules, err := dump.LoadDir(filepath.Join("..", "dump", "testdata", "before"))
	require.NoError(t, err)
	for _, mod := range modules {
		_, err := session.Update(context.Background(), mod)
		require.NoError(t, err)
	}

	s := NewServer(session, nil)
	t.Cleanup(func() { _ = s.Publisher().Close() })
	return s
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleModules(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/modules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `["pkg.mod", "pkg.user"]`, rec.Body.String())
}

func TestHandleSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/modules/pkg.mod/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Module      string                     `json:"module"`
		Fingerprint string                     `json:"fingerprint"`
		Snapshot    map[string]json.RawMessage `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pkg.mod", got.Module)
	assert.Len(t, got.Fingerprint, 64)
	assert.Contains(t, got.Snapshot, "C")
	assert.Contains(t, got.Snapshot, "os")

	rec = serve(s, http.MethodGet, "/api/modules/pkg.missing/snapshot", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeps(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/deps", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got deps.GraphData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Nodes)
	assert.NotEmpty(t, got.Edges)
}

func TestHandleDiff(t *testing.T) {
	s := newTestServer(t)

	body := fmt.Sprintf(`{"old": %s, "new": %s}`, fixture(t, "before", "pkg.mod"), fixture(t, "after", "pkg.mod"))
	rec := serve(s, http.MethodPost, "/api/diff", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got output.DiffReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pkg.mod", got.Module)
	assert.Equal(t, []string{"pkg.mod.C.method", "pkg.mod.x", "pkg.mod.z"}, got.Triggers)

	// The session is not touched by ad-hoc diffs
	fp1, _ := s.session.Fingerprint("pkg.mod")
	rec = serve(s, http.MethodPost, "/api/diff", body)
	require.Equal(t, http.StatusOK, rec.Code)
	fp2, _ := s.session.Fingerprint("pkg.mod")
	assert.Equal(t, fp1, fp2)
}

func TestHandleDiffUnchanged(t *testing.T) {
	s := newTestServer(t)

	data := fixture(t, "before", "pkg.user")
	rec := serve(s, http.MethodPost, "/api/diff", fmt.Sprintf(`{"old": %s, "new": %s}`, data, data))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"module": "pkg.user", "triggers": []}`, rec.Body.String())
}

func TestHandleDiffErrors(t *testing.T) {
	s := newTestServer(t)
	mod := string(fixture(t, "before", "pkg.mod"))
	user := string(fixture(t, "before", "pkg.user"))

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing new", fmt.Sprintf(`{"old": %s}`, mod)},
		{"invalid old", fmt.Sprintf(`{"old": {"module": ""}, "new": %s}`, mod)},
		{"invalid new", fmt.Sprintf(`{"old": %s, "new": {"module": "pkg.mod", "names": [{"name": "x", "kind": "bogus"}]}}`, mod)},
		{"module mismatch", fmt.Sprintf(`{"old": %s, "new": %s}`, mod, user)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodPost, "/api/diff", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/api/subscribe/other", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodGet, "/api/diff", "").Code)
}

func TestSubscribeTriggers(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	event := pubsub.TriggerEvent{ID: "1", Module: "pkg.mod", Triggers: []string{"pkg.mod.x"}}
	require.NoError(t, s.Publisher().PublishTriggers(event))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/triggers", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		if line, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			data = line
			break
		}
	}
	require.NotEmpty(t, data, "no event received")

	var got pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "update", got.Type)

	var payload pubsub.TriggerEvent
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.Equal(t, event.Triggers, payload.Triggers)
}

func TestHandleDepsSince(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, http.MethodGet, "/api/deps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hash := rec.Header().Get("X-Graph-Hash")
	require.Len(t, hash, 64)

	// Nothing changed yet
	rec = serve(s, http.MethodGet, "/api/deps?since="+hash, "")
	var diff deps.GraphDiff
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.True(t, diff.Empty())
	assert.Equal(t, hash, diff.Hash)

	_, ok := s.session.Remove(context.Background(), "pkg.user")
	require.True(t, ok)

	rec = serve(s, http.MethodGet, "/api/deps?since="+hash, "")
	diff = deps.GraphDiff{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.False(t, diff.FullGraph)
	assert.Equal(t, []string{"pkg.user.g|pkg.user.h", "pkg.user.h|pkg.user.g"}, diff.RemovedEdges)
	assert.NotEqual(t, hash, rec.Header().Get("X-Graph-Hash"))

	rec = serve(s, http.MethodGet, "/api/deps?since=unknown", "")
	diff = deps.GraphDiff{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.True(t, diff.FullGraph)
	assert.NotEmpty(t, diff.AddedEdges)
}

func TestSubscribeResumesAfterLastEventID(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, m := range []string{"pkg.a", "pkg.b", "pkg.c"} {
		require.NoError(t, s.Publisher().PublishTriggers(pubsub.TriggerEvent{Module: m}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/triggers", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "2")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var id, data string
	for data == "" && scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "id: "); ok {
			id = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}
	require.NotEmpty(t, data, "no event received")
	assert.Equal(t, "3", id)

	var got pubsub.Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	var payload pubsub.TriggerEvent
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.Equal(t, "pkg.c", payload.Module)
}

func TestSubscribeAfterPublisherClosed(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Publisher().Close())

	rec := serve(s, http.MethodGet, "/api/subscribe/workspace_status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestLogNamesRouteAndModule(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(io.Discard)

	s := newTestServer(t)
	rec := serve(s, http.MethodGet, "/api/modules/pkg.missing/snapshot", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	line := buf.String()
	assert.Contains(t, line, "http(pkg.missing): request |")
	assert.Contains(t, line, "route=/api/modules/{module}/snapshot")
	assert.Contains(t, line, "status=404")
}
