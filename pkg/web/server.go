package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/symdiff/pkg/analysis"
	"github.com/ritzau/symdiff/pkg/deps"
	"github.com/ritzau/symdiff/pkg/dump"
	"github.com/ritzau/symdiff/pkg/logging"
	"github.com/ritzau/symdiff/pkg/output"
	"github.com/ritzau/symdiff/pkg/pubsub"
	"github.com/ritzau/symdiff/pkg/snapshot"
)

var log = logging.New("web")

const (
	// maxDiffBody bounds the request body of POST /api/diff
	maxDiffBody = 64 << 20

	// graphCacheSize is how many served graph states /api/deps can diff against
	graphCacheSize = 16
)

// DiffRequest holds the two dumps to compare. Both use the dump file format.
type DiffRequest struct {
	Old json.RawMessage `json:"old"`
	New json.RawMessage `json:"new"`
}

// Server represents the web server
type Server struct {
	router     *mux.Router
	session    *analysis.Session
	publisher  pubsub.Publisher
	httpServer *http.Server

	graphMu    sync.Mutex
	graphs     map[string]*deps.GraphSnapshot // hash -> served state
	graphOrder []string                       // oldest first
}

// NewServer creates a new web server for session. A nil publisher gets a
// fresh SSE publisher.
func NewServer(session *analysis.Session, publisher pubsub.Publisher) *Server {
	if publisher == nil {
		publisher = pubsub.NewSSEPublisher()
	}

	s := &Server{
		router:    mux.NewRouter(),
		session:   session,
		publisher: publisher,
		graphs:    make(map[string]*deps.GraphSnapshot),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Publisher returns the publisher behind the subscription endpoints
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

// Handler returns the router wrapped in the request logging middleware
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	s.router.Use(annotateRoute)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/{topic:triggers|workspace_status}", s.handleSubscribe).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/modules/{module}/snapshot", s.handleSnapshot).Methods("GET")
	s.router.HandleFunc("/api/modules", s.handleModules).Methods("GET")
	s.router.HandleFunc("/api/deps", s.handleDeps).Methods("GET")
	s.router.HandleFunc("/api/diff", s.handleDiff).Methods("POST")
}

// annotateRoute adds the matched route and module to the request log line
func annotateRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				logging.Annotate(r.Context(), "route", tmpl)
			}
		}
		if module := mux.Vars(r)["module"]; module != "" {
			logging.Annotate(r.Context(), "module", module)
		}
		next.ServeHTTP(w, r)
	})
}

// handleSubscribe streams a topic. A reconnecting EventSource sends the
// last version it saw as Last-Event-ID and resumes after it.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic, ok := pubsub.ParseTopic(mux.Vars(r)["topic"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	after, err := strconv.Atoi(r.Header.Get("Last-Event-ID"))
	if err != nil || after < 0 {
		after = 0
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic, after)
	if errors.Is(err, pubsub.ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	// Stream events
	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			log.WarnContext(r.Context(), "error writing SSE event", "topic", string(topic), "error", err)
			return
		}
		flush(w)
	}
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, s.session.Modules())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	module := mux.Vars(r)["module"]

	snap, ok := s.session.Snapshot(module)
	if !ok {
		http.Error(w, fmt.Sprintf("Module not found: %s", module), http.StatusNotFound)
		return
	}
	writeJSON(r.Context(), w, output.NewSnapshotReport(module, snap))
}

// handleDeps serves the dependency graph. With ?since=<hash> of a state
// served earlier it returns only the changes; an unknown hash gets the full
// graph as a diff against nothing.
func (s *Server) handleDeps(w http.ResponseWriter, r *http.Request) {
	data := s.session.Graph().Snapshot()
	current := deps.CreateSnapshot(data)
	previous, known := s.rememberGraph(current, r.URL.Query().Get("since"))

	w.Header().Set("X-Graph-Hash", current.Hash)
	if !r.URL.Query().Has("since") {
		writeJSON(r.Context(), w, data)
		return
	}
	if !known {
		previous = nil
	}
	writeJSON(r.Context(), w, deps.ComputeDiff(previous, current))
}

// rememberGraph caches current and returns the state stored under since
func (s *Server) rememberGraph(current *deps.GraphSnapshot, since string) (*deps.GraphSnapshot, bool) {
	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	previous, known := s.graphs[since]
	if _, cached := s.graphs[current.Hash]; !cached {
		s.graphs[current.Hash] = current
		s.graphOrder = append(s.graphOrder, current.Hash)
		if len(s.graphOrder) > graphCacheSize {
			delete(s.graphs, s.graphOrder[0])
			s.graphOrder = s.graphOrder[1:]
		}
	}
	return previous, known
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDiffBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Old) == 0 || len(req.New) == 0 {
		http.Error(w, "Both old and new dumps are required", http.StatusBadRequest)
		return
	}

	before, err := dump.Decode(bytes.NewReader(req.Old))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid old dump: %v", err), http.StatusBadRequest)
		return
	}
	after, err := dump.Decode(bytes.NewReader(req.New))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid new dump: %v", err), http.StatusBadRequest)
		return
	}
	if before.Name != after.Name {
		http.Error(w, fmt.Sprintf("Module mismatch: %s vs %s", before.Name, after.Name), http.StatusBadRequest)
		return
	}

	triggers := snapshot.Diff(before.Name,
		snapshot.SymbolTable(before.Name, before.Names),
		snapshot.SymbolTable(after.Name, after.Names),
	).Sorted()

	writeJSON(r.Context(), w, output.NewDiffReport(before.Name, triggers))
}

// Start starts the web server on the specified port and blocks until it
// stops. Shutdown makes it return nil.
func (s *Server) Start(port int) error {
	s.httpServer.Addr = fmt.Sprintf(":%d", port)
	log.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server. Streams still open when ctx expires are cut.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		return err
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
