package index

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mercantile/storesearch/internal/catalog"
)

// Action identifies a worker operation.
type Action string

// Worker actions
const (
	ActionBuild  Action = "build"
	ActionLoad   Action = "load"
	ActionSearch Action = "search"
)

// channelBuffer bounds the request/response channels so a burst of
// concurrent callers does not block the bridge's dispatch loop.
const channelBuffer = 16

// Request is a message sent to the worker. RequestID correlates the
// eventual Response; action-specific fields are set per Action.
type Request struct {
	RequestID string              `json:"requestId"`
	Action    Action              `json:"action"`
	Docs      []catalog.SearchDoc `json:"docs,omitempty"`
	Snapshot  Snapshot            `json:"index,omitempty"`
	Query     string              `json:"query,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
}

// Response is the worker's reply to exactly one Request. OK is false when
// the operation failed, in which case Error carries the reason and the
// worker remains usable for subsequent requests.
type Response struct {
	RequestID string   `json:"requestId"`
	Action    Action   `json:"action"`
	OK        bool     `json:"ok"`
	Error     string   `json:"error,omitempty"`
	Snapshot  Snapshot `json:"index,omitempty"`
	IDs       []string `json:"ids,omitempty"`
}

// Worker hosts the only live engine instance on a dedicated goroutine.
// All interaction happens through the request/response channels; the
// engine itself is never shared.
type Worker struct {
	baseDir   string
	requests  chan Request
	responses chan Response
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once

	// engine is owned by the loop goroutine; no lock needed.
	engine *Engine
}

// StartWorker creates the worker's scratch directory and starts its loop.
func StartWorker(baseDir string) (*Worker, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create worker directory: %w", err)
	}

	w := &Worker{
		baseDir:   baseDir,
		requests:  make(chan Request, channelBuffer),
		responses: make(chan Response, channelBuffer),
		logger:    slog.Default().With("component", "index-worker"),
		done:      make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Requests returns the channel requests are submitted on.
func (w *Worker) Requests() chan<- Request {
	return w.requests
}

// Responses returns the channel responses are delivered on.
func (w *Worker) Responses() <-chan Response {
	return w.responses
}

// Close shuts the worker down. Pending requests are drained and answered
// before the response channel closes. Submitting requests after Close is a
// caller bug.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.requests)
	})
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)
	defer close(w.responses)

	for req := range w.requests {
		w.responses <- w.handle(req)
	}

	w.replaceEngine(nil)
}

// handle executes one request. Panics from the engine are recovered into
// error responses so a poisoned request cannot take the worker down.
func (w *Worker) handle(req Request) (resp Response) {
	resp = Response{RequestID: req.RequestID, Action: req.Action}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Recovered panic in index worker", "action", req.Action, "panic", r)
			resp.OK = false
			resp.Error = fmt.Sprintf("internal engine error: %v", r)
			resp.Snapshot = nil
			resp.IDs = nil
		}
	}()

	switch req.Action {
	case ActionBuild:
		engine, snap, err := Build(w.baseDir, req.Docs)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		w.replaceEngine(engine)
		resp.OK = true
		resp.Snapshot = snap

	case ActionLoad:
		engine, err := Load(w.baseDir, req.Snapshot)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		w.replaceEngine(engine)
		resp.OK = true

	case ActionSearch:
		ids, err := w.search(req.Query, req.Limit)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.OK = true
		resp.IDs = ids

	default:
		resp.Error = fmt.Sprintf("unknown action: %s", req.Action)
	}

	return resp
}

// search queries the live engine. A blank query short-circuits to an empty
// result without touching the engine; a missing engine is replaced by an
// empty one on demand.
func (w *Worker) search(query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}

	if w.engine == nil {
		engine, _, err := Build(w.baseDir, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build default engine: %w", err)
		}
		w.engine = engine
	}

	ids, err := w.engine.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// replaceEngine swaps in a new live engine and reclaims the old one's
// directory.
func (w *Worker) replaceEngine(engine *Engine) {
	if w.engine != nil {
		if err := w.engine.Close(); err != nil {
			w.logger.Warn("Failed to close previous engine", "error", err)
		}
		removeDir(w.engine.Path())
	}
	w.engine = engine
}
