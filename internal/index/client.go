package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mercantile/storesearch/internal/catalog"
)

// Client is the bridge between callers and the worker: it turns method
// calls into correlated request/response message traffic. Each call gets a
// unique request id; responses are matched strictly by id, so concurrent
// calls never cross-resolve and responses with unknown ids are dropped.
// The client performs no retries; that policy belongs to the search
// service.
type Client struct {
	worker *Worker

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
}

// NewClient wraps a worker and starts the response dispatch loop.
func NewClient(worker *Worker) *Client {
	c := &Client{
		worker:  worker,
		pending: make(map[string]chan Response),
	}
	go c.dispatch()
	return c
}

// BuildIndex builds a fresh engine from the document set and returns its
// serialized snapshot.
func (c *Client) BuildIndex(ctx context.Context, docs []catalog.SearchDoc) (Snapshot, error) {
	resp, err := c.call(ctx, Request{Action: ActionBuild, Docs: docs})
	if err != nil {
		return nil, err
	}
	return resp.Snapshot, nil
}

// LoadIndex restores the worker's engine from a snapshot.
func (c *Client) LoadIndex(ctx context.Context, snap Snapshot) error {
	_, err := c.call(ctx, Request{Action: ActionLoad, Snapshot: snap})
	return err
}

// Search returns up to limit matching document ids, best first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := c.call(ctx, Request{Action: ActionSearch, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// call sends one request and waits for its correlated response. Context
// cancellation abandons the call; the response, if it ever arrives, is
// discarded by the dispatch loop.
func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	req.RequestID = uuid.NewString()
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, fmt.Errorf("index worker is closed")
	}
	c.pending[req.RequestID] = ch
	c.mu.Unlock()

	select {
	case c.worker.Requests() <- req:
	case <-ctx.Done():
		c.abandon(req.RequestID)
		return Response{}, ctx.Err()
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, fmt.Errorf("index worker is closed")
		}
		if !resp.OK {
			return Response{}, fmt.Errorf("index worker %s failed: %s", req.Action, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		c.abandon(req.RequestID)
		return Response{}, ctx.Err()
	}
}

// dispatch routes worker responses to their pending calls. When the worker
// shuts down, every outstanding call is failed.
func (c *Client) dispatch() {
	for resp := range c.worker.Responses() {
		c.mu.Lock()
		ch, ok := c.pending[resp.RequestID]
		if ok {
			delete(c.pending, resp.RequestID)
		}
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// abandon drops a pending call after context cancellation.
func (c *Client) abandon(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}
