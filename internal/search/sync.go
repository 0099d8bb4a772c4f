package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mercantile/storesearch/internal/catalog"
)

// Syncer fetches the catalog when the cached version is stale.
type Syncer interface {
	// Fetch performs a conditional catalog fetch using version as the
	// freshness token. It returns (nil, true, nil) when the server reports
	// the cached version is still current.
	Fetch(ctx context.Context, version string) (*catalog.SyncResponse, bool, error)
}

// SyncClient is the HTTP implementation of Syncer against the storefront
// sync endpoint. The endpoint answers 304 for a matching version and 200
// with a full {version, products} payload otherwise; anything else is a
// sync failure the service swallows.
type SyncClient struct {
	url        string
	httpClient *http.Client
}

// NewSyncClient creates a sync client for the given endpoint URL.
func NewSyncClient(url string) *SyncClient {
	return &SyncClient{
		url:        url,
		httpClient: &http.Client{},
	}
}

// Fetch issues a conditional GET with If-None-Match set to the cached
// version tag.
func (c *SyncClient) Fetch(ctx context.Context, version string) (*catalog.SyncResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create sync request: %w", err)
	}
	if version != "" {
		req.Header.Set("If-None-Match", version)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sync request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, true, nil
	case http.StatusOK:
		var payload catalog.SyncResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, false, fmt.Errorf("malformed sync payload: %w", err)
		}
		return &payload, false, nil
	default:
		return nil, false, fmt.Errorf("sync endpoint returned status %d", resp.StatusCode)
	}
}
