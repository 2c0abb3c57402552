// Package optimizer provides an HTTP client for the external layout
// suggestion service.
//
// # Overview
//
// The suggestion service computes a gang-run layout out of process, with
// higher latency and stricter quotas than local planning. Its answer is
// advisory: the planner rebuilds and re-scores whatever comes back, so a
// bad or stale suggestion can never corrupt the local candidate set.
//
// # Usage
//
//	client := optimizer.NewClient("https://suggest.example.com", fileCache, 24*time.Hour)
//
//	resp, err := client.Suggest(ctx, "order-17", request, false)
//	if errors.IsRateLimited(err) {
//	    // quota hit: proceed with local candidates only
//	}
//
// # Caching
//
// Suggestions are expensive and deterministic per payload, so responses are
// cached keyed by order id and payload hash. Pass refresh=true to force a
// fresh computation after items or geometry change.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rollfed/gangrun/pkg/cache"
	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/httputil"
	"github.com/rollfed/gangrun/pkg/integrations"
	"github.com/rollfed/gangrun/pkg/plan"
)

// Constraints bound what layouts the service may propose.
type Constraints struct {
	MaxOverrun float64 `json:"max_overrun"`
	QtyPerRoll int     `json:"qty_per_roll,omitempty"`
}

// Request is the suggestion payload: the same inputs local planning uses.
type Request struct {
	Items       []plan.Item              `json:"items"`
	Dieline     geometry.DielineGeometry `json:"dieline"`
	Constraints Constraints              `json:"constraints"`
}

// Response is the service's proposed layout. Runs carry slot assignments
// only; all metrics and scores are recomputed locally. EstimatedWastePercent
// is the service's own claim and is used for logging, never for ranking.
type Response struct {
	Runs                  []plan.SuggestedRun `json:"runs"`
	OverallReasoning      string              `json:"overall_reasoning"`
	EstimatedWastePercent float64             `json:"estimated_waste_percent"`
}

// Client provides access to the layout suggestion service API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
}

// NewClient creates a suggestion service client for the given base URL.
//
// Parameters:
//   - backend: cache for suggestion responses (nil disables caching)
//   - cacheTTL: how long suggestions stay valid (typical: hours to a day)
//
// The returned Client is safe for concurrent use.
func NewClient(baseURL string, backend cache.Cache, cacheTTL time.Duration) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		Client:  integrations.NewClient(backend, "optimizer", cacheTTL, nil),
		baseURL: baseURL,
		cache:   backend,
		keyer:   cache.NewDefaultKeyer(),
		ttl:     cacheTTL,
	}
}

// Suggest asks the service for a layout proposal for one order.
//
// If refresh is false and an identical request was answered within the cache
// TTL, the cached response is returned without a network call.
//
// Returns:
//   - the proposed runs with the service's reasoning on success
//   - a rate limit error when the service signals quota exhaustion; the
//     caller should fall back to local candidates without alarming anyone
//   - [integrations.ErrNetwork] for transport failures and 5xx responses
//   - [integrations.ErrRejected] when the service refuses the payload
func (c *Client) Suggest(ctx context.Context, orderID string, req Request, refresh bool) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	key := c.keyer.SuggestionKey(orderID, cache.Hash(payload))

	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			var resp Response
			if json.Unmarshal(data, &resp) == nil {
				return &resp, nil
			}
		}
	}

	var resp Response
	url := integrations.JoinURL(c.baseURL, "suggestions")
	err = httputil.RetryWithBackoff(ctx, func() error {
		return c.PostJSON(ctx, url, req, &resp)
	})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return &resp, nil
}
