// Package client is the pure-Go embedder API: a thin wrapper over
// internal/pipeline for applications that run the engine in-process rather
// than over a socket. There is no IPC framing here — an embedder holding a
// *Client is already in the same process as the pipelines it drives.
package client

import (
	"errors"
	"sync"

	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/operator"
	"github.com/cosmosquery/crosspartition/internal/pipeline"
	"github.com/cosmosquery/crosspartition/internal/pkey"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

// EPKVersion re-exports pkey.Version so callers of ReadMany don't need
// their own import of internal/pkey.
type EPKVersion = pkey.Version

const (
	EPKVersion1 = pkey.V1
	EPKVersion2 = pkey.V2
)

var ErrClientClosed = errors.New("client is closed")

// Client owns the process-wide runtime (memory caps, buffer pool, metrics,
// EPK cache) shared by every Query it opens. One Client per process is the
// intended usage; opening many is harmless but wastes the shared caches.
type Client struct {
	mu      sync.Mutex
	runtime *pipeline.Runtime
	queries map[string]*Query
	closed  bool
}

// New creates a Client from cfg, or config.Default() if cfg is nil.
func New(cfg *config.Config) *Client {
	return &Client{
		runtime: pipeline.NewRuntime(cfg),
		queries: make(map[string]*Query),
	}
}

// Query opens a cross-partition query pipeline over containerRanges for
// the gateway's planJSON, keyed to originalQuery for EffectiveQuery
// fallback when the plan carries no rewrittenQuery.
func (c *Client) Query(containerRanges []plan.PartitionKeyRange, planJSON []byte, originalQuery string) (*Query, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	p, err := c.runtime.Create(containerRanges, planJSON, originalQuery)
	if err != nil {
		return nil, err
	}

	q := &Query{pipeline: p}
	c.queries[p.ID()] = q
	return q, nil
}

// SupportedFeatures reports query_supported_features() for this Client's
// configuration.
func (c *Client) SupportedFeatures() pipeline.SupportedFeatures {
	return pipeline.QuerySupportedFeatures(c.runtime.Config)
}

// Close frees every query this Client still owns.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	for id, q := range c.queries {
		q.pipeline.Free()
		delete(c.queries, id)
	}
	c.closed = true
	return nil
}

// Query is a single cross-partition query's handle: Run pulls whatever the
// operator tree can produce right now, ProvideData satisfies a pending
// DataRequest, and Free releases the pipeline's memory early (Client.Close
// also frees any query left open).
type Query struct {
	pipeline *pipeline.Pipeline
}

// Run pulls up to budget result items (0 for the engine's default budget),
// returning them alongside any DataRequests the caller must satisfy before
// the query can make further progress, and whether it has finished.
func (q *Query) Run(budget int) ([]operator.ResultItem, []request.DataRequest, bool, error) {
	return q.pipeline.Run(budget)
}

// ProvideData satisfies one outstanding DataRequest, returning any
// follow-up DataRequest a read-many batch's queued chunk produced.
func (q *Query) ProvideData(resp request.QueryResponse) ([]request.DataRequest, error) {
	return q.pipeline.ProvideData(resp)
}

// ReadMany issues the point-read DataRequests for a batch of (id,
// partitionKey) lookups, grouped and chunked by owning physical range.
func (q *Query) ReadMany(items []pipeline.ReadManyItem, version EPKVersion) ([]request.DataRequest, error) {
	return q.pipeline.ReadMany(items, version)
}

// Free releases the query's pipeline immediately, rather than waiting for
// the owning Client to close.
func (q *Query) Free() {
	q.pipeline.Free()
}
