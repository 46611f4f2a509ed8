// Package pipeline wires plan, rangeselect, pkey, buffer and the operator
// tree together behind the pull-driven Create/Run/ProvideData/Free contract
// an embedder actually drives: no goroutine of this package's own ever
// blocks on I/O, because it never performs any — every byte comes in
// through ProvideData and every request for more goes out through Run.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosmosquery/crosspartition/internal/buffer"
	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/logger"
	"github.com/cosmosquery/crosspartition/internal/memory"
	"github.com/cosmosquery/crosspartition/internal/metrics"
	"github.com/cosmosquery/crosspartition/internal/operator"
	"github.com/cosmosquery/crosspartition/internal/pkey"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/rangeselect"
	"github.com/cosmosquery/crosspartition/internal/request"
)

// Pipeline is one cross-partition query's whole lifecycle: the buffers for
// every physical range it touches, the operator tree composed over them,
// and the bookkeeping (request ids, memory arena, metrics) that spans every
// Run/ProvideData call the embedder makes against it.
type Pipeline struct {
	mu sync.Mutex

	id  string
	cfg *config.Config
	log *logger.Logger
	met *metrics.Exporter

	caps *memory.Caps
	pool *memory.BufferPool
	mem  *memory.Arena
	pk   *pkey.Computer

	info          *plan.PartitionedQueryExecutionInfo
	originalQuery string
	hasOrdered    bool

	ranges   []plan.PartitionKeyRange
	rangeIDs []string
	buffers  map[string]*buffer.PartitionBuffer
	root     operator.Operator

	nextRequestID uint64
	outstanding   map[uint64]string // request id -> owning range id

	// pendingReadMany queues read-many chunks that exceeded one range's
	// single-outstanding-request limit: the next chunk for a range is only
	// marked outstanding once ProvideData accepts the previous one.
	pendingReadMany map[string][]synthesizedRequest

	closed bool
}

// Create parses planJSON, selects the physical ranges it touches out of
// containerRanges, rejects anything this engine can't execute, and composes
// the operator tree. No DataRequest is raised yet; the first Run call does
// that.
func Create(cfg *config.Config, caps *memory.Caps, pool *memory.BufferPool, log *logger.Logger, met *metrics.Exporter,
	containerRanges []plan.PartitionKeyRange, planJSON []byte, originalQuery string) (*Pipeline, error) {

	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Silent()
	}
	if met == nil {
		met = metrics.NewExporter(cfg.Metrics.MaxDurationSamples)
	}

	info, err := plan.Parse(planJSON)
	if err != nil {
		return nil, err
	}
	if err := checkSupported(info, cfg); err != nil {
		met.RecordError(errors.UnsupportedQueryPlan)
		return nil, err
	}

	selected, err := rangeselect.Select(containerRanges, info.QueryRanges)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	pipelineLog := log.With(" pipeline=" + id[:8])

	buffers := make(map[string]*buffer.PartitionBuffer, len(selected))
	rangeIDs := make([]string, len(selected))
	for i, r := range selected {
		buffers[r.ID] = buffer.New(r.ID)
		rangeIDs[i] = r.ID
	}

	if caps != nil {
		caps.RegisterPipeline(id, 0)
	}
	if pool == nil {
		pool = memory.NewBufferPool(nil)
	}

	p := &Pipeline{
		id:              id,
		cfg:             cfg,
		log:             pipelineLog,
		met:             met,
		caps:            caps,
		pool:            pool,
		mem:             memory.NewArena(pool, caps, id),
		pk:              pkey.NewComputer(cfg.PKey.EPKCacheSize),
		info:            info,
		originalQuery:   originalQuery,
		hasOrdered:      info.HasOrderBy() || info.HasGroupBy(),
		ranges:          selected,
		rangeIDs:        rangeIDs,
		buffers:         buffers,
		root:            composeTree(info, rangeIDs, buffers),
		outstanding:     make(map[uint64]string),
		pendingReadMany: make(map[string][]synthesizedRequest),
	}

	pipelineLog.Info("created pipeline over %d ranges (orderBy=%v groupBy=%v distinct=%v)",
		len(rangeIDs), info.HasOrderBy(), info.HasGroupBy(), info.HasDistinct())

	return p, nil
}

// ID returns the pipeline's identity, used by embedders juggling several
// concurrent pipelines and by RegisterPipeline/UnregisterPipeline.
func (p *Pipeline) ID() string { return p.id }

// Query returns the query text every per-partition DataRequest carries: the
// plan's rewrittenQuery, or the original query when the plan has none.
func (p *Pipeline) Query() string { return p.info.EffectiveQuery(p.originalQuery) }

// Run pulls up to budget items (0 means the configured ItemsPerRunBudget)
// from the operator tree, returning any items ready for the caller, any
// DataRequests that must be satisfied before further progress is possible,
// and whether the pipeline has permanently finished.
func (p *Pipeline) Run(budget int) ([]operator.ResultItem, []request.DataRequest, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, true, errors.New(errors.InternalError, "run called on a freed pipeline")
	}

	start := time.Now()
	if budget <= 0 {
		budget = p.cfg.Limits.ItemsPerRunBudget
	}

	pulled := p.root.Pull(budget)
	p.met.RecordCall(metrics.StageRun, time.Since(start))
	p.met.AddItemsEmitted(uint64(len(pulled.Items)))

	var reqs []request.DataRequest
	for _, rangeID := range pulled.NeedsRequest {
		b := p.buffers[rangeID]
		if b == nil || b.HasOutstandingRequest() {
			continue
		}
		p.nextRequestID++
		id := p.nextRequestID
		b.MarkOutstanding(id)
		p.outstanding[id] = rangeID

		reqs = append(reqs, request.DataRequest{
			ID:                  id,
			PartitionKeyRangeID: rangeID,
			Continuation:        b.Continuation(),
			Query:               p.info.EffectiveQuery(p.originalQuery),
			IncludeParameters:   false,
		})
	}
	p.met.AddRequestsIssued(uint64(len(reqs)))

	for _, id := range p.rangeIDs {
		if b := p.buffers[id]; b != nil {
			p.met.SetBufferDepth(id, b.Len())
		}
	}

	return pulled.Items, reqs, pulled.Done, nil
}

// ProvideData satisfies one outstanding DataRequest: it decodes resp.Data
// into buffer.Items (copying the payload into pool-backed memory so the
// caller's own buffer can be reused or freed immediately after this call
// returns), then hands them to the owning range's PartitionBuffer. If the
// range still has queued read-many chunks, the next one is issued
// immediately and returned in followUp.
func (p *Pipeline) ProvideData(resp request.QueryResponse) (followUp []request.DataRequest, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New(errors.InternalError, "provide_data called on a freed pipeline")
	}

	start := time.Now()

	b, ok := p.buffers[resp.PartitionKeyRangeID]
	if !ok {
		return nil, errors.New(errors.UnknownPartitionKeyRange,
			"response named a range outside the selected set: "+resp.PartitionKeyRangeID)
	}

	owner, tracked := p.outstanding[resp.RequestID]
	if !tracked || owner != resp.PartitionKeyRangeID {
		return nil, errors.Wrap(errors.InvalidGatewayResponse,
			"response request_id does not match any outstanding request for this range", errors.ErrRequestIDMismatch)
	}

	owned, ok := p.mem.Alloc(uint64(len(resp.Data)))
	if !ok {
		return nil, errors.New(errors.InternalError, "memory cap exceeded copying gateway response into pipeline-owned buffer")
	}
	copy(owned, resp.Data)

	items, err := buffer.DecodeResponse(owned, p.hasOrdered)
	if err != nil {
		code, _ := errors.CodeOf(err)
		p.met.RecordError(code)
		return nil, err
	}

	if err := b.Accept(resp.RequestID, resp.Continuation, items); err != nil {
		p.met.RecordError(errors.InvalidGatewayResponse)
		return nil, err
	}
	delete(p.outstanding, resp.RequestID)

	p.met.RecordCall(metrics.StageProvideData, time.Since(start))
	p.met.AddBytesConsumed(uint64(len(resp.Data)))
	p.met.SetBufferDepth(resp.PartitionKeyRangeID, b.Len())

	if queue := p.pendingReadMany[resp.PartitionKeyRangeID]; len(queue) > 0 {
		next := queue[0]
		p.pendingReadMany[resp.PartitionKeyRangeID] = queue[1:]

		b.MarkOutstanding(next.RequestID)
		p.outstanding[next.RequestID] = next.PartitionKeyRangeID
		followUp = append(followUp, request.DataRequest{
			ID:                  next.RequestID,
			PartitionKeyRangeID: next.PartitionKeyRangeID,
			Query:               next.Query,
		})
		p.met.AddRequestsIssued(1)
	}

	return followUp, nil
}

// Free releases the pipeline's memory arena and unregisters it from the
// shared Caps budget. Calling Run or ProvideData after Free returns
// InternalError.
func (p *Pipeline) Free() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.mem.Release()
	if p.caps != nil {
		p.caps.UnregisterPipeline(p.id)
	}
	p.closed = true
	p.log.Info("freed pipeline")
}

// Runtime holds the shared, process-wide dependencies (Caps, BufferPool,
// Exporter, pkey.Computer) a host application hands to every Create call.
// Pipelines are cheap to create from a shared Runtime; the Runtime itself
// is meant to be constructed once per process.
type Runtime struct {
	Config  *config.Config
	Caps    *memory.Caps
	Pool    *memory.BufferPool
	Logger  *logger.Logger
	Metrics *metrics.Exporter
	PKey    *pkey.Computer
}

// NewRuntime builds a Runtime from cfg, or config.Default() if cfg is nil.
func NewRuntime(cfg *config.Config) *Runtime {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Runtime{
		Config:  cfg,
		Caps:    memory.NewCaps(512, 0),
		Pool:    memory.NewBufferPool(nil),
		Logger:  logger.Default(),
		Metrics: metrics.NewExporter(cfg.Metrics.MaxDurationSamples),
		PKey:    pkey.NewComputer(cfg.PKey.EPKCacheSize),
	}
}

// Create is a convenience wrapper over the package-level Create using the
// Runtime's shared dependencies.
func (rt *Runtime) Create(containerRanges []plan.PartitionKeyRange, planJSON []byte, originalQuery string) (*Pipeline, error) {
	p, err := Create(rt.Config, rt.Caps, rt.Pool, rt.Logger, rt.Metrics, containerRanges, planJSON, originalQuery)
	if err != nil {
		return nil, err
	}
	if rt.PKey != nil {
		p.pk = rt.PKey
	}
	return p, nil
}
