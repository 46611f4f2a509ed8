// Package metrics collects in-memory counters and duration samples for a
// pipeline's lifecycle. Nothing here listens on a socket or pushes anywhere;
// hosting an HTTP /metrics endpoint, or forwarding to a real pushgateway, is
// the embedder's job, same as transport and retries are.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

// Stage names a point in the pipeline lifecycle a duration or count is
// attributed to.
type Stage string

const (
	StageRun          Stage = "run"
	StageProvideData  Stage = "provide_data"
	StageOperatorPull Stage = "operator_pull"
)

// Exporter accumulates counters and duration samples across every Pipeline
// that records into it: Create makes one per Pipeline when given none, and a
// Runtime shares one across every Pipeline it creates. Safe for concurrent use, though a single Pipeline handle is
// not meant to be driven from more than one goroutine at a time.
type Exporter struct {
	mu sync.RWMutex

	maxSamples int

	callsTotal     map[Stage]uint64
	itemsEmitted   uint64
	requestsIssued uint64
	bytesConsumed  uint64

	durations map[Stage][]float64 // seconds, ring-bounded at maxSamples

	errorsTotal map[errors.Code]uint64

	bufferDepth map[string]int // range id -> pending item count, latest snapshot

	started time.Time
}

// NewExporter creates an Exporter that retains at most maxSamples duration
// observations per stage.
func NewExporter(maxSamples int) *Exporter {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &Exporter{
		maxSamples:  maxSamples,
		callsTotal:  make(map[Stage]uint64),
		durations:   make(map[Stage][]float64),
		errorsTotal: make(map[errors.Code]uint64),
		bufferDepth: make(map[string]int),
		started:     time.Now(),
	}
}

// RecordCall records one invocation of stage and how long it took.
func (e *Exporter) RecordCall(stage Stage, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.callsTotal[stage]++

	samples := append(e.durations[stage], duration.Seconds())
	if len(samples) > e.maxSamples {
		samples = samples[len(samples)-e.maxSamples:]
	}
	e.durations[stage] = samples
}

// AddItemsEmitted adds n to the total number of result items the pipeline
// has handed back to run() callers.
func (e *Exporter) AddItemsEmitted(n uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.itemsEmitted += n
}

// AddRequestsIssued adds n to the total number of DataRequests the pipeline
// has asked the embedder to satisfy.
func (e *Exporter) AddRequestsIssued(n uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestsIssued += n
}

// AddBytesConsumed adds n to the total bytes of gateway response payload
// copied into pipeline-owned buffers via provide_data().
func (e *Exporter) AddBytesConsumed(n uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bytesConsumed += n
}

// SetBufferDepth records the current pending-item count for rangeID. Called
// after every provide_data() and every run() that drains a buffer.
func (e *Exporter) SetBufferDepth(rangeID string, depth int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bufferDepth[rangeID] = depth
}

// RecordError increments the counter for code.
func (e *Exporter) RecordError(code errors.Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorsTotal[code]++
}

// DurationStats summarizes one stage's recorded durations.
type DurationStats struct {
	Count int
	Min   time.Duration
	Avg   time.Duration
	Max   time.Duration
	Sum   time.Duration
}

// Snapshot is a point-in-time, lock-free copy of an Exporter's state.
type Snapshot struct {
	Uptime         time.Duration
	CallsTotal     map[Stage]uint64
	ItemsEmitted   uint64
	RequestsIssued uint64
	BytesConsumed  uint64
	Durations      map[Stage]DurationStats
	ErrorsTotal    map[errors.Code]uint64
	BufferDepth    map[string]int
}

// Snapshot copies the exporter's current state.
func (e *Exporter) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(e.started),
		CallsTotal:     make(map[Stage]uint64, len(e.callsTotal)),
		ItemsEmitted:   e.itemsEmitted,
		RequestsIssued: e.requestsIssued,
		BytesConsumed:  e.bytesConsumed,
		Durations:      make(map[Stage]DurationStats, len(e.durations)),
		ErrorsTotal:    make(map[errors.Code]uint64, len(e.errorsTotal)),
		BufferDepth:    make(map[string]int, len(e.bufferDepth)),
	}
	for k, v := range e.callsTotal {
		snap.CallsTotal[k] = v
	}
	for k, v := range e.errorsTotal {
		snap.ErrorsTotal[k] = v
	}
	for k, v := range e.bufferDepth {
		snap.BufferDepth[k] = v
	}
	for stage, samples := range e.durations {
		if len(samples) == 0 {
			continue
		}
		min, max, sum := samples[0], samples[0], 0.0
		for _, d := range samples {
			sum += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		snap.Durations[stage] = DurationStats{
			Count: len(samples),
			Min:   time.Duration(min * float64(time.Second)),
			Avg:   time.Duration((sum / float64(len(samples))) * float64(time.Second)),
			Max:   time.Duration(max * float64(time.Second)),
			Sum:   time.Duration(sum * float64(time.Second)),
		}
	}
	return snap
}

// String renders a human-readable summary, suitable for the queryenginesh
// ".metrics" dot-command. Byte and duration values are humanized rather
// than printed as raw numbers.
func (s Snapshot) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "uptime: %s\n", s.Uptime.Round(time.Millisecond))
	fmt.Fprintf(&b, "items emitted: %s\n", humanize.Comma(int64(s.ItemsEmitted)))
	fmt.Fprintf(&b, "requests issued: %s\n", humanize.Comma(int64(s.RequestsIssued)))
	fmt.Fprintf(&b, "bytes consumed: %s\n", humanize.Bytes(s.BytesConsumed))

	stages := make([]Stage, 0, len(s.CallsTotal))
	for stage := range s.CallsTotal {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })

	for _, stage := range stages {
		d := s.Durations[stage]
		fmt.Fprintf(&b, "%s: %s calls, min=%s avg=%s max=%s\n",
			stage, humanize.Comma(int64(s.CallsTotal[stage])), d.Min, d.Avg, d.Max)
	}

	if len(s.ErrorsTotal) > 0 {
		codes := make([]errors.Code, 0, len(s.ErrorsTotal))
		for code := range s.ErrorsTotal {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, code := range codes {
			fmt.Fprintf(&b, "errors[%s]: %s\n", code, humanize.Comma(int64(s.ErrorsTotal[code])))
		}
	}

	if len(s.BufferDepth) > 0 {
		ranges := make([]string, 0, len(s.BufferDepth))
		for r := range s.BufferDepth {
			ranges = append(ranges, r)
		}
		sort.Strings(ranges)
		for _, r := range ranges {
			fmt.Fprintf(&b, "buffer[%s]: %d pending\n", r, s.BufferDepth[r])
		}
	}

	return b.String()
}

// Export renders the accumulated state in Prometheus text exposition
// format. The caller is responsible for serving it over HTTP; this package
// never binds a listener.
func (e *Exporter) Export() string {
	snap := e.Snapshot()

	var b strings.Builder

	b.WriteString("# HELP crosspartition_calls_total Total pipeline stage invocations\n")
	b.WriteString("# TYPE crosspartition_calls_total counter\n")
	stages := make([]Stage, 0, len(snap.CallsTotal))
	for stage := range snap.CallsTotal {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	for _, stage := range stages {
		fmt.Fprintf(&b, "crosspartition_calls_total{stage=\"%s\"} %d\n", stage, snap.CallsTotal[stage])
	}

	b.WriteString("# HELP crosspartition_call_duration_seconds Pipeline stage duration\n")
	b.WriteString("# TYPE crosspartition_call_duration_seconds summary\n")
	for _, stage := range stages {
		d := snap.Durations[stage]
		fmt.Fprintf(&b, "crosspartition_call_duration_seconds{stage=\"%s\",quantile=\"0\"} %f\n", stage, d.Min.Seconds())
		fmt.Fprintf(&b, "crosspartition_call_duration_seconds{stage=\"%s\",quantile=\"1\"} %f\n", stage, d.Max.Seconds())
		fmt.Fprintf(&b, "crosspartition_call_duration_seconds_sum{stage=\"%s\"} %f\n", stage, d.Sum.Seconds())
		fmt.Fprintf(&b, "crosspartition_call_duration_seconds_count{stage=\"%s\"} %d\n", stage, d.Count)
	}

	b.WriteString("# HELP crosspartition_items_emitted_total Total result items returned by run()\n")
	b.WriteString("# TYPE crosspartition_items_emitted_total counter\n")
	fmt.Fprintf(&b, "crosspartition_items_emitted_total %d\n", snap.ItemsEmitted)

	b.WriteString("# HELP crosspartition_requests_issued_total Total DataRequests raised\n")
	b.WriteString("# TYPE crosspartition_requests_issued_total counter\n")
	fmt.Fprintf(&b, "crosspartition_requests_issued_total %d\n", snap.RequestsIssued)

	b.WriteString("# HELP crosspartition_bytes_consumed_total Total gateway response bytes copied via provide_data\n")
	b.WriteString("# TYPE crosspartition_bytes_consumed_total counter\n")
	fmt.Fprintf(&b, "crosspartition_bytes_consumed_total %d\n", snap.BytesConsumed)

	b.WriteString("# HELP crosspartition_errors_total Errors surfaced by error code\n")
	b.WriteString("# TYPE crosspartition_errors_total counter\n")
	codes := make([]errors.Code, 0, len(snap.ErrorsTotal))
	for code := range snap.ErrorsTotal {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		fmt.Fprintf(&b, "crosspartition_errors_total{code=\"%s\"} %d\n", code, snap.ErrorsTotal[code])
	}

	b.WriteString("# HELP crosspartition_buffer_depth Pending items per partition key range buffer\n")
	b.WriteString("# TYPE crosspartition_buffer_depth gauge\n")
	ranges := make([]string, 0, len(snap.BufferDepth))
	for r := range snap.BufferDepth {
		ranges = append(ranges, r)
	}
	sort.Strings(ranges)
	for _, r := range ranges {
		fmt.Fprintf(&b, "crosspartition_buffer_depth{range=\"%s\"} %d\n", r, snap.BufferDepth[r])
	}

	return b.String()
}
