package mockgateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/logger"
	"github.com/cosmosquery/crosspartition/internal/request"
	"github.com/cosmosquery/crosspartition/internal/retry"
)

// Dispatcher fans a batch of DataRequests out across a bounded ants.Pool
// and collects the matching QueryResponses, the embedder-side concurrency
// an integration test or example program needs: the engine itself never
// does this, since run() only ever tells the caller what to fetch. Each
// fetch is wrapped in a retry.Controller so a transient store error (per
// errors.Classifier) gets a few backoff attempts before it is reported as
// a failed DataRequest.
type Dispatcher struct {
	pool       *ants.Pool
	log        *logger.Logger
	retry      *retry.Controller
	classifier *errors.Classifier
}

// NewDispatcher creates a Dispatcher with a pool of workerCount goroutines.
// A panic inside one fetch is logged and turned into a failed result for
// that request rather than crashing the pool.
func NewDispatcher(workerCount int, log *logger.Logger) (*Dispatcher, error) {
	if log == nil {
		log = logger.Silent()
	}
	if workerCount <= 0 {
		workerCount = 8
	}

	pool, err := ants.NewPool(workerCount, ants.WithPanicHandler(func(v any) {
		log.Error("mock gateway dispatcher worker panic: %v", v)
	}))
	if err != nil {
		return nil, err
	}

	return &Dispatcher{pool: pool, log: log, retry: retry.New(), classifier: errors.NewClassifier()}, nil
}

// FetchAll submits one Fetch per DataRequest to the pool and blocks until
// every one completes, returning the matching QueryResponses in no
// particular order (a caller feeding them to Pipeline.ProvideData doesn't
// need them in request order, since each carries its own RequestID).
func (d *Dispatcher) FetchAll(gw *Gateway, reqs []request.DataRequest, ordered bool) ([]request.QueryResponse, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]request.QueryResponse, 0, len(reqs))
		firstErr error
	)

	for _, req := range reqs {
		req := req
		wg.Add(1)
		submitErr := d.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					d.log.Error("mock gateway fetch for request %d panicked: %v", req.ID, v)
					mu.Lock()
					if firstErr == nil {
						firstErr = errors.New(errors.InternalError, fmt.Sprintf("fetch for request %d panicked: %v", req.ID, v))
					}
					mu.Unlock()
				}
			}()

			var data []byte
			var next string
			err := d.retry.Do(func() error {
				var fetchErr error
				data, next, fetchErr = gw.Fetch(req.PartitionKeyRangeID, req.Continuation, ordered)
				return fetchErr
			}, d.classifier)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results = append(results, request.QueryResponse{
				RequestID:           req.ID,
				PartitionKeyRangeID: req.PartitionKeyRangeID,
				Data:                data,
				Continuation:        next,
			})
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return results, firstErr
}

// Release waits up to timeout for in-flight workers to finish and tears
// down the pool. Safe to call more than once.
func (d *Dispatcher) Release(timeout time.Duration) error {
	return d.pool.ReleaseTimeout(timeout)
}
