// Package shell holds queryenginesh's session state and dispatches parsed
// commands to the commands package, keeping connection/session bookkeeping
// separate from command implementations.
package shell

import (
	"fmt"
	"sync"
	"time"

	"github.com/cosmosquery/crosspartition/cmd/queryenginesh/commands"
	"github.com/cosmosquery/crosspartition/cmd/queryenginesh/parser"
	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/logger"
	"github.com/cosmosquery/crosspartition/internal/mockgateway"
	"github.com/cosmosquery/crosspartition/internal/pipeline"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

// Shell owns one in-process runtime, one mock gateway, and at most one
// open pipeline at a time.
type Shell struct {
	mu sync.Mutex

	runtime    *pipeline.Runtime
	gateway    *mockgateway.Gateway
	dispatcher *mockgateway.Dispatcher

	ranges   []plan.PartitionKeyRange
	p        *pipeline.Pipeline
	ordered  bool
	pending  []request.DataRequest
}

// New opens a fresh Shell: a Runtime over config.Default(), an in-memory
// mock gateway, and an ants-pooled dispatcher.
func New() (*Shell, error) {
	gw, err := mockgateway.Open(50)
	if err != nil {
		return nil, err
	}
	dispatcher, err := mockgateway.NewDispatcher(8, logger.Default())
	if err != nil {
		gw.Close()
		return nil, err
	}
	return &Shell{
		runtime:    pipeline.NewRuntime(config.Default()),
		gateway:    gw,
		dispatcher: dispatcher,
	}, nil
}

// Close tears down the mock gateway and dispatcher, freeing any open
// pipeline first.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p != nil {
		s.p.Free()
		s.p = nil
	}
	s.dispatcher.Release(3 * time.Second)
	return s.gateway.Close()
}

func (s *Shell) Runtime() *pipeline.Runtime         { return s.runtime }
func (s *Shell) Gateway() *mockgateway.Gateway       { return s.gateway }
func (s *Shell) Dispatcher() *mockgateway.Dispatcher { return s.dispatcher }

func (s *Shell) SetRanges(ranges []plan.PartitionKeyRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = ranges
}

func (s *Shell) Ranges() []plan.PartitionKeyRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ranges
}

func (s *Shell) SetPipeline(p *pipeline.Pipeline, ordered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
	s.ordered = ordered
}

func (s *Shell) Pipeline() *pipeline.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

func (s *Shell) Ordered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordered
}

func (s *Shell) SetPending(reqs []request.DataRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = reqs
}

func (s *Shell) Pending() []request.DataRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Execute dispatches cmd to the matching commands function.
func (s *Shell) Execute(cmd *parser.Command) commands.Result {
	switch cmd.Name {
	case ".help":
		return commands.Help()
	case ".exit":
		return commands.Exit()
	case ".ranges":
		return commands.Ranges(s, cmd.Rest)
	case ".seed":
		rangeID, docsJSON, _ := cutField(cmd.Rest)
		return commands.Seed(s, rangeID, docsJSON)
	case ".query":
		return commands.Query(s, cmd.Rest)
	case ".run":
		return commands.Run(s, parseBudget(cmd))
	case ".fetch":
		return commands.Fetch(s)
	case ".step":
		return commands.Step(s, parseBudget(cmd))
	case ".features":
		return commands.Features(s)
	case ".metrics":
		return commands.Metrics(s)
	case ".free":
		return commands.Free(s)
	default:
		return commands.ErrorResult{Err: fmt.Sprintf("unknown command: %s", cmd.Name)}
	}
}

// cutField splits rest's first whitespace-delimited field from the
// remainder, for commands like .seed that take one scalar argument
// followed by a JSON blob.
func cutField(rest string) (first, remainder string, ok bool) {
	for i, r := range rest {
		if r == ' ' || r == '\t' {
			return rest[:i], trimLeadingSpace(rest[i+1:]), true
		}
	}
	return rest, "", false
}

func trimLeadingSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

func parseBudget(cmd *parser.Command) int {
	fields := cmd.Fields()
	if len(fields) == 0 {
		return 0
	}
	var budget int
	fmt.Sscanf(fields[0], "%d", &budget)
	return budget
}
