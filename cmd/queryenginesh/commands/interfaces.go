package commands

import (
	"github.com/cosmosquery/crosspartition/internal/mockgateway"
	"github.com/cosmosquery/crosspartition/internal/pipeline"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

// Shell is the state a command function reads and mutates. queryenginesh's
// shell.Shell implements it; split out as an interface so commands_test.go
// can drive command functions through a fixture instead of the liner REPL.
type Shell interface {
	Runtime() *pipeline.Runtime
	Gateway() *mockgateway.Gateway
	Dispatcher() *mockgateway.Dispatcher

	SetRanges(ranges []plan.PartitionKeyRange)
	Ranges() []plan.PartitionKeyRange

	SetPipeline(p *pipeline.Pipeline, ordered bool)
	Pipeline() *pipeline.Pipeline
	Ordered() bool

	SetPending(reqs []request.DataRequest)
	Pending() []request.DataRequest
}
