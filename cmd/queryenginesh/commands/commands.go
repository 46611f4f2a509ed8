package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cosmosquery/crosspartition/internal/mockgateway"
	"github.com/cosmosquery/crosspartition/internal/pipeline"
	"github.com/cosmosquery/crosspartition/internal/plan"
)

// Result is one command's outcome: something to print to the shell and
// whether it means the REPL loop should stop.
type Result interface {
	Print(w io.Writer)
	IsExit() bool
}

type ErrorResult struct{ Err string }

func (e ErrorResult) Print(w io.Writer) { fmt.Fprintln(w, "ERROR:", e.Err) }
func (e ErrorResult) IsExit() bool      { return false }

type OKResult struct{ Lines []string }

func (o OKResult) Print(w io.Writer) {
	for _, line := range o.Lines {
		fmt.Fprintln(w, line)
	}
}
func (o OKResult) IsExit() bool { return false }

type ExitResult struct{}

func (ExitResult) Print(w io.Writer) {}
func (ExitResult) IsExit() bool      { return true }

type HelpResult struct{}

func (HelpResult) IsExit() bool { return false }
func (HelpResult) Print(w io.Writer) {
	fmt.Fprintln(w, "queryenginesh commands:")
	fmt.Fprintln(w, "  .help                       show this help")
	fmt.Fprintln(w, "  .exit                        leave the shell")
	fmt.Fprintln(w, "  .ranges <json array>         set the container's physical ranges")
	fmt.Fprintln(w, "                               e.g. [{\"id\":\"0\",\"minInclusive\":\"\",\"maxExclusive\":\"FF\"}]")
	fmt.Fprintln(w, "  .seed <rangeId> <json array> seed the mock gateway's table for a range")
	fmt.Fprintln(w, "                               e.g. .seed 0 [{\"payload\":{\"id\":\"a\"}}]")
	fmt.Fprintln(w, "  .query {\"plan\":...,\"query\":\"...\"}  open a pipeline over the current ranges")
	fmt.Fprintln(w, "  .run [budget]                pull from the pipeline once")
	fmt.Fprintln(w, "  .fetch                       satisfy the pipeline's pending requests from the mock gateway")
	fmt.Fprintln(w, "  .step [budget]               run/fetch until the pipeline is done or idle")
	fmt.Fprintln(w, "  .features                    print query_supported_features()")
	fmt.Fprintln(w, "  .metrics                     print the runtime's metrics snapshot")
	fmt.Fprintln(w, "  .free                        free the current pipeline")
}

func Help() Result { return HelpResult{} }
func Exit() Result { return ExitResult{} }

func Ranges(sh Shell, rest string) Result {
	var ranges []plan.PartitionKeyRange
	if err := json.Unmarshal([]byte(rest), &ranges); err != nil {
		return ErrorResult{Err: "invalid range list: " + err.Error()}
	}
	sh.SetRanges(ranges)
	return OKResult{Lines: []string{fmt.Sprintf("set %d range(s)", len(ranges))}}
}

func Seed(sh Shell, rangeID, docsJSON string) Result {
	if rangeID == "" {
		return ErrorResult{Err: "usage: .seed <rangeId> <json array of documents>"}
	}
	var docs []mockgateway.Document
	if err := json.Unmarshal([]byte(docsJSON), &docs); err != nil {
		return ErrorResult{Err: "invalid document array: " + err.Error()}
	}
	if err := sh.Gateway().Seed(rangeID, docs); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{Lines: []string{fmt.Sprintf("seeded %d document(s) into range %s", len(docs), rangeID)}}
}

type queryRequest struct {
	Plan  json.RawMessage `json:"plan"`
	Query string          `json:"query"`
}

func Query(sh Shell, rest string) Result {
	var qr queryRequest
	if err := json.Unmarshal([]byte(rest), &qr); err != nil {
		return ErrorResult{Err: "invalid query request: " + err.Error()}
	}
	if len(sh.Ranges()) == 0 {
		return ErrorResult{Err: "no ranges set; use .ranges first"}
	}

	info, err := plan.Parse(qr.Plan)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}

	p, err := sh.Runtime().Create(sh.Ranges(), qr.Plan, qr.Query)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	sh.SetPipeline(p, info.HasOrderBy() || info.HasGroupBy())
	return OKResult{Lines: []string{"pipeline " + p.ID() + " created"}}
}

func Run(sh Shell, budget int) Result {
	lines, err := runOnce(sh, budget)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{Lines: lines}
}

func Fetch(sh Shell) Result {
	lines, err := fetchOnce(sh)
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{Lines: lines}
}

// Step alternates Run and Fetch until the pipeline finishes or produces a
// round with no pending requests to satisfy, printing every round's output
// under one Result.
func Step(sh Shell, budget int) Result {
	if sh.Pipeline() == nil {
		return ErrorResult{Err: "no pipeline open; use .query first"}
	}

	var lines []string
	for {
		round, err := runOnce(sh, budget)
		if err != nil {
			return ErrorResult{Err: err.Error()}
		}
		lines = append(lines, round...)

		if len(sh.Pending()) == 0 {
			break
		}

		round, err = fetchOnce(sh)
		if err != nil {
			return ErrorResult{Err: err.Error()}
		}
		lines = append(lines, round...)
	}
	return OKResult{Lines: lines}
}

func runOnce(sh Shell, budget int) ([]string, error) {
	p := sh.Pipeline()
	if p == nil {
		return nil, fmt.Errorf("no pipeline open; use .query first")
	}

	items, reqs, done, err := p.Run(budget)
	if err != nil {
		return nil, err
	}
	sh.SetPending(reqs)

	lines := []string{fmt.Sprintf("items=%d requests=%d done=%v", len(items), len(reqs), done)}
	for _, it := range items {
		lines = append(lines, "  "+string(it.Payload))
	}
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("  request #%d -> range %s", r.ID, r.PartitionKeyRangeID))
	}
	return lines, nil
}

func fetchOnce(sh Shell) ([]string, error) {
	p := sh.Pipeline()
	if p == nil {
		return nil, fmt.Errorf("no pipeline open; use .query first")
	}
	pending := sh.Pending()
	if len(pending) == 0 {
		return []string{"no pending requests"}, nil
	}

	responses, err := sh.Dispatcher().FetchAll(sh.Gateway(), pending, sh.Ordered())
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(responses))
	for _, resp := range responses {
		followUp, err := p.ProvideData(resp)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("provided request #%d for range %s", resp.RequestID, resp.PartitionKeyRangeID))
		if len(followUp) > 0 {
			lines = append(lines, fmt.Sprintf("  %d follow-up request(s) queued", len(followUp)))
		}
	}
	sh.SetPending(nil)
	return lines, nil
}

func Features(sh Shell) Result {
	features := pipeline.QuerySupportedFeatures(sh.Runtime().Config)
	encoded, _ := json.Marshal(features)
	return OKResult{Lines: []string{string(encoded)}}
}

func Metrics(sh Shell) Result {
	p := sh.Pipeline()
	if p == nil {
		return ErrorResult{Err: "no pipeline open; use .query first"}
	}
	return OKResult{Lines: []string{sh.Runtime().Metrics.Snapshot().String()}}
}

func Free(sh Shell) Result {
	p := sh.Pipeline()
	if p == nil {
		return ErrorResult{Err: "no pipeline open"}
	}
	p.Free()
	sh.SetPipeline(nil, false)
	sh.SetPending(nil)
	return OKResult{Lines: []string{"pipeline freed"}}
}
