package pipeline

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

func twoRanges() []plan.PartitionKeyRange {
	return []plan.PartitionKeyRange{
		{ID: "0", MinInclusive: "", MaxExclusive: "80"},
		{ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
	}
}

func TestCreate_RejectsUnsupportedVersion(t *testing.T) {
	_, err := Create(nil, nil, nil, nil, nil, twoRanges(), []byte(`{"partitionedQueryExecutionInfoVersion":0,"queryInfo":{}}`), "SELECT * FROM c")
	if err == nil {
		t.Fatal("expected an error for plan version 0")
	}
}

func TestCreate_RejectsTooManySortKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxOrderBySortKeys = 1
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{
		"orderBy":["Ascending","Ascending"],
		"orderByExpressions":["c.a","c.b"]
	}}`)
	_, err := Create(cfg, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c ORDER BY c.a, c.b")
	if err == nil {
		t.Fatal("expected UnsupportedQueryPlan for an orderBy longer than the configured max")
	}
}

func TestCreate_RejectsHybridWhenDisabled(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{"requiresHybridSearch":true}}`)
	_, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c")
	if err == nil {
		t.Fatal("expected UnsupportedQueryPlan when hybrid search is required but disabled")
	}
}

func TestPipeline_UnorderedScanAcrossTwoRanges(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`)
	p, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Free()

	_, reqs, done, err := p.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if done {
		t.Fatal("should not be done before any data arrives")
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d initial requests, want 2", len(reqs))
	}

	for _, req := range reqs {
		data := []byte(`{"Documents":[{"id":"` + req.PartitionKeyRangeID + `-a"}]}`)
		if _, err := p.ProvideData(request.QueryResponse{
			RequestID:           req.ID,
			PartitionKeyRangeID: req.PartitionKeyRangeID,
			Data:                data,
			Continuation:        "",
		}); err != nil {
			t.Fatalf("ProvideData: %v", err)
		}
	}

	items, reqs, done, err := p.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if len(reqs) != 0 {
		t.Fatalf("got %d requests after both ranges terminated, want 0", len(reqs))
	}
	if !done {
		t.Fatal("expected done once both ranges are drained and empty")
	}
}

func TestPipeline_ProvideDataRejectsUnknownRange(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`)
	p, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Free()

	_, err = p.ProvideData(request.QueryResponse{RequestID: 1, PartitionKeyRangeID: "nope", Data: []byte(`{"Documents":[]}`)})
	if err == nil {
		t.Fatal("expected an error for a response naming an unselected range")
	}
}

func TestPipeline_ProvideDataRejectsRequestIDMismatch(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`)
	p, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Free()

	_, reqs, _, err := p.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, err = p.ProvideData(request.QueryResponse{
		RequestID:           reqs[0].ID + 1000,
		PartitionKeyRangeID: reqs[0].PartitionKeyRangeID,
		Data:                []byte(`{"Documents":[]}`),
	})
	if err == nil {
		t.Fatal("expected an error for a mismatched request_id")
	}
}

func TestPipeline_RunAfterFreeFails(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`)
	p, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p.Free()

	if _, _, _, err := p.Run(0); err == nil {
		t.Fatal("expected an error running a freed pipeline")
	}
}

func TestQuerySupportedFeatures_ReflectsHybridFlag(t *testing.T) {
	cfg := config.Default()
	if QuerySupportedFeatures(cfg).Hybrid {
		t.Fatal("hybrid should be off by default")
	}
	cfg.Feature.EnableHybrid = true
	if !QuerySupportedFeatures(cfg).Hybrid {
		t.Fatal("hybrid should reflect EnableHybrid once set")
	}
}

func TestPipeline_OrderedScanMergesAcrossRanges(t *testing.T) {
	planJSON := []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{
		"orderBy":["Ascending"],
		"orderByExpressions":["c.a"]
	}}`)
	p, err := Create(nil, nil, nil, nil, nil, twoRanges(), planJSON, "SELECT * FROM c ORDER BY c.a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer p.Free()

	_, reqs, _, err := p.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d initial requests, want 2", len(reqs))
	}

	pages := map[string]string{
		"0": `[{"payload":{"id":"x"},"orderByItems":[{"item":1}]},{"payload":{"id":"y"},"orderByItems":[{"item":3}]}]`,
		"1": `[{"payload":{"id":"z"},"orderByItems":[{"item":2}]}]`,
	}
	for _, req := range reqs {
		if _, err := p.ProvideData(request.QueryResponse{
			RequestID:           req.ID,
			PartitionKeyRangeID: req.PartitionKeyRangeID,
			Data:                []byte(pages[req.PartitionKeyRangeID]),
			Continuation:        "",
		}); err != nil {
			t.Fatalf("ProvideData: %v", err)
		}
	}

	items, _, done, err := p.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !done {
		t.Fatal("expected done once every range is drained")
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	want := []string{`{"id":"x"}`, `{"id":"z"}`, `{"id":"y"}`}
	for i, w := range want {
		if string(items[i].Payload) != w {
			t.Fatalf("items[%d] = %s, want %s", i, items[i].Payload, w)
		}
	}
}
