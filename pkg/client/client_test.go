package client

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
)

func oneRange() []plan.PartitionKeyRange {
	return []plan.PartitionKeyRange{{ID: "0", MinInclusive: "", MaxExclusive: "FF"}}
}

func TestClient_QueryRunsToCompletion(t *testing.T) {
	c := New(nil)
	defer c.Close()

	q, err := c.Query(oneRange(), []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`), "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	_, reqs, _, err := q.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}

	if _, err := q.ProvideData(request.QueryResponse{
		RequestID:           reqs[0].ID,
		PartitionKeyRangeID: reqs[0].PartitionKeyRangeID,
		Data:                []byte(`{"Documents":[{"id":"a"}]}`),
	}); err != nil {
		t.Fatalf("ProvideData: %v", err)
	}

	items, _, done, err := q.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !done {
		t.Fatal("expected done after the only range terminates")
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestClient_CloseFreesOpenQueries(t *testing.T) {
	c := New(nil)
	q, err := c.Query(oneRange(), []byte(`{"partitionedQueryExecutionInfoVersion":1,"queryInfo":{}}`), "SELECT * FROM c")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, _, _, err := q.Run(0); err == nil {
		t.Fatal("expected an error running a query after Client.Close freed it")
	}
}

func TestClient_SupportedFeaturesDefaultsHybridOff(t *testing.T) {
	c := New(nil)
	defer c.Close()

	if c.SupportedFeatures().Hybrid {
		t.Fatal("hybrid should be off by default")
	}
}
