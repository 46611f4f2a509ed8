package mockgateway

import (
	"encoding/json"
	"testing"

	"github.com/cosmosquery/crosspartition/internal/buffer"
)

func TestGateway_FetchUnorderedPaginates(t *testing.T) {
	gw, err := Open(2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer gw.Close()

	docs := []Document{
		{Payload: json.RawMessage(`{"id":"a"}`)},
		{Payload: json.RawMessage(`{"id":"b"}`)},
		{Payload: json.RawMessage(`{"id":"c"}`)},
	}
	if err := gw.Seed("0", docs); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	page1, cont1, err := gw.Fetch("0", "", false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cont1 == "" {
		t.Fatal("expected a continuation after the first page of 3 docs with page size 2")
	}
	items1, err := buffer.DecodeResponse(page1, false)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(items1) != 2 {
		t.Fatalf("got %d items, want 2", len(items1))
	}

	page2, cont2, err := gw.Fetch("0", cont1, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cont2 != "" {
		t.Fatal("expected no continuation after the final page")
	}
	items2, err := buffer.DecodeResponse(page2, false)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(items2) != 1 || string(items2[0].Payload) != `{"id":"c"}` {
		t.Fatalf("got %v, want one item {\"id\":\"c\"}", items2)
	}
}

func TestGateway_FetchOrderedRoundTrips(t *testing.T) {
	gw, err := Open(10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer gw.Close()

	docs := []Document{
		{Payload: json.RawMessage(`{"id":"x"}`), OrderByItems: []json.RawMessage{ClauseItem(1)}},
		{Payload: json.RawMessage(`{"id":"y"}`), OrderByItems: []json.RawMessage{ClauseItem(2)}},
	}
	if err := gw.Seed("0", docs); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	page, cont, err := gw.Fetch("0", "", true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cont != "" {
		t.Fatal("expected the only page to be final")
	}

	items, err := buffer.DecodeResponse(page, true)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].OrderByItems[0].Number != 1 {
		t.Fatalf("items[0].OrderByItems[0] = %v, want 1", items[0].OrderByItems[0])
	}
}

func TestGateway_FetchEmptyRangeReturnsNoItemsNoContinuation(t *testing.T) {
	gw, err := Open(10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer gw.Close()

	page, cont, err := gw.Fetch("missing", "", false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cont != "" {
		t.Fatal("expected no continuation for an empty range")
	}
	items, err := buffer.DecodeResponse(page, false)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
}

func TestGateway_FetchRejectsMalformedContinuation(t *testing.T) {
	gw, err := Open(10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer gw.Close()

	if _, _, err := gw.Fetch("0", "not-a-continuation", false); err == nil {
		t.Fatal("expected an error for a malformed continuation token")
	}
}
