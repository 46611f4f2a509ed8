// Package mockgateway is a sqlite-resident stand-in for a Cosmos DB
// gateway: each partition key range is a set of rows in one table, and
// Fetch pages them out in the exact wire shapes internal/buffer.
// DecodeResponse expects, so tests/integration and cmd/queryenginesh can
// drive a real Pipeline against a real, queryable backing store instead of
// hand-rolled slices.
package mockgateway

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

var gatewaySeq atomic.Int64

// Document is one row Seed inserts: Payload is the document body, and
// OrderByItems is the sort-key tuple the gateway would have attached had a
// real backend evaluated the plan's ORDER BY clause against it. Seed
// callers are expected to pass documents already in the order a real
// gateway would return them for the query being simulated (sorted by
// OrderByItems for an ordered scenario, insertion order otherwise); the
// store does not re-sort on Fetch. Each OrderByItems element must already
// be wrapped in the gateway's clause-item envelope ({"item": <value>}),
// the same shape internal/buffer.DecodeResponse expects; use ClauseItem to
// build one from a raw Go value instead of marshaling it bare.
type Document struct {
	Payload      json.RawMessage
	OrderByItems []json.RawMessage
}

// ClauseItem marshals v and wraps it in the gateway's {"item": <value>}
// clause-item envelope, the wire shape every orderByItems/groupByItems/
// aggregateItems element carries.
func ClauseItem(v any) json.RawMessage {
	encoded, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"item":null}`)
	}
	out, err := json.Marshal(struct {
		Item json.RawMessage `json:"item"`
	}{Item: encoded})
	if err != nil {
		return json.RawMessage(`{"item":null}`)
	}
	return out
}

// Gateway holds an in-memory sqlite-backed table of seeded documents,
// partitioned by range id and paged by PageSize.
type Gateway struct {
	db       *sql.DB
	PageSize int
}

// Open creates a Gateway backed by a fresh in-memory sqlite database. Every
// Gateway gets its own private database (sqlite's "?mode=memory&cache=shared"
// pitfall doesn't apply here because each Open dials a distinct DSN).
func Open(pageSize int) (*Gateway, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:mockgateway-%d?mode=memory&cache=private", gatewaySeq.Add(1)))
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "opening mock gateway store", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE documents (
			range_id TEXT NOT NULL,
			seq      INTEGER NOT NULL,
			payload  TEXT NOT NULL,
			order_by TEXT
		)
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.InternalError, "creating mock gateway schema", err)
	}

	return &Gateway{db: db, PageSize: pageSize}, nil
}

// Close releases the underlying sqlite connection.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Seed appends docs to rangeID's table, in the order given. Calling Seed
// again for the same rangeID appends after whatever was seeded before.
func (g *Gateway) Seed(rangeID string, docs []Document) error {
	tx, err := g.db.Begin()
	if err != nil {
		return errors.Wrap(errors.InternalError, "seeding mock gateway", err)
	}
	defer tx.Rollback()

	var maxSeq int64
	row := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) FROM documents WHERE range_id = ?`, rangeID)
	if err := row.Scan(&maxSeq); err != nil {
		return errors.Wrap(errors.InternalError, "seeding mock gateway", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO documents (range_id, seq, payload, order_by) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.InternalError, "seeding mock gateway", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		var orderBy string
		if len(doc.OrderByItems) > 0 {
			encoded, err := json.Marshal(doc.OrderByItems)
			if err != nil {
				return errors.Wrap(errors.InternalError, "encoding orderByItems", err)
			}
			orderBy = string(encoded)
		}
		if _, err := stmt.Exec(rangeID, maxSeq+1+int64(i), string(doc.Payload), orderBy); err != nil {
			return errors.Wrap(errors.InternalError, "seeding mock gateway", err)
		}
	}

	return tx.Commit()
}

// unorderedEnvelope and orderedRow mirror internal/buffer's decode shapes
// exactly, so Fetch's output round-trips through DecodeResponse unchanged.
type unorderedEnvelope struct {
	Documents []json.RawMessage `json:"Documents"`
}

type orderedRow struct {
	Payload      json.RawMessage   `json:"payload"`
	OrderByItems []json.RawMessage `json:"orderByItems,omitempty"`
}

// Fetch returns the next page of rangeID's documents after continuation
// (the empty string for the first page), encoded as the wire envelope
// ordered selects, plus the continuation token for the following page
// ("" once the range is exhausted).
func (g *Gateway) Fetch(rangeID, continuation string, ordered bool) (page []byte, nextContinuation string, err error) {
	offset, err := decodeContinuation(continuation)
	if err != nil {
		return nil, "", err
	}

	rows, err := g.db.Query(
		`SELECT payload, order_by FROM documents WHERE range_id = ? ORDER BY seq LIMIT ? OFFSET ?`,
		rangeID, g.PageSize+1, offset,
	)
	if err != nil {
		return nil, "", errors.Wrap(errors.InternalError, "querying mock gateway", err)
	}
	defer rows.Close()

	type scanned struct {
		payload string
		orderBy string
	}
	var all []scanned
	for rows.Next() {
		var s scanned
		var orderBy sql.NullString
		if err := rows.Scan(&s.payload, &orderBy); err != nil {
			return nil, "", errors.Wrap(errors.InternalError, "scanning mock gateway row", err)
		}
		s.orderBy = orderBy.String
		all = append(all, s)
	}

	hasMore := len(all) > g.PageSize
	if hasMore {
		all = all[:g.PageSize]
	}

	if ordered {
		out := make([]orderedRow, len(all))
		for i, s := range all {
			out[i].Payload = json.RawMessage(s.payload)
			if s.orderBy != "" {
				var items []json.RawMessage
				if err := json.Unmarshal([]byte(s.orderBy), &items); err != nil {
					return nil, "", errors.Wrap(errors.InternalError, "decoding stored orderByItems", err)
				}
				out[i].OrderByItems = items
			}
		}
		page, err = json.Marshal(out)
	} else {
		env := unorderedEnvelope{Documents: make([]json.RawMessage, len(all))}
		for i, s := range all {
			env.Documents[i] = json.RawMessage(s.payload)
		}
		page, err = json.Marshal(env)
	}
	if err != nil {
		return nil, "", errors.Wrap(errors.InternalError, "encoding mock gateway page", err)
	}

	if hasMore {
		nextContinuation = encodeContinuation(offset + int64(g.PageSize))
	}
	return page, nextContinuation, nil
}

func encodeContinuation(offset int64) string {
	return fmt.Sprintf("offset:%d", offset)
}

func decodeContinuation(continuation string) (int64, error) {
	if continuation == "" {
		return 0, nil
	}
	var offset int64
	if _, err := fmt.Sscanf(continuation, "offset:%d", &offset); err != nil {
		return 0, errors.New(errors.InvalidGatewayResponse, "malformed mock gateway continuation token: "+continuation)
	}
	return offset, nil
}
