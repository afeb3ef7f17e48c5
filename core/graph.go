package core

import (
	"iter"
	"sort"
	"sync"
	"time"
)

// CallGraph is the append-only, ordered record of invocations accumulated
// during one session. It is the single shared mutation point under concurrent
// sibling calls: record creation and monotonic ID assignment are serialized
// by one mutex, so IDs are strictly increasing and never duplicated.
//
// Read accessors return defensive copies; a graph is never consumed by
// traversal.
type CallGraph struct {
	mu      sync.Mutex
	nextID  int64
	records []*CallRecord
	byID    map[int64]*CallRecord
}

// NewCallGraph constructs an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{byID: make(map[int64]*CallRecord)}
}

// begin appends a Pending record with the next monotonic ID and returns its
// assigned ID. The parent is fixed here and never changes, which keeps the
// graph a rooted tree: a call's parent always predates it.
func (g *CallGraph) begin(parentID int64, node NodeIdentity, args map[string]any) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	// The argument map is copied on the way in, not just on reads: the caller
	// and the node keep mutating their map, the record must not follow.
	rec := CallRecord{
		ID:       g.nextID,
		ParentID: parentID,
		Node:     node,
		Start:    time.Now().UTC(),
		Args:     args,
		Outcome:  Outcome{Kind: OutcomePending},
	}.clone()
	g.records = append(g.records, &rec)
	g.byID[rec.ID] = &rec

	return rec.ID
}

// complete sets the terminal outcome and end time for a record. Records are
// immutable once their outcome is set; a second completion attempt is a no-op.
// The completed record is returned by value for logging and hooks.
func (g *CallGraph) complete(id int64, result any, nerr *NodeError) (CallRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.byID[id]
	if !ok || rec.Outcome.Kind != OutcomePending {
		return CallRecord{}, false
	}

	rec.End = time.Now().UTC()
	if nerr != nil {
		rec.Outcome = Outcome{Kind: OutcomeFailure, ErrorKind: nerr.Kind, ErrorMessage: nerr.Message}
	} else {
		rec.Outcome = Outcome{Kind: OutcomeSuccess, Result: result}
	}

	return rec.clone(), true
}

// Len returns the number of records in the graph.
func (g *CallGraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Record returns a copy of the record with the given ID.
func (g *CallGraph) Record(id int64) (CallRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.byID[id]
	if !ok {
		return CallRecord{}, false
	}
	return rec.clone(), true
}

// Root returns the entry-point record of the session, if any call has been
// issued yet.
func (g *CallGraph) Root() (CallRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.records) == 0 {
		return CallRecord{}, false
	}
	return g.records[0].clone(), true
}

// Children returns the direct children of the given record, ordered by start
// time with ties broken by ascending ID. ID assignment order is the tie-break,
// so the order is a deterministic total order even for identical
// concurrent-start timestamps.
func (g *CallGraph) Children(id int64) []CallRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []CallRecord
	for _, rec := range g.records {
		if rec.ParentID == id {
			out = append(out, rec.clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})

	return out
}

// Ancestors returns the chain of records from the root down to (and
// including) the record with the given ID. It returns nil for unknown IDs.
func (g *CallGraph) Ancestors(id int64) []CallRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	var chain []CallRecord
	rec, ok := g.byID[id]
	for ok {
		chain = append(chain, rec.clone())
		if rec.ParentID == 0 {
			break
		}
		rec, ok = g.byID[rec.ParentID]
	}
	if len(chain) == 0 {
		return nil
	}

	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}

// All returns a lazy, restartable sequence over the graph's records in ID
// (creation) order. Each traversal snapshots the graph under the lock; a
// fresh traversal is pure read access and never consumes the graph.
func (g *CallGraph) All() iter.Seq[CallRecord] {
	return func(yield func(CallRecord) bool) {
		for _, rec := range g.copyRecords() {
			if !yield(rec) {
				return
			}
		}
	}
}

func (g *CallGraph) copyRecords() []CallRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CallRecord, len(g.records))
	for i, rec := range g.records {
		out[i] = rec.clone()
	}
	return out
}
