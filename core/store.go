package core

import (
	"context"
	"time"
)

// GraphSnapshot is the serializable form of a session's call graph plus the
// session metadata a read-only consumer (persistence, visualizer) needs. It
// is fully detached from the live graph: mutating a snapshot never affects
// the session it was taken from.
type GraphSnapshot struct {
	SessionID string         `json:"session_id"`
	Created   time.Time      `json:"created"`
	Finalized time.Time      `json:"finalized,omitzero"`
	Context   map[string]any `json:"context,omitempty"`
	Records   []CallRecord   `json:"records"`
}

// Clone returns a deep copy of the snapshot.
func (s *GraphSnapshot) Clone() *GraphSnapshot {
	out := &GraphSnapshot{
		SessionID: s.SessionID,
		Created:   s.Created,
		Finalized: s.Finalized,
		Records:   make([]CallRecord, len(s.Records)),
	}
	if s.Context != nil {
		out.Context = make(map[string]any, len(s.Context))
		for k, v := range s.Context {
			out.Context[k] = v
		}
	}
	for i, rec := range s.Records {
		out.Records[i] = rec.clone()
	}
	return out
}

// Root returns the entry-point record of the snapshot, if present.
func (s *GraphSnapshot) Root() (CallRecord, bool) {
	if len(s.Records) == 0 {
		return CallRecord{}, false
	}
	return s.Records[0], true
}

// Store persists session snapshots keyed by session ID. The store is
// append-at-key, not version-chained: a Save under an existing ID overwrites
// the previous record and reports replaced=true so the caller can surface a
// warning. Only the latest save per session ID is retrievable.
type Store interface {
	// Save writes a durable record for the snapshot's session ID. It reports
	// whether an existing record was overwritten. Overwrites are not errors.
	Save(ctx context.Context, snap *GraphSnapshot) (replaced bool, err error)

	// Load returns the latest snapshot saved under sessionID, or a
	// *NotFoundError if none exists.
	Load(ctx context.Context, sessionID string) (*GraphSnapshot, error)
}
