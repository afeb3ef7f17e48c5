package core

import (
	"fmt"
	"time"
)

// OutcomeKind enumerates the terminal states of a call record.
type OutcomeKind int

const (
	// OutcomePending marks a call that has started but not completed. A crash
	// mid-invocation leaves Pending records in any partially persisted graph,
	// making in-flight work reconstructable postmortem.
	OutcomePending OutcomeKind = iota
	// OutcomeSuccess marks a call that returned normally.
	OutcomeSuccess
	// OutcomeFailure marks a call whose node reported a failure.
	OutcomeFailure
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*k = OutcomePending
	case "success":
		*k = OutcomeSuccess
	case "failure":
		*k = OutcomeFailure
	default:
		return fmt.Errorf("unknown outcome kind %q", string(b))
	}
	return nil
}

// Outcome is the result slot of a call record. Exactly one of Result or the
// error fields is meaningful, selected by Kind. Once set to a terminal kind
// the outcome is immutable.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	Result       any         `json:"result,omitempty"`
	ErrorKind    string      `json:"error_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// CallRecord is one entry in a session's call graph. IDs are assigned
// monotonically within the session; ParentID is fixed at creation (0 for the
// entry-point call) and immutable thereafter, so the graph is a rooted tree
// by construction.
type CallRecord struct {
	ID       int64          `json:"call_id"`
	ParentID int64          `json:"parent_call_id,omitzero"`
	Node     NodeIdentity   `json:"node"`
	Start    time.Time      `json:"start_time"`
	End      time.Time      `json:"end_time,omitzero"`
	Args     map[string]any `json:"arguments,omitempty"`
	Outcome  Outcome        `json:"outcome"`
}

// Completed reports whether the record reached a terminal outcome.
func (r CallRecord) Completed() bool { return r.Outcome.Kind != OutcomePending }

// Failed reports whether the record completed with a failure outcome.
func (r CallRecord) Failed() bool { return r.Outcome.Kind == OutcomeFailure }

// Err reconstructs the recorded failure as a *NodeError, or nil.
func (r CallRecord) Err() error {
	if !r.Failed() {
		return nil
	}
	return &NodeError{Node: r.Node.ToolName, Kind: r.Outcome.ErrorKind, Message: r.Outcome.ErrorMessage}
}

// clone deep-copies the record's argument map so snapshots cannot alias
// graph-internal state.
func (r CallRecord) clone() CallRecord {
	if r.Args != nil {
		args := make(map[string]any, len(r.Args))
		for k, v := range r.Args {
			args[k] = v
		}
		r.Args = args
	}
	return r
}
