package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoActiveSession is returned by Call when the supplied context carries no
// ambient session. No call record is produced in that case.
var ErrNoActiveSession = errors.New("no active session in context")

// ConflictError reports a registration-time naming conflict: a tool name that
// is already bound to a different display name or implementation.
type ConflictError struct {
	ToolName string `json:"tool_name"` // Conflicting tool name
	Existing string `json:"existing"`  // Display name already registered
	Proposed string `json:"proposed"`  // Display name of the rejected registration
}

func (e *ConflictError) Error() string {
	if e.Existing != e.Proposed {
		return fmt.Sprintf("node %q already registered as %q, refusing %q", e.ToolName, e.Existing, e.Proposed)
	}
	return fmt.Sprintf("node %q already registered with a different implementation", e.ToolName)
}

// NotFoundError reports an unresolvable node or a missing persisted session.
type NotFoundError struct {
	Kind string `json:"kind"` // "node" or "session"
	Name string `json:"name"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// SessionTimeoutError is returned for calls issued after the session deadline.
// In-flight calls are allowed to complete; only new dispatches fail.
type SessionTimeoutError struct {
	SessionID string    `json:"session_id"`
	Deadline  time.Time `json:"deadline"`
}

func (e *SessionTimeoutError) Error() string {
	return fmt.Sprintf("session %s deadline %s exceeded", e.SessionID, e.Deadline.Format(time.RFC3339Nano))
}

// ConfigError reports a rejected session configuration option. Unrecognized
// options fail loudly rather than being silently ignored.
type ConfigError struct {
	Option  string `json:"option"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session config option %q: %s", e.Option, e.Message)
}

// Node failure kinds assigned when normalizing errors returned by node
// implementations. Nodes may report their own kinds via NodeError directly.
const (
	// NodeErrorExecution marks an opaque error surfaced by a node implementation.
	NodeErrorExecution = "execution_error"
)

// NodeError represents a node's own reported failure. It is recorded in the
// call graph and re-surfaced to the immediate caller of Call; the dispatcher
// never swallows it.
type NodeError struct {
	Node    string `json:"node"`    // Tool name of the failing node
	Kind    string `json:"kind"`    // Failure category (opaque to the dispatcher)
	Message string `json:"message"` // Human-readable failure message
}

func (e *NodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("node error [%s] in %s: %s", e.Kind, e.Node, e.Message)
	}
	return fmt.Sprintf("node error in %s: %s", e.Node, e.Message)
}

// NewNodeError creates a NodeError with the specified details.
func NewNodeError(node, kind, message string) *NodeError {
	return &NodeError{Node: node, Kind: kind, Message: message}
}

// asNodeError normalizes an arbitrary error returned by a node into a
// *NodeError, preserving node-supplied errors unchanged.
func asNodeError(node string, err error) *NodeError {
	var nerr *NodeError
	if errors.As(err, &nerr) {
		return nerr
	}
	return &NodeError{Node: node, Kind: NodeErrorExecution, Message: err.Error()}
}
