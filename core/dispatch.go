package core

import (
	"context"
	"fmt"
	"time"
)

// Call is the dispatch primitive. It resolves toolName against the ambient
// session's resolver, appends a call-graph edge from the currently executing
// call to the new one, invokes the node and returns its result or failure.
//
// The ambient session and current-call identity travel in ctx; callers never
// pass them explicitly. Failing preconditions produce no call record:
//
//   - no ambient session      -> ErrNoActiveSession
//   - unresolvable tool name  -> *NotFoundError
//   - session deadline passed -> *SessionTimeoutError
//
// Node failures are recorded in the graph and then propagated to the caller;
// they are never swallowed at the dispatcher level.
func Call(ctx context.Context, toolName string, args map[string]any) (any, error) {
	s, ok := SessionFrom(ctx)
	if !ok {
		return nil, ErrNoActiveSession
	}
	return s.dispatch(ctx, toolName, args)
}

func (s *Session) dispatch(ctx context.Context, toolName string, args map[string]any) (any, error) {
	if st := s.State(); st == StateFinalizing || st == StateClosed {
		return nil, fmt.Errorf("session %s is %s: %w", s.id, st, ErrNoActiveSession)
	}

	if s.resolver == nil {
		return nil, fmt.Errorf("session %s has no node resolver configured", s.id)
	}

	handle, err := s.resolver.Resolve(toolName)
	if err != nil {
		return nil, err
	}

	// The first resolvable call performs the Created->Active transition and
	// arms the deadline; it is exempt from the expiry check it just armed.
	// Later calls are rejected once the deadline passes, while calls already
	// in flight run to completion (cooperative, not preemptive).
	first := s.activate()
	if !first {
		if deadline, armed := s.Deadline(); armed && !time.Now().UTC().Before(deadline) {
			s.logger.Warn("call rejected after session deadline",
				"session_id", s.id, "tool_name", toolName)
			return nil, &SessionTimeoutError{SessionID: s.id, Deadline: deadline}
		}
	}

	var parentID int64
	if id, ok := CurrentCallID(ctx); ok {
		parentID = id
	}

	callID := s.graph.begin(parentID, handle.Identity, args)
	start := time.Now()

	s.logger.Debug("call started",
		"session_id", s.id, "call_id", callID, "parent_call_id", parentID, "tool_name", toolName)

	if rec, ok := s.graph.Record(callID); ok {
		for _, h := range s.hooks {
			h.OnCallStart(s.id, rec)
		}
	}

	result, err := handle.Invoke(withCallID(ctx, callID), args)
	if err != nil {
		nerr := asNodeError(handle.Identity.ToolName, err)

		rec, _ := s.graph.complete(callID, nil, nerr)
		for _, h := range s.hooks {
			h.OnCallEnd(s.id, rec)
		}

		s.logger.Error("call failed",
			"session_id", s.id, "call_id", callID, "tool_name", toolName,
			"duration", time.Since(start), "error", nerr.Error())

		return nil, nerr
	}

	rec, _ := s.graph.complete(callID, result, nil)
	for _, h := range s.hooks {
		h.OnCallEnd(s.id, rec)
	}

	s.logger.Debug("call completed",
		"session_id", s.id, "call_id", callID, "tool_name", toolName,
		"duration", time.Since(start))

	return result, nil
}

// Result is the terminal value of an asynchronous call or flow run.
type Result struct {
	Value any
	Err   error
}

// Future is the handle for a call issued with Go. Sibling futures created
// without awaiting each other run concurrently; completions are observed in
// whatever order they finish.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Go issues a call on its own goroutine and returns a Future for its result.
// The parent edge is captured from ctx at issue time, so fanned-out siblings
// all attach to the same parent call.
func Go(ctx context.Context, toolName string, args map[string]any) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = Call(ctx, toolName, args)
	}()
	return f
}

// Done returns a channel closed when the call completes.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the call completes and returns its result or failure.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.value, f.err
}
