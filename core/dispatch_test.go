package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// mapResolver is a minimal Resolver for dispatch tests.
type mapResolver map[string]*NodeHandle

func (m mapResolver) Resolve(toolName string) (*NodeHandle, error) {
	h, ok := m[toolName]
	if !ok {
		return nil, &NotFoundError{Kind: "node", Name: toolName}
	}
	return h, nil
}

func handleOf(name string, fn InvokeFunc) *NodeHandle {
	return NewNodeHandle(testIdentity(name), fn, CapabilityFunction)
}

func openWith(t *testing.T, r Resolver, optFns ...func(c *Config)) *Session {
	t.Helper()
	s, err := Open(append([]func(c *Config){func(c *Config) { c.Resolver = r }}, optFns...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCall_NoAmbientSession(t *testing.T) {
	_, err := Call(context.Background(), "anything", nil)
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestCall_UnresolvableLeavesNoRecord(t *testing.T) {
	s := openWith(t, mapResolver{})
	ctx := WithSession(context.Background(), s)

	_, err := Call(ctx, "missing", nil)

	var nfe *NotFoundError
	if !errors.As(err, &nfe) || nfe.Name != "missing" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if s.Graph().Len() != 0 {
		t.Errorf("failed resolution must not produce a record, graph has %d", s.Graph().Len())
	}
	if s.State() != StateCreated {
		t.Errorf("unresolvable call must not activate the session, state = %v", s.State())
	}
}

func TestCall_SuccessRecordsRoot(t *testing.T) {
	r := mapResolver{
		"echo": handleOf("echo", func(_ context.Context, args map[string]any) (any, error) {
			return args["msg"], nil
		}),
	}
	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	got, err := Call(ctx, "echo", map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Errorf("result = %v, want hi", got)
	}
	if s.State() != StateActive {
		t.Errorf("state = %v, want active", s.State())
	}

	root, ok := s.Graph().Root()
	if !ok {
		t.Fatal("expected a root record")
	}
	if root.ParentID != 0 || root.Node.ToolName != "echo" || root.Outcome.Kind != OutcomeSuccess {
		t.Errorf("unexpected root record: %+v", root)
	}
	if root.End.IsZero() {
		t.Error("completed record should carry an end time")
	}
}

func TestCall_FailureRecordedAndPropagated(t *testing.T) {
	boom := NewNodeError("flaky", "rate_limited", "slow down")
	r := mapResolver{
		"flaky": handleOf("flaky", func(context.Context, map[string]any) (any, error) {
			return nil, boom
		}),
		"plain": handleOf("plain", func(context.Context, map[string]any) (any, error) {
			return nil, fmt.Errorf("plain failure")
		}),
	}
	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	_, err := Call(ctx, "flaky", nil)
	var nerr *NodeError
	if !errors.As(err, &nerr) || nerr.Kind != "rate_limited" {
		t.Fatalf("node-supplied error must be preserved, got %v", err)
	}

	_, err = Call(ctx, "plain", nil)
	if !errors.As(err, &nerr) || nerr.Kind != NodeErrorExecution {
		t.Fatalf("opaque error must be normalized, got %v", err)
	}

	rec, _ := s.Graph().Record(1)
	if !rec.Failed() || rec.Outcome.ErrorKind != "rate_limited" {
		t.Errorf("failure not recorded: %+v", rec.Outcome)
	}
	if rec.Err() == nil {
		t.Error("Err() should reconstruct the recorded failure")
	}
}

func TestCall_RecordedArgsSurviveCallerMutation(t *testing.T) {
	r := mapResolver{
		"echo": handleOf("echo", func(_ context.Context, args map[string]any) (any, error) {
			return args["k"], nil
		}),
	}
	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	args := map[string]any{"k": "v"}
	if _, err := Call(ctx, "echo", args); err != nil {
		t.Fatal(err)
	}

	args["k"] = "tampered"

	rec, ok := s.Graph().Record(1)
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Args["k"] != "v" {
		t.Errorf("recorded arguments mutated after completion: got %v", rec.Args["k"])
	}
}

func TestCall_NestedCallsFormAncestry(t *testing.T) {
	r := mapResolver{}
	r["leaf"] = handleOf("leaf", func(ctx context.Context, _ map[string]any) (any, error) {
		id, _ := CurrentCallID(ctx)
		return id, nil
	})
	r["mid"] = handleOf("mid", func(ctx context.Context, _ map[string]any) (any, error) {
		return Call(ctx, "leaf", nil)
	})
	r["root"] = handleOf("root", func(ctx context.Context, _ map[string]any) (any, error) {
		return Call(ctx, "mid", nil)
	})

	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	leafID, err := Call(ctx, "root", nil)
	if err != nil {
		t.Fatal(err)
	}

	chain := s.Graph().Ancestors(leafID.(int64))
	if len(chain) != 3 {
		t.Fatalf("expected root->mid->leaf chain, got %d records", len(chain))
	}
	for i, want := range []string{"root", "mid", "leaf"} {
		if chain[i].Node.ToolName != want {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i].Node.ToolName, want)
		}
	}
}

func TestGo_FanOutSiblingsShareParent(t *testing.T) {
	r := mapResolver{}
	r["left"] = handleOf("left", func(context.Context, map[string]any) (any, error) {
		return "l", nil
	})
	r["right"] = handleOf("right", func(context.Context, map[string]any) (any, error) {
		return "r", nil
	})
	r["fan"] = handleOf("fan", func(ctx context.Context, _ map[string]any) (any, error) {
		left := Go(ctx, "left", nil)
		right := Go(ctx, "right", nil)
		lv, err := left.Wait()
		if err != nil {
			return nil, err
		}
		rv, err := right.Wait()
		if err != nil {
			return nil, err
		}
		return lv.(string) + rv.(string), nil
	})

	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	got, err := Call(ctx, "fan", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "lr" {
		t.Errorf("result = %v, want lr", got)
	}

	root, _ := s.Graph().Root()
	children := s.Graph().Children(root.ID)
	if len(children) != 2 {
		t.Fatalf("expected 2 children of the fan call, got %d", len(children))
	}
	for _, c := range children {
		if c.ParentID != root.ID {
			t.Errorf("child %d has parent %d, want %d", c.ID, c.ParentID, root.ID)
		}
	}
}

func TestCall_ZeroTimeoutFailsAfterEntryCall(t *testing.T) {
	r := mapResolver{
		"noop": handleOf("noop", func(context.Context, map[string]any) (any, error) {
			return nil, nil
		}),
	}
	timeout := time.Duration(0)
	s := openWith(t, r, func(c *Config) { c.Timeout = &timeout })
	ctx := WithSession(context.Background(), s)

	// The activating entry-point call is exempt from the deadline it arms.
	if _, err := Call(ctx, "noop", nil); err != nil {
		t.Fatalf("entry call should complete: %v", err)
	}

	_, err := Call(ctx, "noop", nil)
	var te *SessionTimeoutError
	if !errors.As(err, &te) || te.SessionID != s.ID() {
		t.Fatalf("expected SessionTimeoutError, got %v", err)
	}
	if s.Graph().Len() != 1 {
		t.Errorf("rejected call must not produce a record, graph has %d", s.Graph().Len())
	}
}

func TestCall_RejectedAfterClose(t *testing.T) {
	r := mapResolver{
		"noop": handleOf("noop", func(context.Context, map[string]any) (any, error) {
			return nil, nil
		}),
	}
	s := openWith(t, r)
	ctx := WithSession(context.Background(), s)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	_, err := Call(ctx, "noop", nil)
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected wrapped ErrNoActiveSession, got %v", err)
	}
}

func TestWithSession_ClearsForeignCallID(t *testing.T) {
	r := mapResolver{
		"entry": handleOf("entry", func(ctx context.Context, _ map[string]any) (any, error) {
			return nil, nil
		}),
	}
	first := openWith(t, r)
	second := openWith(t, r)

	ctx := WithSession(context.Background(), first)
	if _, err := Call(ctx, "entry", nil); err != nil {
		t.Fatal(err)
	}

	// Reusing a context from inside another session's call chain must not
	// forge a parent edge in the new session.
	inner := withCallID(ctx, 1)
	if _, err := Call(WithSession(inner, second), "entry", nil); err != nil {
		t.Fatal(err)
	}

	root, ok := second.Graph().Root()
	if !ok || root.ParentID != 0 {
		t.Errorf("entry call in the new session should be a root, got %+v", root)
	}
}

func TestSession_HooksObserveLifecycle(t *testing.T) {
	var starts, ends []int64
	hook := HookFuncs{
		Start: func(_ string, rec CallRecord) { starts = append(starts, rec.ID) },
		End:   func(_ string, rec CallRecord) { ends = append(ends, rec.ID) },
	}

	r := mapResolver{
		"noop": handleOf("noop", func(context.Context, map[string]any) (any, error) {
			return nil, nil
		}),
	}
	s := openWith(t, r, func(c *Config) { c.Hooks = []Hook{hook} })
	ctx := WithSession(context.Background(), s)

	if _, err := Call(ctx, "noop", nil); err != nil {
		t.Fatal(err)
	}

	if len(starts) != 1 || len(ends) != 1 || starts[0] != ends[0] {
		t.Errorf("hooks fired starts=%v ends=%v", starts, ends)
	}
}
