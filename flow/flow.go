package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Resolver maps tool names to node handles. Required for dispatch.
	Resolver core.Resolver
	// Store persists each invocation's call graph on session close.
	Store core.Store
	// Logger receives flow and session events. Defaults to NoOp.
	Logger logging.Logger
	// SessionConfig supplies per-invocation session defaults (timeout, seeded
	// context, session ID). Invoke options override it per call.
	SessionConfig *core.Config
	// Hooks observe every call of every invocation.
	Hooks []core.Hook
}

// flowRunLogger is the optional interface a logger can implement to receive
// aggregate per-invocation metrics.
type flowRunLogger interface {
	LogFlowRun(flow string, calls int, dur time.Duration, success bool, err error)
}

// Flow is a named entry point into the node graph. A Flow is immutable after
// construction and safe for concurrent invocation; per-run state lives in the
// session each invocation opens.
type Flow struct {
	name     string
	entry    string
	resolver core.Resolver
	store    core.Store
	logger   logging.Logger
	hooks    []core.Hook
	defaults *core.Config

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New creates a flow dispatching to the entry tool name.
func New(name, entry string, optFns ...func(o *Options)) (*Flow, error) {
	if name == "" {
		return nil, errors.New("flow name must not be empty")
	}
	if !core.ValidToolName(entry) {
		return nil, fmt.Errorf("entry %q is not a valid tool name", entry)
	}

	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	defaults := opts.SessionConfig
	if defaults == nil {
		defaults = &core.Config{}
	}

	return &Flow{
		name:       name,
		entry:      entry,
		resolver:   opts.Resolver,
		store:      opts.Store,
		logger:     opts.Logger,
		hooks:      opts.Hooks,
		defaults:   defaults.Clone(),
		activeRuns: make(map[string]context.CancelFunc),
	}, nil
}

// Name returns the flow's name.
func (f *Flow) Name() string { return f.name }

// Entry returns the tool name of the flow's entry-point node.
func (f *Flow) Entry() string { return f.entry }

// Invoke runs the flow to completion: it opens a fresh session, dispatches the
// entry call within it and closes the session before returning, so the call
// graph is persisted whether the entry call succeeded or failed. Option
// functions override the flow's session defaults for this invocation only.
func (f *Flow) Invoke(ctx context.Context, args map[string]any, optFns ...func(c *core.Config)) (any, error) {
	sess, err := f.openSession(optFns)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, callErr := core.Call(core.WithSession(ctx, sess), f.entry, args)
	calls := sess.Graph().Len()

	closeErr := sess.Close()

	if rl, ok := f.logger.(flowRunLogger); ok {
		rl.LogFlowRun(f.name, calls, time.Since(start), callErr == nil, callErr)
	}

	if callErr != nil {
		if closeErr != nil {
			// The call failure is the primary signal; a persistence failure on
			// top of it must not mask it.
			f.logger.Warn("session close failed after flow error",
				"flow", f.name, "session_id", sess.ID(), "error", closeErr.Error())
		}
		return nil, callErr
	}

	if closeErr != nil {
		return nil, closeErr
	}

	return result, nil
}

// Run starts an asynchronous invocation and returns its run ID together with
// a channel delivering the single terminal result. Cancel aborts the run
// cooperatively via its context.
func (f *Flow) Run(ctx context.Context, args map[string]any, optFns ...func(c *core.Config)) (string, <-chan core.Result, error) {
	runID := core.NewID()
	runCtx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	f.activeRuns[runID] = cancel
	f.mu.Unlock()

	f.logger.Debug("flow run started", "flow", f.name, "run_id", runID)

	out := make(chan core.Result, 1)
	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.activeRuns, runID)
			f.mu.Unlock()
			cancel()
			close(out)
		}()

		value, err := f.Invoke(runCtx, args, optFns...)
		out <- core.Result{Value: value, Err: err}
	}()

	return runID, out, nil
}

// Cancel signals a running invocation to stop. Cancellation is cooperative:
// nodes observe it through the context passed to their invoke functions.
func (f *Flow) Cancel(runID string) error {
	f.mu.Lock()
	cancel, ok := f.activeRuns[runID]
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("no active run with id %s", runID)
	}

	cancel()

	f.logger.Debug("flow run cancelled", "flow", f.name, "run_id", runID)

	return nil
}

// ActiveRuns returns the number of invocations currently in flight via Run.
func (f *Flow) ActiveRuns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.activeRuns)
}

func (f *Flow) openSession(optFns []func(c *core.Config)) (*core.Session, error) {
	cfg := f.defaults.Clone()

	for _, fn := range optFns {
		fn(cfg)
	}

	if cfg.Resolver == nil {
		cfg.Resolver = f.resolver
	}
	if cfg.Store == nil {
		cfg.Store = f.store
	}
	if cfg.Logger == nil {
		cfg.Logger = f.logger
	}
	cfg.Hooks = append(cfg.Hooks, f.hooks...)

	return core.Open(cfg.Option())
}
