package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowmesh/flowmesh/logging"
)

// SessionState tracks the lifecycle of a session.
type SessionState int32

const (
	// StateCreated is the initial state after Open, before the first call.
	StateCreated SessionState = iota
	// StateActive is entered on the first dispatched call; the timeout
	// deadline is armed at this transition.
	StateActive
	// StateFinalizing is entered when Close begins persisting the graph.
	StateFinalizing
	// StateClosed is the terminal state; ambient context is released.
	StateClosed
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config carries session construction options. The externally recognized
// option surface (session_id, timeout, context, logging_level) is decoded by
// ConfigFromMap; the remaining fields are programmatic wiring supplied by the
// flow layer or the facade.
type Config struct {
	// SessionID identifies the run; generated when empty.
	SessionID string
	// Timeout is the session deadline measured from activation. Nil means no
	// deadline; zero fails every call after the activating entry-point call.
	Timeout *time.Duration
	// Context seeds the ambient per-session key/value mapping.
	Context map[string]any
	// LoggingLevel controls the verbosity of a logger constructed from map
	// config; ignored when Logger is set explicitly.
	LoggingLevel logging.LogLevel
	// Logger receives session lifecycle and call events. Defaults to NoOp.
	Logger logging.Logger
	// Store persists the final graph snapshot on Close. Nil skips persistence.
	Store Store
	// Resolver maps tool names to node handles for dispatch.
	Resolver Resolver
	// Hooks observe call starts and completions.
	Hooks []Hook
}

// Clone returns a deep copy of the config (context map and hook slice).
func (c *Config) Clone() *Config {
	out := *c
	if c.Context != nil {
		out.Context = make(map[string]any, len(c.Context))
		for k, v := range c.Context {
			out.Context[k] = v
		}
	}
	if c.Hooks != nil {
		out.Hooks = append([]Hook(nil), c.Hooks...)
	}
	return &out
}

// Option adapts a fully built Config into an Open option.
func (c *Config) Option() func(*Config) {
	cp := c.Clone()
	return func(dst *Config) { *dst = *cp }
}

// Session is the lifecycle container for one run: it owns exactly one call
// graph and one ambient key/value context, scoped to this session only and
// propagated implicitly to descendant calls. Sessions never share graphs or
// ambient context, so no cross-session locking exists.
type Session struct {
	id      string
	created time.Time
	timeout *time.Duration
	graph   *CallGraph

	deadlineMu sync.RWMutex
	deadline   time.Time // armed on activation; zero = none
	store    Store
	resolver Resolver
	logger   logging.Logger
	hooks    []Hook

	state        atomic.Int32
	activateOnce sync.Once

	ambientMu sync.RWMutex
	ambient   map[string]any

	closeOnce sync.Once
	closeErr  error
}

// Open performs scoped acquisition of a new session. The caller must pair it
// with Close on every exit path; Close is idempotent and performs the single
// finalize-and-persist step.
func Open(optFns ...func(c *Config)) (*Session, error) {
	cfg := Config{LoggingLevel: logging.LogLevelInfo}

	for _, fn := range optFns {
		fn(&cfg)
	}

	if cfg.Timeout != nil && *cfg.Timeout < 0 {
		return nil, &ConfigError{Option: "timeout", Message: "must not be negative"}
	}

	if cfg.SessionID == "" {
		cfg.SessionID = NewID()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	ambient := make(map[string]any, len(cfg.Context))
	for k, v := range cfg.Context {
		ambient[k] = v
	}

	s := &Session{
		id:       cfg.SessionID,
		created:  time.Now().UTC(),
		timeout:  cfg.Timeout,
		graph:    NewCallGraph(),
		store:    cfg.Store,
		resolver: cfg.Resolver,
		logger:   logger,
		hooks:    cfg.Hooks,
		ambient:  ambient,
	}
	s.state.Store(int32(StateCreated))

	logger.Debug("session opened", "session_id", s.id)

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Graph returns the session's call graph for read access.
func (s *Session) Graph() *CallGraph { return s.graph }

// Deadline returns the armed timeout deadline. The boolean is false until a
// timeout-configured session activates. Safe to call concurrently with the
// activating dispatch.
func (s *Session) Deadline() (time.Time, bool) {
	s.deadlineMu.RLock()
	defer s.deadlineMu.RUnlock()
	return s.deadline, !s.deadline.IsZero()
}

// Get reads a key from the ambient session context. Visible to every
// descendant call within this session only.
func (s *Session) Get(key string) (any, bool) {
	s.ambientMu.RLock()
	defer s.ambientMu.RUnlock()
	v, ok := s.ambient[key]
	return v, ok
}

// Set writes a key into the ambient session context. Writes are serialized
// per session with last-writer-wins semantics and become visible immediately
// to calls that read afterwards.
func (s *Session) Set(key string, value any) {
	s.ambientMu.Lock()
	defer s.ambientMu.Unlock()
	s.ambient[key] = value
}

// Snapshot produces a detached, serializable copy of the session's call graph
// and ambient context. Safe to call at any point in the lifecycle.
func (s *Session) Snapshot() *GraphSnapshot {
	s.ambientMu.RLock()
	ambient := make(map[string]any, len(s.ambient))
	for k, v := range s.ambient {
		ambient[k] = v
	}
	s.ambientMu.RUnlock()

	return &GraphSnapshot{
		SessionID: s.id,
		Created:   s.created,
		Context:   ambient,
		Records:   s.graph.copyRecords(),
	}
}

// Close transitions Active→Finalizing→Closed and persists the final call
// graph exactly once, even when invoked from multiple exit paths. Subsequent
// calls return the first close's result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateFinalizing))
		s.closeErr = s.persist(context.Background())
		s.state.Store(int32(StateClosed))
		s.logger.Debug("session closed", "session_id", s.id)
	})
	return s.closeErr
}

// activate transitions Created→Active and arms the timeout deadline. It
// reports whether this caller performed the activation; sync.Once guarantees
// the deadline write is visible to every subsequent dispatcher.
func (s *Session) activate() bool {
	performed := false
	s.activateOnce.Do(func() {
		if s.timeout != nil {
			s.deadlineMu.Lock()
			s.deadline = time.Now().UTC().Add(*s.timeout)
			s.deadlineMu.Unlock()
		}
		s.state.Store(int32(StateActive))
		performed = true
		s.logger.Debug("session activated", "session_id", s.id)
	})
	return performed
}

func (s *Session) persist(ctx context.Context) error {
	snap := s.Snapshot()
	snap.Finalized = time.Now().UTC()

	if s.store == nil {
		s.logger.Debug("no store configured, skipping persistence", "session_id", s.id)
		return nil
	}

	replaced, err := s.store.Save(ctx, snap)
	if err != nil {
		return fmt.Errorf("persist session %s: %w", s.id, err)
	}

	if replaced {
		// Overwrite collisions are a known tradeoff, surfaced but non-fatal.
		s.logger.Warn("session snapshot overwrote existing record", "session_id", s.id)
	} else {
		s.logger.Debug("session snapshot persisted", "session_id", s.id, "record_count", len(snap.Records))
	}

	return nil
}
