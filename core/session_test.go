package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingStore records save calls for persist-exactly-once assertions.
type countingStore struct {
	mu    sync.Mutex
	saves int
	last  *GraphSnapshot
}

func (s *countingStore) Save(_ context.Context, snap *GraphSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.last != nil && s.last.SessionID == snap.SessionID
	s.saves++
	s.last = snap.Clone()
	return replaced, nil
}

func (s *countingStore) Load(_ context.Context, sessionID string) (*GraphSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.SessionID != sessionID {
		return nil, &NotFoundError{Kind: "session", Name: sessionID}
	}
	return s.last.Clone(), nil
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func TestOpen_Defaults(t *testing.T) {
	s, err := Open()
	if err != nil {
		t.Fatal(err)
	}
	if s.ID() == "" {
		t.Error("expected a generated session ID")
	}
	if s.State() != StateCreated {
		t.Errorf("state = %v, want created", s.State())
	}
	if _, armed := s.Deadline(); armed {
		t.Error("deadline should not be armed without a timeout")
	}
}

func TestOpen_RejectsNegativeTimeout(t *testing.T) {
	timeout := -time.Second
	_, err := Open(func(c *Config) { c.Timeout = &timeout })

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != "timeout" {
		t.Fatalf("expected timeout ConfigError, got %v", err)
	}
}

func TestSession_AmbientContext(t *testing.T) {
	s, err := Open(func(c *Config) {
		c.Context = map[string]any{"tenant": "acme"}
	})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := s.Get("tenant"); !ok || v != "acme" {
		t.Errorf("seeded key missing: %v %v", v, ok)
	}

	s.Set("step", 1)
	s.Set("step", 2)
	if v, _ := s.Get("step"); v != 2 {
		t.Errorf("expected last write to win, got %v", v)
	}

	if _, ok := s.Get("absent"); ok {
		t.Error("absent key should not resolve")
	}
}

func TestSession_CloseIsIdempotentAndPersistsOnce(t *testing.T) {
	st := &countingStore{}
	s, err := Open(func(c *Config) {
		c.SessionID = "sess-close"
		c.Store = st
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Close(); err != nil {
				t.Errorf("close: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := st.saveCount(); got != 1 {
		t.Fatalf("expected exactly one persist, got %d", got)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}

	snap, err := st.Load(context.Background(), "sess-close")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Finalized.IsZero() {
		t.Error("persisted snapshot should carry a finalized timestamp")
	}
}

func TestSession_DeadlineSafeDuringActivation(t *testing.T) {
	timeout := time.Minute
	r := mapResolver{
		"noop": handleOf("noop", func(context.Context, map[string]any) (any, error) {
			return nil, nil
		}),
	}
	s, err := Open(func(c *Config) {
		c.Resolver = r
		c.Timeout = &timeout
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			s.Deadline()
		}
	}()

	if _, err := Call(WithSession(context.Background(), s), "noop", nil); err != nil {
		t.Fatal(err)
	}
	<-done

	if _, armed := s.Deadline(); !armed {
		t.Error("deadline should be armed after activation")
	}
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s, err := Open(func(c *Config) {
		c.Context = map[string]any{"k": "v"}
	})
	if err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Context["k"] = "mutated"

	if v, _ := s.Get("k"); v != "v" {
		t.Errorf("ambient context mutated through snapshot: %v", v)
	}
}

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{
		"session_id":    "sess-1",
		"timeout":       "250ms",
		"context":       map[string]any{"tenant": "acme"},
		"logging_level": "debug",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionID != "sess-1" {
		t.Errorf("session_id = %q", cfg.SessionID)
	}
	if cfg.Timeout == nil || *cfg.Timeout != 250*time.Millisecond {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.Context["tenant"] != "acme" {
		t.Errorf("context = %v", cfg.Context)
	}
	if cfg.Logger == nil {
		t.Error("logging_level should construct a logger")
	}
}

func TestConfigFromMap_RejectsUnknownOption(t *testing.T) {
	_, err := ConfigFromMap(map[string]any{"session_id": "s", "retires": 3})

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != "retires" {
		t.Fatalf("expected ConfigError naming the unknown option, got %v", err)
	}
}

func TestConfigFromMap_RejectsBadLoggingLevel(t *testing.T) {
	_, err := ConfigFromMap(map[string]any{"logging_level": "loud"})

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != "logging_level" {
		t.Fatalf("expected logging_level ConfigError, got %v", err)
	}
}
