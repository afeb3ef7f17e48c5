package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives registration events. Defaults to NoOp.
	Logger logging.Logger
}

// Registry owns the registered node handles for the process lifetime.
// It implements core.Resolver.
type Registry struct {
	mu     sync.RWMutex
	nodes  map[string]*core.NodeHandle
	logger logging.Logger
}

// New constructs an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{nodes: make(map[string]*core.NodeHandle), logger: opts.Logger}
}

// Register adds a handle under its tool name. Naming conflicts are rejected
// here, at registration time, never at call time: a tool name already bound
// to a different display name or implementation fails with a
// *core.ConflictError. Re-registering the same handle is idempotent.
func (r *Registry) Register(h *core.NodeHandle) error {
	if h == nil {
		return fmt.Errorf("register: nil node handle")
	}

	name := h.Identity.ToolName
	if !core.ValidToolName(name) {
		return fmt.Errorf("register: invalid tool name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nodes[name]; ok {
		if existing == h {
			return nil
		}
		return &core.ConflictError{
			ToolName: name,
			Existing: existing.Identity.DisplayName,
			Proposed: h.Identity.DisplayName,
		}
	}

	r.nodes[name] = h
	r.logger.Debug("node registered",
		"tool_name", name, "display_name", h.Identity.DisplayName, "kind", h.Identity.Kind.String())

	return nil
}

// Resolve implements core.Resolver.
func (r *Registry) Resolve(toolName string) (*core.NodeHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.nodes[toolName]
	if !ok {
		return nil, &core.NotFoundError{Kind: "node", Name: toolName}
	}

	return h, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
