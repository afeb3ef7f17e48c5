// Package flowmesh wires the runtime together behind a single facade: a node
// registry, a snapshot store and a logger shared by every flow and session
// created through it. The sub-packages remain usable on their own; the facade
// only removes the wiring boilerplate.
package flowmesh

import (
	"context"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/logging"
	"github.com/flowmesh/flowmesh/registry"
	"github.com/flowmesh/flowmesh/store"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Store persists session snapshots. Defaults to an in-memory store.
	Store core.Store
	// Logger receives events from every component. Defaults to NoOp.
	Logger logging.Logger
	// Hooks observe every call dispatched through sessions opened here.
	Hooks []core.Hook
}

// Mesh is the assembled runtime: registry, store and logger shared across
// flows and sessions.
type Mesh struct {
	registry *registry.Registry
	store    core.Store
	logger   logging.Logger
	hooks    []core.Hook
}

// New assembles a runtime with the given options.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}

	return &Mesh{
		registry: registry.New(func(o *registry.Options) { o.Logger = opts.Logger }),
		store:    opts.Store,
		logger:   opts.Logger,
		hooks:    opts.Hooks,
	}
}

// Registry exposes the underlying node registry.
func (m *Mesh) Registry() *registry.Registry { return m.registry }

// RegisterFunction registers fn as a function node under toolName.
func (m *Mesh) RegisterFunction(toolName string, fn core.InvokeFunc, optFns ...func(o *registry.NodeOptions)) error {
	return m.registry.Register(registry.Function(toolName, fn, optFns...))
}

// RegisterAgent registers fn as an agent node under toolName.
func (m *Mesh) RegisterAgent(toolName string, fn core.InvokeFunc, optFns ...func(o *registry.NodeOptions)) error {
	return m.registry.Register(registry.Agent(toolName, fn, optFns...))
}

// RegisterTool registers fn as a tool node under toolName.
func (m *Mesh) RegisterTool(toolName string, fn core.InvokeFunc, optFns ...func(o *registry.NodeOptions)) error {
	return m.registry.Register(registry.Tool(toolName, fn, optFns...))
}

// NewFlow creates a flow wired to the mesh's registry, store and logger.
// Caller options run last and may override the wiring.
func (m *Mesh) NewFlow(name, entry string, optFns ...func(o *flow.Options)) (*flow.Flow, error) {
	wired := append([]func(o *flow.Options){m.wireFlow}, optFns...)
	return flow.New(name, entry, wired...)
}

// FlowFromFile loads a YAML flow spec and builds it wired to the mesh.
func (m *Mesh) FlowFromFile(path string, optFns ...func(o *flow.Options)) (*flow.Flow, error) {
	spec, err := flow.LoadSpec(path)
	if err != nil {
		return nil, err
	}
	wired := append([]func(o *flow.Options){m.wireFlow}, optFns...)
	return flow.FromSpec(spec, wired...)
}

// OpenSession opens a standalone session wired to the mesh. Callers own its
// lifecycle and must Close it. The mesh wiring fills only what the caller's
// options left unset.
func (m *Mesh) OpenSession(optFns ...func(c *core.Config)) (*core.Session, error) {
	wire := func(c *core.Config) {
		if c.Resolver == nil {
			c.Resolver = m.registry
		}
		if c.Store == nil {
			c.Store = m.store
		}
		if c.Logger == nil {
			c.Logger = m.logger
		}
		c.Hooks = append(c.Hooks, m.hooks...)
	}
	return core.Open(append(append([]func(c *core.Config){}, optFns...), wire)...)
}

// LoadSession fetches a previously persisted session snapshot from the
// mesh's store.
func (m *Mesh) LoadSession(ctx context.Context, sessionID string) (*core.GraphSnapshot, error) {
	return m.store.Load(ctx, sessionID)
}

func (m *Mesh) wireFlow(o *flow.Options) {
	o.Resolver = m.registry
	o.Store = m.store
	o.Logger = m.logger
	o.Hooks = append(o.Hooks, m.hooks...)
}
