package core

import "context"

// Capability tags describe what a registered node can do. A node may carry
// several tags; the registry treats them as opaque labels.
type Capability string

const (
	// CapabilityFunction marks plain callables.
	CapabilityFunction Capability = "function"
	// CapabilityAgent marks nodes that issue nested calls.
	CapabilityAgent Capability = "agent"
	// CapabilityTool marks structured external capabilities.
	CapabilityTool Capability = "tool"
)

// InvokeFunc is the invocation contract every node exposes. The context
// carries the ambient session and current-call identity so nested Call
// invocations attach as children. Arguments are an opaque payload; the
// dispatcher records them verbatim and performs no validation.
type InvokeFunc func(ctx context.Context, args map[string]any) (any, error)

// NodeHandle is a registered, callable unit. Handles are owned by the
// registry for the process lifetime: they are referenced, never copied, and
// their identity is fixed at construction.
type NodeHandle struct {
	Identity NodeIdentity
	Tags     []Capability

	invoke InvokeFunc
}

// NewNodeHandle binds an identity and capability tags to an implementation.
func NewNodeHandle(identity NodeIdentity, invoke InvokeFunc, tags ...Capability) *NodeHandle {
	return &NodeHandle{Identity: identity, Tags: tags, invoke: invoke}
}

// Invoke executes the node implementation.
func (h *NodeHandle) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return h.invoke(ctx, args)
}

// HasTag reports whether the handle carries the given capability tag.
func (h *NodeHandle) HasTag(c Capability) bool {
	for _, t := range h.Tags {
		if t == c {
			return true
		}
	}
	return false
}

// Resolver maps tool names to registered handles. The registry implements it;
// sessions depend only on this interface so custom registries can be wired.
type Resolver interface {
	// Resolve returns the handle for toolName or a *NotFoundError.
	Resolve(toolName string) (*NodeHandle, error)
}
