package registry

import "github.com/flowmesh/flowmesh/core"

// NodeOptions configures handle construction for the node constructors.
type NodeOptions struct {
	// DisplayName overrides the derived display name.
	DisplayName string
	// Tags extends the capability tag set beyond the kind's default.
	Tags []core.Capability
}

// WithDisplayName overrides the display name derived from the tool name.
func WithDisplayName(name string) func(o *NodeOptions) {
	return func(o *NodeOptions) { o.DisplayName = name }
}

// WithTags appends extra capability tags.
func WithTags(tags ...core.Capability) func(o *NodeOptions) {
	return func(o *NodeOptions) { o.Tags = append(o.Tags, tags...) }
}

func newHandle(kind core.NodeKind, defaultTag core.Capability, toolName string, fn core.InvokeFunc, optFns []func(o *NodeOptions)) *core.NodeHandle {
	opts := NodeOptions{}

	for _, optFn := range optFns {
		optFn(&opts)
	}

	display := opts.DisplayName
	if display == "" {
		display = core.DeriveDisplayName(toolName)
	}

	identity := core.NodeIdentity{Kind: kind, DisplayName: display, ToolName: toolName}
	tags := append([]core.Capability{defaultTag}, opts.Tags...)

	return core.NewNodeHandle(identity, fn, tags...)
}

// Function wraps a plain Go function as a function node. The display name is
// derived from the tool name ("fetch_user_data" -> "Fetch User Data") unless
// overridden.
func Function(toolName string, fn core.InvokeFunc, optFns ...func(o *NodeOptions)) *core.NodeHandle {
	return newHandle(core.KindFunction, core.CapabilityFunction, toolName, fn, optFns)
}

// Agent wraps a callable as an agent node, a unit expected to issue nested
// calls of its own.
func Agent(toolName string, fn core.InvokeFunc, optFns ...func(o *NodeOptions)) *core.NodeHandle {
	return newHandle(core.KindAgent, core.CapabilityAgent, toolName, fn, optFns)
}

// Tool wraps a callable as a tool node, a structured capability invoked by
// agents.
func Tool(toolName string, fn core.InvokeFunc, optFns ...func(o *NodeOptions)) *core.NodeHandle {
	return newHandle(core.KindTool, core.CapabilityTool, toolName, fn, optFns)
}
