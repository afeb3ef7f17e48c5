// Package registry houses the process-wide node registry mapping stable node
// identities (tool name + display name + kind) to their callable handles, and
// convenience constructors that expose plain Go functions as function, agent
// or tool nodes.
//
// Registration is expected to complete before any session using the nodes is
// activated: the registry is read-mostly state, written once during startup
// and then only resolved concurrently.
package registry
