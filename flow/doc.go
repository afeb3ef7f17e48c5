// Package flow provides named, reusable entry points into the node graph.
//
// A Flow binds a name to an entry-point tool and to the wiring (resolver,
// store, logger, session defaults) every invocation shares. Each Invoke opens
// a fresh session, dispatches the entry call inside it and closes the session
// on every exit path, so concurrent invocations of the same flow never share
// call graphs or ambient context.
//
// Flows can be declared in code with New or loaded from YAML files with
// LoadSpec, which accepts the same session option surface as core.ConfigFromMap.
package flow
