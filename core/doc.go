// Package core provides the foundational domain types and execution machinery
// of flowmesh. It defines:
//
//   - NodeIdentity / NodeHandle (stable identity + callable unit contract)
//   - CallRecord / CallGraph (the ordered, append-only trace of one session)
//   - Session (lifecycle container owning one call graph and one ambient
//     key/value context, with guaranteed persist-on-close semantics)
//   - Call / Go (the dispatch primitives that record call-graph edges and
//     thread the ambient session through context.Context)
//   - Store (the keyed snapshot persistence contract)
//
// The package intentionally keeps implementation concerns (concrete stores,
// registries, flow packaging) out of scope, exposing small interfaces so
// higher layers can wire custom backends without touching the execution core.
package core
