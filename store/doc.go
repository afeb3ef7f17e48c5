// Package store houses concrete implementations of core.Store. The interface
// itself (and the GraphSnapshot type) live in the core package to centralize
// domain contracts; keeping only implementations here prevents higher level
// packages from depending on concrete storage.
//
// Additional backends live in sub-packages (file, badgerdb) so only the
// wiring layer decides which implementation to instantiate.
package store
