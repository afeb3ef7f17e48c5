package core

// Hook observes call lifecycle events without modifying core dispatch logic.
// Hooks run synchronously on the dispatching goroutine and receive record
// copies; implementations should be fast and must not block.
type Hook interface {
	// OnCallStart fires after a Pending record has been appended.
	OnCallStart(sessionID string, rec CallRecord)

	// OnCallEnd fires after the record's terminal outcome is set.
	OnCallEnd(sessionID string, rec CallRecord)
}

// HookFuncs adapts plain functions to the Hook interface. Nil fields are
// skipped.
type HookFuncs struct {
	Start func(sessionID string, rec CallRecord)
	End   func(sessionID string, rec CallRecord)
}

// OnCallStart implements Hook.
func (h HookFuncs) OnCallStart(sessionID string, rec CallRecord) {
	if h.Start != nil {
		h.Start(sessionID, rec)
	}
}

// OnCallEnd implements Hook.
func (h HookFuncs) OnCallEnd(sessionID string, rec CallRecord) {
	if h.End != nil {
		h.End(sessionID, rec)
	}
}
