package sched

import "errors"

// Sentinel errors of the scheduling core. Collaborator errors
// (ModelRuntime/State) are never swallowed; they surface as wrapped
// errors returned by Process, so a caller can tell a scheduling-level
// rejection from a collaborator fault.
var (
	// ErrEmptyPrompt is returned when a GenerateRequest has no prompt
	// tokens at all; there is nothing to admit.
	ErrEmptyPrompt = errors.New("sched: empty prompt")

	// ErrNoCapacity is returned by Queue when no slot is Idle (every slot
	// is Wait or Busy); the caller should retry later.
	ErrNoCapacity = errors.New("sched: no free slot")

	// ErrSinkClosed names a disconnected EventSink. No function in this
	// package returns it: the core detects a closed sink via
	// EventSink.Closed.
	ErrSinkClosed = errors.New("sched: event sink closed")

	// ErrShutdown is returned by RunLoop.Run once its context is
	// cancelled.
	ErrShutdown = errors.New("sched: run loop shut down")
)
