package guardrail

import "sync/atomic"

// Handle is the gateway's shared reference to the active engine. The
// pointer swaps atomically and wholly; request handlers load it once per
// request and keep that engine for the request's lifetime, so a switch
// mid-request never mixes two profiles.
type Handle struct {
	active atomic.Pointer[Engine]
}

func NewHandle(engine *Engine) *Handle {
	h := &Handle{}
	h.active.Store(engine)
	return h
}

// Engine returns the currently active engine.
func (h *Handle) Engine() *Engine { return h.active.Load() }

// Swap publishes a new engine and returns the previous one.
func (h *Handle) Swap(next *Engine) *Engine { return h.active.Swap(next) }
