package match

// Test-only accessors over engine internals, locked the same way the
// production paths are so tests can observe state mid-race.

// stateOf reports the participant's current lifecycle state.
func (e *Engine) stateOf(p *Participant) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return p.state
}

// queueSize reports the number of participants waiting in a tier.
func (e *Engine) queueSize(tier Tier) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.size(tier)
}

// timeoutHandleOf returns the handle currently guarding the participant's
// queue slot.
func (e *Engine) timeoutHandleOf(p *Participant) *TimeoutHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return p.timeout
}
