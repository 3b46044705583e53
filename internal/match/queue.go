package match

// tierQueue is the ordered waiting list for one tier. It is mutated only
// under the engine's lock. In practice it holds at most one entry: the
// moment a second participant requests the same tier, the engine pops the
// waiting one and pairs them.
type tierQueue struct {
	entries []*Participant
}

func (q *tierQueue) push(p *Participant) {
	q.entries = append(q.entries, p)
}

func (q *tierQueue) isEmpty() bool {
	return len(q.entries) == 0
}

// pop removes and returns the head entry, or nil if the queue is empty.
// Callers check isEmpty under the same lock first.
func (q *tierQueue) pop() *Participant {
	if len(q.entries) == 0 {
		return nil
	}
	head := q.entries[0]
	q.entries = q.entries[1:]
	return head
}

// findByPeer returns the entry bound to the given connection without
// removing it, so callers can verify identity before committing to a
// removal under the same lock.
func (q *tierQueue) findByPeer(peer Peer) (*Participant, bool) {
	for _, p := range q.entries {
		if p.Peer == peer {
			return p, true
		}
	}
	return nil, false
}

// removeByPeer removes the entry bound to the given connection if present.
// Not finding one is expected under races with a concurrent match, cancel
// or timeout, so it reports found rather than returning an error.
func (q *tierQueue) removeByPeer(peer Peer) (*Participant, bool) {
	for i, p := range q.entries {
		if p.Peer == peer {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// store owns one queue per configured tier for the process lifetime.
// Queues are created at startup and only ever emptied, never deleted.
type store struct {
	queues map[Tier]*tierQueue
}

func newStore(tiers []Tier) *store {
	s := &store{queues: make(map[Tier]*tierQueue, len(tiers))}
	for _, t := range tiers {
		s.queues[t] = &tierQueue{}
	}
	return s
}

func (s *store) queue(t Tier) (*tierQueue, bool) {
	q, ok := s.queues[t]
	return q, ok
}

// removeByPeer scans every tier for an entry bound to the given connection.
// A participant can occupy at most one slot across all tiers.
func (s *store) removeByPeer(peer Peer) (*Participant, Tier, bool) {
	for tier, q := range s.queues {
		if p, ok := q.removeByPeer(peer); ok {
			return p, tier, true
		}
	}
	return nil, "", false
}

func (s *store) size(t Tier) int {
	if q, ok := s.queues[t]; ok {
		return len(q.entries)
	}
	return 0
}
