package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierQueue_PushPop(t *testing.T) {
	q := &tierQueue{}
	assert.True(t, q.isEmpty())
	assert.Nil(t, q.pop())

	a := &Participant{UserID: "u1", Peer: &fakePeer{}}
	b := &Participant{UserID: "u2", Peer: &fakePeer{}}
	q.push(a)
	q.push(b)

	assert.False(t, q.isEmpty())
	assert.Same(t, a, q.pop())
	assert.Same(t, b, q.pop())
	assert.True(t, q.isEmpty())
}

func TestTierQueue_RemoveByPeer(t *testing.T) {
	q := &tierQueue{}
	a := &Participant{UserID: "u1", Peer: &fakePeer{}}
	q.push(a)

	removed, found := q.removeByPeer(a.Peer)
	require.True(t, found)
	assert.Same(t, a, removed)
	assert.True(t, q.isEmpty())

	// Removal of an already-removed entry is a no-op, not a fault.
	removed, found = q.removeByPeer(a.Peer)
	assert.False(t, found)
	assert.Nil(t, removed)
}

func TestTierQueue_FindByPeerDoesNotRemove(t *testing.T) {
	q := &tierQueue{}
	a := &Participant{UserID: "u1", Peer: &fakePeer{}}
	q.push(a)

	found, ok := q.findByPeer(a.Peer)
	require.True(t, ok)
	assert.Same(t, a, found)
	assert.False(t, q.isEmpty())

	_, ok = q.findByPeer(&fakePeer{})
	assert.False(t, ok)
}

func TestStore_QueuesPerTier(t *testing.T) {
	s := newStore(DefaultTiers())

	for _, tier := range DefaultTiers() {
		q, ok := s.queue(tier)
		require.True(t, ok)
		assert.True(t, q.isEmpty())
	}

	_, ok := s.queue(Tier("impossible"))
	assert.False(t, ok)
}

func TestStore_RemoveByPeerScansAllTiers(t *testing.T) {
	s := newStore(DefaultTiers())
	p := &Participant{UserID: "u1", Peer: &fakePeer{}}

	q, _ := s.queue(TierHard)
	q.push(p)

	removed, tier, found := s.removeByPeer(p.Peer)
	require.True(t, found)
	assert.Same(t, p, removed)
	assert.Equal(t, TierHard, tier)
	assert.Equal(t, 0, s.size(TierHard))

	_, _, found = s.removeByPeer(p.Peer)
	assert.False(t, found)
}
