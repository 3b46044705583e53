package match

import "strings"

// Tier is a difficulty bucket. Each tier has its own independent waiting
// queue; tiers never interact.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// DefaultTiers returns the standard difficulty tiers.
func DefaultTiers() []Tier {
	return []Tier{TierEasy, TierMedium, TierHard}
}

// ParseTier normalizes a complexity string to a Tier. Matching is
// case-insensitive because the question catalog capitalizes its
// complexity values ("Easy") while the wire protocol uses lowercase.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierEasy:
		return TierEasy, true
	case TierMedium:
		return TierMedium, true
	case TierHard:
		return TierHard, true
	}
	return "", false
}

// State tracks a participant through the matchmaking lifecycle. All states
// other than StateQueued are terminal.
type State int

const (
	StateIdle State = iota
	StateQueued
	StateMatched
	StateCancelled
	StateTimedOut
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQueued:
		return "queued"
	case StateMatched:
		return "matched"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed_out"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Peer is the engine's view of one participant's connection. Send delivers
// an outcome payload to the user; Close must be safe to call more than once.
type Peer interface {
	Send(payload OutcomePayload) error
	Close() error
}

// Participant is one waiting side of a potential match, bound to a single
// open connection for its whole lifetime. The state and timeout fields are
// guarded by the engine's lock.
type Participant struct {
	UserID string
	Peer   Peer
	Tier   Tier

	state   State
	timeout *TimeoutHandle
}

// OutcomePayload is the single outbound message a participant receives when
// its queue membership resolves.
type OutcomePayload struct {
	IsMatched  bool   `json:"is_matched"`
	Detail     string `json:"detail"`
	UserID     string `json:"user_id,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

const (
	detailMatched   = "Match found!"
	detailCancelled = "Queuing cancelled."
	detailTimedOut  = "Timed out. Couldn't find a match."
	detailFailed    = "Matching failed. Please try again."
)

func matchedPayload(peerID, roomID, questionID string) OutcomePayload {
	return OutcomePayload{
		IsMatched:  true,
		Detail:     detailMatched,
		UserID:     peerID,
		RoomID:     roomID,
		QuestionID: questionID,
	}
}

func cancelledPayload() OutcomePayload {
	return OutcomePayload{IsMatched: false, Detail: detailCancelled}
}

func timedOutPayload() OutcomePayload {
	return OutcomePayload{IsMatched: false, Detail: detailTimedOut}
}

func failedPayload() OutcomePayload {
	return OutcomePayload{IsMatched: false, Detail: detailFailed}
}
