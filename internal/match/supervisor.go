package match

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimeoutHandle is an armed, cancellable expiry timer bound 1:1 to a queued
// participant. Every path that removes the participant from its queue
// (match, explicit cancel, disconnect) must cancel the handle so a stale
// timer can never fire against a slot it no longer owns.
type TimeoutHandle struct {
	timer    clockwork.Timer
	cancelCh chan struct{}
	once     sync.Once
}

// cancel is idempotent; cancelling an already-fired or already-cancelled
// handle is a no-op.
func (h *TimeoutHandle) cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		stopAndDrainTimer(h.timer)
		close(h.cancelCh)
	})
}

// supervisor arms one-shot expiry timers for queued participants. It never
// resolves a participant itself: on expiry it hands the participant and the
// fired handle back to the engine, which re-checks under the engine lock
// that this exact handle still guards the participant's queue slot before
// acting. The handle comparison is what closes the fire-vs-match race: a
// firing that lost to a cancel, match or re-queue finds the slot gone or
// guarded by a fresh handle, and does nothing.
type supervisor struct {
	clock    clockwork.Clock
	onExpire func(tier Tier, p *Participant, h *TimeoutHandle)
}

func newSupervisor(clock clockwork.Clock, onExpire func(tier Tier, p *Participant, h *TimeoutHandle)) *supervisor {
	return &supervisor{clock: clock, onExpire: onExpire}
}

func (s *supervisor) arm(tier Tier, p *Participant, d time.Duration) *TimeoutHandle {
	h := &TimeoutHandle{
		timer:    s.clock.NewTimer(d),
		cancelCh: make(chan struct{}),
	}

	go func() {
		select {
		case <-h.timer.Chan():
			log.Debug().
				Str("user_id", p.UserID).
				Str("tier", string(tier)).
				Msg("queue timeout fired")
			s.onExpire(tier, p, h)
		case <-h.cancelCh:
		}
	}()

	log.Debug().
		Str("user_id", p.UserID).
		Str("tier", string(tier)).
		Dur("duration", d).
		Msg("armed queue timeout")

	return h
}

// stopAndDrainTimer safely stops a timer and drains its channel so the
// waiting goroutine cannot leak. This follows the pattern recommended in
// the time.Timer.Stop() documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
