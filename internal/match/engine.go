package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match/events"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/questions"
)

// ErrUnknownTier is returned when a queue request names a tier the engine
// was not configured with.
var ErrUnknownTier = errors.New("unknown tier")

// ErrNoQuestions is returned when the question catalog has no entry for the
// requested tier, which makes a match attempt fail.
var ErrNoQuestions = errors.New("no questions for tier")

// QuestionSource supplies the question catalog. The engine filters by tier
// itself and picks one entry uniformly at random.
type QuestionSource interface {
	List(ctx context.Context) ([]Question, error)
}

// Question aliases the catalog entry type so engine callers only deal with
// one package.
type Question = questions.Question

// Config holds pairing engine settings.
type Config struct {
	Tiers        []Tier
	QueueTimeout time.Duration
	Questions    QuestionSource
	Events       events.Publisher
	Clock        clockwork.Clock
}

// Engine pairs participants waiting in per-tier queues. All queue mutation
// and every participant state transition happens under a single lock, so
// exactly one of match, cancel, timeout or disconnect wins for any queued
// participant; the losing paths observe an empty slot and do nothing. The
// question lookup is the only slow call on the match path and runs outside
// the lock.
type Engine struct {
	mu    sync.Mutex
	store *store

	sup          *supervisor
	queueTimeout time.Duration
	questions    QuestionSource
	events       events.Publisher
}

// NewEngine creates a pairing engine. The question source is required;
// everything else has defaults (standard tiers, 30s queue timeout, real
// clock, no event publishing).
func NewEngine(config Config) *Engine {
	if config.Questions == nil {
		panic("match: engine requires a question source")
	}
	tiers := config.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	timeout := config.QueueTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	publisher := config.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	e := &Engine{
		store:        newStore(tiers),
		queueTimeout: timeout,
		questions:    config.Questions,
		events:       publisher,
	}
	e.sup = newSupervisor(clock, e.onTimeoutFired)
	return e
}

// RequestQueue places the participant in the tier's queue, or pairs it with
// the participant already waiting there. A repeated queue request from the
// same connection replaces its previous membership.
func (e *Engine) RequestQueue(ctx context.Context, tier Tier, p *Participant) error {
	e.mu.Lock()
	q, ok := e.store.queue(tier)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	if prev, prevTier, found := e.store.removeByPeer(p.Peer); found {
		prev.timeout.cancel()
		log.Debug().
			Str("user_id", prev.UserID).
			Str("tier", string(prevTier)).
			Msg("replaced previous queue membership")
	}

	p.Tier = tier
	if q.isEmpty() {
		p.state = StateQueued
		p.timeout = e.sup.arm(tier, p, e.queueTimeout)
		q.push(p)
		e.mu.Unlock()

		log.Info().
			Str("user_id", p.UserID).
			Str("tier", string(tier)).
			Msg("participant queued")
		return nil
	}

	waiting := q.pop()
	waiting.timeout.cancel()
	waiting.state = StateMatched
	p.state = StateMatched
	e.mu.Unlock()

	return e.completeMatch(ctx, tier, waiting, p)
}

// RequestCancel removes the participant from its queue, notifies it with a
// cancellation outcome and closes its connection. If the participant is not
// queued (already matched, timed out or cancelled) this is a no-op.
func (e *Engine) RequestCancel(p *Participant) {
	e.mu.Lock()
	entry, tier, found := e.store.removeByPeer(p.Peer)
	if !found {
		e.mu.Unlock()
		log.Debug().Str("user_id", p.UserID).Msg("cancel for participant not queued")
		return
	}
	entry.timeout.cancel()
	entry.state = StateCancelled
	e.mu.Unlock()

	log.Info().
		Str("user_id", entry.UserID).
		Str("tier", string(tier)).
		Msg("participant cancelled queuing")

	e.notify(entry, cancelledPayload())
	e.closePeer(entry)
}

// OnDisconnect cleans up after a connection dropped without resolving. No
// notification is attempted; closing the handle is best effort.
func (e *Engine) OnDisconnect(p *Participant) {
	e.mu.Lock()
	entry, tier, found := e.store.removeByPeer(p.Peer)
	if found {
		entry.timeout.cancel()
		entry.state = StateDisconnected
	}
	e.mu.Unlock()

	if found {
		log.Info().
			Str("user_id", entry.UserID).
			Str("tier", string(tier)).
			Msg("participant disconnected while queued")
	}

	// The connection is already gone; a close failure here is expected.
	_ = p.Peer.Close()
}

// onTimeoutFired is invoked by the supervisor when a queue timer expires.
// Membership is re-checked under the lock: the participant may have just
// been matched, cancelled, disconnected or re-queued, in which case the
// firing loses the race and does nothing. Comparing the fired handle to the
// one stored on the entry is what rejects firings from a replaced timer: a
// re-queue arms a fresh handle, so the old firing no longer guards the slot.
func (e *Engine) onTimeoutFired(tier Tier, p *Participant, h *TimeoutHandle) {
	e.mu.Lock()
	q, ok := e.store.queue(tier)
	if !ok {
		e.mu.Unlock()
		return
	}
	entry, found := q.findByPeer(p.Peer)
	if !found || entry != p || entry.timeout != h {
		e.mu.Unlock()
		return
	}
	q.removeByPeer(p.Peer)
	entry.state = StateTimedOut
	e.mu.Unlock()

	log.Info().
		Str("user_id", entry.UserID).
		Str("tier", string(tier)).
		Msg("participant timed out waiting for a match")

	e.notify(entry, timedOutPayload())
	e.closePeer(entry)
}

// completeMatch runs after both participants have been marked matched under
// the lock. It mints the room id, picks the question, delivers the two
// symmetric match payloads and closes both connections. A failed or empty
// question lookup is fatal for the attempt: both sides are told and closed
// rather than left hanging.
func (e *Engine) completeMatch(ctx context.Context, tier Tier, a, b *Participant) error {
	roomID := uuid.New().String()

	question, err := e.pickQuestion(ctx, tier)
	if err != nil {
		log.Error().
			Err(err).
			Str("tier", string(tier)).
			Str("user1_id", a.UserID).
			Str("user2_id", b.UserID).
			Msg("match attempt failed during question lookup")

		e.setState(a, StateFailed)
		e.setState(b, StateFailed)
		e.notify(a, failedPayload())
		e.notify(b, failedPayload())
		e.closePeer(a)
		e.closePeer(b)
		return err
	}

	log.Info().
		Str("room_id", roomID).
		Str("question_id", question.ID).
		Str("tier", string(tier)).
		Str("user1_id", a.UserID).
		Str("user2_id", b.UserID).
		Msg("match found")

	e.notify(a, matchedPayload(b.UserID, roomID, question.ID))
	e.notify(b, matchedPayload(a.UserID, roomID, question.ID))
	e.closePeer(a)
	e.closePeer(b)

	if err := e.events.MatchCreated(ctx, events.MatchCreated{
		RoomID:     roomID,
		User1ID:    a.UserID,
		User2ID:    b.UserID,
		QuestionID: question.ID,
		Complexity: string(tier),
		MatchedAt:  time.Now().UTC(),
	}); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to publish match created event")
	}

	return nil
}

// pickQuestion fetches the catalog and selects one question of the given
// tier uniformly at random. Runs outside the engine lock.
func (e *Engine) pickQuestion(ctx context.Context, tier Tier) (Question, error) {
	list, err := e.questions.List(ctx)
	if err != nil {
		return Question{}, fmt.Errorf("failed to fetch questions: %w", err)
	}

	var pool []Question
	for _, q := range list {
		if strings.EqualFold(q.Complexity, string(tier)) {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		return Question{}, fmt.Errorf("%w: %q", ErrNoQuestions, tier)
	}

	return pool[rand.Intn(len(pool))], nil
}

// notify delivers a terminal outcome. The state transition has already
// committed, so a delivery failure is logged, not propagated.
func (e *Engine) notify(p *Participant, payload OutcomePayload) {
	if err := p.Peer.Send(payload); err != nil {
		log.Error().
			Err(err).
			Str("user_id", p.UserID).
			Str("detail", payload.Detail).
			Msg("failed to deliver outcome notification")
	}
}

// closePeer closes a connection after its outcome was delivered. The peer
// may already be gone; that is not worth more than a debug line.
func (e *Engine) closePeer(p *Participant) {
	if err := p.Peer.Close(); err != nil {
		log.Debug().Err(err).Str("user_id", p.UserID).Msg("failed to close connection")
	}
}

func (e *Engine) setState(p *Participant, s State) {
	e.mu.Lock()
	p.state = s
	e.mu.Unlock()
}
