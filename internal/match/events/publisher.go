package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// MatchCreated is emitted once per successful match so downstream services
// (the collaboration relay in particular) can provision the room before the
// two users connect to it.
type MatchCreated struct {
	RoomID     string    `json:"room_id"`
	User1ID    string    `json:"user1_id"`
	User2ID    string    `json:"user2_id"`
	QuestionID string    `json:"question_id"`
	Complexity string    `json:"complexity"`
	MatchedAt  time.Time `json:"matched_at"`
}

// Publisher emits match lifecycle events.
type Publisher interface {
	MatchCreated(ctx context.Context, event MatchCreated) error
}

// NopPublisher drops events. Used when no message bus is configured.
type NopPublisher struct{}

func (NopPublisher) MatchCreated(ctx context.Context, event MatchCreated) error {
	return nil
}

// NATSConfig holds connection settings for the NATS publisher.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS publisher configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "matching.match.created",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes match events to a NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS with reconnect handling.
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, subject: config.Subject}, nil
}

func (p *NATSPublisher) MatchCreated(ctx context.Context, event MatchCreated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal match created event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish match created event: %w", err)
	}

	log.Debug().
		Str("subject", p.subject).
		Str("room_id", event.RoomID).
		Msg("published match created event")

	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
