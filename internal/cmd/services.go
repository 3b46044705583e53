package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/auth"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match/events"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match/gateway"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/questions"
)

// Services holds the wired service graph.
type Services struct {
	Engine  *match.Engine
	Gateway *gateway.Handler

	cleanups []func()
}

// Close releases resources in reverse wiring order.
func (s *Services) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

// setupServices wires collaborators into the pairing engine and gateway:
// question source -> engine -> gateway, with auth and events alongside.
func setupServices(config *Config) (*Services, error) {
	services := &Services{}

	source, err := setupQuestionSource(config, services)
	if err != nil {
		return nil, err
	}

	publisher, err := setupEventPublisher(config, services)
	if err != nil {
		services.Close()
		return nil, err
	}

	tiers := make([]match.Tier, 0, len(config.Matching.Tiers))
	for _, raw := range config.Matching.Tiers {
		tier, ok := match.ParseTier(raw)
		if !ok {
			services.Close()
			return nil, fmt.Errorf("invalid tier in config: %q", raw)
		}
		tiers = append(tiers, tier)
	}

	engine := match.NewEngine(match.Config{
		Tiers:        tiers,
		QueueTimeout: time.Duration(config.Matching.QueueTimeoutSeconds) * time.Second,
		Questions:    source,
		Events:       publisher,
	})

	sessions := auth.NewClient(config.Auth.BaseURL)
	services.Engine = engine
	services.Gateway = gateway.NewHandler(engine, sessions, gateway.DefaultConfig())

	return services, nil
}

func setupQuestionSource(config *Config, services *Services) (match.QuestionSource, error) {
	switch config.Questions.Source {
	case "postgres":
		db, err := setupDatabase()
		if err != nil {
			return nil, err
		}
		services.cleanups = append(services.cleanups, func() { db.Close() })
		return questions.NewPostgresRepo(db), nil
	case "http", "":
		return questions.NewClient(config.Questions.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown question source: %q", config.Questions.Source)
	}
}

func setupEventPublisher(config *Config, services *Services) (events.Publisher, error) {
	if config.NATS.URL == "" {
		log.Info().Msg("NATS not configured, match events disabled")
		return events.NopPublisher{}, nil
	}

	natsConfig := events.DefaultNATSConfig()
	natsConfig.URL = config.NATS.URL
	natsConfig.Subject = config.NATS.Subject

	publisher, err := events.NewNATSPublisher(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	services.cleanups = append(services.cleanups, publisher.Close)

	return publisher, nil
}
