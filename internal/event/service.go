package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/inventory-api/internal/storage/mq"
)

// Service consumes product events.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.RegisterHandlers(); err != nil {
		return nil, err
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	return CleanupFunc(mqCleanup), nil
}

// RegisterHandlers subscribes the consumer to every product topic.
func (s *Service) RegisterHandlers() error {
	for _, topic := range []string{TopicProductCreated, TopicProductUpdated} {
		if err := s.mqConsumer.RegisterHandler(topic, func(ctx context.Context, topic string, payload []byte) error {
			var ev ProductChangedEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("unmarshal %s event: %w", topic, err)
			}

			return s.handleProductChangedEvent(ctx, topic, ev)
		}); err != nil {
			return fmt.Errorf("register %s event handler: %w", topic, err)
		}
	}

	if err := s.mqConsumer.RegisterHandler(TopicProductDeleted, func(ctx context.Context, topic string, payload []byte) error {
		var ev ProductDeletedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}

		return s.handleProductDeletedEvent(ctx, ev)
	}); err != nil {
		return fmt.Errorf("register %s event handler: %w", TopicProductDeleted, err)
	}

	return nil
}
