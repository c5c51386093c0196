package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tuanvumaihuynh/inventory-api/internal/config"
	"github.com/tuanvumaihuynh/inventory-api/internal/repository"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/mq"
	"github.com/tuanvumaihuynh/inventory-api/pkg/ptr"
)

// Service publishes pending outbox messages to the message broker.
type Service struct {
	cfg           config.Relay
	logger        *slog.Logger
	db            db.Transactor
	outboxMsgRepo repository.OutboxMsgRepository
	mqProducer    mq.Producer

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	db db.Transactor,
	outboxMsgRepo repository.OutboxMsgRepository,
	mqProducer mq.Producer,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        logger.With(slog.String("service", "relay")),
		db:            db,
		outboxMsgRepo: outboxMsgRepo,
		mqProducer:    mqProducer,
		stopChan:      make(chan struct{}),
	}
}

type CleanupFunc func()

// Run relays in the background until the returned cleanup is called. Cleanup
// waits up to 5s for the current batch before cancelling it.
func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			count, err := s.RelayBatch(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "error relaying outbox msgs", slog.Any("error", err))
				continue
			}
			if count > 0 {
				s.logger.InfoContext(ctx, "relayed outbox msgs", slog.Int("count", count))
			}
		}
	}
}

// RelayBatch publishes one batch of unprocessed messages and marks them
// processed, recording the produce error of each failed message. It returns
// the number of messages handled.
func (s *Service) RelayBatch(ctx context.Context) (int, error) {
	var count int

	err := s.db.WithTx(ctx, func(db db.DB) error {
		outboxMsgs, err := s.outboxMsgRepo.
			WithDB(db).
			ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
				//nolint:gosec
				BatchSize: int32(s.cfg.BatchSize),
			})
		if err != nil {
			return fmt.Errorf("list unprocessed outbox msgs: %w", err)
		}

		if len(outboxMsgs) == 0 {
			return nil
		}

		items := make([]repository.BulkUpdateOutboxMsgsItem, len(outboxMsgs))

		var g errgroup.Group
		if s.cfg.Concurrency > 0 {
			g.SetLimit(s.cfg.Concurrency)
		}

		for i, msg := range outboxMsgs {
			g.Go(func() error {
				items[i] = repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}

				if err := s.produce(ctx, msg); err != nil {
					s.logger.ErrorContext(ctx, "error producing message",
						slog.String("outbox_msg_id", msg.ID.String()),
						slog.String("topic", msg.Topic),
						slog.String("partition_key", ptr.Deref(msg.PartitionKey, "")),
						slog.Any("error", err),
					)
					items[i].Error = ptr.New(err.Error())
				}

				// failures are recorded per message, never abort the batch
				return nil
			})
		}

		//nolint:errcheck
		g.Wait()

		if err := s.outboxMsgRepo.
			WithDB(db).
			BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
				Items: items,
			}); err != nil {
			return fmt.Errorf("bulk update outbox msgs: %w", err)
		}

		count = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *Service) produce(ctx context.Context, msg repository.ListUnprocessedOutboxMsgsResult) error {
	if s.cfg.ProduceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ProduceTimeout)
		defer cancel()
	}

	return s.mqProducer.Produce(ctx, mq.ProduceMsg{
		Topic:        msg.Topic,
		Headers:      msg.Headers,
		Payload:      msg.Payload,
		PartitionKey: msg.PartitionKey,
	})
}
