package job

import (
	"context"
	"log"
	"time"

	"minibank/internal/infrastructure/mq"
	"minibank/internal/model"
	"minibank/internal/repository"
)

// OutboxSender drains pending transaction events and publishes them to
// Kafka. Delivery is at-least-once; a message that keeps failing is marked
// FAILED after maxRetryCount attempts.
type OutboxSender struct {
	outbox        repository.OutboxStore
	maxRetryCount int
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewOutboxSender(outbox repository.OutboxStore, maxRetryCount int) *OutboxSender {
	return &OutboxSender{
		outbox:        outbox,
		maxRetryCount: maxRetryCount,
		stopCh:        make(chan struct{}),
		interval:      100 * time.Millisecond,
		batchSize:     100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context cancelled, exiting")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outbox.ListPending(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] failed to list pending messages: %v", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outbox.MarkSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] failed to mark message sent: id=%d, err=%v", msg.ID, updateErr)
		}
		return
	}

	log.Printf("[OutboxSender] failed to publish message: id=%d, err=%v", msg.ID, err)

	if err := s.outbox.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] failed to bump retry count: id=%d, err=%v", msg.ID, err)
	}

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outbox.MarkFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] failed to mark message failed: id=%d, err=%v", msg.ID, err)
		} else {
			log.Printf("[OutboxSender] message exceeded max retries, marked failed: id=%d", msg.ID)
		}
	}
}
