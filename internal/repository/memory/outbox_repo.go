package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"minibank/internal/model"
)

type OutboxRepository struct {
	mu       sync.RWMutex
	messages map[int64]*model.OutboxMessage
	nextID   int64
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		messages: make(map[int64]*model.OutboxMessage),
		nextID:   1,
	}
}

func (r *OutboxRepository) Append(ctx context.Context, msg *model.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = r.nextID
	r.nextID++
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	if msg.Status == "" {
		msg.Status = model.OutboxStatusPending
	}

	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.OutboxMessage
	for _, msg := range r.messages {
		if msg.Status == model.OutboxStatusPending {
			copied := *msg
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.setStatus(id, model.OutboxStatusSent, false)
}

func (r *OutboxRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg, ok := r.messages[id]; ok {
		msg.RetryCount++
		msg.UpdatedAt = time.Now()
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.setStatus(id, model.OutboxStatusFailed, true)
}

func (r *OutboxRepository) setStatus(id int64, status string, bumpRetry bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg, ok := r.messages[id]; ok {
		msg.Status = status
		if bumpRetry {
			msg.RetryCount++
		}
		msg.UpdatedAt = time.Now()
	}
	return nil
}
