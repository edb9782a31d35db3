package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/civic-service/internal/domain"
)

// redisQueueRepository keeps each service queue as a redis list of ticket ids
// with ticket fields in a hash per ticket.
type redisQueueRepository struct {
	client *redis.Client
	prefix string
	newID  func() string
	now    func() time.Time
}

// NewRedisQueueRepository instantiates the redis-backed queue store.
func NewRedisQueueRepository(client *redis.Client, prefix string) QueueRepository {
	return &redisQueueRepository{
		client: client,
		prefix: prefix,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func (r *redisQueueRepository) seqKey(serviceID int64) string {
	return fmt.Sprintf("%s:seq:%d", r.prefix, serviceID)
}

func (r *redisQueueRepository) pendingKey(serviceID int64) string {
	return fmt.Sprintf("%s:pending:%d", r.prefix, serviceID)
}

func (r *redisQueueRepository) ticketKey(ticketID string) string {
	return r.prefix + ":ticket:" + ticketID
}

func (r *redisQueueRepository) NextSequence(ctx context.Context, serviceID int64) (int64, error) {
	return r.client.Incr(ctx, r.seqKey(serviceID)).Result()
}

func (r *redisQueueRepository) Insert(ctx context.Context, ticket *domain.QueueTicket) error {
	ticket.ID = r.newID()
	ticket.CreatedAt = r.now().UTC()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.ticketKey(ticket.ID),
		"service_id", strconv.FormatInt(ticket.ServiceID, 10),
		"ticket_code", ticket.TicketCode,
		"created_at", strconv.FormatInt(ticket.CreatedAt.UnixNano(), 10),
	)
	pipe.RPush(ctx, r.pendingKey(ticket.ServiceID), ticket.ID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisQueueRepository) CountPending(ctx context.Context, serviceID int64) (int, error) {
	n, err := r.client.LLen(ctx, r.pendingKey(serviceID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *redisQueueRepository) ListPending(ctx context.Context, serviceID int64) ([]domain.QueueTicket, error) {
	ids, err := r.client.LRange(ctx, r.pendingKey(serviceID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.QueueTicket{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	pipe := r.client.Pipeline()
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.ticketKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	result := make([]domain.QueueTicket, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		// served between LRANGE and HGETALL
		if len(fields) == 0 {
			continue
		}
		ticket, err := ticketFromHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (r *redisQueueRepository) DeleteIfPresent(ctx context.Context, ticketID string) (bool, error) {
	rawService, err := r.client.HGet(ctx, r.ticketKey(ticketID), "service_id").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	serviceID, err := strconv.ParseInt(rawService, 10, 64)
	if err != nil {
		return false, fmt.Errorf("ticket %s: bad service_id %q: %w", ticketID, rawService, err)
	}

	// LREM is atomic; only one concurrent caller sees a removal.
	removed, err := r.client.LRem(ctx, r.pendingKey(serviceID), 1, ticketID).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}
	// The claim already succeeded; a leftover hash is unreachable from the list.
	_ = r.client.Del(ctx, r.ticketKey(ticketID)).Err()
	return true, nil
}

func ticketFromHash(id string, fields map[string]string) (domain.QueueTicket, error) {
	serviceID, err := strconv.ParseInt(fields["service_id"], 10, 64)
	if err != nil {
		return domain.QueueTicket{}, fmt.Errorf("ticket %s: bad service_id: %w", id, err)
	}
	nanos, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.QueueTicket{}, fmt.Errorf("ticket %s: bad created_at: %w", id, err)
	}
	return domain.QueueTicket{
		ID:         id,
		ServiceID:  serviceID,
		TicketCode: fields["ticket_code"],
		CreatedAt:  time.Unix(0, nanos).UTC(),
	}, nil
}
