package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/domain"
	"github.com/spec-kit/civic-service/internal/events"
	"github.com/spec-kit/civic-service/internal/observability"
	"github.com/spec-kit/civic-service/internal/repository"
	apperrors "github.com/spec-kit/civic-service/pkg/util"
)

// QueueService issues office queue tickets and picks the next customer.
type QueueService struct {
	queue      repository.QueueRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	attempts   int
}

// QueueDependencies bundles collaborators for the queue service.
type QueueDependencies struct {
	QueueRepo       repository.QueueRepository
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	DispatchRetries int
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.DispatchRetries
	if attempts < 1 {
		attempts = 1
	}
	return &QueueService{
		queue:      deps.QueueRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		attempts:   attempts,
	}
}

// CreateTicket enqueues a new ticket for serviceID with the next display code.
func (s *QueueService) CreateTicket(ctx context.Context, serviceID int64) (*domain.QueueTicket, error) {
	details := map[string]any{"service_id": serviceID}
	seq, err := s.queue.NextSequence(ctx, serviceID)
	if err != nil {
		return nil, storeError(err, "service", details)
	}
	ticket := &domain.QueueTicket{
		ServiceID:  serviceID,
		TicketCode: domain.FormatTicketCode(serviceID, seq),
	}
	if err := s.queue.Insert(ctx, ticket); err != nil {
		return nil, storeError(err, "ticket", details)
	}

	s.metrics.RecordTicketIssued(serviceID)
	s.publish(ctx, events.EventTicketIssued, ticket)
	return ticket, nil
}

// NextCustomerByServiceIDs serves the oldest ticket of the longest queue among
// serviceIDs; ties go to the service listed first. It returns nil when there is
// nothing to serve.
func (s *QueueService) NextCustomerByServiceIDs(ctx context.Context, serviceIDs []int64) (*domain.QueueTicket, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		head, err := s.selectHead(ctx, serviceIDs)
		if err != nil {
			return nil, err
		}
		if head == nil {
			s.metrics.RecordDispatch(nil)
			return nil, nil
		}

		claimed, err := s.queue.DeleteIfPresent(ctx, head.ID)
		if err != nil {
			return nil, storeError(err, "ticket", map[string]any{"ticket_id": head.ID})
		}
		if claimed {
			s.metrics.RecordDispatch(&head.ServiceID)
			s.publish(ctx, events.EventTicketServed, head)
			return head, nil
		}
		s.logger.Debug("ticket served by another counter; reselecting",
			zap.String("ticket_id", head.ID),
			zap.Int("attempt", attempt))
	}

	return nil, apperrors.NewConflict("queues changed while dispatching; retry", map[string]any{
		"service_ids": serviceIDs,
	})
}

// QueueLengths reports the number of waiting tickets per service.
func (s *QueueService) QueueLengths(ctx context.Context, serviceIDs []int64) (map[int64]int, error) {
	lengths := make(map[int64]int, len(serviceIDs))
	for _, id := range serviceIDs {
		count, err := s.queue.CountPending(ctx, id)
		if err != nil {
			return nil, storeError(err, "service", map[string]any{"service_id": id})
		}
		lengths[id] = count
	}
	return lengths, nil
}

func (s *QueueService) selectHead(ctx context.Context, serviceIDs []int64) (*domain.QueueTicket, error) {
	var longest []domain.QueueTicket
	for _, id := range serviceIDs {
		pending, err := s.queue.ListPending(ctx, id)
		if err != nil {
			return nil, storeError(err, "service", map[string]any{"service_id": id})
		}
		// strict comparison keeps the earlier service on ties
		if len(pending) > len(longest) {
			longest = pending
		}
	}
	if len(longest) == 0 {
		return nil, nil
	}
	head := longest[0]
	return &head, nil
}

func (s *QueueService) publish(ctx context.Context, eventType events.EventType, ticket *domain.QueueTicket) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload: events.TicketPayload{
			TicketID:   ticket.ID,
			ServiceID:  ticket.ServiceID,
			TicketCode: ticket.TicketCode,
		},
	})
	if err != nil {
		s.logger.Warn("publish queue event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
