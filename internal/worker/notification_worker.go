package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/civic-service/internal/service"
)

// ErrQueueFull is returned when the worker buffer cannot take another notification.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned after Stop.
var ErrStopped = errors.New("notification worker stopped")

// Deliverer performs a single notification delivery.
type Deliverer interface {
	Deliver(ctx context.Context, notification service.Notification) error
}

// NotificationWorker delivers notifications off the request path.
type NotificationWorker struct {
	deliverer Deliverer
	queue     chan service.Notification
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// NewNotificationWorker builds a worker with a bounded buffer.
func NewNotificationWorker(deliverer Deliverer, bufferSize int, timeout time.Duration, logger *zap.Logger) *NotificationWorker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		deliverer: deliverer,
		queue:     make(chan service.Notification, bufferSize),
		timeout:   timeout,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Notify enqueues without blocking.
func (w *NotificationWorker) Notify(_ context.Context, notification service.Notification) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- notification:
		return nil
	default:
		w.logger.Warn("dropping notification",
			zap.Int64("conversation_id", notification.ConversationID),
			zap.String("kind", string(notification.Kind)))
		return ErrQueueFull
	}
}

// Start consumes the queue until Stop is called. Pending notifications are
// drained before the goroutine exits.
func (w *NotificationWorker) Start() {
	go func() {
		defer close(w.done)
		for notification := range w.queue {
			w.deliver(notification)
		}
	}()
}

// Stop closes the queue and waits for the consumer up to ctx.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *NotificationWorker) deliver(notification service.Notification) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.deliverer.Deliver(ctx, notification); err != nil {
		w.logger.Error("notification delivery failed",
			zap.Int64("conversation_id", notification.ConversationID),
			zap.Int64("report_id", notification.ReportID),
			zap.String("kind", string(notification.Kind)),
			zap.Error(err))
	}
}

// StartNotificationWorker registers notification handlers and starts consuming.
func StartNotificationWorker(notifications *service.NotificationService, w *NotificationWorker) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if w != nil {
		w.Start()
	}
}
