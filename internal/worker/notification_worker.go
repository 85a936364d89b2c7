package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civic-kit/civic-issue-service/internal/mail"
)

// NotificationWorker drains the Redis outbox and delivers queued email jobs.
type NotificationWorker struct {
	queue    *redis.Client
	queueKey string
	mailer   mail.Mailer
	logger   *zap.Logger
	done     chan struct{}
}

// NewNotificationWorker builds a worker over the given queue. queue may be
// nil, in which case Start is a no-op.
func NewNotificationWorker(queue *redis.Client, queueKey string, mailer mail.Mailer, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		queue:    queue,
		queueKey: queueKey,
		mailer:   mailer,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the consume loop. It returns immediately; the loop runs
// until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	if w.queue == nil {
		w.logger.Warn("no redis queue configured; notification worker disabled")
		close(w.done)
		return
	}
	go w.run(ctx)
}

// Wait blocks until the consume loop has exited.
func (w *NotificationWorker) Wait() {
	<-w.done
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("notification worker started", zap.String("queue", w.queueKey))

	for {
		result, err := w.queue.BRPop(ctx, 5*time.Second, w.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.logger.Info("notification worker stopping")
				return
			}
			w.logger.Warn("failed to read notification queue", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}
		w.deliver(ctx, []byte(result[1]))
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, payload []byte) {
	var msg mail.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		w.logger.Warn("dropping malformed notification job", zap.Error(err))
		return
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	w.logger.Debug("notification delivered", zap.String("to", msg.To))
}
