package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civic-kit/civic-issue-service/internal/config"
	"github.com/civic-kit/civic-issue-service/internal/events"
	"github.com/civic-kit/civic-issue-service/internal/mail"
	"github.com/civic-kit/civic-issue-service/internal/observability"
)

// NotificationService turns domain events into email jobs. Jobs are queued
// on a Redis list and drained by the notification worker; when Redis is
// unavailable the message is sent directly on a detached goroutine. Every
// failure is logged and swallowed, so a broken notification pipeline never
// affects the transition that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      *redis.Client
	mailer     mail.Mailer
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. queue may be nil.
func NewNotificationService(
	dispatcher events.Dispatcher,
	queue *redis.Client,
	mailer mail.Mailer,
	logger *zap.Logger,
	metrics *observability.Metrics,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		mailer:     mailer,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every event type that produces mail.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketInProgress,
		events.EventTicketResolved,
		events.EventWorkOrderAssigned,
		events.EventWorkOrderRejected,
		events.EventWorkOrderVerified,
	} {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
	}
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	if event.RecipientEmail == "" {
		n.logger.Debug("event has no recipient; skipping notification",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return nil
	}

	msg := mail.Message{
		To:      event.RecipientEmail,
		Subject: renderSubject(event),
		Body:    renderBody(event),
	}
	n.enqueue(ctx, event.Type, msg)
	return nil
}

// enqueue pushes the job onto the Redis outbox. On failure it falls back to
// a direct send on a detached goroutine.
func (n *NotificationService) enqueue(ctx context.Context, eventType events.EventType, msg mail.Message) {
	if n.queue != nil {
		payload, err := json.Marshal(msg)
		if err == nil {
			if err := n.queue.LPush(ctx, n.cfg.QueueKey, payload).Err(); err == nil {
				n.metrics.RecordNotification(string(eventType), "queued")
				return
			} else {
				n.logger.Warn("failed to enqueue notification; falling back to direct send",
					zap.String("event_type", string(eventType)), zap.Error(err))
			}
		}
	}

	go func() {
		if err := n.mailer.Send(context.Background(), msg); err != nil {
			n.metrics.RecordNotification(string(eventType), "failed")
			n.logger.Warn("notification delivery failed",
				zap.String("event_type", string(eventType)),
				zap.String("to", msg.To),
				zap.Error(err))
			return
		}
		n.metrics.RecordNotification(string(eventType), "sent")
	}()
}

func renderSubject(event events.Event) string {
	switch event.Type {
	case events.EventTicketCreated:
		return fmt.Sprintf("Complaint %s received", event.TicketID)
	case events.EventTicketAssigned:
		return fmt.Sprintf("Complaint %s assigned", event.TicketID)
	case events.EventTicketInProgress:
		return fmt.Sprintf("Work started on complaint %s", event.TicketID)
	case events.EventTicketResolved:
		return fmt.Sprintf("Complaint %s resolved", event.TicketID)
	case events.EventWorkOrderAssigned:
		return fmt.Sprintf("New work order %s", event.WorkOrderID)
	case events.EventWorkOrderRejected:
		return fmt.Sprintf("Work order %s rejected", event.WorkOrderID)
	case events.EventWorkOrderVerified:
		return fmt.Sprintf("Work order %s verified", event.WorkOrderID)
	default:
		return "Civic issue update"
	}
}

func renderBody(event events.Event) string {
	var b strings.Builder
	switch event.Type {
	case events.EventTicketCreated:
		b.WriteString("Your complaint has been registered and is awaiting triage.\n")
	case events.EventTicketAssigned:
		b.WriteString("Your complaint has been assigned")
		if event.ActorName != "" {
			fmt.Fprintf(&b, " to %s", event.ActorName)
		}
		b.WriteString(".\n")
	case events.EventTicketInProgress:
		b.WriteString("Work on your complaint is now in progress.\n")
	case events.EventTicketResolved:
		b.WriteString("Your complaint has been resolved. Thank you for reporting.\n")
	case events.EventWorkOrderAssigned:
		b.WriteString("A work order has been assigned to you.\n")
	case events.EventWorkOrderRejected:
		b.WriteString("The contractor rejected the work order.\n")
	case events.EventWorkOrderVerified:
		b.WriteString("The completed work order passed verification.\n")
	}

	if event.Ticket != nil {
		fmt.Fprintf(&b, "\nReference: %s\nTitle: %s\nStatus: %s\n",
			event.Ticket.TicketID, event.Ticket.Title, event.Ticket.Status)
		if event.Ticket.Department != "" {
			fmt.Fprintf(&b, "Department: %s\n", event.Ticket.Department)
		}
		if event.Ticket.Ward != "" {
			fmt.Fprintf(&b, "Ward: %s\n", event.Ticket.Ward)
		}
	} else if event.WorkOrderID != "" {
		fmt.Fprintf(&b, "\nReference: %s\n", event.WorkOrderID)
	}
	if event.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", event.Note)
	}
	return b.String()
}
