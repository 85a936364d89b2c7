package events

import (
	"time"

	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketInProgress  EventType = "ticket_in_progress"
	EventTicketResolved    EventType = "ticket_resolved"
	EventWorkOrderAssigned EventType = "work_order_assigned"
	EventWorkOrderRejected EventType = "work_order_rejected"
	EventWorkOrderVerified EventType = "work_order_verified"
)

// TicketSnapshot carries the ticket fields notification templates need.
type TicketSnapshot struct {
	TicketID    string              `json:"ticket_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	IssueType   string              `json:"issue_type"`
	Department  string              `json:"department"`
	Ward        string              `json:"ward"`
	Status      domain.TicketStatus `json:"status"`
}

// Event is a domain event emitted after a successful transition. Recipient
// is resolved by the emitting service; an empty recipient means there is
// nobody to notify and handlers skip the event.
type Event struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"type"`
	TicketID       string          `json:"ticket_id,omitempty"`
	WorkOrderID    string          `json:"work_order_id,omitempty"`
	ActorID        string          `json:"actor_id"`
	ActorName      string          `json:"actor_name,omitempty"`
	RecipientEmail string          `json:"recipient_email,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Ticket         *TicketSnapshot `json:"ticket,omitempty"`
	Note           string          `json:"note,omitempty"`
}
