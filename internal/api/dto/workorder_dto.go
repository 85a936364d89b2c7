package dto

import (
	"time"

	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// CreateWorkOrderRequest payload.
type CreateWorkOrderRequest struct {
	TicketID    string                   `json:"ticket_id"`
	Category    string                   `json:"category"`
	Description string                   `json:"description"`
	Department  string                   `json:"department"`
	WardID      string                   `json:"ward_id"`
	Priority    domain.WorkOrderPriority `json:"priority"`
}

// AssignWorkOrderRequest payload.
type AssignWorkOrderRequest struct {
	ContractorID string `json:"contractor_id"`
}

// AcceptWorkOrderRequest payload; ETA is optional.
type AcceptWorkOrderRequest struct {
	ETA *time.Time `json:"eta,omitempty"`
}

// RejectWorkOrderRequest payload; reason is mandatory.
type RejectWorkOrderRequest struct {
	Reason string `json:"reason"`
}

// CompleteWorkOrderRequest payload.
type CompleteWorkOrderRequest struct {
	Notes string `json:"notes"`
}

// VerifyWorkOrderRequest payload.
type VerifyWorkOrderRequest struct {
	Notes string `json:"notes"`
}

// DelayWorkOrderRequest payload; reason is mandatory, new ETA optional.
type DelayWorkOrderRequest struct {
	Reason string     `json:"reason"`
	NewETA *time.Time `json:"new_eta,omitempty"`
}

// TimelineEntryResponse mirrors one audit record.
type TimelineEntryResponse struct {
	Status    domain.WorkOrderStatus `json:"status"`
	ActorID   string                 `json:"actor_id"`
	Note      string                 `json:"note,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// WorkOrderSummary response for list endpoints.
type WorkOrderSummary struct {
	ID           string                   `json:"id"`
	WorkOrderID  string                   `json:"work_order_id"`
	TicketID     string                   `json:"ticket_id,omitempty"`
	Category     string                   `json:"category"`
	Status       domain.WorkOrderStatus   `json:"status"`
	Priority     domain.WorkOrderPriority `json:"priority"`
	ContractorID string                   `json:"contractor_id,omitempty"`
	Delayed      bool                     `json:"delayed"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// WorkOrderDetailResponse provides full work-order info.
type WorkOrderDetailResponse struct {
	ID                string                   `json:"id"`
	WorkOrderID       string                   `json:"work_order_id"`
	TicketID          string                   `json:"ticket_id,omitempty"`
	Category          string                   `json:"category"`
	Description       string                   `json:"description,omitempty"`
	Department        string                   `json:"department,omitempty"`
	WardID            string                   `json:"ward_id,omitempty"`
	Priority          domain.WorkOrderPriority `json:"priority"`
	Status            domain.WorkOrderStatus   `json:"status"`
	ContractorID      string                   `json:"contractor_id,omitempty"`
	AssignedBy        string                   `json:"assigned_by,omitempty"`
	CreatedBy         string                   `json:"created_by,omitempty"`
	VerifiedBy        string                   `json:"verified_by,omitempty"`
	RejectionReason   string                   `json:"rejection_reason,omitempty"`
	VerificationNotes string                   `json:"verification_notes,omitempty"`
	CompletionNotes   string                   `json:"completion_notes,omitempty"`
	Delayed           bool                     `json:"delayed"`
	DelayReason       string                   `json:"delay_reason,omitempty"`
	ETA               *time.Time               `json:"eta,omitempty"`
	ActualArrival     *time.Time               `json:"actual_arrival,omitempty"`
	Timeline          []TimelineEntryResponse  `json:"timeline"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
	AssignedAt        *time.Time               `json:"assigned_at,omitempty"`
	CompletedAt       *time.Time               `json:"completed_at,omitempty"`
	VerifiedAt        *time.Time               `json:"verified_at,omitempty"`
	ClosedAt          *time.Time               `json:"closed_at,omitempty"`
}
