package domain

import "time"

// WorkOrderStatus enumerates the contractor-facing lifecycle.
type WorkOrderStatus string

const (
	WorkOrderStatusCreated    WorkOrderStatus = "created"
	WorkOrderStatusAssigned   WorkOrderStatus = "assigned"
	WorkOrderStatusAccepted   WorkOrderStatus = "accepted"
	WorkOrderStatusRejected   WorkOrderStatus = "rejected"
	WorkOrderStatusEnRoute    WorkOrderStatus = "en_route"
	WorkOrderStatusOnSite     WorkOrderStatus = "on_site"
	WorkOrderStatusInProgress WorkOrderStatus = "in_progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "completed"
	WorkOrderStatusVerified   WorkOrderStatus = "verified"
	WorkOrderStatusClosed     WorkOrderStatus = "closed"
)

// WorkOrderPriority enumerates urgency of field work.
type WorkOrderPriority string

const (
	WorkOrderPriorityLow      WorkOrderPriority = "low"
	WorkOrderPriorityMedium   WorkOrderPriority = "medium"
	WorkOrderPriorityHigh     WorkOrderPriority = "high"
	WorkOrderPriorityCritical WorkOrderPriority = "critical"
)

// TimelineEntry is one append-only audit record on a work order.
type TimelineEntry struct {
	Status    WorkOrderStatus `json:"status"`
	ActorID   string          `json:"actor_id"`
	Note      string          `json:"note,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WorkOrder is a contractor-facing unit of field work derived from a
// validated complaint. Delayed is an orthogonal SLA-breach flag, not a
// lifecycle state.
type WorkOrder struct {
	ID                string
	WorkOrderID       string // external key, WO-XXXXXXXX
	TicketID          string
	Category          string
	Description       string
	Department        string
	WardID            string
	Priority          WorkOrderPriority
	Status            WorkOrderStatus
	ContractorID      string
	AssignedBy        string
	CreatedBy         string
	VerifiedBy        string
	RejectionReason   string
	VerificationNotes string
	CompletionNotes   string
	Delayed           bool
	DelayReason       string
	ETA               *time.Time
	ActualArrival     *time.Time
	Timeline          []TimelineEntry
	CreatedAt         time.Time
	UpdatedAt         time.Time
	AssignedAt        *time.Time
	CompletedAt       *time.Time
	VerifiedAt        *time.Time
	ClosedAt          *time.Time
}

// AppendTimeline records a transition on the embedded audit trail.
func (w *WorkOrder) AppendTimeline(status WorkOrderStatus, actorID, note string, at time.Time) {
	w.Timeline = append(w.Timeline, TimelineEntry{
		Status:    status,
		ActorID:   actorID,
		Note:      note,
		Timestamp: at,
	})
}
