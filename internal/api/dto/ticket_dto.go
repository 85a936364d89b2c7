package dto

import (
	"time"

	"github.com/civic-kit/civic-issue-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
	Department  string `json:"department"`
	Ward        string `json:"ward"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// TicketSummary response for list endpoints.
type TicketSummary struct {
	ID         string              `json:"id"`
	TicketID   string              `json:"ticket_id"`
	Title      string              `json:"title"`
	IssueType  string              `json:"issue_type,omitempty"`
	Department string              `json:"department,omitempty"`
	Ward       string              `json:"ward,omitempty"`
	Status     domain.TicketStatus `json:"status"`
	AssignedTo string              `json:"assigned_to,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              string              `json:"id"`
	TicketID        string              `json:"ticket_id"`
	CitizenID       string              `json:"citizen_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	IssueType       string              `json:"issue_type,omitempty"`
	Department      string              `json:"department,omitempty"`
	Ward            string              `json:"ward,omitempty"`
	Status          domain.TicketStatus `json:"status"`
	AssignedTo      string              `json:"assigned_to,omitempty"`
	AssignedBy      string              `json:"assigned_by,omitempty"`
	ResolvedBy      string              `json:"resolved_by,omitempty"`
	ResolutionNotes string              `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	AssignedAt      *time.Time          `json:"assigned_at,omitempty"`
	InProgressAt    *time.Time          `json:"in_progress_at,omitempty"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
}
